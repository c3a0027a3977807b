package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RaceStatus is the real-world status of the race being auctioned.
type RaceStatus string

const (
	RaceScheduled RaceStatus = "scheduled"
	RaceRun       RaceStatus = "run"
	RaceSuspended RaceStatus = "suspended"
)

// Race is the real-world horse race an auction is held over.
type Race struct {
	gorm.Model

	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name        string     `gorm:"type:varchar(255);not null"`
	Venue       string     `gorm:"type:varchar(255)"`
	RaceNumber  int        `gorm:"not null"`
	ScheduledAt time.Time  `gorm:"not null"`
	Status      RaceStatus `gorm:"type:varchar(16);not null;default:'scheduled'"`

	Horses []Horse
}

func (r *Race) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Horse is one contestant in a race. Number is unique within the race and
// StartingPrice is the floor every ladder computation starts from.
type Horse struct {
	gorm.Model

	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RaceID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_horse_race_number,where:deleted_at IS NULL"`
	Number        int             `gorm:"not null;uniqueIndex:idx_horse_race_number,where:deleted_at IS NULL"`
	Name          string          `gorm:"type:varchar(255);not null"`
	Jockey        string          `gorm:"type:varchar(255)"`
	Trainer       string          `gorm:"type:varchar(255)"`
	Comments      string          `gorm:"type:text"`
	StartingPrice decimal.Decimal `gorm:"type:numeric(14,2);not null"`

	Race *Race `gorm:"foreignKey:RaceID"`
}

func (h *Horse) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
