package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settlement is the report written when an auction is settled: the pot
// (sum of final per-horse prices), the house cut, the net prize and the
// winner. WinnerUserID nil means the house won the winning horse.
type Settlement struct {
	gorm.Model

	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AuctionID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex,where:deleted_at IS NULL"`
	WinnerHorseID uuid.UUID       `gorm:"type:uuid;not null"`
	WinnerUserID  *uuid.UUID      `gorm:"type:uuid"`
	Pot           decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	HouseCut      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	NetPrize      decimal.Decimal `gorm:"type:numeric(14,2);not null"`

	Auction     *Auction `gorm:"foreignKey:AuctionID"`
	WinnerHorse *Horse   `gorm:"foreignKey:WinnerHorseID"`
	WinnerUser  *User    `gorm:"foreignKey:WinnerUserID"`
}

func (s *Settlement) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
