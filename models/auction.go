package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AuctionState is the lifecycle state of an auction. The state only moves
// forward: open → closed → settled, open → cancelled, {closed, settled} →
// archived. Cancelled and archived are terminal.
type AuctionState string

const (
	AuctionOpen      AuctionState = "open"
	AuctionClosed    AuctionState = "closed"
	AuctionSettled   AuctionState = "settled"
	AuctionCancelled AuctionState = "cancelled"
	AuctionArchived  AuctionState = "archived"
)

// AuctionType distinguishes live auctions from advance ones sold ahead of
// race day.
type AuctionType string

const (
	AuctionLive    AuctionType = "live"
	AuctionAdvance AuctionType = "advance"
)

// Auction is the object users bid within. MinIncrement is the global
// fallback when no price rule band matches, MinimumBet the absolute floor
// for any next bid, and HousePercentage the cut applied to the pot at
// settlement (0–100).
type Auction struct {
	gorm.Model

	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RaceID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name            string          `gorm:"type:varchar(255);not null"`
	State           AuctionState    `gorm:"type:varchar(16);not null;default:'open';index"`
	Type            AuctionType     `gorm:"type:varchar(16);not null;default:'live'"`
	MinIncrement    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	MinimumBet      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	HousePercentage decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	OpensAt         time.Time       `gorm:"not null"`
	ClosesAt        time.Time       `gorm:"not null"`
	ClosedAt        *time.Time
	SettledAt       *time.Time
	CancelledAt     *time.Time
	ArchivedAt      *time.Time
	WinnerHorseID   *uuid.UUID `gorm:"type:uuid"`
	CancelReason    string     `gorm:"type:text"`
	ArchiveReason   string     `gorm:"type:text"`

	Race        *Race  `gorm:"foreignKey:RaceID"`
	WinnerHorse *Horse `gorm:"foreignKey:WinnerHorseID"`
	Bids        []Bid
	PriceRules  []PriceRule
}

func (a *Auction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether no further transition is legal from the current
// state.
func (a *Auction) Terminal() bool {
	return a.State == AuctionCancelled || a.State == AuctionArchived
}

// AuctionEvent is the audit row written on every state transition. ActorID
// is nil for transitions triggered by the system (automatic close on
// expiry).
type AuctionEvent struct {
	gorm.Model

	ID        uuid.UUID    `gorm:"type:uuid;primaryKey"`
	AuctionID uuid.UUID    `gorm:"type:uuid;not null;index"`
	ActorID   *uuid.UUID   `gorm:"type:uuid"`
	FromState AuctionState `gorm:"type:varchar(16);not null"`
	ToState   AuctionState `gorm:"type:varchar(16);not null"`
	Reason    string       `gorm:"type:text"`

	Auction *Auction `gorm:"foreignKey:AuctionID"`
}

func (e *AuctionEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
