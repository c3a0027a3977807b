package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet keeps a user's available and locked balances. Available funds move
// into Locked when a bid is admitted and back out on release; settlement
// converts the winning lock into a charge. Version is an optimistic-lock
// counter: every balance mutation must carry the version it read, a stale
// write updates zero rows.
type Wallet struct {
	gorm.Model

	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex,where:deleted_at IS NULL"`
	Available decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Locked    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Version   uint64          `gorm:"not null;default:0"`

	User *User `gorm:"foreignKey:UserID"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// MovementKind classifies a wallet movement row.
type MovementKind string

const (
	MovementLock       MovementKind = "lock"
	MovementRelease    MovementKind = "release"
	MovementCharge     MovementKind = "charge"
	MovementCredit     MovementKind = "credit"
	MovementDeposit    MovementKind = "deposit"
	MovementWithdrawal MovementKind = "withdrawal"
)

// WalletMovement is the append-only bookkeeping trail behind every balance
// mutation. Auction and horse references are set for engine-driven movements
// (lock/release/charge/credit) and empty for deposits and withdrawals.
type WalletMovement struct {
	gorm.Model

	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WalletID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind      MovementKind    `gorm:"type:varchar(16);not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	AuctionID *uuid.UUID      `gorm:"type:uuid;index"`
	HorseID   *uuid.UUID      `gorm:"type:uuid"`
	Note      string          `gorm:"type:text"`

	Wallet *Wallet `gorm:"foreignKey:WalletID"`
}

func (m *WalletMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
