package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bid is one admitted wager. Bids are append-only; the current price and
// leader of a horse are projections over its bid log, never stored fields.
// CreatedAt doubles as the tie-break timestamp: on equal amounts the
// earliest bid keeps the lead.
type Bid struct {
	gorm.Model

	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AuctionID uuid.UUID       `gorm:"type:uuid;not null;index;<-:create"`
	HorseID   uuid.UUID       `gorm:"type:uuid;not null;index;<-:create"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;<-:create"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null;<-:create"`
	Manual    bool            `gorm:"not null;default:false;<-:create"`

	Auction *Auction `gorm:"foreignKey:AuctionID"`
	Horse   *Horse   `gorm:"foreignKey:HorseID"`
	User    *User    `gorm:"foreignKey:UserID"`
}

func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
