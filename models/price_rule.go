package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceRule is one increment band. HorseID nil scopes the band to the
// auction's default rule set; a horse with at least one rule of its own
// ignores the defaults entirely. MaxPrice nil means the band is unbounded
// above. Bands within one scope must not overlap; that is enforced at
// creation time.
type PriceRule struct {
	gorm.Model

	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	AuctionID uuid.UUID        `gorm:"type:uuid;not null;index"`
	HorseID   *uuid.UUID       `gorm:"type:uuid;index"`
	MinPrice  decimal.Decimal  `gorm:"type:numeric(14,2);not null"`
	MaxPrice  *decimal.Decimal `gorm:"type:numeric(14,2)"`
	Increment decimal.Decimal  `gorm:"type:numeric(14,2);not null"`

	Auction *Auction `gorm:"foreignKey:AuctionID"`
	Horse   *Horse   `gorm:"foreignKey:HorseID"`
}

func (r *PriceRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
