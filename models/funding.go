package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestStatus is the review status of a deposit or withdrawal request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// DepositRequest is a user's claim of an off-platform payment waiting for
// admin review. Approval credits the wallet; either decision is recorded
// with the deciding admin and notifies the back office by mail.
type DepositRequest struct {
	gorm.Model

	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Method         string          `gorm:"type:varchar(64);not null"`
	PaymentPhone   string          `gorm:"type:varchar(32)"`
	Reference      string          `gorm:"type:varchar(64);not null"`
	PaidAt         time.Time       `gorm:"not null"`
	ReceiptURL     *string         `gorm:"type:text"`
	Status         RequestStatus   `gorm:"type:varchar(16);not null;default:'pending';index"`
	DecidedBy      *uuid.UUID      `gorm:"type:uuid"`
	DecidedAt      *time.Time
	DecisionReason string `gorm:"type:text"`

	User    *User `gorm:"foreignKey:UserID"`
	Decider *User `gorm:"foreignKey:DecidedBy"`
}

func (d *DepositRequest) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// WithdrawalRequest asks for available funds to be paid out. Approval
// debits the wallet; the amount stays available (not locked) while the
// request is pending, so approval re-checks the balance.
type WithdrawalRequest struct {
	gorm.Model

	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Method         string          `gorm:"type:varchar(64);not null"`
	Destination    string          `gorm:"type:text;not null"`
	Status         RequestStatus   `gorm:"type:varchar(16);not null;default:'pending';index"`
	DecidedBy      *uuid.UUID      `gorm:"type:uuid"`
	DecidedAt      *time.Time
	DecisionReason string `gorm:"type:text"`

	User    *User `gorm:"foreignKey:UserID"`
	Decider *User `gorm:"foreignKey:DecidedBy"`
}

func (w *WithdrawalRequest) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
