package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a registered account. Admin and super-admin flags gate the
// privileged auction transitions; accounts carrying either flag never bid.
type User struct {
	gorm.Model

	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"type:varchar(255);not null"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex,where:deleted_at IS NULL"`
	Phone        string    `gorm:"type:varchar(32)"`
	IsAdmin      bool      `gorm:"not null;default:false"`
	IsSuperAdmin bool      `gorm:"not null;default:false"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
