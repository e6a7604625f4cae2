package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account that can push and pull reading progress. The "admin"
// username is reserved: it is seeded at startup, always an administrator,
// and the management endpoints refuse to mutate it.
type User struct {
	ID              string `gorm:"primaryKey;size:36" json:"id"`
	Username        string `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash    string `gorm:"not null" json:"-"`
	IsActive        bool   `gorm:"default:true" json:"isActive"`
	IsAdministrator bool   `gorm:"default:false" json:"isAdministrator"`

	Documents []Document `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Document holds the reading progress for one (user, document hash) pair.
// Created on the first progress push for a hash and overwritten in place on
// every later push. Timestamp is always server time at the moment of write.
type Document struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       string    `gorm:"size:36;not null;uniqueIndex:idx_user_document" json:"-"`
	DocumentHash string    `gorm:"not null;uniqueIndex:idx_user_document" json:"documentHash"`
	Progress     string    `json:"progress"`
	Percentage   float64   `json:"percentage"`
	Device       string    `json:"device"`
	DeviceID     string    `json:"deviceId"`
	Timestamp    time.Time `json:"timestamp"`
}
