package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User mirrors an account signed in through an OAuth provider.
type User struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Provider   string    `gorm:"size:20;not null;uniqueIndex:idx_provider_account" json:"provider"`
	ProviderID string    `gorm:"size:64;not null;uniqueIndex:idx_provider_account" json:"provider_id"`
	Email      string    `gorm:"size:255;index" json:"email"`
	Nickname   string    `gorm:"size:100" json:"nickname"`
	AvatarURL  string    `json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// BeforeCreate assigns a UUID when the caller did not.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Admin is an entry in the admin allow-list.
type Admin struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for Admin.
func (Admin) TableName() string { return "admins" }

// BeforeCreate assigns a UUID when the caller did not.
func (a *Admin) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
