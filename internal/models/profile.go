// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleUser is the role every profile starts with.
const RoleUser = "user"

// Profile is a user's public card.
// Comments and LikeCount are denormalized counters maintained by the repositories.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    *string   `gorm:"size:36;index" json:"user_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Features  string    `gorm:"size:500;not null" json:"features"`
	Bio       string    `gorm:"type:text;not null" json:"bio"`
	ImageURL  *string   `json:"image_url"`
	Role      string    `gorm:"size:20;not null;default:user" json:"role"`
	Comments  int       `gorm:"not null;default:0" json:"comments"`
	LikeCount int       `gorm:"not null;default:0" json:"like_count"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// BeforeCreate assigns a UUID when the caller did not.
func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// FeatureList returns the profile's tags as a slice.
func (p *Profile) FeatureList() []string {
	return FeaturesFromString(p.Features)
}

// NewProfile is the insert payload for a profile.
type NewProfile struct {
	UserID   *string `json:"user_id,omitempty"`
	Name     string  `json:"name"`
	Features string  `json:"features"`
	Bio      string  `json:"bio"`
	ImageURL *string `json:"image_url,omitempty"`
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Features *string `json:"features,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Columns returns the non-nil fields as a column map.
func (u ProfileUpdate) Columns() map[string]any {
	cols := map[string]any{}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Features != nil {
		cols["features"] = *u.Features
	}
	if u.Bio != nil {
		cols["bio"] = *u.Bio
	}
	if u.ImageURL != nil {
		cols["image_url"] = *u.ImageURL
	}
	return cols
}
