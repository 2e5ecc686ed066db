package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileLike is a per-user, per-profile endorsement.
// The combination of ProfileID and UserID is unique.
type ProfileLike struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProfileID string    `gorm:"size:36;not null;uniqueIndex:idx_profile_user" json:"profile_id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_profile_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ProfileLike.
func (ProfileLike) TableName() string { return "profile_likes" }

// BeforeCreate assigns a UUID when the caller did not.
func (l *ProfileLike) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// NewProfileLike is the insert payload for a like.
type NewProfileLike struct {
	ProfileID string `json:"profile_id"`
	UserID    string `json:"user_id"`
}

// LikeStatus is the like state of one profile as seen by one user.
type LikeStatus struct {
	ProfileID string `json:"profile_id"`
	LikeCount int    `json:"like_count"`
	UserLiked bool   `json:"user_liked"`
}
