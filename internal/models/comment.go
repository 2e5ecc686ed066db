package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a message attached to a profile, optionally a reply to another comment.
type Comment struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	ProfileID  string     `gorm:"size:36;not null;index" json:"profile_id"`
	AuthorName string     `gorm:"size:50;not null" json:"author_name"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	ParentID   *string    `gorm:"size:36;index" json:"parent_id"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Replies    []*Comment `gorm:"-" json:"replies,omitempty"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// BeforeCreate assigns a UUID when the caller did not.
func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// NewComment is the insert payload for a comment.
type NewComment struct {
	ProfileID  string  `json:"profile_id"`
	AuthorName string  `json:"author_name"`
	Content    string  `json:"content"`
	ParentID   *string `json:"parent_id,omitempty"`
}

// GroupComments arranges a flat, time-ordered comment list into a two-level tree.
// Roots keep their input order and each root's Replies hold its direct children
// in input order. Replies to replies hang off their own parent, so they are
// reachable only through it. Comments whose parent is absent are dropped.
// The input slice elements are copied; the caller's comments are not mutated.
func GroupComments(flat []Comment) []*Comment {
	byID := make(map[string]*Comment, len(flat))
	nodes := make([]*Comment, 0, len(flat))
	for i := range flat {
		c := flat[i]
		c.Replies = nil
		if _, dup := byID[c.ID]; dup {
			continue
		}
		byID[c.ID] = &c
		nodes = append(nodes, &c)
	}

	roots := make([]*Comment, 0)
	for _, c := range nodes {
		if !c.IsReply() {
			roots = append(roots, c)
			continue
		}
		parent, ok := byID[*c.ParentID]
		if !ok || parent == c {
			continue
		}
		parent.Replies = append(parent.Replies, c)
	}
	return roots
}
