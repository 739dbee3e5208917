package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Post represents a spontaneous hangout intent posted by a user
type Post struct {
	ID           string `gorm:"primaryKey;type:varchar(36);column:id"`
	UserID       string `gorm:"type:varchar(36);not null;index;column:user_id"`
	Title        string `gorm:"type:varchar(255);not null;column:title"`
	Description  string `gorm:"type:text;column:description"`
	LocationName string `gorm:"type:varchar(255);column:location_name"`
	Tags         string `gorm:"type:text;column:tags"` // JSON array of tag names
	Status       string `gorm:"type:varchar(16);not null;default:'active';index;column:status"`

	ReactionCount int `gorm:"not null;default:0;column:reaction_count"`
	CommentCount  int `gorm:"not null;default:0;column:comment_count"`
	ViewCount     int `gorm:"not null;default:0;column:view_count"`

	ExpiresAt time.Time `gorm:"not null;column:expires_at"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Conversion tracking
	ConversionSuggestedAt  sql.NullTime   `gorm:"column:conversion_suggested_at"`
	ConversionPromptedAt   sql.NullTime   `gorm:"column:conversion_prompted_at"`
	ConversionDismissedAt  sql.NullTime   `gorm:"column:conversion_dismissed_at"`
	ConversionDismissCount int            `gorm:"not null;default:0;column:conversion_dismiss_count"`
	ConvertedToActivityID  sql.NullString `gorm:"type:varchar(36);column:converted_to_activity_id"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// Post status constants
const (
	PostStatusActive    = "active"
	PostStatusExpired   = "expired"
	PostStatusConverted = "converted"
)

// IsActive reports whether the post is still in active status
func (p *Post) IsActive() bool {
	return p.Status == PostStatusActive
}

// TagNames decodes the post's tag list
func (p *Post) TagNames() []string {
	if p.Tags == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(p.Tags), &names); err != nil {
		return nil
	}
	return names
}

// SetTagNames encodes the post's tag list
func (p *Post) SetTagNames(names []string) {
	if len(names) == 0 {
		p.Tags = ""
		return
	}
	data, err := json.Marshal(names)
	if err != nil {
		return
	}
	p.Tags = string(data)
}
