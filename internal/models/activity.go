package models

import (
	"database/sql"
	"time"
)

// Activity represents a scheduled, capacity-bounded event.
// Activities created by the conversion engine carry a back-reference to
// the post they originated from.
type Activity struct {
	ID           string    `gorm:"primaryKey;type:varchar(36);column:id"`
	HostID       string    `gorm:"type:varchar(36);not null;index;column:host_id"`
	Title        string    `gorm:"type:varchar(255);not null;column:title"`
	Description  string    `gorm:"type:text;column:description"`
	LocationName string    `gorm:"type:varchar(255);column:location_name"`
	StartTime    time.Time `gorm:"not null;column:start_time"`
	EndTime      time.Time `gorm:"not null;column:end_time"`
	MaxAttendees int       `gorm:"not null;column:max_attendees"`
	Price        float64   `gorm:"type:decimal(10,2);not null;default:0;column:price"`
	IsPaid       bool      `gorm:"not null;default:false;column:is_paid"`
	Status       string    `gorm:"type:varchar(16);not null;default:'published';column:status"`

	OriginatedFromPostID sql.NullString `gorm:"type:varchar(36);index;column:originated_from_post_id"`
	CreatedAt            time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Activity
func (Activity) TableName() string {
	return "activities"
}

// Activity status constants
const (
	ActivityStatusPublished = "published"
	ActivityStatusCancelled = "cancelled"
	ActivityStatusCompleted = "completed"
)

// IsFree reports whether the activity has no entry price
func (a *Activity) IsFree() bool {
	return a.Price == 0
}

// Tag represents a reusable tag identity shared by posts and activities
type Tag struct {
	ID   string `gorm:"primaryKey;type:varchar(36);column:id"`
	Name string `gorm:"type:varchar(64);not null;uniqueIndex:tags_ux1;column:name"`
}

// TableName specifies the table name for Tag
func (Tag) TableName() string {
	return "tags"
}

// ActivityTag represents an activity-to-tag mapping
type ActivityTag struct {
	ActivityID string `gorm:"primaryKey;type:varchar(36);column:activity_id"`
	TagID      string `gorm:"primaryKey;type:varchar(36);column:tag_id"`
}

// TableName specifies the table name for ActivityTag
func (ActivityTag) TableName() string {
	return "activity_tags"
}
