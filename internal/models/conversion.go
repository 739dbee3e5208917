package models

import "time"

// PostConversion is the audit record created once per successful
// post-to-activity conversion, snapshotting engagement at conversion time.
type PostConversion struct {
	ID          string `gorm:"primaryKey;type:varchar(36);column:id"`
	PostID      string `gorm:"type:varchar(36);not null;uniqueIndex:post_conversions_ux1;column:post_id"`
	ActivityID  string `gorm:"type:varchar(36);not null;column:activity_id"`
	ConvertedBy string `gorm:"type:varchar(36);not null;column:converted_by"`
	TriggerType string `gorm:"type:varchar(16);not null;column:trigger_type"`

	ReactionsAtConversion int `gorm:"not null;default:0;column:reactions_at_conversion"`
	CommentsAtConversion  int `gorm:"not null;default:0;column:comments_at_conversion"`
	ViewsAtConversion     int `gorm:"not null;default:0;column:views_at_conversion"`

	InterestedUsersNotified int `gorm:"not null;default:0;column:interested_users_notified"`
	InvitedUsersNotified    int `gorm:"not null;default:0;column:invited_users_notified"`

	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PostConversion
func (PostConversion) TableName() string {
	return "post_conversions"
}

// Conversion trigger constants
const (
	TriggerManual    = "manual"
	TriggerAutomatic = "automatic"
	TriggerThreshold = "threshold"
)
