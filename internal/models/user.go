package models

import (
	"database/sql"
	"time"
)

// User represents an account as seen by the conversion engine.
// Registration and profile editing live outside this service; only the
// fields the notifiers read are modeled here.
type User struct {
	ID          string         `gorm:"primaryKey;type:varchar(36);column:id"`
	Username    string         `gorm:"type:varchar(32);not null;uniqueIndex:users_ux1;column:username"`
	DisplayName sql.NullString `gorm:"type:varchar(64);column:display_name"`
	Email       string         `gorm:"type:varchar(255);not null;column:email"`

	NotificationPreference string `gorm:"type:varchar(16);not null;default:'all';column:notification_preference"`
	EmailOnPostConverted   bool   `gorm:"not null;default:true;column:email_on_post_converted"`

	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Notification preference constants
const (
	PrefAll       = "all"
	PrefInAppOnly = "in_app_only"
	PrefEmailOnly = "email_only"
	PrefNone      = "none"
)

// Name returns the display name, falling back to the username
func (u *User) Name() string {
	if u.DisplayName.Valid && u.DisplayName.String != "" {
		return u.DisplayName.String
	}
	return u.Username
}

// WantsInAppNotifications reports whether in-app notifications may be created
func (u *User) WantsInAppNotifications() bool {
	return u.NotificationPreference != PrefNone && u.NotificationPreference != PrefEmailOnly
}

// WantsConversionEmail reports whether conversion emails may be queued.
// An unset preference is treated as "all"; the per-category flag still applies.
func (u *User) WantsConversionEmail() bool {
	if u.NotificationPreference != PrefAll && u.NotificationPreference != "" {
		return false
	}
	return u.EmailOnPostConverted
}
