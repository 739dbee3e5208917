package models

import (
	"database/sql"
	"time"
)

// PostInvitation represents a friend invitation tied to a post
type PostInvitation struct {
	ID        string       `gorm:"primaryKey;type:varchar(36);column:id"`
	PostID    string       `gorm:"type:varchar(36);not null;uniqueIndex:post_invitations_ux1;column:post_id"`
	InviterID string       `gorm:"type:varchar(36);not null;uniqueIndex:post_invitations_ux1;column:inviter_id"`
	InviteeID string       `gorm:"type:varchar(36);not null;uniqueIndex:post_invitations_ux1;column:invitee_id"`
	Status    string       `gorm:"type:varchar(16);not null;default:'pending';index;column:status"`
	CreatedAt time.Time    `gorm:"not null;column:created_at"`
	ViewedAt  sql.NullTime `gorm:"column:viewed_at"`
	ReactedAt sql.NullTime `gorm:"column:reacted_at"`
}

// TableName specifies the table name for PostInvitation
func (PostInvitation) TableName() string {
	return "post_invitations"
}

// Invitation status constants
const (
	InvitationStatusPending  = "pending"
	InvitationStatusViewed   = "viewed"
	InvitationStatusAccepted = "accepted"
	InvitationStatusDeclined = "declined"
	InvitationStatusMigrated = "migrated"
)
