package models

import "time"

// PostReaction represents a user's lightweight interest signal on a post.
// At most one row exists per (post, user); the type is updated in place.
type PostReaction struct {
	ID           string    `gorm:"primaryKey;type:varchar(36);column:id"`
	PostID       string    `gorm:"type:varchar(36);not null;uniqueIndex:post_reactions_ux1;column:post_id"`
	UserID       string    `gorm:"type:varchar(36);not null;uniqueIndex:post_reactions_ux1;column:user_id"`
	ReactionType string    `gorm:"type:varchar(32);not null;column:reaction_type"`
	CreatedAt    time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PostReaction
func (PostReaction) TableName() string {
	return "post_reactions"
}

// Reaction type constants
const (
	ReactionImDown        = "im_down"
	ReactionJoinMe        = "join_me"
	ReactionInviteFriends = "invite_friends"
)

// ValidReactionTypes returns the set of accepted reaction types
func ValidReactionTypes() []string {
	return []string{ReactionImDown, ReactionJoinMe, ReactionInviteFriends}
}

// IsValidReactionType reports whether the given type is accepted
func IsValidReactionType(reactionType string) bool {
	for _, t := range ValidReactionTypes() {
		if t == reactionType {
			return true
		}
	}
	return false
}
