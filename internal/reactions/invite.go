package reactions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/models"
	"github.com/funlynk/funlynk/pkg/logging"
)

// ErrNoInvitees is returned when an invite request names nobody
var ErrNoInvitees = errors.New("at least one invitee is required")

// Inviter manages friend invitations on posts
type Inviter struct {
	posts       *db.PostRepository
	invitations *db.InvitationRepository
	bus         *events.Bus
	logger      *zap.Logger
	now         func() time.Time
}

// NewInviter creates an inviter
func NewInviter(database *db.DB, bus *events.Bus) *Inviter {
	repo := db.NewRepository(database.DB)
	return &Inviter{
		posts:       db.NewPostRepository(repo),
		invitations: db.NewInvitationRepository(repo),
		bus:         bus,
		logger:      logging.WithComponent("reactions"),
		now:         time.Now,
	}
}

// InviteFriends invites users to a post. Re-inviting someone refreshes
// their existing invitation back to pending instead of duplicating it.
// Self-invites and invites to the post owner are silently skipped.
func (i *Inviter) InviteFriends(ctx context.Context, postID, inviterID string, inviteeIDs []string) ([]*models.PostInvitation, error) {
	if len(inviteeIDs) == 0 {
		return nil, ErrNoInvitees
	}

	post, err := i.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if !post.IsActive() {
		return nil, ErrPostNotActive
	}

	seen := make(map[string]bool, len(inviteeIDs))
	var created []*models.PostInvitation
	for _, inviteeID := range inviteeIDs {
		if inviteeID == "" || inviteeID == inviterID || inviteeID == post.UserID || seen[inviteeID] {
			continue
		}
		seen[inviteeID] = true

		invitation := &models.PostInvitation{
			ID:        uuid.NewString(),
			PostID:    postID,
			InviterID: inviterID,
			InviteeID: inviteeID,
			Status:    models.InvitationStatusPending,
			CreatedAt: i.now(),
		}
		if err := i.invitations.Upsert(ctx, invitation); err != nil {
			i.logger.Error("Failed to create invitation",
				zap.String("post_id", postID),
				zap.String("invitee_id", inviteeID),
				zap.Error(err))
			continue
		}
		created = append(created, invitation)
		i.bus.Publish(ctx, events.PostInvitationSent{Invitation: invitation, Post: post})
	}

	i.logger.Info("Friends invited to post",
		zap.String("post_id", postID),
		zap.String("inviter_id", inviterID),
		zap.Int("invited", len(created)))
	return created, nil
}
