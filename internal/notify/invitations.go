package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/models"
	"github.com/funlynk/funlynk/pkg/logging"
)

// InvitationMigrator carries pending post invitations over to the activity
// a post converts into, and tells each invitee about the upgrade. It also
// delivers the initial invitation notification when friends are invited to
// a post.
type InvitationMigrator struct {
	invitations   *db.InvitationRepository
	users         *db.UserRepository
	notifications *db.NotificationRepository
	conversions   *db.ConversionRepository
	bus           *events.Bus
	logger        *zap.Logger
	now           func() time.Time
}

// NewInvitationMigrator creates an invitation migrator
func NewInvitationMigrator(database *db.DB, bus *events.Bus) *InvitationMigrator {
	repo := db.NewRepository(database.DB)
	return &InvitationMigrator{
		invitations:   db.NewInvitationRepository(repo),
		users:         db.NewUserRepository(repo),
		notifications: db.NewNotificationRepository(repo),
		conversions:   db.NewConversionRepository(repo),
		bus:           bus,
		logger:        logging.WithComponent("notify"),
		now:           time.Now,
	}
}

// Register subscribes the migrator to conversion and invitation events
func (m *InvitationMigrator) Register(bus *events.Bus) {
	bus.Subscribe(events.PostConvertedToEventName, m.handleConverted)
	bus.Subscribe(events.PostInvitationSentName, m.handleInvitationSent)
}

// handleConverted moves every pending invitation onto the new activity.
// Invitations that fail to migrate stay pending so a retry can pick them
// up; only successfully migrated invitees are notified and counted.
func (m *InvitationMigrator) handleConverted(ctx context.Context, event events.Event) error {
	e := event.(events.PostConvertedToEvent)

	pending, err := m.invitations.PendingByPost(ctx, e.Post.ID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	migrated := 0
	for _, invitation := range pending {
		invitation.Status = models.InvitationStatusMigrated
		if err := m.invitations.Update(ctx, invitation); err != nil {
			m.logger.Error("Failed to migrate invitation",
				zap.String("invitation_id", invitation.ID),
				zap.Error(err))
			continue
		}

		m.notifyInvitee(ctx, invitation, e)
		m.bus.Publish(ctx, events.PostInvitationMigrated{
			Invitation: invitation,
			Activity:   e.Activity,
		})
		migrated++
	}

	if err := m.conversions.SetInvitedCount(ctx, e.Conversion.ID, migrated); err != nil {
		m.logger.Error("Failed to record invited-user count",
			zap.String("conversion_id", e.Conversion.ID),
			zap.Error(err))
	}

	m.logger.Info("Pending invitations migrated",
		zap.String("post_id", e.Post.ID),
		zap.String("activity_id", e.Activity.ID),
		zap.Int("migrated", migrated),
		zap.Int("pending", len(pending)))
	return nil
}

func (m *InvitationMigrator) notifyInvitee(ctx context.Context, invitation *models.PostInvitation, e events.PostConvertedToEvent) {
	invitee, err := m.users.GetByID(ctx, invitation.InviteeID)
	if err != nil || invitee == nil || !invitee.WantsInAppNotifications() {
		return
	}

	notification := &models.Notification{
		ID:             uuid.NewString(),
		UserID:         invitee.ID,
		Type:           models.NotifyTypeInvitationConverted,
		Title:          "Your invitation became an event!",
		Message:        fmt.Sprintf("\"%s\" is now a scheduled event. Your invitation carried over.", e.Activity.Title),
		DeliveryMethod: models.DeliveryMethodInApp,
		DeliveryStatus: models.DeliveryStatusSent,
		CreatedAt:      m.now(),
	}
	inviterName := ""
	if inviter, err := m.users.GetByID(ctx, invitation.InviterID); err == nil && inviter != nil {
		inviterName = inviter.Name()
	}
	if err := notification.SetData(map[string]interface{}{
		"post_id":        e.Post.ID,
		"post_title":     e.Post.Title,
		"activity_id":    e.Activity.ID,
		"activity_title": e.Activity.Title,
		"invitation_id":  invitation.ID,
		"inviter_name":   inviterName,
		"start_time":     e.Activity.StartTime,
		"location_name":  e.Activity.LocationName,
		"price":          e.Activity.Price,
		"is_free":        e.Activity.IsFree(),
	}); err != nil {
		return
	}
	if err := m.notifications.Create(ctx, notification); err != nil {
		m.logger.Error("Failed to notify invitee",
			zap.String("invitation_id", invitation.ID),
			zap.Error(err))
	}
}

func (m *InvitationMigrator) handleInvitationSent(ctx context.Context, event events.Event) error {
	e := event.(events.PostInvitationSent)

	invitee, err := m.users.GetByID(ctx, e.Invitation.InviteeID)
	if err != nil {
		return err
	}
	if invitee == nil || !invitee.WantsInAppNotifications() {
		return nil
	}

	inviter, err := m.users.GetByID(ctx, e.Invitation.InviterID)
	if err != nil {
		return err
	}
	inviterName := "A friend"
	if inviter != nil {
		inviterName = inviter.Name()
	}

	notification := &models.Notification{
		ID:             uuid.NewString(),
		UserID:         invitee.ID,
		Type:           models.NotifyTypeInvitationSent,
		Title:          "You're invited!",
		Message:        fmt.Sprintf("%s invited you to \"%s\"", inviterName, e.Post.Title),
		DeliveryMethod: models.DeliveryMethodInApp,
		DeliveryStatus: models.DeliveryStatusSent,
		CreatedAt:      m.now(),
	}
	if err := notification.SetData(map[string]interface{}{
		"post_id":       e.Post.ID,
		"invitation_id": e.Invitation.ID,
	}); err != nil {
		return err
	}
	return m.notifications.Create(ctx, notification)
}
