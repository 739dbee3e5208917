package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/mail"
	"github.com/funlynk/funlynk/internal/models"
	"github.com/funlynk/funlynk/pkg/logging"
)

// InterestedNotifier fans a conversion out to everyone who reacted
// "I'm down" on the post, over in-app and email channels according to each
// user's preferences.
type InterestedNotifier struct {
	reactions     *db.ReactionRepository
	users         *db.UserRepository
	notifications *db.NotificationRepository
	conversions   *db.ConversionRepository
	mailer        mail.Mailer
	logger        *zap.Logger
	now           func() time.Time
}

// NewInterestedNotifier creates an interested-user notifier
func NewInterestedNotifier(database *db.DB, mailer mail.Mailer) *InterestedNotifier {
	repo := db.NewRepository(database.DB)
	return &InterestedNotifier{
		reactions:     db.NewReactionRepository(repo),
		users:         db.NewUserRepository(repo),
		notifications: db.NewNotificationRepository(repo),
		conversions:   db.NewConversionRepository(repo),
		mailer:        mailer,
		logger:        logging.WithComponent("notify"),
		now:           time.Now,
	}
}

// Register subscribes the notifier to conversion events
func (n *InterestedNotifier) Register(bus *events.Bus) {
	bus.Subscribe(events.PostConvertedToEventName, n.handleConverted)
}

// handleConverted notifies every interested user except the owner. A
// failure for one recipient never blocks the rest; the conversion record
// keeps the count of users actually reached.
func (n *InterestedNotifier) handleConverted(ctx context.Context, event events.Event) error {
	e := event.(events.PostConvertedToEvent)

	userIDs, err := n.reactions.DistinctUserIDsByType(ctx, e.Post.ID, models.ReactionImDown)
	if err != nil {
		return err
	}

	recipients := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id != e.Post.UserID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	users, err := n.users.GetByIDs(ctx, recipients)
	if err != nil {
		return err
	}

	notified := 0
	for _, user := range users {
		if n.notifyUser(ctx, user, e) {
			notified++
		}
	}

	if err := n.conversions.SetInterestedCount(ctx, e.Conversion.ID, notified); err != nil {
		n.logger.Error("Failed to record interested-user count",
			zap.String("conversion_id", e.Conversion.ID),
			zap.Error(err))
	}

	n.logger.Info("Interested users notified",
		zap.String("post_id", e.Post.ID),
		zap.String("activity_id", e.Activity.ID),
		zap.Int("notified", notified),
		zap.Int("interested", len(recipients)))
	return nil
}

func (n *InterestedNotifier) notifyUser(ctx context.Context, user *models.User, e events.PostConvertedToEvent) bool {
	reached := false

	if user.WantsInAppNotifications() {
		notification := &models.Notification{
			ID:             uuid.NewString(),
			UserID:         user.ID,
			Type:           models.NotifyTypeConvertedToEvent,
			Title:          "📅 A post you liked is now an event!",
			Message:        fmt.Sprintf("\"%s\" got enough interest and is now a real event. Grab your spot!", e.Activity.Title),
			DeliveryMethod: models.DeliveryMethodInApp,
			DeliveryStatus: models.DeliveryStatusSent,
			CreatedAt:      n.now(),
		}
		if err := notification.SetData(map[string]interface{}{
			"post_id":     e.Post.ID,
			"activity_id": e.Activity.ID,
		}); err == nil {
			if err := n.notifications.Create(ctx, notification); err != nil {
				n.logger.Error("Failed to create conversion notification",
					zap.String("user_id", user.ID),
					zap.Error(err))
			} else {
				reached = true
			}
		}
	}

	if user.WantsConversionEmail() {
		msg := &mail.Message{
			To:      user.Email,
			Subject: fmt.Sprintf("\"%s\" is now an event", e.Activity.Title),
			Body: fmt.Sprintf("Hi %s,\n\nThe post \"%s\" you were interested in has been turned into an event starting %s at %s. Spots are limited to %d attendees.\n\nSee you there!",
				user.Name(), e.Post.Title,
				e.Activity.StartTime.Format("Mon, Jan 2 at 3:04 PM"),
				e.Activity.LocationName, e.Activity.MaxAttendees),
		}
		if err := n.mailer.Enqueue(ctx, msg); err != nil {
			n.logger.Error("Failed to queue conversion email",
				zap.String("user_id", user.ID),
				zap.Error(err))
		} else {
			reached = true
		}
	}

	return reached
}
