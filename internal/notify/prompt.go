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

// Prompt message templates shown to post owners
const (
	softPromptMessage   = "🎉 %d people are interested! Consider creating an event."
	strongPromptMessage = "🔥 %d+ people want to join! Turn this into an event now."
	promptTitle         = "Turn your post into an event?"
)

// PromptNotifier delivers conversion nudges to post owners
type PromptNotifier struct {
	notifications *db.NotificationRepository
	users         *db.UserRepository
	logger        *zap.Logger
	now           func() time.Time
}

// NewPromptNotifier creates a prompt notifier
func NewPromptNotifier(database *db.DB) *PromptNotifier {
	repo := db.NewRepository(database.DB)
	return &PromptNotifier{
		notifications: db.NewNotificationRepository(repo),
		users:         db.NewUserRepository(repo),
		logger:        logging.WithComponent("notify"),
		now:           time.Now,
	}
}

// Register subscribes the notifier to prompt-related events
func (n *PromptNotifier) Register(bus *events.Bus) {
	bus.Subscribe(events.ConversionPromptedName, n.handlePrompted)
	bus.Subscribe(events.PostConversionSuggestedName, n.handleSuggested)
	bus.Subscribe(events.PostAutoConvertedName, n.handleAutoConverted)
}

func (n *PromptNotifier) handlePrompted(ctx context.Context, event events.Event) error {
	e := event.(events.ConversionPrompted)
	message := fmt.Sprintf(softPromptMessage, e.Post.ReactionCount)
	if e.Threshold == "strong" {
		message = fmt.Sprintf(strongPromptMessage, e.Post.ReactionCount)
	}
	return n.notifyOwner(ctx, e.Post, message, promptData(e.Post, e.Threshold, e.Post.ReactionCount))
}

func (n *PromptNotifier) handleSuggested(ctx context.Context, event events.Event) error {
	e := event.(events.PostConversionSuggested)
	return n.notifyOwner(ctx, e.Post,
		fmt.Sprintf(softPromptMessage, e.ReactionCount),
		promptData(e.Post, "soft", e.ReactionCount))
}

func (n *PromptNotifier) handleAutoConverted(ctx context.Context, event events.Event) error {
	e := event.(events.PostAutoConverted)
	return n.notifyOwner(ctx, e.Post,
		fmt.Sprintf(strongPromptMessage, e.ReactionCount),
		promptData(e.Post, "strong", e.ReactionCount))
}

func promptData(post *models.Post, threshold string, count int) map[string]interface{} {
	return map[string]interface{}{
		"post_id":        post.ID,
		"post_title":     post.Title,
		"threshold":      threshold,
		"reaction_count": count,
		"url":            "/posts/" + post.ID + "/conversion/preview",
	}
}

func (n *PromptNotifier) notifyOwner(ctx context.Context, post *models.Post, message string, data map[string]interface{}) error {
	owner, err := n.users.GetByID(ctx, post.UserID)
	if err != nil {
		return err
	}
	if owner == nil || !owner.WantsInAppNotifications() {
		return nil
	}

	notification := &models.Notification{
		ID:             uuid.NewString(),
		UserID:         owner.ID,
		Type:           models.NotifyTypeConversionPrompt,
		Title:          promptTitle,
		Message:        message,
		DeliveryMethod: models.DeliveryMethodInApp,
		DeliveryStatus: models.DeliveryStatusSent,
		CreatedAt:      n.now(),
	}
	if err := notification.SetData(data); err != nil {
		return err
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		return err
	}

	n.logger.Debug("Conversion prompt delivered",
		zap.String("post_id", post.ID),
		zap.String("user_id", owner.ID))
	return nil
}
