package reactions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/models"
	"github.com/funlynk/funlynk/internal/queue"
	"github.com/funlynk/funlynk/pkg/logging"
)

// Sentinel errors for reaction operations
var (
	// ErrPostNotFound is returned when the target post does not exist
	ErrPostNotFound = errors.New("post not found")

	// ErrPostNotActive is returned when reacting to an expired or
	// converted post
	ErrPostNotActive = errors.New("post is no longer active")

	// ErrOwnPost is returned when an owner reacts to their own post
	ErrOwnPost = errors.New("cannot react to your own post")

	// ErrInvalidType is returned for unknown reaction types
	ErrInvalidType = errors.New("invalid reaction type")
)

// Reaction outcome actions
const (
	ActionAdded   = "added"
	ActionChanged = "changed"
	ActionRemoved = "removed"
)

// Result describes what a reaction toggle did
type Result struct {
	Action        string `json:"action"`
	ReactionType  string `json:"reaction_type"`
	ReactionCount int    `json:"reaction_count"`
}

// Ledger owns the reaction lifecycle on posts: toggling, the denormalized
// per-post counter, and the downstream eligibility check each new reaction
// triggers.
type Ledger struct {
	database *db.DB
	posts    *db.PostRepository
	queue    *queue.EligibilityQueue
	bus      *events.Bus
	logger   *zap.Logger
	now      func() time.Time
}

// NewLedger creates a reaction ledger
func NewLedger(database *db.DB, q *queue.EligibilityQueue, bus *events.Bus) *Ledger {
	repo := db.NewRepository(database.DB)
	return &Ledger{
		database: database,
		posts:    db.NewPostRepository(repo),
		queue:    q,
		bus:      bus,
		logger:   logging.WithComponent("reactions"),
		now:      time.Now,
	}
}

// Toggle is an alias for React; every reaction call is a toggle
func (l *Ledger) Toggle(ctx context.Context, postID, userID, reactionType string) (*Result, error) {
	return l.React(ctx, postID, userID, reactionType)
}

// React toggles a user's reaction on a post. Reacting again with the same
// type removes the reaction; a different type replaces it in place. The
// denormalized reaction counter updates in the same transaction, so the
// count the eligibility check reads is never stale relative to the rows.
func (l *Ledger) React(ctx context.Context, postID, userID, reactionType string) (*Result, error) {
	if !models.IsValidReactionType(reactionType) {
		return nil, ErrInvalidType
	}

	post, err := l.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if !post.IsActive() {
		return nil, ErrPostNotActive
	}
	if post.UserID == userID {
		return nil, ErrOwnPost
	}

	var result Result
	var reaction *models.PostReaction

	tx := l.database.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var existing models.PostReaction
	err = tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		reaction = &models.PostReaction{
			ID:           uuid.NewString(),
			PostID:       postID,
			UserID:       userID,
			ReactionType: reactionType,
			CreatedAt:    l.now(),
		}
		if err := tx.Create(reaction).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		result.Action = ActionAdded
	case err != nil:
		tx.Rollback()
		return nil, err
	case existing.ReactionType == reactionType:
		if err := tx.Delete(&existing).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		result.Action = ActionRemoved
	default:
		existing.ReactionType = reactionType
		if err := tx.Save(&existing).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		reaction = &existing
		result.Action = ActionChanged
	}

	var count int64
	if err := tx.Model(&models.PostReaction{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := l.posts.SetReactionCount(tx, postID, int(count)); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	post.ReactionCount = int(count)
	result.ReactionType = reactionType
	result.ReactionCount = int(count)

	l.logger.Debug("Reaction recorded",
		zap.String("post_id", postID),
		zap.String("user_id", userID),
		zap.String("action", result.Action),
		zap.Int64("reaction_count", count))

	// Removals never move a post toward eligibility
	if result.Action != ActionRemoved {
		if err := l.queue.Enqueue(ctx, &queue.EligibilityJob{PostID: postID, EnqueuedAt: l.now()}); err != nil {
			l.logger.Warn("Failed to queue eligibility check",
				zap.String("post_id", postID),
				zap.Error(err))
		}
		l.bus.Publish(ctx, events.PostReacted{Post: post, Reaction: reaction})
	}

	return &result, nil
}
