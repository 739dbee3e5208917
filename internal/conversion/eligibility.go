package conversion

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/models"
	"github.com/funlynk/funlynk/pkg/config"
	"github.com/funlynk/funlynk/pkg/logging"
)

// Decision reasons returned by CheckAndPrompt, in evaluation order
const (
	ReasonPostNotActive         = "post_not_active"
	ReasonInsufficientReactions = "insufficient_reactions"
	ReasonDismissLimitReached   = "dismiss_limit_reached"
	ReasonAlreadyPrompted       = "already_prompted"
	ReasonEligible              = "eligible"
)

// Threshold labels attached to a prompt decision
const (
	ThresholdSoft   = "soft"
	ThresholdStrong = "strong"
)

// PromptDecision is the outcome of an eligibility evaluation
type PromptDecision struct {
	ShouldPrompt  bool   `json:"should_prompt"`
	Reason        string `json:"reason"`
	Threshold     string `json:"threshold,omitempty"`
	ReactionCount int    `json:"reaction_count"`
}

// Evaluator decides whether a post owner should be prompted to convert
// their post into an activity, and records dismissals.
type Evaluator struct {
	cfg    *config.ConversionConfig
	posts  *db.PostRepository
	bus    *events.Bus
	logger *zap.Logger
	now    func() time.Time
}

// NewEvaluator creates a new eligibility evaluator
func NewEvaluator(cfg *config.ConversionConfig, posts *db.PostRepository, bus *events.Bus) *Evaluator {
	return &Evaluator{
		cfg:    cfg,
		posts:  posts,
		bus:    bus,
		logger: logging.WithComponent("eligibility"),
		now:    time.Now,
	}
}

// StrongThreshold returns the configured strong reaction threshold
func (e *Evaluator) StrongThreshold() int {
	return e.cfg.StrongThreshold
}

// Eligible reports whether a post currently satisfies the reaction floor
// and has not exhausted its dismissals. It does not consider prompt state.
func (e *Evaluator) Eligible(post *models.Post) bool {
	return post.IsActive() &&
		post.ReactionCount >= e.cfg.SoftThreshold &&
		post.ConversionDismissCount < e.cfg.DismissLimit
}

// CheckAndPrompt evaluates a post and, if it qualifies, claims the prompt
// and publishes a ConversionPrompted event. The decision reasons are
// ordered so the first disqualifier wins: inactive posts, then posts under
// the reaction floor, then posts whose owner dismissed too many times, and
// finally posts already holding an unexpired prompt.
func (e *Evaluator) CheckAndPrompt(ctx context.Context, post *models.Post) (*PromptDecision, error) {
	decision := &PromptDecision{ReactionCount: post.ReactionCount}

	if !post.IsActive() {
		decision.Reason = ReasonPostNotActive
		return decision, nil
	}

	if post.ReactionCount < e.cfg.SoftThreshold {
		decision.Reason = ReasonInsufficientReactions
		return decision, nil
	}

	if post.ConversionDismissCount >= e.cfg.DismissLimit {
		decision.Reason = ReasonDismissLimitReached
		return decision, nil
	}

	now := e.now()
	if post.ConversionPromptedAt.Valid && !e.shouldReprompt(post, now) {
		decision.Reason = ReasonAlreadyPrompted
		return decision, nil
	}

	// The claim is a guarded update; losing it means a concurrent
	// evaluation prompted first.
	claimed, err := e.posts.ClaimPrompt(ctx, post.ID, now, now.Add(-e.cfg.RepromptCooldown()))
	if err != nil {
		return nil, err
	}
	if !claimed {
		decision.Reason = ReasonAlreadyPrompted
		return decision, nil
	}

	post.ConversionPromptedAt = sql.NullTime{Time: now, Valid: true}

	decision.ShouldPrompt = true
	decision.Reason = ReasonEligible
	decision.Threshold = ThresholdSoft
	if post.ReactionCount >= e.cfg.StrongThreshold {
		decision.Threshold = ThresholdStrong
	}

	e.logger.Info("Conversion prompt issued",
		zap.String("post_id", post.ID),
		zap.String("threshold", decision.Threshold),
		zap.Int("reaction_count", post.ReactionCount))

	e.bus.Publish(ctx, events.ConversionPrompted{
		Post:      post,
		Threshold: decision.Threshold,
	})

	return decision, nil
}

// shouldReprompt reports whether a previously prompted post may be
// prompted again: the owner dismissed it and the cooldown has elapsed
func (e *Evaluator) shouldReprompt(post *models.Post, now time.Time) bool {
	if !post.ConversionDismissedAt.Valid {
		return false
	}
	return !now.Before(post.ConversionDismissedAt.Time.Add(e.cfg.RepromptCooldown()))
}

// DismissPrompt records the owner declining a conversion prompt. Each
// dismissal counts toward the dismissal limit and starts the re-prompt
// cooldown.
func (e *Evaluator) DismissPrompt(ctx context.Context, post *models.Post, actorID string) error {
	if post.UserID != actorID {
		return ErrUnauthorized
	}
	if !post.ConversionPromptedAt.Valid {
		return ErrNotPrompted
	}

	now := e.now()
	if err := e.posts.Dismiss(ctx, post.ID, now); err != nil {
		return err
	}

	post.ConversionDismissedAt = sql.NullTime{Time: now, Valid: true}
	post.ConversionDismissCount++

	e.logger.Info("Conversion prompt dismissed",
		zap.String("post_id", post.ID),
		zap.Int("dismiss_count", post.ConversionDismissCount))

	return nil
}
