package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/funlynk/funlynk/internal/conversion"
	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/queue"
	"github.com/funlynk/funlynk/pkg/config"
	"github.com/funlynk/funlynk/pkg/logging"
	"github.com/funlynk/funlynk/pkg/telemetry"

	"go.opentelemetry.io/otel/metric"
)

// Checker consumes queued eligibility jobs and re-evaluates the affected
// posts. It also owns the periodic sweep that expires stale posts.
type Checker struct {
	cfg       *config.WorkerConfig
	queue     *queue.EligibilityQueue
	posts     *db.PostRepository
	evaluator *conversion.Evaluator
	bus       *events.Bus
	logger    *zap.Logger
	processed metric.Int64Counter
	expired   metric.Int64Counter
	now       func() time.Time
}

// NewChecker creates an eligibility checker
func NewChecker(cfg *config.WorkerConfig, database *db.DB, q *queue.EligibilityQueue, evaluator *conversion.Evaluator, bus *events.Bus) *Checker {
	return &Checker{
		cfg:       cfg,
		queue:     q,
		posts:     db.NewPostRepository(db.NewRepository(database.DB)),
		evaluator: evaluator,
		bus:       bus,
		logger:    logging.WithComponent("checker"),
		processed: telemetry.Counter("eligibility_jobs_processed", "Eligibility jobs processed"),
		expired:   telemetry.Counter("posts_expired", "Posts swept into expired status"),
		now:       time.Now,
	}
}

// Run consumes the eligibility queue until the context is cancelled
func (c *Checker) Run(ctx context.Context) error {
	c.logger.Info("Eligibility checker started",
		zap.Int("poll_interval", c.cfg.PollInterval))

	pollTimeout := time.Duration(c.cfg.PollInterval) * time.Second
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Eligibility checker stopping")
			return ctx.Err()
		default:
		}

		job, err := c.queue.Dequeue(ctx, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Failed to dequeue eligibility job", zap.Error(err))
			if !c.wait(ctx, pollTimeout) {
				return ctx.Err()
			}
			continue
		}
		if job == nil {
			// Queue disabled or empty; the blocking pop already waited,
			// but a disabled queue returns immediately.
			if !c.wait(ctx, pollTimeout) {
				return ctx.Err()
			}
			continue
		}

		if err := c.ProcessPost(ctx, job.PostID); err != nil {
			c.logger.Error("Failed to process eligibility job",
				zap.String("post_id", job.PostID),
				zap.Error(err))
		}
		c.processed.Add(ctx, 1)
	}
}

// ProcessPost re-evaluates one post. The first soft-threshold crossing is
// stamped and announced once; a strong crossing at that moment upgrades
// the announcement to an auto-conversion nudge. Prompting itself stays
// with the evaluator and its own idempotence guard, so reprocessing a job
// never duplicates anything.
func (c *Checker) ProcessPost(ctx context.Context, postID string) error {
	ctx, span := telemetry.StartSpan(ctx, "checker.process_post")
	defer span.End()

	post, err := c.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || !post.IsActive() {
		return nil
	}

	if c.evaluator.Eligible(post) && !post.ConversionSuggestedAt.Valid {
		claimed, err := c.posts.ClaimSuggestion(ctx, post.ID, c.now())
		if err != nil {
			return err
		}
		if claimed {
			if post.ReactionCount >= c.evaluator.StrongThreshold() {
				c.bus.Publish(ctx, events.PostAutoConverted{
					Post:          post,
					ReactionCount: post.ReactionCount,
				})
			} else {
				c.bus.Publish(ctx, events.PostConversionSuggested{
					Post:          post,
					ReactionCount: post.ReactionCount,
				})
			}
		}
	}

	decision, err := c.evaluator.CheckAndPrompt(ctx, post)
	if err != nil {
		return err
	}

	c.logger.Debug("Post evaluated",
		zap.String("post_id", post.ID),
		zap.Bool("should_prompt", decision.ShouldPrompt),
		zap.String("reason", decision.Reason))
	return nil
}

// RunExpirySweeper expires overdue posts on a fixed interval until the
// context is cancelled
func (c *Checker) RunExpirySweeper(ctx context.Context) error {
	interval := time.Duration(c.cfg.ExpiryInterval) * time.Second
	c.logger.Info("Expiry sweeper started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Expiry sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			swept, err := c.posts.ExpireDue(ctx, c.now())
			if err != nil {
				c.logger.Error("Expiry sweep failed", zap.Error(err))
				continue
			}
			if swept > 0 {
				c.expired.Add(ctx, swept)
				c.logger.Info("Expired overdue posts", zap.Int64("count", swept))
			}
		}
	}
}

// wait sleeps for the given duration unless the context ends first
func (c *Checker) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
