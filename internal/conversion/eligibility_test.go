package conversion

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/db/dbtest"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/models"
	"github.com/funlynk/funlynk/pkg/config"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testConversionConfig() *config.ConversionConfig {
	return &config.ConversionConfig{
		SoftThreshold:        5,
		StrongThreshold:      10,
		RepromptCooldownDays: 7,
		DismissLimit:         3,
	}
}

func newTestEvaluator(t *testing.T) (*Evaluator, *gorm.DB, *events.Bus) {
	t.Helper()
	gdb := dbtest.New(t)
	bus := events.NewBus()
	evaluator := NewEvaluator(testConversionConfig(), db.NewPostRepository(db.NewRepository(gdb)), bus)
	evaluator.now = func() time.Time { return testNow }
	return evaluator, gdb, bus
}

func seedPost(t *testing.T, gdb *gorm.DB, post *models.Post) *models.Post {
	t.Helper()
	if post.Status == "" {
		post.Status = models.PostStatusActive
	}
	if post.ExpiresAt.IsZero() {
		post.ExpiresAt = testNow.Add(24 * time.Hour)
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = testNow.Add(-time.Hour)
	}
	if err := gdb.Create(post).Error; err != nil {
		t.Fatalf("failed to seed post: %v", err)
	}
	return post
}

func TestCheckAndPrompt(t *testing.T) {
	dismissedRecently := testNow.Add(-48 * time.Hour)
	dismissedLongAgo := testNow.Add(-8 * 24 * time.Hour)

	tests := []struct {
		name          string
		post          *models.Post
		wantPrompt    bool
		wantReason    string
		wantThreshold string
	}{
		{
			name:       "expired post",
			post:       &models.Post{ID: "p1", UserID: "u1", Title: "t", Status: models.PostStatusExpired, ReactionCount: 12},
			wantReason: ReasonPostNotActive,
		},
		{
			name:       "converted post",
			post:       &models.Post{ID: "p2", UserID: "u1", Title: "t", Status: models.PostStatusConverted, ReactionCount: 12},
			wantReason: ReasonPostNotActive,
		},
		{
			name:       "below soft threshold",
			post:       &models.Post{ID: "p3", UserID: "u1", Title: "t", ReactionCount: 4},
			wantReason: ReasonInsufficientReactions,
		},
		{
			name: "dismiss limit exhausted",
			post: &models.Post{ID: "p4", UserID: "u1", Title: "t", ReactionCount: 20,
				ConversionDismissCount: 3,
				ConversionPromptedAt:   sql.NullTime{Time: dismissedLongAgo, Valid: true},
				ConversionDismissedAt:  sql.NullTime{Time: dismissedLongAgo, Valid: true}},
			wantReason: ReasonDismissLimitReached,
		},
		{
			name: "prompt still open",
			post: &models.Post{ID: "p5", UserID: "u1", Title: "t", ReactionCount: 8,
				ConversionPromptedAt: sql.NullTime{Time: dismissedRecently, Valid: true}},
			wantReason: ReasonAlreadyPrompted,
		},
		{
			name: "dismissed within cooldown",
			post: &models.Post{ID: "p6", UserID: "u1", Title: "t", ReactionCount: 8,
				ConversionDismissCount: 1,
				ConversionPromptedAt:   sql.NullTime{Time: dismissedRecently, Valid: true},
				ConversionDismissedAt:  sql.NullTime{Time: dismissedRecently, Valid: true}},
			wantReason: ReasonAlreadyPrompted,
		},
		{
			name: "re-prompt after cooldown",
			post: &models.Post{ID: "p7", UserID: "u1", Title: "t", ReactionCount: 8,
				ConversionDismissCount: 1,
				ConversionPromptedAt:   sql.NullTime{Time: dismissedLongAgo, Valid: true},
				ConversionDismissedAt:  sql.NullTime{Time: dismissedLongAgo, Valid: true}},
			wantPrompt:    true,
			wantReason:    ReasonEligible,
			wantThreshold: ThresholdSoft,
		},
		{
			name:          "soft threshold crossed",
			post:          &models.Post{ID: "p8", UserID: "u1", Title: "t", ReactionCount: 5},
			wantPrompt:    true,
			wantReason:    ReasonEligible,
			wantThreshold: ThresholdSoft,
		},
		{
			name:          "strong threshold crossed",
			post:          &models.Post{ID: "p9", UserID: "u1", Title: "t", ReactionCount: 10},
			wantPrompt:    true,
			wantReason:    ReasonEligible,
			wantThreshold: ThresholdStrong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluator, gdb, _ := newTestEvaluator(t)
			seedPost(t, gdb, tt.post)

			decision, err := evaluator.CheckAndPrompt(context.Background(), tt.post)
			if err != nil {
				t.Fatalf("CheckAndPrompt() error: %v", err)
			}
			if decision.ShouldPrompt != tt.wantPrompt {
				t.Errorf("ShouldPrompt = %v, want %v", decision.ShouldPrompt, tt.wantPrompt)
			}
			if decision.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", decision.Reason, tt.wantReason)
			}
			if decision.Threshold != tt.wantThreshold {
				t.Errorf("Threshold = %q, want %q", decision.Threshold, tt.wantThreshold)
			}
		})
	}
}

func TestCheckAndPromptStampsPost(t *testing.T) {
	evaluator, gdb, bus := newTestEvaluator(t)
	post := seedPost(t, gdb, &models.Post{ID: "p1", UserID: "u1", Title: "t", ReactionCount: 6})

	var published []events.ConversionPrompted
	bus.Subscribe(events.ConversionPromptedName, func(ctx context.Context, event events.Event) error {
		published = append(published, event.(events.ConversionPrompted))
		return nil
	})

	decision, err := evaluator.CheckAndPrompt(context.Background(), post)
	if err != nil {
		t.Fatalf("CheckAndPrompt() error: %v", err)
	}
	if !decision.ShouldPrompt {
		t.Fatalf("expected prompt, got reason %q", decision.Reason)
	}

	var stored models.Post
	if err := gdb.First(&stored, "id = ?", post.ID).Error; err != nil {
		t.Fatalf("failed to reload post: %v", err)
	}
	if !stored.ConversionPromptedAt.Valid {
		t.Error("conversion_prompted_at should be stamped")
	}

	if len(published) != 1 {
		t.Fatalf("expected 1 ConversionPrompted event, got %d", len(published))
	}
	if published[0].Threshold != ThresholdSoft {
		t.Errorf("event threshold = %q, want %q", published[0].Threshold, ThresholdSoft)
	}
}

func TestCheckAndPromptIdempotent(t *testing.T) {
	evaluator, gdb, _ := newTestEvaluator(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "u1", Title: "t", ReactionCount: 6})

	posts := db.NewPostRepository(db.NewRepository(gdb))

	first, _ := posts.GetByID(context.Background(), "p1")
	second, _ := posts.GetByID(context.Background(), "p1")

	d1, err := evaluator.CheckAndPrompt(context.Background(), first)
	if err != nil {
		t.Fatalf("first CheckAndPrompt() error: %v", err)
	}
	// The second evaluation holds a stale snapshot without the prompt
	// stamp; the claim must still refuse it.
	d2, err := evaluator.CheckAndPrompt(context.Background(), second)
	if err != nil {
		t.Fatalf("second CheckAndPrompt() error: %v", err)
	}

	if !d1.ShouldPrompt {
		t.Errorf("first evaluation should prompt, got %q", d1.Reason)
	}
	if d2.ShouldPrompt {
		t.Error("second evaluation should not prompt again")
	}
	if d2.Reason != ReasonAlreadyPrompted {
		t.Errorf("second reason = %q, want %q", d2.Reason, ReasonAlreadyPrompted)
	}
}

func TestDismissPrompt(t *testing.T) {
	evaluator, gdb, _ := newTestEvaluator(t)
	post := seedPost(t, gdb, &models.Post{ID: "p1", UserID: "u1", Title: "t", ReactionCount: 6,
		ConversionPromptedAt: sql.NullTime{Time: testNow.Add(-time.Hour), Valid: true}})

	if err := evaluator.DismissPrompt(context.Background(), post, "intruder"); err != ErrUnauthorized {
		t.Errorf("dismiss by non-owner should return ErrUnauthorized, got: %v", err)
	}

	if err := evaluator.DismissPrompt(context.Background(), post, "u1"); err != nil {
		t.Fatalf("DismissPrompt() error: %v", err)
	}

	var stored models.Post
	if err := gdb.First(&stored, "id = ?", post.ID).Error; err != nil {
		t.Fatalf("failed to reload post: %v", err)
	}
	if stored.ConversionDismissCount != 1 {
		t.Errorf("dismiss count = %d, want 1", stored.ConversionDismissCount)
	}
	if !stored.ConversionDismissedAt.Valid {
		t.Error("conversion_dismissed_at should be stamped")
	}
	if !stored.ConversionDismissedAt.Time.Equal(testNow) {
		t.Errorf("conversion_dismissed_at = %v, want %v", stored.ConversionDismissedAt.Time, testNow)
	}
}

func TestDismissPromptNeverPrompted(t *testing.T) {
	evaluator, gdb, _ := newTestEvaluator(t)
	post := seedPost(t, gdb, &models.Post{ID: "p1", UserID: "u1", Title: "t", ReactionCount: 6})

	if err := evaluator.DismissPrompt(context.Background(), post, "u1"); err != ErrNotPrompted {
		t.Errorf("dismiss without a prompt should return ErrNotPrompted, got: %v", err)
	}
}

func TestEligible(t *testing.T) {
	evaluator, _, _ := newTestEvaluator(t)

	tests := []struct {
		name string
		post *models.Post
		want bool
	}{
		{"meets floor", &models.Post{Status: models.PostStatusActive, ReactionCount: 5}, true},
		{"below floor", &models.Post{Status: models.PostStatusActive, ReactionCount: 4}, false},
		{"expired", &models.Post{Status: models.PostStatusExpired, ReactionCount: 20}, false},
		{"dismissals exhausted", &models.Post{Status: models.PostStatusActive, ReactionCount: 20, ConversionDismissCount: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evaluator.Eligible(tt.post); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}
