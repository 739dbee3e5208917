package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/funlynk/funlynk/internal/conversion"
	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/db/dbtest"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/models"
	"github.com/funlynk/funlynk/internal/queue"
	"github.com/funlynk/funlynk/pkg/config"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type capturedEvents struct {
	suggested []events.PostConversionSuggested
	auto      []events.PostAutoConverted
	prompted  []events.ConversionPrompted
}

func newTestChecker(t *testing.T) (*Checker, *gorm.DB, *capturedEvents) {
	t.Helper()
	gdb := dbtest.New(t)
	bus := events.NewBus()

	captured := &capturedEvents{}
	bus.Subscribe(events.PostConversionSuggestedName, func(ctx context.Context, event events.Event) error {
		captured.suggested = append(captured.suggested, event.(events.PostConversionSuggested))
		return nil
	})
	bus.Subscribe(events.PostAutoConvertedName, func(ctx context.Context, event events.Event) error {
		captured.auto = append(captured.auto, event.(events.PostAutoConverted))
		return nil
	})
	bus.Subscribe(events.ConversionPromptedName, func(ctx context.Context, event events.Event) error {
		captured.prompted = append(captured.prompted, event.(events.ConversionPrompted))
		return nil
	})

	convCfg := &config.ConversionConfig{
		SoftThreshold: 5, StrongThreshold: 10, RepromptCooldownDays: 7, DismissLimit: 3,
	}
	database := db.Wrap(gdb)
	evaluator := conversion.NewEvaluator(convCfg, db.NewPostRepository(db.NewRepository(gdb)), bus)

	checker := NewChecker(
		&config.WorkerConfig{PollInterval: 1, ExpiryInterval: 1},
		database,
		queue.NewEligibilityQueue(nil),
		evaluator,
		bus,
	)
	checker.now = func() time.Time { return testNow }
	return checker, gdb, captured
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

func TestProcessPostSoftCrossing(t *testing.T) {
	checker, gdb, captured := newTestChecker(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "u1", Title: "t", ReactionCount: 6})

	if err := checker.ProcessPost(context.Background(), "p1"); err != nil {
		t.Fatalf("ProcessPost() error: %v", err)
	}

	if len(captured.suggested) != 1 {
		t.Errorf("suggested events = %d, want 1", len(captured.suggested))
	}
	if len(captured.auto) != 0 {
		t.Errorf("auto events = %d, want 0", len(captured.auto))
	}
	if len(captured.prompted) != 1 {
		t.Errorf("prompted events = %d, want 1", len(captured.prompted))
	}

	var stored models.Post
	if err := gdb.First(&stored, "id = ?", "p1").Error; err != nil {
		t.Fatalf("failed to reload post: %v", err)
	}
	if !stored.ConversionSuggestedAt.Valid {
		t.Error("conversion_suggested_at should be stamped")
	}
	if !stored.ConversionPromptedAt.Valid {
		t.Error("conversion_prompted_at should be stamped")
	}
}

func TestProcessPostStrongCrossing(t *testing.T) {
	checker, gdb, captured := newTestChecker(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "u1", Title: "t", ReactionCount: 12})

	if err := checker.ProcessPost(context.Background(), "p1"); err != nil {
		t.Fatalf("ProcessPost() error: %v", err)
	}

	if len(captured.auto) != 1 {
		t.Errorf("auto events = %d, want 1", len(captured.auto))
	}
	if len(captured.suggested) != 0 {
		t.Errorf("suggested events = %d, want 0", len(captured.suggested))
	}
	if len(captured.prompted) != 1 {
		t.Fatalf("prompted events = %d, want 1", len(captured.prompted))
	}
	if captured.prompted[0].Threshold != conversion.ThresholdStrong {
		t.Errorf("prompt threshold = %q, want strong", captured.prompted[0].Threshold)
	}
}

func TestProcessPostIdempotent(t *testing.T) {
	checker, gdb, captured := newTestChecker(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "u1", Title: "t", ReactionCount: 6})

	for i := 0; i < 3; i++ {
		if err := checker.ProcessPost(context.Background(), "p1"); err != nil {
			t.Fatalf("ProcessPost() run %d error: %v", i, err)
		}
	}

	if len(captured.suggested) != 1 {
		t.Errorf("suggested events after reruns = %d, want 1", len(captured.suggested))
	}
	if len(captured.prompted) != 1 {
		t.Errorf("prompted events after reruns = %d, want 1", len(captured.prompted))
	}
}

func TestProcessPostSkips(t *testing.T) {
	checker, gdb, captured := newTestChecker(t)
	seedPost(t, gdb, &models.Post{ID: "expired", UserID: "u1", Title: "t", Status: models.PostStatusExpired, ReactionCount: 20})
	seedPost(t, gdb, &models.Post{ID: "quiet", UserID: "u1", Title: "t", ReactionCount: 2})
	seedPost(t, gdb, &models.Post{ID: "suggested", UserID: "u1", Title: "t", ReactionCount: 8,
		ConversionSuggestedAt: sql.NullTime{Time: testNow.Add(-time.Hour), Valid: true},
		ConversionPromptedAt:  sql.NullTime{Time: testNow.Add(-time.Hour), Valid: true}})

	for _, id := range []string{"expired", "quiet", "suggested", "missing"} {
		if err := checker.ProcessPost(context.Background(), id); err != nil {
			t.Fatalf("ProcessPost(%s) error: %v", id, err)
		}
	}

	if len(captured.suggested) != 0 || len(captured.auto) != 0 || len(captured.prompted) != 0 {
		t.Errorf("no events expected, got suggested=%d auto=%d prompted=%d",
			len(captured.suggested), len(captured.auto), len(captured.prompted))
	}
}

func TestExpireDueSweep(t *testing.T) {
	checker, gdb, _ := newTestChecker(t)
	seedPost(t, gdb, &models.Post{ID: "overdue", UserID: "u1", Title: "t", ExpiresAt: testNow.Add(-time.Hour)})
	seedPost(t, gdb, &models.Post{ID: "fresh", UserID: "u1", Title: "t", ExpiresAt: testNow.Add(time.Hour)})
	seedPost(t, gdb, &models.Post{ID: "converted", UserID: "u1", Title: "t",
		Status: models.PostStatusConverted, ExpiresAt: testNow.Add(-time.Hour)})

	swept, err := checker.posts.ExpireDue(context.Background(), testNow)
	if err != nil {
		t.Fatalf("ExpireDue() error: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	var statuses = map[string]string{}
	var posts []models.Post
	if err := gdb.Find(&posts).Error; err != nil {
		t.Fatalf("failed to load posts: %v", err)
	}
	for _, p := range posts {
		statuses[p.ID] = p.Status
	}
	if statuses["overdue"] != models.PostStatusExpired {
		t.Errorf("overdue status = %q, want expired", statuses["overdue"])
	}
	if statuses["fresh"] != models.PostStatusActive {
		t.Errorf("fresh status = %q, want active", statuses["fresh"])
	}
	if statuses["converted"] != models.PostStatusConverted {
		t.Errorf("converted status = %q, want converted", statuses["converted"])
	}
}
