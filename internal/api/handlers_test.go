package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/db/dbtest"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/models"
	"github.com/funlynk/funlynk/pkg/config"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := dbtest.New(t)
	cfg := &config.Config{
		Conversion: config.ConversionConfig{
			SoftThreshold:        5,
			StrongThreshold:      10,
			RepromptCooldownDays: 7,
			DismissLimit:         3,
		},
	}

	router := NewRouter(cfg, db.Wrap(gdb), nil, events.NewBus())
	engine := gin.New()
	router.SetupRoutes(engine)
	return engine, gdb
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

func doRequest(engine *gin.Engine, method, path, actor string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-User-ID", actor)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestReactEndpoint(t *testing.T) {
	engine, gdb := newTestServer(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "owner", Title: "t"})

	w := doRequest(engine, http.MethodPost, "/v1/posts/p1/react", "u1",
		gin.H{"reaction_type": "im_down"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var result struct {
		Action        string `json:"action"`
		ReactionCount int    `json:"reaction_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if result.Action != "added" || result.ReactionCount != 1 {
		t.Errorf("result = %+v, want added/1", result)
	}

	// Owner reacting to their own post is rejected
	w = doRequest(engine, http.MethodPost, "/v1/posts/p1/react", "owner",
		gin.H{"reaction_type": "im_down"})
	if w.Code != http.StatusConflict {
		t.Errorf("owner react status = %d, want 409", w.Code)
	}

	// Unknown reaction types are rejected
	w = doRequest(engine, http.MethodPost, "/v1/posts/p1/react", "u1",
		gin.H{"reaction_type": "wave"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid type status = %d, want 422", w.Code)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	engine, gdb := newTestServer(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "owner", Title: "t"})

	w := doRequest(engine, http.MethodPost, "/v1/posts/p1/react", "",
		gin.H{"reaction_type": "im_down"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestConvertEndpoint(t *testing.T) {
	engine, gdb := newTestServer(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "owner", Title: "Pickup soccer", ReactionCount: 6})

	start := time.Now().Add(48 * time.Hour).UTC()
	body := gin.H{
		"start_time":    start.Format(time.RFC3339),
		"end_time":      start.Add(2 * time.Hour).Format(time.RFC3339),
		"max_attendees": 12,
	}

	// Only the owner may convert
	w := doRequest(engine, http.MethodPost, "/v1/posts/p1/convert", "u1", body)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-owner status = %d, want 403", w.Code)
	}

	w = doRequest(engine, http.MethodPost, "/v1/posts/p1/convert", "owner", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}

	var activity struct {
		ID                   string `json:"id"`
		Title                string `json:"title"`
		Status               string `json:"status"`
		OriginatedFromPostID string `json:"originated_from_post_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &activity); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if activity.Title != "Pickup soccer" {
		t.Errorf("activity title = %q", activity.Title)
	}
	if activity.Status != models.ActivityStatusPublished {
		t.Errorf("activity status = %q, want published", activity.Status)
	}
	if activity.OriginatedFromPostID != "p1" {
		t.Errorf("originated_from_post_id = %q, want p1", activity.OriginatedFromPostID)
	}

	// Converting again conflicts
	w = doRequest(engine, http.MethodPost, "/v1/posts/p1/convert", "owner", body)
	if w.Code != http.StatusConflict {
		t.Errorf("double convert status = %d, want 409", w.Code)
	}
}

func TestConvertEndpointValidation(t *testing.T) {
	engine, gdb := newTestServer(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "owner", Title: "t"})

	w := doRequest(engine, http.MethodPost, "/v1/posts/p1/convert", "owner",
		gin.H{"max_attendees": 12})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Field string `json:"field"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Field != "start_time" {
		t.Errorf("field = %q, want start_time", resp.Field)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	engine, gdb := newTestServer(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "owner", Title: "Board games"})

	for i := 0; i < 4; i++ {
		reaction := &models.PostReaction{
			ID:           fmt.Sprintf("r%d", i),
			PostID:       "p1",
			UserID:       fmt.Sprintf("u%d", i),
			ReactionType: models.ReactionImDown,
			CreatedAt:    testNow,
		}
		if err := gdb.Create(reaction).Error; err != nil {
			t.Fatalf("failed to seed reaction: %v", err)
		}
	}

	w := doRequest(engine, http.MethodGet, "/v1/posts/p1/conversion/preview", "u1", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-owner preview status = %d, want 403", w.Code)
	}

	w = doRequest(engine, http.MethodGet, "/v1/posts/p1/conversion/preview", "owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var preview struct {
		InterestedCount   int `json:"interested_count"`
		SuggestedCapacity int `json:"suggested_capacity"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &preview); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if preview.InterestedCount != 4 {
		t.Errorf("interested = %d, want 4", preview.InterestedCount)
	}
	if preview.SuggestedCapacity != 10 {
		t.Errorf("suggested capacity = %d, want floor of 10", preview.SuggestedCapacity)
	}

	// Draft event data in the body merges over the post's fields
	w = doRequest(engine, http.MethodGet, "/v1/posts/p1/conversion/preview", "owner",
		gin.H{"title": "Game Night Finals", "price": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("draft preview status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var draft struct {
		Title string  `json:"title"`
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &draft); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if draft.Title != "Game Night Finals" || draft.Price != 3 {
		t.Errorf("draft preview = %+v, want merged title and price", draft)
	}
}

func TestCheckAndDismissEndpoints(t *testing.T) {
	engine, gdb := newTestServer(t)
	seedPost(t, gdb, &models.Post{ID: "p1", UserID: "owner", Title: "t", ReactionCount: 7})

	w := doRequest(engine, http.MethodPost, "/v1/posts/p1/conversion/check", "owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("check status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var decision struct {
		ShouldPrompt bool   `json:"should_prompt"`
		Threshold    string `json:"threshold"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &decision); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if !decision.ShouldPrompt || decision.Threshold != "soft" {
		t.Errorf("decision = %+v, want soft prompt", decision)
	}

	w = doRequest(engine, http.MethodPost, "/v1/posts/p1/conversion/dismiss", "owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dismiss status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	// A fresh check inside the cooldown stays quiet
	w = doRequest(engine, http.MethodPost, "/v1/posts/p1/conversion/check", "owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("recheck status = %d", w.Code)
	}
	var second struct {
		ShouldPrompt bool   `json:"should_prompt"`
		Reason       string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if second.ShouldPrompt {
		t.Errorf("dismissed post should not re-prompt immediately, got %+v", second)
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	engine, gdb := newTestServer(t)

	for i := 0; i < 3; i++ {
		n := &models.Notification{
			ID:             fmt.Sprintf("n%d", i),
			UserID:         "u1",
			Type:           models.NotifyTypeConversionPrompt,
			Title:          "Turn your post into an event?",
			Message:        "msg",
			DeliveryMethod: models.DeliveryMethodInApp,
			DeliveryStatus: models.DeliveryStatusSent,
			CreatedAt:      testNow.Add(time.Duration(i) * time.Minute),
		}
		if err := gdb.Create(n).Error; err != nil {
			t.Fatalf("failed to seed notification: %v", err)
		}
	}

	w := doRequest(engine, http.MethodGet, "/v1/notifications?limit=2", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Notifications []struct {
			ID string `json:"id"`
		} `json:"notifications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Notifications) != 2 {
		t.Fatalf("notifications = %d, want 2", len(resp.Notifications))
	}
	// Newest first
	if resp.Notifications[0].ID != "n2" {
		t.Errorf("first notification = %q, want n2", resp.Notifications[0].ID)
	}
}
