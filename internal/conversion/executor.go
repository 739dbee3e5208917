package conversion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk/internal/cache"
	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/models"
	"github.com/funlynk/funlynk/pkg/config"
	"github.com/funlynk/funlynk/pkg/logging"
	"github.com/funlynk/funlynk/pkg/telemetry"
)

const (
	previewCacheTTL = 5 * time.Minute

	// Capacity suggestion floor when a post has little interest yet
	minSuggestedCapacity = 10
)

// EventData carries the owner-supplied fields for a conversion. Optional
// fields fall back to the post's own values; schedule and capacity have no
// fallback and must be provided.
type EventData struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	LocationName string     `json:"location_name"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	MaxAttendees *int       `json:"max_attendees"`
	Price        float64    `json:"price"`
	IsPaid       bool       `json:"is_paid"`
	Tags         []string   `json:"tags"`
}

// Preview is the pre-filled conversion form shown to the post owner
type Preview struct {
	PostID             string     `json:"post_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	LocationName       string     `json:"location_name"`
	StartTime          *time.Time `json:"start_time"`
	Price              float64    `json:"price"`
	Tags               []string   `json:"tags"`
	InterestedCount    int        `json:"interested_count"`
	PendingInvitations int        `json:"pending_invitations"`
	SuggestedCapacity  int        `json:"suggested_capacity"`
}

// Executor turns an eligible post into a published activity inside a single
// transaction, leaving behind an immutable conversion record.
type Executor struct {
	cfg         *config.ConversionConfig
	database    *db.DB
	posts       *db.PostRepository
	reactions   *db.ReactionRepository
	invitations *db.InvitationRepository
	cache       *cache.Cache
	bus         *events.Bus
	logger      *zap.Logger
	now         func() time.Time
}

// NewExecutor creates a new conversion executor
func NewExecutor(cfg *config.ConversionConfig, database *db.DB, c *cache.Cache, bus *events.Bus) *Executor {
	repo := db.NewRepository(database.DB)
	return &Executor{
		cfg:         cfg,
		database:    database,
		posts:       db.NewPostRepository(repo),
		reactions:   db.NewReactionRepository(repo),
		invitations: db.NewInvitationRepository(repo),
		cache:       c,
		bus:         bus,
		logger:      logging.WithComponent("executor"),
		now:         time.Now,
	}
}

// CreateFromPost converts a post into an activity. The post row, the new
// activity, the tag associations and the conversion record all commit in
// one transaction; the guarded status flip makes a concurrent double
// conversion impossible. Events publish only after commit.
func (e *Executor) CreateFromPost(ctx context.Context, postID, actorID, triggerType string, data *EventData) (*models.Activity, error) {
	ctx, span := telemetry.StartSpan(ctx, "conversion.create_from_post")
	defer span.End()

	post, err := e.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.UserID != actorID {
		return nil, ErrUnauthorized
	}
	if post.Status == models.PostStatusConverted {
		return nil, ErrAlreadyConverted
	}
	if !post.IsActive() {
		return nil, ErrPostNotActive
	}
	// Owners may convert below the floor; threshold-triggered conversions
	// must still carry the reactions that earned them
	if triggerType != models.TriggerManual && post.ReactionCount < e.cfg.SoftThreshold {
		return nil, ErrNotEligible
	}

	now := e.now()
	if err := validateEventData(data, now); err != nil {
		return nil, err
	}

	activity := e.buildActivity(post, data, now)
	conversion := &models.PostConversion{
		ID:                    uuid.NewString(),
		PostID:                post.ID,
		ActivityID:            activity.ID,
		ConvertedBy:           actorID,
		TriggerType:           triggerType,
		ReactionsAtConversion: post.ReactionCount,
		CommentsAtConversion:  post.CommentCount,
		ViewsAtConversion:     post.ViewCount,
		CreatedAt:             now,
	}

	tagNames := data.Tags
	if len(tagNames) == 0 {
		tagNames = post.TagNames()
	}

	tx := e.database.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.Create(activity).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// Guarded status flip; zero rows means another conversion won the race
	res := tx.Model(&models.Post{}).
		Where("id = ? AND status = ?", post.ID, models.PostStatusActive).
		Updates(map[string]interface{}{
			"status":                   models.PostStatusConverted,
			"converted_to_activity_id": activity.ID,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrAlreadyConverted
	}

	if err := e.attachTags(tx, activity.ID, tagNames); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Create(conversion).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	post.Status = models.PostStatusConverted
	post.ConvertedToActivityID = sql.NullString{String: activity.ID, Valid: true}

	if err := e.cache.Delete(previewCacheKey(post.ID)); err != nil && err != cache.ErrCacheDisabled {
		e.logger.Warn("Failed to invalidate preview cache",
			zap.String("post_id", post.ID),
			zap.Error(err))
	}

	e.logger.Info("Post converted to activity",
		zap.String("post_id", post.ID),
		zap.String("activity_id", activity.ID),
		zap.String("trigger_type", triggerType),
		zap.Int("reactions", post.ReactionCount))

	e.bus.Publish(ctx, events.PostConvertedToEvent{
		Post:       post,
		Activity:   activity,
		Conversion: conversion,
	})

	return activity, nil
}

// buildActivity merges owner-supplied fields over the post's own values
func (e *Executor) buildActivity(post *models.Post, data *EventData, now time.Time) *models.Activity {
	activity := &models.Activity{
		ID:           uuid.NewString(),
		HostID:       post.UserID,
		Title:        post.Title,
		Description:  post.Description,
		LocationName: post.LocationName,
		StartTime:    *data.StartTime,
		EndTime:      *data.EndTime,
		MaxAttendees: *data.MaxAttendees,
		Price:        data.Price,
		IsPaid:       data.IsPaid,
		Status:       models.ActivityStatusPublished,
		OriginatedFromPostID: sql.NullString{
			String: post.ID,
			Valid:  true,
		},
		CreatedAt: now,
	}
	if data.Title != "" {
		activity.Title = data.Title
	}
	if data.Description != "" {
		activity.Description = data.Description
	}
	if data.LocationName != "" {
		activity.LocationName = data.LocationName
	}
	return activity
}

// attachTags associates tag names with an activity, creating tag rows for
// names not seen before
func (e *Executor) attachTags(tx *gorm.DB, activityID string, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		var tag models.Tag
		err := tx.Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.Tag{ID: uuid.NewString(), Name: name}
			if err := tx.Create(&tag).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if err := tx.Create(&models.ActivityTag{ActivityID: activityID, TagID: tag.ID}).Error; err != nil {
			return err
		}
	}
	return nil
}

func validateEventData(data *EventData, now time.Time) error {
	if data == nil {
		return MissingField("start_time")
	}
	if data.StartTime == nil {
		return MissingField("start_time")
	}
	if data.EndTime == nil {
		return MissingField("end_time")
	}
	if data.MaxAttendees == nil {
		return MissingField("max_attendees")
	}
	if data.StartTime.Before(now) {
		return &ValidationError{Field: "start_time", Message: "Start time must be in the future"}
	}
	if !data.EndTime.After(*data.StartTime) {
		return &ValidationError{Field: "end_time", Message: "End time must be after start time"}
	}
	if *data.MaxAttendees < 1 {
		return &ValidationError{Field: "max_attendees", Message: "Capacity must be at least 1"}
	}
	if data.Price < 0 {
		return &ValidationError{Field: "price", Message: "Price must not be negative"}
	}
	return nil
}

// PreviewConversion assembles the pre-filled conversion form for the post
// owner, merging any draft event data over the post's own fields. The plain
// preview is cached briefly since owners tend to reload it while filling the
// form; previews carrying a draft are computed fresh.
func (e *Executor) PreviewConversion(ctx context.Context, postID, actorID string, overrides *EventData) (*Preview, error) {
	post, err := e.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.UserID != actorID {
		return nil, ErrUnauthorized
	}
	if !post.IsActive() {
		if post.Status == models.PostStatusConverted {
			return nil, ErrAlreadyConverted
		}
		return nil, ErrPostNotActive
	}

	cacheKey := previewCacheKey(post.ID)
	if overrides == nil {
		if cached, err := e.cache.Get(cacheKey); err == nil {
			var preview Preview
			if err := json.Unmarshal([]byte(cached), &preview); err == nil {
				return &preview, nil
			}
		}
	}

	interested, err := e.reactions.CountByPostAndType(ctx, post.ID, models.ReactionImDown)
	if err != nil {
		return nil, err
	}
	pending, err := e.invitations.PendingCountByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	preview := &Preview{
		PostID:             post.ID,
		Title:              post.Title,
		Description:        post.Description,
		LocationName:       post.LocationName,
		Tags:               post.TagNames(),
		InterestedCount:    int(interested),
		PendingInvitations: int(pending),
		SuggestedCapacity:  SuggestedCapacity(int(interested)),
	}
	if overrides != nil {
		if overrides.Title != "" {
			preview.Title = overrides.Title
		}
		if overrides.Description != "" {
			preview.Description = overrides.Description
		}
		if overrides.LocationName != "" {
			preview.LocationName = overrides.LocationName
		}
		if len(overrides.Tags) > 0 {
			preview.Tags = overrides.Tags
		}
		preview.StartTime = overrides.StartTime
		preview.Price = overrides.Price
		return preview, nil
	}

	if data, err := json.Marshal(preview); err == nil {
		if err := e.cache.Set(cacheKey, string(data), previewCacheTTL); err != nil && err != cache.ErrCacheDisabled {
			e.logger.Warn("Failed to cache conversion preview",
				zap.String("post_id", post.ID),
				zap.Error(err))
		}
	}

	return preview, nil
}

// SuggestedCapacity sizes an activity for the interest a post attracted,
// with headroom for late joiners
func SuggestedCapacity(interested int) int {
	suggested := int(math.Ceil(float64(interested) * 1.5))
	if suggested < minSuggestedCapacity {
		return minSuggestedCapacity
	}
	return suggested
}

func previewCacheKey(postID string) string {
	return "conversion:preview:" + cache.HashKey("preview", postID)
}
