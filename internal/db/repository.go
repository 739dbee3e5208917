package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/funlynk/funlynk/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// Update updates a post
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// ClaimPrompt stamps conversion_prompted_at if and only if the post is still
// promptable: active, and either never prompted or dismissed before the
// re-prompt cutoff. The guarded single-statement update is the concurrency
// barrier that makes prompting at-most-once per eligibility window; callers
// must treat a false return as "another evaluation already claimed it".
func (r *PostRepository) ClaimPrompt(ctx context.Context, postID string, now, dismissCutoff time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ?", postID, models.PostStatusActive).
		Where("conversion_prompted_at IS NULL OR (conversion_dismissed_at IS NOT NULL AND conversion_dismissed_at <= ?)", dismissCutoff).
		Update("conversion_prompted_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimSuggestion stamps conversion_suggested_at exactly once per post
func (r *PostRepository) ClaimSuggestion(ctx context.Context, postID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ? AND conversion_suggested_at IS NULL", postID, models.PostStatusActive).
		Update("conversion_suggested_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Dismiss records a prompt dismissal by the owner
func (r *PostRepository) Dismiss(ctx context.Context, postID string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Updates(map[string]interface{}{
			"conversion_dismissed_at":  now,
			"conversion_dismiss_count": gorm.Expr("conversion_dismiss_count + 1"),
		}).Error
}

// SetReactionCount writes the denormalized reaction counter
func (r *PostRepository) SetReactionCount(tx *gorm.DB, postID string, count int) error {
	return tx.Model(&models.Post{}).
		Where("id = ?", postID).
		Update("reaction_count", count).Error
}

// ExpireDue marks active posts past their expiry as expired, returning the
// number of posts swept
func (r *PostRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("status = ? AND expires_at <= ?", models.PostStatusActive, now).
		Update("status", models.PostStatusExpired)
	return res.RowsAffected, res.Error
}

// ReactionRepository provides reaction-related database operations
type ReactionRepository struct {
	*Repository
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(repo *Repository) *ReactionRepository {
	return &ReactionRepository{Repository: repo}
}

// GetByPostAndUser retrieves a user's reaction on a post
func (r *ReactionRepository) GetByPostAndUser(ctx context.Context, postID, userID string) (*models.PostReaction, error) {
	var reaction models.PostReaction
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&reaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reaction, nil
}

// CountByPost counts all reactions on a post
func (r *ReactionRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostReaction{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

// CountByPostAndType counts reactions of one type on a post
func (r *ReactionRepository) CountByPostAndType(ctx context.Context, postID, reactionType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostReaction{}).
		Where("post_id = ? AND reaction_type = ?", postID, reactionType).
		Count(&count).Error
	return count, err
}

// DistinctUserIDsByType lists the users who reacted with the given type
func (r *ReactionRepository) DistinctUserIDsByType(ctx context.Context, postID, reactionType string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).Model(&models.PostReaction{}).
		Distinct("user_id").
		Where("post_id = ? AND reaction_type = ?", postID, reactionType).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}
