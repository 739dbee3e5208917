package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/funlynk/funlynk/internal/models"
)

// InvitationRepository provides invitation-related database operations
type InvitationRepository struct {
	*Repository
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(repo *Repository) *InvitationRepository {
	return &InvitationRepository{Repository: repo}
}

// PendingByPost lists all pending invitations for a post
func (r *InvitationRepository) PendingByPost(ctx context.Context, postID string) ([]*models.PostInvitation, error) {
	var invitations []*models.PostInvitation
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, models.InvitationStatusPending).
		Find(&invitations).Error
	return invitations, err
}

// PendingCountByPost counts pending invitations for a post
func (r *InvitationRepository) PendingCountByPost(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostInvitation{}).
		Where("post_id = ? AND status = ?", postID, models.InvitationStatusPending).
		Count(&count).Error
	return count, err
}

// PendingByInvitee lists a user's pending invitations, newest first
func (r *InvitationRepository) PendingByInvitee(ctx context.Context, inviteeID string) ([]*models.PostInvitation, error) {
	var invitations []*models.PostInvitation
	err := r.db.WithContext(ctx).
		Where("invitee_id = ? AND status = ?", inviteeID, models.InvitationStatusPending).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

// Upsert creates an invitation or refreshes an existing one back to pending
func (r *InvitationRepository) Upsert(ctx context.Context, invitation *models.PostInvitation) error {
	var existing models.PostInvitation
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND inviter_id = ? AND invitee_id = ?",
			invitation.PostID, invitation.InviterID, invitation.InviteeID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(invitation).Error
	}
	if err != nil {
		return err
	}
	existing.Status = models.InvitationStatusPending
	existing.CreatedAt = invitation.CreatedAt
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	*invitation = existing
	return nil
}

// Update updates an invitation
func (r *InvitationRepository) Update(ctx context.Context, invitation *models.PostInvitation) error {
	return r.db.WithContext(ctx).Save(invitation).Error
}

// ActivityRepository provides activity-related database operations
type ActivityRepository struct {
	*Repository
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(repo *Repository) *ActivityRepository {
	return &ActivityRepository{Repository: repo}
}

// GetByID retrieves an activity by ID
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

// TagIDs lists the tag IDs attached to an activity
func (r *ActivityRepository) TagIDs(ctx context.Context, activityID string) ([]string, error) {
	var tagIDs []string
	err := r.db.WithContext(ctx).Model(&models.ActivityTag{}).
		Where("activity_id = ?", activityID).
		Pluck("tag_id", &tagIDs).Error
	return tagIDs, err
}

// TagRepository provides tag-related database operations
type TagRepository struct {
	*Repository
}

// NewTagRepository creates a new tag repository
func NewTagRepository(repo *Repository) *TagRepository {
	return &TagRepository{Repository: repo}
}

// GetByNames retrieves tags by name
func (r *TagRepository) GetByNames(ctx context.Context, names []string) ([]*models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var tags []*models.Tag
	err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&tags).Error
	return tags, err
}

// ConversionRepository provides conversion-record database operations
type ConversionRepository struct {
	*Repository
}

// NewConversionRepository creates a new conversion repository
func NewConversionRepository(repo *Repository) *ConversionRepository {
	return &ConversionRepository{Repository: repo}
}

// GetByPostID retrieves the conversion record for a post
func (r *ConversionRepository) GetByPostID(ctx context.Context, postID string) (*models.PostConversion, error) {
	var conversion models.PostConversion
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).First(&conversion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// SetInvitedCount records how many invitees were notified in a migration run
func (r *ConversionRepository) SetInvitedCount(ctx context.Context, conversionID string, count int) error {
	return r.db.WithContext(ctx).Model(&models.PostConversion{}).
		Where("id = ?", conversionID).
		Update("invited_users_notified", count).Error
}

// SetInterestedCount records how many interested users were notified
func (r *ConversionRepository) SetInterestedCount(ctx context.Context, conversionID string, count int) error {
	return r.db.WithContext(ctx).Model(&models.PostConversion{}).
		Where("id = ?", conversionID).
		Update("interested_users_notified", count).Error
}

// NotificationRepository provides notification-related database operations
type NotificationRepository struct {
	*Repository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(repo *Repository) *NotificationRepository {
	return &NotificationRepository{Repository: repo}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListByUser lists a user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

// CountByType counts notifications of one type, optionally per user
func (r *NotificationRepository) CountByType(ctx context.Context, notifyType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("type = ?", notifyType).
		Count(&count).Error
	return count, err
}

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDs retrieves multiple users by ID
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*models.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}
