package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/cache"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const unreadCountTTL = 1 * time.Minute

// NotificationService persists per-user notifications and optionally mirrors
// them to email. Dispatch is fire-and-forget from the caller's point of view:
// it never fails the primary request.
type NotificationService struct {
	db    *gorm.DB
	email *EmailService
	cache *cache.RedisCache // nil when redis is unavailable
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB, email *EmailService, redisCache *cache.RedisCache) *NotificationService {
	return &NotificationService{db: db, email: email, cache: redisCache}
}

// DispatchRequest describes one notification to deliver
type DispatchRequest struct {
	UserID   uint
	Type     model.NotificationType
	Category model.NotificationCategory
	Title    string
	Message  string
	Metadata *model.NotificationMetadata
	Email    bool // also send an email when the channel is configured
}

// Dispatch persists the notification and optionally triggers an email.
// Errors are logged and swallowed; a lost notification must never fail the
// flow that produced it.
func (s *NotificationService) Dispatch(ctx context.Context, req DispatchRequest) {
	notification := &model.UserNotification{
		UserID:   req.UserID,
		Type:     req.Type,
		Category: req.Category,
		Title:    req.Title,
		Message:  req.Message,
	}

	if req.Metadata != nil {
		metadataJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			log.Printf("Failed to marshal notification metadata: %v", err)
		} else {
			notification.Metadata = datatypes.JSON(metadataJSON)
		}
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		log.Printf("Failed to create notification for user %d: %v", req.UserID, err)
		return
	}
	s.invalidateUnreadCount(ctx, req.UserID)

	if req.Email && s.email != nil {
		var user model.User
		if err := s.db.WithContext(ctx).First(&user, req.UserID).Error; err == nil && user.Email != "" {
			if err := s.email.Send(user.Email, user.Name, req.Title, req.Message); err != nil {
				log.Printf("Notification email to user %d failed: %v", req.UserID, err)
			}
		}
	}
}

// ListOptions represents options for listing notifications
type ListOptions struct {
	UserID     uint
	UnreadOnly bool
	Category   string
	Limit      int
	Offset     int
}

// List retrieves notifications for a user, newest first
func (s *NotificationService) List(ctx context.Context, opts ListOptions) ([]model.UserNotification, int64, error) {
	var notifications []model.UserNotification
	var total int64

	query := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ?", opts.UserID)

	if opts.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	} else {
		query = query.Limit(50)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkAsRead marks a notification as read and stamps ReadAt
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uint, userID uint) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"read": true, "read_at": &now})

	if result.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	s.invalidateUnreadCount(ctx, userID)
	return nil
}

// MarkAllAsRead marks all notifications for a user as read
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": &now})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", result.Error)
	}
	s.invalidateUnreadCount(ctx, userID)
	return result.RowsAffected, nil
}

// Delete removes a notification
func (s *NotificationService) Delete(ctx context.Context, notificationID uint, userID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&model.UserNotification{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	s.invalidateUnreadCount(ctx, userID)
	return nil
}

// UnreadCount returns the unread count, cached briefly in redis
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	key := fmt.Sprintf("notifications:unread:%d", userID)
	if s.cache != nil {
		var cached int64
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, count, unreadCountTTL); err != nil {
			log.Printf("Failed to cache unread count for user %d: %v", userID, err)
		}
	}
	return count, nil
}

func (s *NotificationService) invalidateUnreadCount(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf("notifications:unread:%d", userID)
	if err := s.cache.Delete(ctx, key); err != nil {
		log.Printf("Failed to invalidate unread count cache for user %d: %v", userID, err)
	}
}

// CleanupOld removes read notifications older than the given duration
func (s *NotificationService) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result := s.db.WithContext(ctx).
		Where("created_at < ? AND read = ?", cutoff, true).
		Delete(&model.UserNotification{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup old notifications: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d old notifications", result.RowsAffected)
	}
	return result.RowsAffected, nil
}
