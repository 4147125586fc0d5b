package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"gorm.io/gorm"
)

// AccessService answers the single question "may this user view this course's
// gated content". Read-only, no side effects.
type AccessService struct {
	db *gorm.DB
}

// NewAccessService creates a new access service
func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{db: db}
}

// RedactedContentMessage is served in place of lesson content when the access
// check fails.
const RedactedContentMessage = "Enroll in this course or subscribe to a plan that includes it to view this lesson."

// HasCourseAccess decides, in order:
//  1. admins and instructors always have access
//  2. a direct enrollment grants access
//  3. a course included in subscriptions grants access to holders of an
//     active, non-expired purchase of a covering plan (all-inclusive plans
//     cover every course; a nil end date means lifetime)
func (s *AccessService) HasCourseAccess(ctx context.Context, user *model.User, courseID uint) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.IsStaff() {
		return true, nil
	}

	db := s.db.WithContext(ctx)

	var enrolled int64
	if err := db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, courseID).
		Count(&enrolled).Error; err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled > 0 {
		return true, nil
	}

	var course model.Course
	if err := db.Select("id", "is_included_in_subscription").First(&course, courseID).Error; err != nil {
		return false, err
	}
	if !course.IsIncludedInSubscription {
		return false, nil
	}

	var purchases []model.UserSubscription
	if err := db.Preload("Subscription").
		Where("user_id = ? AND is_active = ?", user.ID, true).
		Find(&purchases).Error; err != nil {
		return false, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	now := time.Now()
	for _, purchase := range purchases {
		if !purchase.IsCurrent(now) {
			continue
		}
		if purchase.Subscription.IsAllIncluded {
			return true, nil
		}
		var covered int64
		if err := db.Model(&model.SubscriptionCourse{}).
			Where("subscription_id = ? AND course_id = ?", purchase.SubscriptionID, courseID).
			Count(&covered).Error; err != nil {
			return false, fmt.Errorf("failed to check plan coverage: %w", err)
		}
		if covered > 0 {
			return true, nil
		}
	}

	return false, nil
}
