package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/model"
	"gorm.io/gorm"
)

var (
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
	ErrCourseNotFree   = errors.New("course is not free")
	ErrOrderNotPending = errors.New("order is not pending")
)

// EnrollmentService handles enrollment creation, order completion and lesson
// progress tracking.
type EnrollmentService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB, notifications *NotificationService) *EnrollmentService {
	return &EnrollmentService{db: db, notifications: notifications}
}

// EnrollFree enrolls a user into a free course. The enrollment insert and the
// counter bump run in one transaction with bounded retry on write conflicts;
// the notification is dispatched fire-and-forget afterwards.
func (s *EnrollmentService) EnrollFree(ctx context.Context, user *model.User, course *model.Course) (*model.Enrollment, error) {
	if !course.IsFree && course.Price > 0 {
		return nil, ErrCourseNotFree
	}

	var enrollment model.Enrollment
	err := database.WithRetryTx(ctx, s.db, func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.Enrollment{}).
			Where("user_id = ? AND course_id = ?", user.ID, course.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyEnrolled
		}

		enrollment = model.Enrollment{UserID: user.ID, CourseID: course.ID}
		if err := tx.Create(&enrollment).Error; err != nil {
			return err
		}
		return tx.Model(&model.Course{}).Where("id = ?", course.ID).
			UpdateColumn("total_students", gorm.Expr("total_students + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Dispatch(ctx, DispatchRequest{
		UserID:   user.ID,
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryEnrollment,
		Title:    "Enrollment confirmed",
		Message:  fmt.Sprintf("You are now enrolled in %s.", course.Title),
		Metadata: &model.NotificationMetadata{CourseID: course.ID, CourseSlug: course.Slug},
		Email:    true,
	})

	return &enrollment, nil
}

// CompleteOrder marks a pending order completed and applies its effect:
// course orders enroll the buyer, subscription orders create an active
// purchase with the plan's duration (lifetime when the plan has none).
func (s *EnrollmentService) CompleteOrder(ctx context.Context, orderID uint, paymentID string) (*model.Order, error) {
	var order model.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return nil, err
	}
	if order.Status != model.OrderPending {
		return nil, ErrOrderNotPending
	}

	err := database.WithRetryTx(ctx, s.db, func(tx *gorm.DB) error {
		order.Status = model.OrderCompleted
		order.RazorpayPaymentID = paymentID
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		switch {
		case order.CourseID != nil:
			var existing int64
			if err := tx.Model(&model.Enrollment{}).
				Where("user_id = ? AND course_id = ?", order.UserID, *order.CourseID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return nil
			}
			enrollment := model.Enrollment{UserID: order.UserID, CourseID: *order.CourseID}
			if err := tx.Create(&enrollment).Error; err != nil {
				return err
			}
			return tx.Model(&model.Course{}).Where("id = ?", *order.CourseID).
				UpdateColumn("total_students", gorm.Expr("total_students + 1")).Error

		case order.SubscriptionID != nil:
			var plan model.Subscription
			if err := tx.First(&plan, *order.SubscriptionID).Error; err != nil {
				return err
			}
			purchase := model.UserSubscription{
				UserID:         order.UserID,
				SubscriptionID: plan.ID,
				StartDate:      time.Now(),
				IsActive:       true,
			}
			if plan.DurationMonths > 0 {
				end := time.Now().AddDate(0, plan.DurationMonths, 0)
				purchase.EndDate = &end
			}
			return tx.Create(&purchase).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Dispatch(ctx, DispatchRequest{
		UserID:   order.UserID,
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryEnrollment,
		Title:    "Payment received",
		Message:  "Your purchase is complete.",
		Email:    true,
	})

	return &order, nil
}

// CompleteLesson records a lesson completion (idempotent) and recomputes the
// enrollment's progress percentage from the course's lesson count.
func (s *EnrollmentService) CompleteLesson(ctx context.Context, user *model.User, lessonID uint) (*model.Enrollment, error) {
	db := s.db.WithContext(ctx)

	var lesson model.Lesson
	if err := db.First(&lesson, lessonID).Error; err != nil {
		return nil, err
	}

	var enrollment model.Enrollment
	if err := db.Where("user_id = ? AND course_id = ?", user.ID, lesson.CourseID).
		First(&enrollment).Error; err != nil {
		return nil, err
	}

	var done int64
	if err := db.Model(&model.LessonCompletion{}).
		Where("user_id = ? AND lesson_id = ?", user.ID, lessonID).
		Count(&done).Error; err != nil {
		return nil, err
	}
	if done == 0 {
		completion := model.LessonCompletion{
			UserID:   user.ID,
			LessonID: lessonID,
			CourseID: lesson.CourseID,
		}
		if err := db.Create(&completion).Error; err != nil {
			return nil, err
		}
	}

	var completed int64
	if err := db.Model(&model.LessonCompletion{}).
		Where("user_id = ? AND course_id = ?", user.ID, lesson.CourseID).
		Count(&completed).Error; err != nil {
		return nil, err
	}

	var course model.Course
	if err := db.Select("id", "total_lessons").First(&course, lesson.CourseID).Error; err != nil {
		return nil, err
	}
	if course.TotalLessons > 0 {
		enrollment.Progress = float64(completed) / float64(course.TotalLessons) * 100
		if enrollment.Progress > 100 {
			enrollment.Progress = 100
		}
	}
	if err := db.Save(&enrollment).Error; err != nil {
		return nil, err
	}

	log.Printf("User %d progress on course %d: %.1f%%", user.ID, lesson.CourseID, enrollment.Progress)
	return &enrollment, nil
}
