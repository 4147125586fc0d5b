package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollFree(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db, newTestNotifications(db))
	ctx := context.Background()

	student := createTestUser(t, db, "student@example.com", model.RoleStudent)
	course := createTestCourse(t, db, "free-intro", func(c *model.Course) {
		c.IsFree = true
		c.Price = 0
	})

	enrollment, err := svc.EnrollFree(ctx, student, course)
	require.NoError(t, err)
	assert.Equal(t, student.ID, enrollment.UserID)
	assert.Equal(t, course.ID, enrollment.CourseID)

	var refreshed model.Course
	require.NoError(t, db.First(&refreshed, course.ID).Error)
	assert.Equal(t, 1, refreshed.TotalStudents)

	var note model.UserNotification
	require.NoError(t, db.Where("user_id = ? AND category = ?",
		student.ID, model.NotificationCategoryEnrollment).First(&note).Error)
	assert.Contains(t, note.Message, course.Title)

	// Enrolling twice is refused and the counter stays put
	_, err = svc.EnrollFree(ctx, student, course)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	require.NoError(t, db.First(&refreshed, course.ID).Error)
	assert.Equal(t, 1, refreshed.TotalStudents)
}

func TestEnrollFreeRejectsPaidCourse(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db, newTestNotifications(db))

	student := createTestUser(t, db, "student@example.com", model.RoleStudent)
	course := createTestCourse(t, db, "paid-course", func(c *model.Course) {
		c.IsFree = false
		c.Price = 499
	})

	_, err := svc.EnrollFree(context.Background(), student, course)
	assert.ErrorIs(t, err, ErrCourseNotFree)
}

func TestCompleteOrderEnrollsBuyer(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db, newTestNotifications(db))
	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer@example.com", model.RoleStudent)
	course := createTestCourse(t, db, "paid-course", func(c *model.Course) {
		c.Price = 499
	})

	order := model.Order{
		UserID:          buyer.ID,
		CourseID:        &course.ID,
		Amount:          499,
		Status:          model.OrderPending,
		RazorpayOrderID: "order_test123",
	}
	require.NoError(t, db.Create(&order).Error)

	completed, err := svc.CompleteOrder(ctx, order.ID, "pay_test123")
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, completed.Status)
	assert.Equal(t, "pay_test123", completed.RazorpayPaymentID)

	var enrollments int64
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", buyer.ID, course.ID).
		Count(&enrollments).Error)
	assert.EqualValues(t, 1, enrollments)

	var refreshed model.Course
	require.NoError(t, db.First(&refreshed, course.ID).Error)
	assert.Equal(t, 1, refreshed.TotalStudents)

	// A completed order cannot be completed again
	_, err = svc.CompleteOrder(ctx, order.ID, "pay_again")
	assert.ErrorIs(t, err, ErrOrderNotPending)
}

func TestCompleteOrderActivatesSubscription(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db, newTestNotifications(db))
	ctx := context.Background()

	buyer := createTestUser(t, db, "buyer@example.com", model.RoleStudent)
	plan := model.Subscription{Name: "Annual", Price: 1999, DurationMonths: 12, IsActive: true}
	require.NoError(t, db.Create(&plan).Error)

	order := model.Order{
		UserID:          buyer.ID,
		SubscriptionID:  &plan.ID,
		Amount:          1999,
		Status:          model.OrderPending,
		RazorpayOrderID: "order_sub123",
	}
	require.NoError(t, db.Create(&order).Error)

	_, err := svc.CompleteOrder(ctx, order.ID, "pay_sub123")
	require.NoError(t, err)

	var purchase model.UserSubscription
	require.NoError(t, db.Where("user_id = ?", buyer.ID).First(&purchase).Error)
	assert.True(t, purchase.IsActive)
	require.NotNil(t, purchase.EndDate)
	wantEnd := time.Now().AddDate(0, 12, 0)
	assert.WithinDuration(t, wantEnd, *purchase.EndDate, time.Minute)
}

func TestCompleteOrderLifetimePlanHasNoEndDate(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db, newTestNotifications(db))

	buyer := createTestUser(t, db, "buyer@example.com", model.RoleStudent)
	plan := model.Subscription{Name: "Lifetime", Price: 4999, IsActive: true}
	require.NoError(t, db.Create(&plan).Error)
	// The schema defaults duration_months to 12; a lifetime plan stores 0
	require.NoError(t, db.Model(&plan).Update("duration_months", 0).Error)

	order := model.Order{
		UserID:          buyer.ID,
		SubscriptionID:  &plan.ID,
		Amount:          4999,
		Status:          model.OrderPending,
		RazorpayOrderID: "order_life123",
	}
	require.NoError(t, db.Create(&order).Error)

	_, err := svc.CompleteOrder(context.Background(), order.ID, "pay_life123")
	require.NoError(t, err)

	var purchase model.UserSubscription
	require.NoError(t, db.Where("user_id = ?", buyer.ID).First(&purchase).Error)
	assert.Nil(t, purchase.EndDate)
}

func TestCompleteLessonTracksProgress(t *testing.T) {
	db := newTestDB(t)
	notifications := newTestNotifications(db)
	svc := NewEnrollmentService(db, notifications)
	lifecycle := NewLifecycleService(db)
	ctx := context.Background()

	student := createTestUser(t, db, "student@example.com", model.RoleStudent)
	course := createTestCourse(t, db, "progress-course", func(c *model.Course) {
		c.IsFree = true
	})
	chapter := createTestChapter(t, db, course.ID, 0)
	first := createTestLesson(t, db, chapter, model.LessonTypeVideo, 0)
	second := createTestLesson(t, db, chapter, model.LessonTypeArticle, 1)
	require.NoError(t, lifecycle.RecomputeCourseStats(ctx, course.ID))

	_, err := svc.EnrollFree(ctx, student, course)
	require.NoError(t, err)

	enrollment, err := svc.CompleteLesson(ctx, student, first.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, enrollment.Progress, 0.01)

	// Completing the same lesson again changes nothing
	enrollment, err = svc.CompleteLesson(ctx, student, first.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, enrollment.Progress, 0.01)

	enrollment, err = svc.CompleteLesson(ctx, student, second.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, enrollment.Progress, 0.01)

	var completions int64
	require.NoError(t, db.Model(&model.LessonCompletion{}).
		Where("user_id = ?", student.ID).Count(&completions).Error)
	assert.EqualValues(t, 2, completions)
}
