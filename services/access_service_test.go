package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCourseAccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccessService(db)
	ctx := context.Background()

	admin := createTestUser(t, db, "admin@example.com", model.RoleAdmin)
	instructor := createTestUser(t, db, "teach@example.com", model.RoleInstructor)
	enrolled := createTestUser(t, db, "enrolled@example.com", model.RoleStudent)
	stranger := createTestUser(t, db, "stranger@example.com", model.RoleStudent)
	lifetimeSub := createTestUser(t, db, "lifetime@example.com", model.RoleStudent)
	expiredSub := createTestUser(t, db, "expired@example.com", model.RoleStudent)
	planSub := createTestUser(t, db, "plan@example.com", model.RoleStudent)

	gated := createTestCourse(t, db, "gated", func(c *model.Course) {
		c.IsIncludedInSubscription = true
	})
	standalone := createTestCourse(t, db, "standalone", nil)

	require.NoError(t, db.Create(&model.Enrollment{UserID: enrolled.ID, CourseID: gated.ID}).Error)

	allAccess := model.Subscription{Name: "All Access", Price: 199, IsAllIncluded: true, DurationMonths: 0}
	require.NoError(t, db.Create(&allAccess).Error)
	single := model.Subscription{Name: "Single Track", Price: 49, DurationMonths: 12}
	require.NoError(t, db.Create(&single).Error)
	require.NoError(t, db.Create(&model.SubscriptionCourse{SubscriptionID: single.ID, CourseID: gated.ID}).Error)

	// Lifetime all-inclusive purchase: nil end date
	require.NoError(t, db.Create(&model.UserSubscription{
		UserID:         lifetimeSub.ID,
		SubscriptionID: allAccess.ID,
		StartDate:      time.Now().AddDate(-1, 0, 0),
		IsActive:       true,
	}).Error)

	// Expired purchase: still flagged active, but past its end date
	expiredEnd := time.Now().AddDate(0, -1, 0)
	require.NoError(t, db.Create(&model.UserSubscription{
		UserID:         expiredSub.ID,
		SubscriptionID: allAccess.ID,
		StartDate:      time.Now().AddDate(-1, 0, 0),
		EndDate:        &expiredEnd,
		IsActive:       true,
	}).Error)

	// Current purchase of the plan that covers the gated course
	futureEnd := time.Now().AddDate(0, 6, 0)
	require.NoError(t, db.Create(&model.UserSubscription{
		UserID:         planSub.ID,
		SubscriptionID: single.ID,
		StartDate:      time.Now(),
		EndDate:        &futureEnd,
		IsActive:       true,
	}).Error)

	cases := []struct {
		name     string
		user     *model.User
		courseID uint
		want     bool
	}{
		{"anonymous", nil, gated.ID, false},
		{"admin bypasses checks", admin, gated.ID, true},
		{"instructor bypasses checks", instructor, gated.ID, true},
		{"direct enrollment", enrolled, gated.ID, true},
		{"no entitlement", stranger, gated.ID, false},
		{"lifetime all-inclusive subscription", lifetimeSub, gated.ID, true},
		{"expired subscription", expiredSub, gated.ID, false},
		{"plan covering the course", planSub, gated.ID, true},
		{"subscription does not cover excluded course", lifetimeSub, standalone.ID, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.HasCourseAccess(ctx, tc.user, tc.courseID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHasCourseAccessDeactivatedSubscription(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccessService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "cancelled@example.com", model.RoleStudent)
	course := createTestCourse(t, db, "gated", func(c *model.Course) {
		c.IsIncludedInSubscription = true
	})

	plan := model.Subscription{Name: "All Access", Price: 199, IsAllIncluded: true}
	require.NoError(t, db.Create(&plan).Error)
	purchase := model.UserSubscription{
		UserID:         user.ID,
		SubscriptionID: plan.ID,
		StartDate:      time.Now(),
		IsActive:       true,
	}
	require.NoError(t, db.Create(&purchase).Error)
	require.NoError(t, db.Model(&purchase).Update("is_active", false).Error)

	got, err := svc.HasCourseAccess(ctx, user, course.ID)
	require.NoError(t, err)
	assert.False(t, got)
}
