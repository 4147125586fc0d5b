package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/cache"
	"gorm.io/gorm"
)

const dashboardCacheTTL = 5 * time.Minute

// AnalyticsService computes read-only aggregations for admin dashboards
type AnalyticsService struct {
	db    *gorm.DB
	cache *cache.RedisCache // nil when redis is unavailable
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(db *gorm.DB, redisCache *cache.RedisCache) *AnalyticsService {
	return &AnalyticsService{db: db, cache: redisCache}
}

// DashboardStats is the top-level admin dashboard payload
type DashboardStats struct {
	TotalUsers        int64   `json:"total_users"`
	TotalStudents     int64   `json:"total_students"`
	TotalInstructors  int64   `json:"total_instructors"`
	TotalCourses      int64   `json:"total_courses"`
	PublishedCourses  int64   `json:"published_courses"`
	TotalEnrollments  int64   `json:"total_enrollments"`
	ActiveSubscribers int64   `json:"active_subscribers"`
	OpenTickets       int64   `json:"open_tickets"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// GetDashboard returns platform-wide stats, cached briefly in redis
func (s *AnalyticsService) GetDashboard(ctx context.Context) (*DashboardStats, error) {
	const cacheKey = "analytics:dashboard"

	if s.cache != nil {
		var cached DashboardStats
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	db := s.db.WithContext(ctx)
	var stats DashboardStats

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, db.Model(&model.User{})},
		{&stats.TotalStudents, db.Model(&model.User{}).Where("role = ?", model.RoleStudent)},
		{&stats.TotalInstructors, db.Model(&model.User{}).Where("role = ?", model.RoleInstructor)},
		{&stats.TotalCourses, db.Model(&model.Course{})},
		{&stats.PublishedCourses, db.Model(&model.Course{}).Where("is_published = ?", true)},
		{&stats.TotalEnrollments, db.Model(&model.Enrollment{})},
		{&stats.ActiveSubscribers, db.Model(&model.UserSubscription{}).Where("is_active = ?", true)},
		{&stats.OpenTickets, db.Model(&model.SupportTicket{}).Where("status IN ?", model.OpenTicketStatuses)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
		}
	}

	if err := db.Model(&model.Order{}).
		Where("status = ?", model.OrderCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, stats, dashboardCacheTTL); err != nil {
			log.Printf("Failed to cache dashboard stats: %v", err)
		}
	}
	return &stats, nil
}

// CourseStats is the per-course aggregation payload
type CourseStats struct {
	CourseID         uint    `json:"course_id"`
	Title            string  `json:"title"`
	Slug             string  `json:"slug"`
	TotalStudents    int     `json:"total_students"`
	TotalLessons     int     `json:"total_lessons"`
	Rating           float64 `json:"rating"`
	TotalRatings     int     `json:"total_ratings"`
	CompletionRate   float64 `json:"completion_rate"`
	Revenue          float64 `json:"revenue"`
	LiveClassesHeld  int64   `json:"live_classes_held"`
}

// GetCourseStats aggregates one course's numbers
func (s *AnalyticsService) GetCourseStats(ctx context.Context, courseID uint) (*CourseStats, error) {
	db := s.db.WithContext(ctx)

	var course model.Course
	if err := db.First(&course, courseID).Error; err != nil {
		return nil, err
	}

	stats := CourseStats{
		CourseID:      course.ID,
		Title:         course.Title,
		Slug:          course.Slug,
		TotalStudents: course.TotalStudents,
		TotalLessons:  course.TotalLessons,
		Rating:        course.Rating,
		TotalRatings:  course.TotalRatings,
	}

	if course.TotalStudents > 0 && course.TotalLessons > 0 {
		var completions int64
		if err := db.Model(&model.LessonCompletion{}).
			Where("course_id = ?", courseID).
			Count(&completions).Error; err != nil {
			return nil, err
		}
		stats.CompletionRate = float64(completions) /
			float64(int64(course.TotalStudents)*int64(course.TotalLessons)) * 100
	}

	if err := db.Model(&model.Order{}).
		Where("course_id = ? AND status = ?", courseID, model.OrderCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.Revenue).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&model.LiveClass{}).
		Where("course_id = ? AND status = ?", courseID, model.LiveClassCompleted).
		Count(&stats.LiveClassesHeld).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

// TimeSeriesPoint is one daily bucket
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// GetEnrollmentTimeSeries buckets enrollments per day over the last N days
func (s *AnalyticsService) GetEnrollmentTimeSeries(ctx context.Context, days int) ([]TimeSeriesPoint, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	var enrollments []model.Enrollment
	if err := s.db.WithContext(ctx).
		Where("enrolled_at >= ?", since).
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}

	buckets := make(map[string]int64)
	for _, enrollment := range enrollments {
		buckets[enrollment.EnrolledAt.Format("2006-01-02")]++
	}

	points := make([]TimeSeriesPoint, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, TimeSeriesPoint{Date: day, Count: buckets[day]})
	}
	return points, nil
}

// TicketBreakdown maps ticket status to count
type TicketBreakdown struct {
	ByStatus   map[model.TicketStatus]int64   `json:"by_status"`
	ByPriority map[model.TicketPriority]int64 `json:"by_priority"`
}

// GetTicketBreakdown counts tickets by status and priority
func (s *AnalyticsService) GetTicketBreakdown(ctx context.Context) (*TicketBreakdown, error) {
	db := s.db.WithContext(ctx)

	breakdown := TicketBreakdown{
		ByStatus:   make(map[model.TicketStatus]int64),
		ByPriority: make(map[model.TicketPriority]int64),
	}

	statuses := []model.TicketStatus{
		model.TicketOpen, model.TicketInProgress, model.TicketAwaitingUser,
		model.TicketResolved, model.TicketClosed, model.TicketReopened,
	}
	for _, status := range statuses {
		var count int64
		if err := db.Model(&model.SupportTicket{}).Where("status = ?", status).Count(&count).Error; err != nil {
			return nil, err
		}
		breakdown.ByStatus[status] = count
	}

	priorities := []model.TicketPriority{
		model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityUrgent,
	}
	for _, priority := range priorities {
		var count int64
		if err := db.Model(&model.SupportTicket{}).Where("priority = ?", priority).Count(&count).Error; err != nil {
			return nil, err
		}
		breakdown.ByPriority[priority] = count
	}

	return &breakdown, nil
}

// GetTopCourses returns the most-enrolled published courses
func (s *AnalyticsService) GetTopCourses(ctx context.Context, limit int) ([]model.Course, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var courses []model.Course
	err := s.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("total_students DESC").
		Limit(limit).
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load top courses: %w", err)
	}
	return courses, nil
}
