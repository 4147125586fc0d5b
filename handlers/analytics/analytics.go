package analytics

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"gorm.io/gorm"
)

// AnalyticsHandler serves admin analytics endpoints
type AnalyticsHandler struct {
	db        *gorm.DB
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(db *gorm.DB, analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{db: db, analytics: analytics}
}

// Dashboard handles GET /api/v1/analysis/dashboard
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.analytics.GetDashboard(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to compute dashboard stats")
	}
	return response.Success(c, stats)
}

// CourseStats handles GET /api/v1/analysis/courses/:slug
func (h *AnalyticsHandler) CourseStats(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var course model.Course
	if err := h.db.Select("id").Where("slug = ?", slug).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	stats, err := h.analytics.GetCourseStats(c.Context(), course.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to compute course stats")
	}
	return response.Success(c, stats)
}

// EnrollmentTimeSeries handles GET /api/v1/analysis/enrollments/timeseries
func (h *AnalyticsHandler) EnrollmentTimeSeries(c *fiber.Ctx) error {
	days, _ := strconv.Atoi(c.Query("days", "30"))

	points, err := h.analytics.GetEnrollmentTimeSeries(c.Context(), days)
	if err != nil {
		return response.InternalServerError(c, "Failed to compute enrollment time series")
	}
	return response.Success(c, points)
}

// TicketBreakdown handles GET /api/v1/analysis/tickets
func (h *AnalyticsHandler) TicketBreakdown(c *fiber.Ctx) error {
	breakdown, err := h.analytics.GetTicketBreakdown(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to compute ticket breakdown")
	}
	return response.Success(c, breakdown)
}

// TopCourses handles GET /api/v1/analysis/top-courses
func (h *AnalyticsHandler) TopCourses(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	courses, err := h.analytics.GetTopCourses(c.Context(), limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch top courses")
	}
	return response.Success(c, courses)
}
