package liveclass

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/gorm"
)

// LiveClassHandler handles live class requests
type LiveClassHandler struct {
	db            *gorm.DB
	validator     *validation.Validator
	meetings      *services.MeetingService
	notifications *services.NotificationService
}

// NewLiveClassHandler creates a new live class handler
func NewLiveClassHandler(db *gorm.DB, meetings *services.MeetingService, notifications *services.NotificationService) *LiveClassHandler {
	return &LiveClassHandler{
		db:            db,
		validator:     validation.NewValidator(),
		meetings:      meetings,
		notifications: notifications,
	}
}

// CreateLiveClassRequest represents the request body for scheduling a live class
type CreateLiveClassRequest struct {
	Title       string    `json:"title" validate:"required,min=2,max=255"`
	Description string    `json:"description" validate:"omitempty,max=2000"`
	Provider    string    `json:"provider" validate:"omitempty,oneof=jitsi zoom"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Duration    int       `json:"duration" validate:"omitempty,min=5,max=480"`
}

// UpdateLiveClassRequest represents the request body for updating a live class
type UpdateLiveClassRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=2,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Duration    *int       `json:"duration" validate:"omitempty,min=5,max=480"`
}

// StatusRequest represents the request body for a status transition
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled live completed cancelled"`
}

// ListLiveClasses handles GET /api/v1/chapters/:chapterID/live-classes
func (h *LiveClassHandler) ListLiveClasses(c *fiber.Ctx) error {
	chapterID, err := strconv.ParseUint(c.Params("chapterID"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid chapter ID")
	}

	var classes []model.LiveClass
	err = h.db.Where("chapter_id = ?", chapterID).
		Preload("Instructor").
		Order("scheduled_at ASC").
		Find(&classes).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch live classes")
	}

	return response.Success(c, classes)
}

// CreateLiveClass handles POST /api/v1/chapters/:chapterID/live-classes
func (h *LiveClassHandler) CreateLiveClass(c *fiber.Ctx) error {
	chapterID, err := strconv.ParseUint(c.Params("chapterID"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid chapter ID")
	}

	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req CreateLiveClassRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	if req.ScheduledAt.Before(time.Now()) {
		return response.BadRequest(c, "Scheduled time must be in the future")
	}

	var chapter model.Chapter
	if err := h.db.First(&chapter, chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Chapter not found")
		}
		return response.InternalServerError(c, "Failed to fetch chapter")
	}

	provider := model.ProviderJitsi
	if req.Provider != "" {
		provider = model.MeetingProvider(req.Provider)
	}
	duration := req.Duration
	if duration == 0 {
		duration = 60
	}

	liveClass := model.LiveClass{
		ChapterID:    chapter.ID,
		CourseID:     chapter.CourseID,
		InstructorID: user.ID,
		Title:        validation.SanitizeString(req.Title),
		Description:  req.Description,
		Provider:     provider,
		Status:       model.LiveClassScheduled,
		ScheduledAt:  req.ScheduledAt,
		Duration:     duration,
	}

	// Provision the meeting room; the zoom client falls back to jitsi on failure
	if err := h.meetings.Schedule(c.Context(), &liveClass); err != nil {
		return response.InternalServerError(c, "Failed to provision meeting room")
	}

	if err := h.db.Create(&liveClass).Error; err != nil {
		return response.InternalServerError(c, "Failed to create live class")
	}

	h.notifyEnrolled(c, chapter.CourseID, liveClass)

	return response.Created(c, liveClass)
}

// notifyEnrolled tells every enrolled student about a newly scheduled class
func (h *LiveClassHandler) notifyEnrolled(c *fiber.Ctx, courseID uint, liveClass model.LiveClass) {
	var userIDs []uint
	if err := h.db.Model(&model.Enrollment{}).Where("course_id = ?", courseID).Pluck("user_id", &userIDs).Error; err != nil {
		return
	}
	for _, userID := range userIDs {
		h.notifications.Dispatch(c.Context(), services.DispatchRequest{
			UserID:   userID,
			Type:     model.NotificationTypeInfo,
			Category: model.NotificationCategoryLiveClass,
			Title:    "Live class scheduled",
			Message:  fmt.Sprintf("%s starts at %s", liveClass.Title, liveClass.ScheduledAt.Format(time.RFC1123)),
			Metadata: &model.NotificationMetadata{
				CourseID:    courseID,
				LiveClassID: liveClass.ID,
			},
		})
	}
}

// UpdateLiveClass handles PUT /api/v1/live-classes/:id
func (h *LiveClassHandler) UpdateLiveClass(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateLiveClassRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var liveClass model.LiveClass
	if err := h.db.First(&liveClass, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Live class not found")
		}
		return response.InternalServerError(c, "Failed to fetch live class")
	}

	if liveClass.Status == model.LiveClassCompleted || liveClass.Status == model.LiveClassCancelled {
		return response.BadRequest(c, "Cannot update a finished live class")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = validation.SanitizeString(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ScheduledAt != nil {
		if req.ScheduledAt.Before(time.Now()) {
			return response.BadRequest(c, "Scheduled time must be in the future")
		}
		updates["scheduled_at"] = *req.ScheduledAt
	}
	if req.Duration != nil {
		updates["duration"] = *req.Duration
	}

	if len(updates) > 0 {
		if err := h.db.Model(&liveClass).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update live class")
		}
	}

	return response.Success(c, liveClass)
}

// DeleteLiveClass handles DELETE /api/v1/live-classes/:id
func (h *LiveClassHandler) DeleteLiveClass(c *fiber.Ctx) error {
	id := c.Params("id")

	var liveClass model.LiveClass
	if err := h.db.First(&liveClass, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Live class not found")
		}
		return response.InternalServerError(c, "Failed to fetch live class")
	}

	// Best effort; a failed remote cancel only logs
	h.meetings.Cancel(c.Context(), &liveClass)

	if err := h.db.Delete(&liveClass).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete live class")
	}

	return response.SuccessWithMessage(c, "Live class deleted", fiber.Map{
		"live_class_id": liveClass.ID,
	})
}

// UpdateStatus handles POST /api/v1/live-classes/:id/status
func (h *LiveClassHandler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var liveClass model.LiveClass
	if err := h.db.First(&liveClass, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Live class not found")
		}
		return response.InternalServerError(c, "Failed to fetch live class")
	}

	newStatus := model.LiveClassStatus(req.Status)
	if err := h.db.Model(&liveClass).Update("status", newStatus).Error; err != nil {
		return response.InternalServerError(c, "Failed to update status")
	}

	if newStatus == model.LiveClassCancelled {
		h.meetings.Cancel(c.Context(), &liveClass)
	}

	return response.Success(c, liveClass)
}
