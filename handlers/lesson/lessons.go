package lesson

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LessonHandler handles lesson-related requests
type LessonHandler struct {
	db          *gorm.DB
	validator   *validation.Validator
	lifecycle   *services.LifecycleService
	access      *services.AccessService
	enrollments *services.EnrollmentService
	aigen       *services.AIGenService
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(
	db *gorm.DB,
	lifecycle *services.LifecycleService,
	access *services.AccessService,
	enrollments *services.EnrollmentService,
	aigen *services.AIGenService,
) *LessonHandler {
	return &LessonHandler{
		db:          db,
		validator:   validation.NewValidator(),
		lifecycle:   lifecycle,
		access:      access,
		enrollments: enrollments,
		aigen:       aigen,
	}
}

// CreateLessonRequest represents the request body for creating a lesson
type CreateLessonRequest struct {
	Title     string         `json:"title" validate:"required,min=2,max=255"`
	Type      string         `json:"type" validate:"required,oneof=video article codingProblem quiz contest aiTest"`
	IsPreview bool           `json:"is_preview"`
	Content   datatypes.JSON `json:"content" validate:"required"`
}

// UpdateLessonRequest represents the request body for updating a lesson
type UpdateLessonRequest struct {
	Title     *string        `json:"title" validate:"omitempty,min=2,max=255"`
	Type      *string        `json:"type" validate:"omitempty,oneof=video article codingProblem quiz contest aiTest"`
	IsPreview *bool          `json:"is_preview"`
	Content   datatypes.JSON `json:"content"`
}

// GenerateLessonRequest represents the request body for AI lesson generation
type GenerateLessonRequest struct {
	Topic string `json:"topic" validate:"required,min=3,max=255"`
	Type  string `json:"type" validate:"required,oneof=video article codingProblem quiz contest aiTest"`
}

// ListLessons handles GET /api/v1/chapters/:chapterID/lessons.
// Content is omitted from listings; the detail endpoint enforces access.
func (h *LessonHandler) ListLessons(c *fiber.Ctx) error {
	chapterID, err := strconv.ParseUint(c.Params("chapterID"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid chapter ID")
	}

	var chapter model.Chapter
	if err := h.db.First(&chapter, chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Chapter not found")
		}
		return response.InternalServerError(c, "Failed to fetch chapter")
	}

	var lessons []model.Lesson
	err = h.db.Select("id", "chapter_id", "course_id", "title", "type", "position", "is_preview", "created_at", "updated_at").
		Where("chapter_id = ?", chapterID).
		Order("position ASC").
		Find(&lessons).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch lessons")
	}

	return response.Success(c, lessons)
}

// GetLesson handles GET /api/v1/lessons/:id.
// Preview lessons are served in full to anyone; otherwise the content field is
// redacted unless the caller passes the course access check.
func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	id := c.Params("id")

	var lesson model.Lesson
	if err := h.db.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Lesson not found")
		}
		return response.InternalServerError(c, "Failed to fetch lesson")
	}

	if lesson.IsPreview {
		return response.Success(c, lesson)
	}

	user, _ := middleware.GetUser(c)
	allowed, err := h.access.HasCourseAccess(c.Context(), user, lesson.CourseID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check course access")
	}

	if !allowed {
		lesson.Content = nil
		return response.SuccessWithMessage(c, services.RedactedContentMessage, lesson)
	}

	return response.Success(c, lesson)
}

// CreateLesson handles POST /api/v1/chapters/:chapterID/lessons
func (h *LessonHandler) CreateLesson(c *fiber.Ctx) error {
	chapterID, err := strconv.ParseUint(c.Params("chapterID"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid chapter ID")
	}

	var req CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var chapter model.Chapter
	if err := h.db.First(&chapter, chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Chapter not found")
		}
		return response.InternalServerError(c, "Failed to fetch chapter")
	}

	var count int64
	if err := h.db.Model(&model.Lesson{}).Where("chapter_id = ?", chapterID).Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to count lessons")
	}

	lesson := model.Lesson{
		ChapterID: chapter.ID,
		CourseID:  chapter.CourseID,
		Title:     validation.SanitizeString(req.Title),
		Type:      model.LessonType(req.Type),
		Order:     int(count),
		IsPreview: req.IsPreview,
		Content:   req.Content,
	}

	if err := services.NormalizeLessonContent(&lesson); err != nil {
		var missing services.ErrContentMissing
		if errors.As(err, &missing) {
			return response.BadRequest(c, missing.Error())
		}
		return response.BadRequest(c, "Invalid lesson content: "+err.Error())
	}

	if err := h.db.Create(&lesson).Error; err != nil {
		return response.InternalServerError(c, "Failed to create lesson")
	}

	if err := h.lifecycle.RecomputeCourseStats(c.Context(), chapter.CourseID); err != nil {
		return response.InternalServerError(c, "Failed to update course stats")
	}

	return response.Created(c, lesson)
}

// UpdateLesson handles PUT /api/v1/lessons/:id
func (h *LessonHandler) UpdateLesson(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var lesson model.Lesson
	if err := h.db.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Lesson not found")
		}
		return response.InternalServerError(c, "Failed to fetch lesson")
	}

	typeChanged := false
	if req.Title != nil {
		lesson.Title = validation.SanitizeString(*req.Title)
	}
	if req.Type != nil && model.LessonType(*req.Type) != lesson.Type {
		lesson.Type = model.LessonType(*req.Type)
		typeChanged = true
	}
	if req.IsPreview != nil {
		lesson.IsPreview = *req.IsPreview
	}
	if len(req.Content) > 0 {
		lesson.Content = req.Content
	}

	// A type switch or content replacement re-validates and re-prunes the
	// content against the active type
	if typeChanged || len(req.Content) > 0 {
		if err := services.NormalizeLessonContent(&lesson); err != nil {
			var missing services.ErrContentMissing
			if errors.As(err, &missing) {
				return response.BadRequest(c, missing.Error())
			}
			return response.BadRequest(c, "Invalid lesson content: "+err.Error())
		}
	}

	if err := h.db.Save(&lesson).Error; err != nil {
		return response.InternalServerError(c, "Failed to update lesson")
	}

	if typeChanged {
		if err := h.lifecycle.RecomputeCourseStats(c.Context(), lesson.CourseID); err != nil {
			return response.InternalServerError(c, "Failed to update course stats")
		}
	}

	return response.Success(c, lesson)
}

// DeleteLesson handles DELETE /api/v1/lessons/:id
func (h *LessonHandler) DeleteLesson(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	var lesson model.Lesson
	if err := h.db.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Lesson not found")
		}
		return response.InternalServerError(c, "Failed to fetch lesson")
	}

	if err := h.lifecycle.DeleteLessonCascade(c.Context(), lesson.ID); err != nil {
		return response.InternalServerError(c, "Failed to delete lesson: "+err.Error())
	}

	return response.SuccessWithMessage(c, "Lesson deleted", fiber.Map{
		"lesson_id": lesson.ID,
	})
}

// GenerateLesson handles POST /api/v1/chapters/:chapterID/lessons/ai.
// The generated content degrades to a static article when the generative
// backend is unreachable, so the endpoint always produces a lesson.
func (h *LessonHandler) GenerateLesson(c *fiber.Ctx) error {
	chapterID, err := strconv.ParseUint(c.Params("chapterID"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid chapter ID")
	}

	var req GenerateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var chapter model.Chapter
	if err := h.db.First(&chapter, chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Chapter not found")
		}
		return response.InternalServerError(c, "Failed to fetch chapter")
	}

	content, lessonType := h.aigen.GenerateLessonContent(c.Context(), req.Topic, model.LessonType(req.Type))

	var count int64
	if err := h.db.Model(&model.Lesson{}).Where("chapter_id = ?", chapterID).Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to count lessons")
	}

	lesson := model.Lesson{
		ChapterID: chapter.ID,
		CourseID:  chapter.CourseID,
		Title:     validation.SanitizeString(req.Topic),
		Type:      lessonType,
		Order:     int(count),
		Content:   content,
	}

	if err := services.NormalizeLessonContent(&lesson); err != nil {
		return response.InternalServerError(c, "Generated content was invalid: "+err.Error())
	}

	if err := h.db.Create(&lesson).Error; err != nil {
		return response.InternalServerError(c, "Failed to create lesson")
	}

	if err := h.lifecycle.RecomputeCourseStats(c.Context(), chapter.CourseID); err != nil {
		return response.InternalServerError(c, "Failed to update course stats")
	}

	return response.Created(c, lesson)
}

// CompleteLesson handles POST /api/v1/lessons/:id/complete
func (h *LessonHandler) CompleteLesson(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var lesson model.Lesson
	if err := h.db.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Lesson not found")
		}
		return response.InternalServerError(c, "Failed to fetch lesson")
	}

	allowed, err := h.access.HasCourseAccess(c.Context(), user, lesson.CourseID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check course access")
	}
	if !allowed {
		return response.Forbidden(c, services.RedactedContentMessage)
	}

	enrollment, err := h.enrollments.CompleteLesson(c.Context(), user, lesson.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.BadRequest(c, "Enroll in the course to track lesson progress")
		}
		return response.InternalServerError(c, "Failed to record completion")
	}

	return response.Success(c, fiber.Map{
		"lesson_id": lesson.ID,
		"progress":  enrollment.Progress,
	})
}
