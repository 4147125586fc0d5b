package chapter

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/gorm"
)

// ChapterHandler handles chapter-related requests
type ChapterHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	lifecycle *services.LifecycleService
}

// NewChapterHandler creates a new chapter handler
func NewChapterHandler(db *gorm.DB, lifecycle *services.LifecycleService) *ChapterHandler {
	return &ChapterHandler{
		db:        db,
		validator: validation.NewValidator(),
		lifecycle: lifecycle,
	}
}

// CreateChapterRequest represents the request body for creating a chapter
type CreateChapterRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// UpdateChapterRequest represents the request body for updating a chapter
type UpdateChapterRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=2,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// ReorderRequest submits the full chapter id list in the desired order
type ReorderRequest struct {
	ChapterIDs []uint `json:"chapter_ids" validate:"required,min=1"`
}

// ListChapters handles GET /api/v1/courses/:courseID/chapters
func (h *ChapterHandler) ListChapters(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("courseID"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var course model.Course
	if err := h.db.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	var chapters []model.Chapter
	err = h.db.Where("course_id = ?", courseID).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "chapter_id", "course_id", "title", "type", "position", "is_preview").
				Order("position ASC")
		}).
		Order("position ASC").
		Find(&chapters).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch chapters")
	}

	return response.Success(c, chapters)
}

// CreateChapter handles POST /api/v1/courses/:courseID/chapters
func (h *ChapterHandler) CreateChapter(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("courseID"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req CreateChapterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var course model.Course
	if err := h.db.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	// New chapters append to the end of the course
	var count int64
	if err := h.db.Model(&model.Chapter{}).Where("course_id = ?", courseID).Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to count chapters")
	}

	chapter := model.Chapter{
		CourseID:    uint(courseID),
		Title:       validation.SanitizeString(req.Title),
		Description: req.Description,
		Order:       int(count),
	}

	if err := h.db.Create(&chapter).Error; err != nil {
		return response.InternalServerError(c, "Failed to create chapter")
	}

	return response.Created(c, chapter)
}

// UpdateChapter handles PUT /api/v1/chapters/:id
func (h *ChapterHandler) UpdateChapter(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateChapterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var chapter model.Chapter
	if err := h.db.First(&chapter, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Chapter not found")
		}
		return response.InternalServerError(c, "Failed to fetch chapter")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = validation.SanitizeString(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if len(updates) > 0 {
		if err := h.db.Model(&chapter).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update chapter")
		}
	}

	return response.Success(c, chapter)
}

// DeleteChapter handles DELETE /api/v1/chapters/:id
func (h *ChapterHandler) DeleteChapter(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid chapter ID")
	}

	var chapter model.Chapter
	if err := h.db.First(&chapter, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Chapter not found")
		}
		return response.InternalServerError(c, "Failed to fetch chapter")
	}

	if err := h.lifecycle.DeleteChapterCascade(c.Context(), chapter.ID); err != nil {
		return response.InternalServerError(c, "Failed to delete chapter: "+err.Error())
	}

	return response.SuccessWithMessage(c, "Chapter and its content deleted", fiber.Map{
		"chapter_id": chapter.ID,
	})
}

// Reorder handles PUT /api/v1/courses/:courseID/chapters/reorder.
// The submitted list must contain every chapter of the course exactly once;
// positions are rewritten to 0..N-1 in the submitted order.
func (h *ChapterHandler) Reorder(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("courseID"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var chapters []model.Chapter
	if err := h.db.Where("course_id = ?", courseID).Find(&chapters).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch chapters")
	}

	if len(req.ChapterIDs) != len(chapters) {
		return response.BadRequest(c, "Reorder list must contain every chapter of the course")
	}

	existing := make(map[uint]bool, len(chapters))
	for _, ch := range chapters {
		existing[ch.ID] = true
	}
	seen := make(map[uint]bool, len(req.ChapterIDs))
	for _, id := range req.ChapterIDs {
		if !existing[id] {
			return response.BadRequest(c, "Chapter does not belong to this course")
		}
		if seen[id] {
			return response.BadRequest(c, "Duplicate chapter in reorder list")
		}
		seen[id] = true
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		for position, id := range req.ChapterIDs {
			err := tx.Model(&model.Chapter{}).
				Where("id = ?", id).
				Update("position", position).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to reorder chapters")
	}

	var reordered []model.Chapter
	if err := h.db.Where("course_id = ?", courseID).Order("position ASC").Find(&reordered).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch chapters")
	}

	return response.Success(c, reordered)
}
