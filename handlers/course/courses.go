package course

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/gorm"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	db          *gorm.DB
	validator   *validation.Validator
	lifecycle   *services.LifecycleService
	enrollments *services.EnrollmentService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB, lifecycle *services.LifecycleService, enrollments *services.EnrollmentService) *CourseHandler {
	return &CourseHandler{
		db:          db,
		validator:   validation.NewValidator(),
		lifecycle:   lifecycle,
		enrollments: enrollments,
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title                    string  `json:"title" validate:"required,min=3,max=255"`
	Description              string  `json:"description" validate:"omitempty,max=5000"`
	Thumbnail                string  `json:"thumbnail" validate:"omitempty,url,max=512"`
	Price                    float64 `json:"price" validate:"omitempty,min=0"`
	DiscountedPrice          float64 `json:"discounted_price" validate:"omitempty,min=0"`
	IsFree                   bool    `json:"is_free"`
	IsIncludedInSubscription bool    `json:"is_included_in_subscription"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Title                    *string  `json:"title" validate:"omitempty,min=3,max=255"`
	Description              *string  `json:"description" validate:"omitempty,max=5000"`
	Thumbnail                *string  `json:"thumbnail" validate:"omitempty,url,max=512"`
	Price                    *float64 `json:"price" validate:"omitempty,min=0"`
	DiscountedPrice          *float64 `json:"discounted_price" validate:"omitempty,min=0"`
	IsFree                   *bool    `json:"is_free"`
	IsPublished              *bool    `json:"is_published"`
	IsIncludedInSubscription *bool    `json:"is_included_in_subscription"`
}

// RateCourseRequest represents the request body for rating a course
type RateCourseRequest struct {
	Stars  int    `json:"stars" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"omitempty,max=2000"`
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	search := c.Query("search", "")

	query := h.db.Model(&model.Course{})

	// Unauthenticated users and students only see published courses
	role, _ := middleware.GetUserRole(c)
	if role != model.RoleAdmin && role != model.RoleInstructor {
		query = query.Where("is_published = ?", true)
	}

	if search != "" {
		pattern := "%" + validation.SanitizeString(search) + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var courses []model.Course
	if err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, pagination)
}

// GetCourse handles GET /api/v1/courses/:slug
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var course model.Course
	err := h.db.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Instructors.User").
		Where("slug = ?", slug).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	role, _ := middleware.GetUserRole(c)
	if !course.IsPublished && role != model.RoleAdmin && role != model.RoleInstructor {
		return response.NotFound(c, "Course not found")
	}

	return response.Success(c, course)
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	slug := validation.Slugify(req.Title)
	if slug == "" {
		return response.BadRequest(c, "Title must contain at least one alphanumeric character")
	}

	var existing model.Course
	if err := h.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		return response.Conflict(c, "A course with this title already exists")
	}

	course := model.Course{
		Title:                    validation.SanitizeString(req.Title),
		Slug:                     slug,
		Description:              req.Description,
		Thumbnail:                req.Thumbnail,
		Price:                    req.Price,
		DiscountedPrice:          req.DiscountedPrice,
		IsFree:                   req.IsFree,
		IsIncludedInSubscription: req.IsIncludedInSubscription,
	}

	if err := h.db.Create(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course")
	}

	// Instructor creators become the course's first instructor
	user, ok := middleware.GetUser(c)
	if ok && user.Role == model.RoleInstructor {
		link := model.CourseInstructor{CourseID: course.ID, UserID: user.ID}
		if err := h.db.Create(&link).Error; err != nil {
			return response.InternalServerError(c, "Failed to link instructor")
		}
	}

	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:slug
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var course model.Course
	if err := h.db.Where("slug = ?", slug).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		newSlug := validation.Slugify(*req.Title)
		if newSlug == "" {
			return response.BadRequest(c, "Title must contain at least one alphanumeric character")
		}
		if newSlug != course.Slug {
			var existing model.Course
			if err := h.db.Where("slug = ? AND id != ?", newSlug, course.ID).First(&existing).Error; err == nil {
				return response.Conflict(c, "A course with this title already exists")
			}
		}
		updates["title"] = validation.SanitizeString(*req.Title)
		updates["slug"] = newSlug
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Thumbnail != nil {
		updates["thumbnail"] = *req.Thumbnail
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.DiscountedPrice != nil {
		updates["discounted_price"] = *req.DiscountedPrice
	}
	if req.IsFree != nil {
		updates["is_free"] = *req.IsFree
	}
	if req.IsPublished != nil {
		updates["is_published"] = *req.IsPublished
	}
	if req.IsIncludedInSubscription != nil {
		updates["is_included_in_subscription"] = *req.IsIncludedInSubscription
	}

	if len(updates) == 0 {
		return response.Success(c, course)
	}

	if err := h.db.Model(&course).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course")
	}

	return response.Success(c, course)
}

// DeleteCourse handles DELETE /api/v1/courses/:slug
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var course model.Course
	if err := h.db.Where("slug = ?", slug).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	if err := h.lifecycle.DeleteCourseCascade(c.Context(), course.ID); err != nil {
		return response.InternalServerError(c, "Failed to delete course: "+err.Error())
	}

	return response.SuccessWithMessage(c, "Course and all its content deleted", fiber.Map{
		"course_id": course.ID,
	})
}

// Enroll handles POST /api/v1/courses/:slug/enroll
func (h *CourseHandler) Enroll(c *fiber.Ctx) error {
	slug := c.Params("slug")

	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var course model.Course
	if err := h.db.Where("slug = ? AND is_published = ?", slug, true).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	enrollment, err := h.enrollments.EnrollFree(c.Context(), user, &course)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyEnrolled):
			return response.Conflict(c, "You are already enrolled in this course")
		case errors.Is(err, services.ErrCourseNotFree):
			return response.BadRequest(c, "This course is paid; purchase it instead")
		default:
			return response.InternalServerError(c, "Failed to enroll")
		}
	}

	return response.Created(c, enrollment)
}

// Purchase handles POST /api/v1/courses/:slug/purchase
// It records a pending order; the payment gateway conversation happens
// elsewhere and completion arrives through the orders endpoint.
func (h *CourseHandler) Purchase(c *fiber.Ctx) error {
	slug := c.Params("slug")

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var course model.Course
	if err := h.db.Where("slug = ? AND is_published = ?", slug, true).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	if course.IsFree {
		return response.BadRequest(c, "This course is free; enroll directly")
	}

	var enrolled model.Enrollment
	if err := h.db.Where("user_id = ? AND course_id = ?", userID, course.ID).First(&enrolled).Error; err == nil {
		return response.Conflict(c, "You are already enrolled in this course")
	}

	amount := course.Price
	if course.DiscountedPrice > 0 && course.DiscountedPrice < course.Price {
		amount = course.DiscountedPrice
	}

	order := model.Order{
		UserID:          userID,
		CourseID:        &course.ID,
		RazorpayOrderID: fmt.Sprintf("order_%s", uuid.New().String()[:12]),
		Amount:          amount,
		Status:          model.OrderPending,
	}

	if err := h.db.Create(&order).Error; err != nil {
		return response.InternalServerError(c, "Failed to create order")
	}

	return response.Created(c, order)
}

// Rate handles POST /api/v1/courses/:slug/rate
func (h *CourseHandler) Rate(c *fiber.Ctx) error {
	slug := c.Params("slug")

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req RateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var course model.Course
	if err := h.db.Where("slug = ?", slug).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	// Only enrolled students can rate
	var enrollment model.Enrollment
	if err := h.db.Where("user_id = ? AND course_id = ?", userID, course.ID).First(&enrollment).Error; err != nil {
		return response.Forbidden(c, "Enroll in the course before rating it")
	}

	var rating model.CourseRating
	err := h.db.Where("course_id = ? AND user_id = ?", course.ID, userID).First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rating = model.CourseRating{
			CourseID: course.ID,
			UserID:   userID,
			Stars:    req.Stars,
			Review:   req.Review,
		}
		if err := h.db.Create(&rating).Error; err != nil {
			return response.InternalServerError(c, "Failed to save rating")
		}
	} else if err != nil {
		return response.InternalServerError(c, "Failed to fetch rating")
	} else {
		rating.Stars = req.Stars
		rating.Review = req.Review
		if err := h.db.Save(&rating).Error; err != nil {
			return response.InternalServerError(c, "Failed to save rating")
		}
	}

	// Recompute the course's running average from all ratings
	var agg struct {
		Avg   float64
		Count int64
	}
	err = h.db.Model(&model.CourseRating{}).
		Where("course_id = ?", course.ID).
		Select("COALESCE(AVG(stars), 0) AS avg, COUNT(*) AS count").
		Scan(&agg).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to recompute rating")
	}

	err = h.db.Model(&model.Course{}).
		Where("id = ?", course.ID).
		Updates(map[string]interface{}{
			"rating":        agg.Avg,
			"total_ratings": agg.Count,
		}).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to update course rating")
	}

	return response.Success(c, rating)
}
