package subscription

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/gorm"
)

// SubscriptionHandler handles subscription plan requests
type SubscriptionHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(db *gorm.DB) *SubscriptionHandler {
	return &SubscriptionHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// CreatePlanRequest represents the request body for creating a plan
type CreatePlanRequest struct {
	Name           string  `json:"name" validate:"required,min=2,max=255"`
	Description    string  `json:"description" validate:"omitempty,max=2000"`
	Price          float64 `json:"price" validate:"required,min=0"`
	DurationMonths *int    `json:"duration_months" validate:"omitempty,min=0,max=120"`
	IsAllIncluded  bool    `json:"is_all_included"`
	CourseIDs      []uint  `json:"course_ids" validate:"omitempty,max=200"`
}

// UpdatePlanRequest represents the request body for updating a plan
type UpdatePlanRequest struct {
	Name           *string  `json:"name" validate:"omitempty,min=2,max=255"`
	Description    *string  `json:"description" validate:"omitempty,max=2000"`
	Price          *float64 `json:"price" validate:"omitempty,min=0"`
	DurationMonths *int     `json:"duration_months" validate:"omitempty,min=0,max=120"`
	IsAllIncluded  *bool    `json:"is_all_included"`
	IsActive       *bool    `json:"is_active"`
	CourseIDs      []uint   `json:"course_ids" validate:"omitempty,max=200"`
}

// ListPlans handles GET /api/v1/subscriptions
func (h *SubscriptionHandler) ListPlans(c *fiber.Ctx) error {
	query := h.db.Model(&model.Subscription{})

	// Only staff see deactivated plans
	role, _ := middleware.GetUserRole(c)
	if role != model.RoleAdmin {
		query = query.Where("is_active = ?", true)
	}

	var plans []model.Subscription
	if err := query.Preload("IncludedCourses.Course").Order("price ASC").Find(&plans).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch subscription plans")
	}

	return response.Success(c, plans)
}

// CreatePlan handles POST /api/v1/subscriptions
func (h *SubscriptionHandler) CreatePlan(c *fiber.Ctx) error {
	var req CreatePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var existing model.Subscription
	if err := h.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		return response.Conflict(c, "A plan with this name already exists")
	}

	duration := 12
	if req.DurationMonths != nil {
		duration = *req.DurationMonths
	}

	plan := model.Subscription{
		Name:           validation.SanitizeString(req.Name),
		Description:    req.Description,
		Price:          req.Price,
		DurationMonths: duration,
		IsAllIncluded:  req.IsAllIncluded,
		IsActive:       true,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&plan).Error; err != nil {
			return err
		}
		if plan.IsAllIncluded {
			return nil
		}
		for _, courseID := range req.CourseIDs {
			link := model.SubscriptionCourse{SubscriptionID: plan.ID, CourseID: courseID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to create plan")
	}

	return response.Created(c, plan)
}

// UpdatePlan handles PUT /api/v1/subscriptions/:id
func (h *SubscriptionHandler) UpdatePlan(c *fiber.Ctx) error {
	id := c.Params("id")

	var req UpdatePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var plan model.Subscription
	if err := h.db.First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Subscription plan not found")
		}
		return response.InternalServerError(c, "Failed to fetch plan")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		var existing model.Subscription
		if err := h.db.Where("name = ? AND id != ?", *req.Name, plan.ID).First(&existing).Error; err == nil {
			return response.Conflict(c, "A plan with this name already exists")
		}
		updates["name"] = validation.SanitizeString(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.DurationMonths != nil {
		updates["duration_months"] = *req.DurationMonths
	}
	if req.IsAllIncluded != nil {
		updates["is_all_included"] = *req.IsAllIncluded
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&plan).Updates(updates).Error; err != nil {
				return err
			}
		}
		// A submitted (possibly empty) course list replaces the existing set
		if req.CourseIDs != nil {
			if err := tx.Where("subscription_id = ?", plan.ID).Delete(&model.SubscriptionCourse{}).Error; err != nil {
				return err
			}
			for _, courseID := range req.CourseIDs {
				link := model.SubscriptionCourse{SubscriptionID: plan.ID, CourseID: courseID}
				if err := tx.Create(&link).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to update plan")
	}

	return response.Success(c, plan)
}

// DeletePlan handles DELETE /api/v1/subscriptions/:id.
// Purchased plans are deactivated instead of removed so existing user
// subscriptions keep their reference.
func (h *SubscriptionHandler) DeletePlan(c *fiber.Ctx) error {
	id := c.Params("id")

	var plan model.Subscription
	if err := h.db.First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Subscription plan not found")
		}
		return response.InternalServerError(c, "Failed to fetch plan")
	}

	var purchases int64
	if err := h.db.Model(&model.UserSubscription{}).Where("subscription_id = ?", plan.ID).Count(&purchases).Error; err != nil {
		return response.InternalServerError(c, "Failed to check plan purchases")
	}

	if purchases > 0 {
		if err := h.db.Model(&plan).Update("is_active", false).Error; err != nil {
			return response.InternalServerError(c, "Failed to deactivate plan")
		}
		return response.SuccessWithMessage(c, "Plan has purchases and was deactivated instead of deleted", plan)
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subscription_id = ?", plan.ID).Delete(&model.SubscriptionCourse{}).Error; err != nil {
			return err
		}
		return tx.Delete(&plan).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to delete plan")
	}

	return response.SuccessWithMessage(c, "Plan deleted", fiber.Map{"plan_id": plan.ID})
}

// Purchase handles POST /api/v1/subscriptions/:id/purchase.
// It records a pending order; activation happens when the order completes.
func (h *SubscriptionHandler) Purchase(c *fiber.Ctx) error {
	id := c.Params("id")

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var plan model.Subscription
	if err := h.db.Where("is_active = ?", true).First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Subscription plan not found")
		}
		return response.InternalServerError(c, "Failed to fetch plan")
	}

	var current model.UserSubscription
	err := h.db.Where("user_id = ? AND subscription_id = ? AND is_active = ?", userID, plan.ID, true).
		First(&current).Error
	if err == nil {
		return response.Conflict(c, "You already have an active subscription to this plan")
	}

	order := model.Order{
		UserID:          userID,
		SubscriptionID:  &plan.ID,
		RazorpayOrderID: fmt.Sprintf("order_%s", uuid.New().String()[:12]),
		Amount:          plan.Price,
		Status:          model.OrderPending,
	}

	if err := h.db.Create(&order).Error; err != nil {
		return response.InternalServerError(c, "Failed to create order")
	}

	return response.Created(c, order)
}
