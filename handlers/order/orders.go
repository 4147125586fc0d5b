package order

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/gorm"
)

// OrderHandler handles payment order requests
type OrderHandler struct {
	db          *gorm.DB
	validator   *validation.Validator
	enrollments *services.EnrollmentService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(db *gorm.DB, enrollments *services.EnrollmentService) *OrderHandler {
	return &OrderHandler{
		db:          db,
		validator:   validation.NewValidator(),
		enrollments: enrollments,
	}
}

// CompleteOrderRequest carries the gateway payment reference
type CompleteOrderRequest struct {
	PaymentID string `json:"payment_id" validate:"required,min=3,max=100"`
}

// ListOrders handles GET /api/v1/orders. Users see their own orders; admins
// see everyone's.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	query := h.db.Model(&model.Order{})
	role, _ := middleware.GetUserRole(c)
	if role != model.RoleAdmin {
		query = query.Where("user_id = ?", userID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count orders")
	}

	pagination := response.CalculatePagination(page, limit, total)

	var orders []model.Order
	err := query.Preload("Course").Preload("Subscription").
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&orders).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch orders")
	}

	return response.Paginated(c, orders, pagination)
}

// CompleteOrder handles POST /api/v1/orders/:id/complete. Admin only; stands
// in for the payment gateway's success webhook.
func (h *OrderHandler) CompleteOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid order ID")
	}

	var req CompleteOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	order, err := h.enrollments.CompleteOrder(c.Context(), uint(id), req.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return response.NotFound(c, "Order not found")
		case errors.Is(err, services.ErrOrderNotPending):
			return response.BadRequest(c, "Order is not pending")
		case errors.Is(err, services.ErrAlreadyEnrolled):
			return response.Conflict(c, "User is already enrolled in this course")
		default:
			return response.InternalServerError(c, "Failed to complete order")
		}
	}

	return response.SuccessWithMessage(c, "Order completed", order)
}
