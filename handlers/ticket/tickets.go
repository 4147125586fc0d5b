package ticket

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

// TicketHandler handles support ticket requests
type TicketHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	tickets   *services.TicketService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(db *gorm.DB, tickets *services.TicketService) *TicketHandler {
	return &TicketHandler{
		db:        db,
		validator: validation.NewValidator(),
		tickets:   tickets,
	}
}

// CreateTicketRequest represents the request body for raising a ticket
type CreateTicketRequest struct {
	Subject     string `json:"subject" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"required,min=10,max=5000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// ResponseRequest represents the request body for a ticket reply
type ResponseRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000"`
}

// UpdateTicketRequest represents an agent's update to a ticket
type UpdateTicketRequest struct {
	Status     *string `json:"status" validate:"omitempty,oneof=open in-progress awaiting_user resolved closed reopened"`
	Priority   *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID *uint   `json:"assignee_id"`
}

// ListTickets handles GET /api/v1/support-tickets.
// Users see their own tickets; agents and admins see all of them.
func (h *TicketHandler) ListTickets(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	query := h.db.Model(&model.SupportTicket{})

	role, _ := middleware.GetUserRole(c)
	if role != model.RoleAdmin && role != model.RoleCustomerCare {
		query = query.Where("user_id = ?", userID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count tickets")
	}

	pagination := response.CalculatePagination(page, limit, total)

	var tickets []model.SupportTicket
	err := query.Preload("AssignedAgent", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name", "email")
	}).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&tickets).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch tickets")
	}

	return response.Paginated(c, tickets, pagination)
}

// CreateTicket handles POST /api/v1/support-tickets
func (h *TicketHandler) CreateTicket(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	priority := model.PriorityMedium
	if req.Priority != "" {
		priority = model.TicketPriority(req.Priority)
	}

	ticket, err := h.tickets.Create(c.Context(),
		userID,
		validation.SanitizeString(req.Subject),
		req.Description,
		priority,
	)
	if err != nil {
		return response.InternalServerError(c, "Failed to create ticket")
	}

	return response.Created(c, ticket)
}

// GetTicketDetails handles GET /api/v1/support-tickets/:id/details
func (h *TicketHandler) GetTicketDetails(c *fiber.Ctx) error {
	id := c.Params("id")

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var ticket model.SupportTicket
	err := h.db.
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Responses.User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "role")
		}).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("AssignedAgent", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email")
		}).
		First(&ticket, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Ticket not found")
		}
		return response.InternalServerError(c, "Failed to fetch ticket")
	}

	role, _ := middleware.GetUserRole(c)
	if ticket.UserID != userID && role != model.RoleAdmin && role != model.RoleCustomerCare {
		return response.Forbidden(c, "You cannot view this ticket")
	}

	return response.Success(c, ticket)
}

// AddResponse handles POST /api/v1/support-tickets/:id/responses
func (h *TicketHandler) AddResponse(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req ResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	ticket, err := h.tickets.AddUserResponse(c.Context(), uint(id), userID, req.Body)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Ticket not found")
		}
		if errors.Is(err, services.ErrNotTicketOwner) {
			return response.Forbidden(c, "You cannot reply to this ticket")
		}
		return response.InternalServerError(c, "Failed to add response")
	}

	return response.Created(c, ticket)
}

// AddAgentResponse handles POST /api/v1/support-tickets/:id/agent-response
func (h *TicketHandler) AddAgentResponse(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	agentID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req ResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	ticket, err := h.tickets.AddAgentResponse(c.Context(), uint(id), agentID, req.Body)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Ticket not found")
		}
		return response.InternalServerError(c, "Failed to add response")
	}

	return response.Created(c, ticket)
}

// UpdateTicket handles PUT /api/v1/support-tickets/:id
func (h *TicketHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid ticket ID")
	}

	agentID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var status *model.TicketStatus
	if req.Status != nil {
		s := model.TicketStatus(*req.Status)
		status = &s
	}
	var priority *model.TicketPriority
	if req.Priority != nil {
		p := model.TicketPriority(*req.Priority)
		priority = &p
	}

	ticket, err := h.tickets.UpdateByAgent(c.Context(), uint(id), agentID, status, priority, req.AssigneeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Ticket not found")
		}
		return response.InternalServerError(c, "Failed to update ticket")
	}

	return response.Success(c, ticket)
}
