package groupchat

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

// GroupChatHandler handles course group chat requests
type GroupChatHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	chats     *services.GroupChatService
}

// NewGroupChatHandler creates a new group chat handler
func NewGroupChatHandler(db *gorm.DB, chats *services.GroupChatService) *GroupChatHandler {
	return &GroupChatHandler{
		db:        db,
		validator: validation.NewValidator(),
		chats:     chats,
	}
}

// CreateChatRequest represents the request body for creating a course chat
type CreateChatRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	Name     string `json:"name" validate:"omitempty,min=2,max=255"`
}

// PostMessageRequest represents the request body for posting a message
type PostMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

// CreateChat handles POST /api/v1/groupchats
func (h *GroupChatHandler) CreateChat(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	chat, err := h.chats.CreateForCourse(c.Context(), req.CourseID, userID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, services.ErrChatExists):
			return response.Conflict(c, "This course already has a group chat")
		default:
			return response.InternalServerError(c, "Failed to create group chat")
		}
	}

	return response.Created(c, chat)
}

// ListMessages handles GET /api/v1/groupchats/:id/messages
func (h *GroupChatHandler) ListMessages(c *fiber.Ctx) error {
	chatID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid chat ID")
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var membership model.GroupChatMember
	if err := h.db.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.Forbidden(c, "You are not a member of this chat")
		}
		return response.InternalServerError(c, "Failed to check membership")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	var total int64
	if err := h.db.Model(&model.GroupChatMessage{}).Where("chat_id = ?", chatID).Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count messages")
	}

	pagination := response.CalculatePagination(page, limit, total)

	var messages []model.GroupChatMessage
	err = h.db.Where("chat_id = ?", chatID).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "role")
		}).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&messages).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch messages")
	}

	return response.Paginated(c, messages, pagination)
}

// PostMessage handles POST /api/v1/groupchats/:id/messages
func (h *GroupChatHandler) PostMessage(c *fiber.Ctx) error {
	chatID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid chat ID")
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	message, err := h.chats.PostMessage(c.Context(), uint(chatID), userID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return response.NotFound(c, "Chat not found")
		case errors.Is(err, services.ErrNotChatMember):
			return response.Forbidden(c, "You are not a member of this chat")
		default:
			return response.InternalServerError(c, "Failed to post message")
		}
	}

	return response.Created(c, message)
}

// Leave handles POST /api/v1/groupchats/:id/leave
func (h *GroupChatHandler) Leave(c *fiber.Ctx) error {
	chatID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid chat ID")
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	if err := h.chats.Leave(c.Context(), uint(chatID), userID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return response.NotFound(c, "Chat not found")
		case errors.Is(err, services.ErrNotChatMember):
			return response.Forbidden(c, "You are not a member of this chat")
		default:
			return response.InternalServerError(c, "Failed to leave chat")
		}
	}

	return response.SuccessWithMessage(c, "Left the chat", fiber.Map{"chat_id": chatID})
}

// SyncMemberships handles POST /api/v1/groupchats/sync-memberships.
// Admin trigger for the same reconciliation the hourly job runs.
func (h *GroupChatHandler) SyncMemberships(c *fiber.Ctx) error {
	result, err := h.chats.SyncMemberships(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Membership sync failed: "+err.Error())
	}

	return response.SuccessWithMessage(c, "Membership sync finished", result)
}
