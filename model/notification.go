package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType represents the type/severity of notification
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// NotificationCategory represents the source flow of a notification
type NotificationCategory string

const (
	NotificationCategoryEnrollment   NotificationCategory = "enrollment"
	NotificationCategoryLiveClass    NotificationCategory = "live_class"
	NotificationCategoryGroupChat    NotificationCategory = "group_chat"
	NotificationCategorySupport      NotificationCategory = "support"
	NotificationCategorySubscription NotificationCategory = "subscription"
	NotificationCategoryGeneral      NotificationCategory = "general"
)

// UserNotification is an ephemeral per-user message created as a side effect
// of other flows; nothing ever references back to it.
type UserNotification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	DeletedAt gorm.DeletedAt       `gorm:"index" json:"-"`
	UserID    uint                 `gorm:"index;not null" json:"user_id"`
	Type      NotificationType     `gorm:"type:varchar(20);not null" json:"type"`
	Category  NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Title     string               `gorm:"type:varchar(255);not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Read      bool                 `gorm:"default:false" json:"read"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	Metadata  datatypes.JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// NotificationMetadata carries optional context about the originating entity
type NotificationMetadata struct {
	CourseID    uint   `json:"course_id,omitempty"`
	CourseSlug  string `json:"course_slug,omitempty"`
	LiveClassID uint   `json:"live_class_id,omitempty"`
	TicketID    uint   `json:"ticket_id,omitempty"`
	ChatID      uint   `json:"chat_id,omitempty"`
}

// NotificationResponse is the API response format for a notification
type NotificationResponse struct {
	ID        uint                 `json:"id"`
	Type      NotificationType     `json:"type"`
	Category  NotificationCategory `json:"category"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Read      bool                 `json:"read"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	Metadata  datatypes.JSON       `json:"metadata,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// ToResponse converts a UserNotification to NotificationResponse
func (n *UserNotification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Category:  n.Category,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
	}
}
