package model

import (
	"time"

	"gorm.io/gorm"
)

// TicketStatus is the lifecycle field of a support ticket
type TicketStatus string

const (
	TicketOpen         TicketStatus = "open"
	TicketInProgress   TicketStatus = "in-progress"
	TicketAwaitingUser TicketStatus = "awaiting_user"
	TicketResolved     TicketStatus = "resolved"
	TicketClosed       TicketStatus = "closed"
	TicketReopened     TicketStatus = "reopened"
)

// IsClosedState reports whether the status counts as closed for ClosedAt
// bookkeeping purposes.
func (s TicketStatus) IsClosedState() bool {
	return s == TicketResolved || s == TicketClosed
}

// OpenTicketStatuses are the statuses that count toward an agent's workload
// for least-busy assignment.
var OpenTicketStatuses = []TicketStatus{
	TicketOpen,
	TicketInProgress,
	TicketReopened,
	TicketAwaitingUser,
}

// TicketPriority orders tickets for agents
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// SupportTicket is a user-raised issue worked by customer care agents
type SupportTicket struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	TicketNumber    string         `gorm:"type:varchar(40);uniqueIndex;not null" json:"ticket_number"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	Subject         string         `gorm:"not null" json:"subject"`
	Description     string         `gorm:"type:text" json:"description"`
	Status          TicketStatus   `gorm:"type:varchar(20);default:'open';index" json:"status"`
	Priority        TicketPriority `gorm:"type:varchar(10);default:'medium';index" json:"priority"`
	AssignedAgentID *uint          `gorm:"index" json:"assigned_agent_id,omitempty"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"` // set iff status is resolved/closed

	// Relationships
	User          User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	AssignedAgent *User            `gorm:"foreignKey:AssignedAgentID" json:"assigned_agent,omitempty"`
	Responses     []TicketResponse `gorm:"foreignKey:TicketID" json:"responses,omitempty"`
	History       []TicketHistory  `gorm:"foreignKey:TicketID" json:"history,omitempty"`
}

// TicketResponse is an append-only reply on a ticket
type TicketResponse struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TicketID  uint      `gorm:"not null;index" json:"ticket_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	IsAgent   bool      `gorm:"default:false" json:"is_agent"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TicketHistory is an append-only audit entry recording a field change
type TicketHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TicketID  uint      `gorm:"not null;index" json:"ticket_id"`
	ActorID   uint      `gorm:"not null" json:"actor_id"`
	Field     string    `gorm:"type:varchar(30);not null" json:"field"`
	From      string    `gorm:"type:varchar(100)" json:"from"`
	To        string    `gorm:"type:varchar(100)" json:"to"`
}
