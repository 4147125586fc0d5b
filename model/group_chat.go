package model

import (
	"time"
)

// ChatMemberRole is a member's role inside a course group chat
type ChatMemberRole string

const (
	ChatRoleMember     ChatMemberRole = "member"
	ChatRoleInstructor ChatMemberRole = "instructor"
	ChatRoleAdmin      ChatMemberRole = "admin"
)

// GroupChat is the single discussion room attached to a course. Membership is
// derived from course eligibility (instructors, purchasers, active subscribers)
// and reconciled by a periodic sync job; a chat whose membership becomes empty
// is deleted.
type GroupChat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CourseID  uint      `gorm:"not null;uniqueIndex" json:"course_id"`
	Name      string    `gorm:"not null" json:"name"`

	// Relationships
	Members  []GroupChatMember  `gorm:"foreignKey:ChatID" json:"members,omitempty"`
	Messages []GroupChatMessage `gorm:"foreignKey:ChatID" json:"-"`
}

// GroupChatMember is one user's membership in a chat
type GroupChatMember struct {
	ID       uint           `gorm:"primaryKey" json:"id"`
	ChatID   uint           `gorm:"not null;index;uniqueIndex:idx_chat_user" json:"chat_id"`
	UserID   uint           `gorm:"not null;index;uniqueIndex:idx_chat_user" json:"user_id"`
	Role     ChatMemberRole `gorm:"type:varchar(15);default:'member'" json:"role"`
	JoinedAt time.Time      `gorm:"autoCreateTime" json:"joined_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// GroupChatMessage is an append-only chat message
type GroupChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ChatID    uint      `gorm:"not null;index" json:"chat_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
