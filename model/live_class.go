package model

import (
	"time"
)

// MeetingProvider selects how a live class room is provisioned
type MeetingProvider string

const (
	ProviderJitsi MeetingProvider = "jitsi"
	ProviderZoom  MeetingProvider = "zoom"
)

// LiveClassStatus is the lifecycle field of a live class. Transitions
// scheduled -> live -> completed|cancelled are applied by route logic,
// not enforced as a strict state machine.
type LiveClassStatus string

const (
	LiveClassScheduled LiveClassStatus = "scheduled"
	LiveClassLive      LiveClassStatus = "live"
	LiveClassCompleted LiveClassStatus = "completed"
	LiveClassCancelled LiveClassStatus = "cancelled"
)

// LiveClass is a scheduled meeting attached to a chapter
type LiveClass struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ChapterID    uint            `gorm:"not null;index" json:"chapter_id"`
	CourseID     uint            `gorm:"not null;index" json:"course_id"` // denormalized from chapter
	InstructorID uint            `gorm:"not null;index" json:"instructor_id"`
	Title        string          `gorm:"not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Provider     MeetingProvider `gorm:"type:varchar(10);default:'jitsi'" json:"provider"`
	RoomToken    string          `gorm:"type:varchar(100)" json:"room_token,omitempty"` // jitsi room name
	MeetingID    string          `gorm:"type:varchar(100)" json:"meeting_id,omitempty"` // external provider id
	JoinURL      string          `gorm:"type:varchar(512)" json:"join_url,omitempty"`
	Status       LiveClassStatus `gorm:"type:varchar(20);default:'scheduled';index" json:"status"`
	ScheduledAt  time.Time       `gorm:"not null" json:"scheduled_at"`
	Duration     int             `gorm:"default:60" json:"duration"` // minutes

	// Relationships
	Instructor User `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
}
