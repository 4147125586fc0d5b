package model

import (
	"time"

	"gorm.io/gorm"
)

// UserRole discriminates the kind of account
type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleStudent      UserRole = "student"
	RoleInstructor   UserRole = "instructor"
	RoleCustomerCare UserRole = "customercare"
)

// User represents a registered user in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         UserRole       `gorm:"type:varchar(20);default:'student';index" json:"role"`

	// Instructor-specific profile fields; empty for other roles
	Headline string `gorm:"type:varchar(255)" json:"headline,omitempty"`
	Bio      string `gorm:"type:text" json:"bio,omitempty"`

	// Relationships
	Enrollments   []Enrollment       `gorm:"foreignKey:UserID" json:"enrollments,omitempty"`
	Subscriptions []UserSubscription `gorm:"foreignKey:UserID" json:"subscriptions,omitempty"`
	Notifications []UserNotification `gorm:"foreignKey:UserID" json:"-"`
	Tickets       []SupportTicket    `gorm:"foreignKey:UserID" json:"-"`
}

// IsStaff reports whether the user bypasses course access checks
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleInstructor
}

// Enrollment represents a direct purchase/enrollment of a user into a course
type Enrollment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index;uniqueIndex:idx_user_course" json:"user_id"`
	CourseID   uint      `gorm:"not null;index;uniqueIndex:idx_user_course" json:"course_id"`
	Progress   float64   `gorm:"default:0" json:"progress"` // 0-100
	EnrolledAt time.Time `gorm:"autoCreateTime" json:"enrolled_at"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// LessonCompletion marks a lesson as completed by a user.
// CourseID is denormalized so the course cascade can clear completions
// without walking the chapter tree.
type LessonCompletion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index;uniqueIndex:idx_user_lesson" json:"user_id"`
	LessonID    uint      `gorm:"not null;index;uniqueIndex:idx_user_lesson" json:"lesson_id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

// UserSubscription represents a purchased subscription plan
type UserSubscription struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	SubscriptionID uint       `gorm:"not null;index" json:"subscription_id"`
	StartDate      time.Time  `gorm:"not null" json:"start_date"`
	EndDate        *time.Time `json:"end_date"` // nil means lifetime access
	IsActive       bool       `gorm:"default:true;index" json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relationships
	User         User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Subscription Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

// IsCurrent reports whether the subscription grants access right now
func (s *UserSubscription) IsCurrent(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(now)
}
