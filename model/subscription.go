package model

import (
	"time"
)

// Subscription is a named plan granting access to a set of courses.
// When IsAllIncluded is true the plan covers every published course and the
// IncludedCourses set is ignored.
type Subscription struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Name           string    `gorm:"uniqueIndex;not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	Price          float64   `gorm:"not null" json:"price"`
	DurationMonths int       `gorm:"default:12" json:"duration_months"` // 0 means lifetime
	IsAllIncluded  bool      `gorm:"default:false" json:"is_all_included"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`

	// Relationships
	IncludedCourses []SubscriptionCourse `gorm:"foreignKey:SubscriptionID" json:"included_courses,omitempty"`
	Purchases       []UserSubscription   `gorm:"foreignKey:SubscriptionID" json:"-"`
}

// SubscriptionCourse links a plan to a course it covers
type SubscriptionCourse struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	SubscriptionID uint `gorm:"not null;index;uniqueIndex:idx_plan_course" json:"subscription_id"`
	CourseID       uint `gorm:"not null;index;uniqueIndex:idx_plan_course" json:"course_id"`

	// Relationships
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
