package model

import (
	"time"
)

// Course represents a sellable course made of ordered chapters
type Course struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Title           string    `gorm:"not null" json:"title"`
	Slug            string    `gorm:"uniqueIndex;not null" json:"slug"` // derived from title, URL-safe
	Description     string    `gorm:"type:text" json:"description"`
	Thumbnail       string    `gorm:"type:varchar(512)" json:"thumbnail"`
	Price           float64   `gorm:"default:0" json:"price"`
	DiscountedPrice float64   `gorm:"default:0" json:"discounted_price"`
	IsFree          bool      `gorm:"default:false" json:"is_free"`
	IsPublished     bool      `gorm:"default:false;index" json:"is_published"`

	// Subscription participation
	IsIncludedInSubscription bool `gorm:"default:false" json:"is_included_in_subscription"`

	// Denormalized counters, recomputed by the lifecycle service after any
	// child mutation. Not atomically enforced; a daily sweep repairs drift.
	TotalStudents       int     `gorm:"default:0" json:"total_students"`
	TotalLessons        int     `gorm:"default:0" json:"total_lessons"`
	TotalQuizzes        int     `gorm:"default:0" json:"total_quizzes"`
	TotalArticles       int     `gorm:"default:0" json:"total_articles"`
	TotalCodingProblems int     `gorm:"default:0" json:"total_coding_problems"`
	Rating              float64 `gorm:"default:0" json:"rating"` // 0-5
	TotalRatings        int     `gorm:"default:0" json:"total_ratings"`

	// Relationships
	Chapters    []Chapter          `gorm:"foreignKey:CourseID" json:"chapters,omitempty"`
	Instructors []CourseInstructor `gorm:"foreignKey:CourseID" json:"instructors,omitempty"`
	Enrollments []Enrollment       `gorm:"foreignKey:CourseID" json:"-"`
	Plans       []SubscriptionCourse `gorm:"foreignKey:CourseID" json:"-"`
}

// CourseInstructor links an instructor account to a course
type CourseInstructor struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	CourseID uint `gorm:"not null;index;uniqueIndex:idx_course_instructor" json:"course_id"`
	UserID   uint `gorm:"not null;index;uniqueIndex:idx_course_instructor" json:"user_id"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Chapter is an ordered section of a course owning lessons and live classes
type Chapter struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Order       int       `gorm:"column:position;not null;default:0" json:"order"` // 0-based, unique within the course

	// Relationships
	Lessons     []Lesson    `gorm:"foreignKey:ChapterID" json:"lessons,omitempty"`
	LiveClasses []LiveClass `gorm:"foreignKey:ChapterID" json:"live_classes,omitempty"`
}

// CourseRating is a single user rating; Course.Rating is the running average
type CourseRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CourseID  uint      `gorm:"not null;index;uniqueIndex:idx_course_rater" json:"course_id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_course_rater" json:"user_id"`
	Stars     int       `gorm:"not null" json:"stars"` // 1-5
	Review    string    `gorm:"type:text" json:"review"`
}
