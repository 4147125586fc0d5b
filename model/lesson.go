package model

import (
	"time"

	"gorm.io/datatypes"
)

// LessonType discriminates which content sub-object is active on a lesson
type LessonType string

const (
	LessonTypeVideo         LessonType = "video"
	LessonTypeArticle       LessonType = "article"
	LessonTypeCodingProblem LessonType = "codingProblem"
	LessonTypeQuiz          LessonType = "quiz"
	LessonTypeContest       LessonType = "contest"
	LessonTypeAITest        LessonType = "aiTest"
)

// LessonTypes lists every valid lesson type
var LessonTypes = []LessonType{
	LessonTypeVideo,
	LessonTypeArticle,
	LessonTypeCodingProblem,
	LessonTypeQuiz,
	LessonTypeContest,
	LessonTypeAITest,
}

// ValidLessonType reports whether t is a known lesson type
func ValidLessonType(t LessonType) bool {
	for _, lt := range LessonTypes {
		if lt == t {
			return true
		}
	}
	return false
}

// Lesson is a single unit of course content. Content is a JSON document keyed
// by lesson type; only the sub-object matching Type is kept on save. The
// type-specific sub-objects own their append-only logs (submissions, attempts,
// doubts, questions).
type Lesson struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ChapterID uint           `gorm:"not null;index" json:"chapter_id"`
	CourseID  uint           `gorm:"not null;index" json:"course_id"` // denormalized from chapter
	Title     string         `gorm:"not null" json:"title"`
	Type      LessonType     `gorm:"type:varchar(20);not null;index" json:"type"`
	Order     int            `gorm:"column:position;not null;default:0" json:"order"`
	IsPreview bool           `gorm:"default:false" json:"is_preview"` // served without access check
	Content   datatypes.JSON `gorm:"type:jsonb" json:"content,omitempty"`
}

// VideoContent is the shape of the "video" sub-object
type VideoContent struct {
	URL       string        `json:"url"`
	Duration  int           `json:"duration"` // seconds
	Doubts    []LessonDoubt `json:"doubts,omitempty"`
}

// ArticleContent is the shape of the "article" sub-object
type ArticleContent struct {
	Body   string        `json:"body"`
	Doubts []LessonDoubt `json:"doubts,omitempty"`
}

// CodingProblemContent is the shape of the "codingProblem" sub-object
type CodingProblemContent struct {
	Statement   string              `json:"statement"`
	Difficulty  string              `json:"difficulty"`
	TestCases   []CodingTestCase    `json:"test_cases,omitempty"`
	Submissions []CodingSubmission  `json:"submissions,omitempty"`
}

// CodingTestCase is a single input/output pair for a coding problem
type CodingTestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// CodingSubmission is an append-only log entry of a user's submission
type CodingSubmission struct {
	UserID      uint      `json:"user_id"`
	Language    string    `json:"language"`
	Code        string    `json:"code"`
	Passed      bool      `json:"passed"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// QuizContent is the shape of the "quiz" (and "aiTest") sub-object
type QuizContent struct {
	Questions []QuizQuestion `json:"questions"`
	Attempts  []QuizAttempt  `json:"attempts,omitempty"`
}

// QuizQuestion is a single multiple-choice question
type QuizQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"` // index into Options
}

// QuizAttempt is an append-only log entry of a user's attempt
type QuizAttempt struct {
	UserID      uint      `json:"user_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// ContestContent is the shape of the "contest" sub-object
type ContestContent struct {
	StartsAt time.Time      `json:"starts_at"`
	EndsAt   time.Time      `json:"ends_at"`
	Problems []string       `json:"problems,omitempty"`
	Attempts []QuizAttempt  `json:"attempts,omitempty"`
}

// LessonDoubt is an append-only question asked by a student on a lesson
type LessonDoubt struct {
	UserID   uint      `json:"user_id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer,omitempty"`
	AskedAt  time.Time `json:"asked_at"`
}
