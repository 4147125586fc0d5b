package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// newTestNotifications builds a notification service without redis or email
func newTestNotifications(db *gorm.DB) *NotificationService {
	return NewNotificationService(db, NewEmailService(), nil)
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role model.UserRole) *model.User {
	t.Helper()
	user := model.User{
		Email:        email,
		PasswordHash: "x",
		Name:         strings.Split(email, "@")[0],
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestCourse(t *testing.T, db *gorm.DB, slug string, mutate func(*model.Course)) *model.Course {
	t.Helper()
	course := model.Course{
		Title:       strings.ReplaceAll(slug, "-", " "),
		Slug:        slug,
		IsPublished: true,
	}
	if mutate != nil {
		mutate(&course)
	}
	require.NoError(t, db.Create(&course).Error)
	return &course
}

func createTestChapter(t *testing.T, db *gorm.DB, courseID uint, order int) *model.Chapter {
	t.Helper()
	chapter := model.Chapter{
		CourseID: courseID,
		Title:    fmt.Sprintf("Chapter %d", order+1),
		Order:    order,
	}
	require.NoError(t, db.Create(&chapter).Error)
	return &chapter
}

func createTestLesson(t *testing.T, db *gorm.DB, chapter *model.Chapter, lessonType model.LessonType, order int) *model.Lesson {
	t.Helper()
	lesson := model.Lesson{
		ChapterID: chapter.ID,
		CourseID:  chapter.CourseID,
		Title:     fmt.Sprintf("Lesson %d", order+1),
		Type:      lessonType,
		Order:     order,
		Content:   []byte(fmt.Sprintf(`{"%s": {"body": "x"}}`, lessonType)),
	}
	require.NoError(t, db.Create(&lesson).Error)
	return &lesson
}
