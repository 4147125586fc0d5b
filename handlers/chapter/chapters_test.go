package chapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

func newTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	handler := NewChapterHandler(db, services.NewLifecycleService(db))
	app := fiber.New()
	app.Get("/courses/:courseID/chapters", handler.ListChapters)
	app.Post("/courses/:courseID/chapters", handler.CreateChapter)
	app.Put("/courses/:courseID/chapters/reorder", handler.Reorder)
	return app
}

func seedCourseWithChapters(t *testing.T, db *gorm.DB, n int) (*model.Course, []model.Chapter) {
	t.Helper()

	course := model.Course{Title: "Test Course", Slug: "test-course", Description: "d"}
	require.NoError(t, db.Create(&course).Error)

	chapters := make([]model.Chapter, 0, n)
	for i := 0; i < n; i++ {
		ch := model.Chapter{CourseID: course.ID, Title: fmt.Sprintf("Chapter %d", i+1), Order: i}
		require.NoError(t, db.Create(&ch).Error)
		chapters = append(chapters, ch)
	}
	return &course, chapters
}

func TestReorderRewritesPositions(t *testing.T) {
	db := newTestDB(t)
	app := newTestApp(t, db)
	course, chapters := seedCourseWithChapters(t, db, 3)

	submitted := []uint{chapters[2].ID, chapters[0].ID, chapters[1].ID}
	body, err := json.Marshal(fiber.Map{"chapter_ids": submitted})
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", fmt.Sprintf("/courses/%d/chapters/reorder", course.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored []model.Chapter
	require.NoError(t, db.Where("course_id = ?", course.ID).Order("position ASC").Find(&stored).Error)
	require.Len(t, stored, 3)
	for i, id := range submitted {
		assert.Equal(t, id, stored[i].ID)
		assert.Equal(t, i, stored[i].Order)
	}
}

func TestReorderRejectsBadLists(t *testing.T) {
	db := newTestDB(t)
	app := newTestApp(t, db)
	course, chapters := seedCourseWithChapters(t, db, 3)

	otherCourse := model.Course{Title: "Other", Slug: "other-course"}
	require.NoError(t, db.Create(&otherCourse).Error)
	foreign := model.Chapter{CourseID: otherCourse.ID, Title: "Foreign", Order: 0}
	require.NoError(t, db.Create(&foreign).Error)

	cases := []struct {
		name string
		ids  []uint
	}{
		{"missing chapter", []uint{chapters[0].ID, chapters[1].ID}},
		{"foreign chapter", []uint{chapters[0].ID, chapters[1].ID, foreign.ID}},
		{"duplicate chapter", []uint{chapters[0].ID, chapters[0].ID, chapters[1].ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(fiber.Map{"chapter_ids": tc.ids})
			require.NoError(t, err)

			req := httptest.NewRequest("PUT", fmt.Sprintf("/courses/%d/chapters/reorder", course.ID), bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}

	// Original positions survive the rejected requests
	var stored []model.Chapter
	require.NoError(t, db.Where("course_id = ?", course.ID).Order("position ASC").Find(&stored).Error)
	for i, ch := range stored {
		assert.Equal(t, i, ch.Order)
	}
}

func TestCreateChapterAppendsAtEnd(t *testing.T) {
	db := newTestDB(t)
	app := newTestApp(t, db)
	course, _ := seedCourseWithChapters(t, db, 2)

	body, err := json.Marshal(fiber.Map{"title": "Chapter 3", "description": "the finale"})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", fmt.Sprintf("/courses/%d/chapters", course.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var envelope struct {
		Success bool          `json:"success"`
		Data    model.Chapter `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "Chapter 3", envelope.Data.Title)
	assert.Equal(t, 2, envelope.Data.Order)
}

func TestListChaptersOrderedByPosition(t *testing.T) {
	db := newTestDB(t)
	app := newTestApp(t, db)
	course, chapters := seedCourseWithChapters(t, db, 3)

	// Shuffle stored positions so ordering is observable
	require.NoError(t, db.Model(&model.Chapter{}).Where("id = ?", chapters[0].ID).Update("position", 2).Error)
	require.NoError(t, db.Model(&model.Chapter{}).Where("id = ?", chapters[2].ID).Update("position", 0).Error)

	req := httptest.NewRequest("GET", fmt.Sprintf("/courses/%d/chapters", course.ID), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Data []model.Chapter `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 3)
	assert.Equal(t, chapters[2].ID, envelope.Data[0].ID)
	assert.Equal(t, chapters[1].ID, envelope.Data[1].ID)
	assert.Equal(t, chapters[0].ID, envelope.Data[2].ID)
}
