package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteCourseCascadeRemovesAllChildren(t *testing.T) {
	db := newTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	instructor := createTestUser(t, db, "teach@example.com", model.RoleInstructor)
	student := createTestUser(t, db, "student@example.com", model.RoleStudent)
	course := createTestCourse(t, db, "go-basics", nil)

	chapter1 := createTestChapter(t, db, course.ID, 0)
	chapter2 := createTestChapter(t, db, course.ID, 1)
	lesson := createTestLesson(t, db, chapter1, model.LessonTypeVideo, 0)
	createTestLesson(t, db, chapter2, model.LessonTypeArticle, 0)

	require.NoError(t, db.Create(&model.LiveClass{
		ChapterID:    chapter1.ID,
		CourseID:     course.ID,
		InstructorID: instructor.ID,
		Title:        "Office hours",
		Status:       model.LiveClassScheduled,
	}).Error)
	require.NoError(t, db.Create(&model.CourseInstructor{CourseID: course.ID, UserID: instructor.ID}).Error)
	require.NoError(t, db.Create(&model.Enrollment{UserID: student.ID, CourseID: course.ID}).Error)
	require.NoError(t, db.Create(&model.LessonCompletion{UserID: student.ID, LessonID: lesson.ID, CourseID: course.ID}).Error)
	require.NoError(t, db.Create(&model.CourseRating{CourseID: course.ID, UserID: student.ID, Stars: 5}).Error)

	plan := model.Subscription{Name: "Pro", Price: 99}
	require.NoError(t, db.Create(&plan).Error)
	require.NoError(t, db.Create(&model.SubscriptionCourse{SubscriptionID: plan.ID, CourseID: course.ID}).Error)

	chat := model.GroupChat{CourseID: course.ID, Name: "go basics"}
	require.NoError(t, db.Create(&chat).Error)
	require.NoError(t, db.Create(&model.GroupChatMember{ChatID: chat.ID, UserID: student.ID, Role: model.ChatRoleMember}).Error)
	require.NoError(t, db.Create(&model.GroupChatMessage{ChatID: chat.ID, UserID: student.ID, Body: "hi"}).Error)

	require.NoError(t, svc.DeleteCourseCascade(ctx, course.ID))

	for name, dest := range map[string]interface{}{
		"courses":             &model.Course{},
		"chapters":            &model.Chapter{},
		"lessons":             &model.Lesson{},
		"live_classes":        &model.LiveClass{},
		"enrollments":         &model.Enrollment{},
		"lesson_completions":  &model.LessonCompletion{},
		"course_instructors":  &model.CourseInstructor{},
		"course_ratings":      &model.CourseRating{},
		"subscription_links":  &model.SubscriptionCourse{},
		"group_chats":         &model.GroupChat{},
		"group_chat_members":  &model.GroupChatMember{},
		"group_chat_messages": &model.GroupChatMessage{},
	} {
		var count int64
		require.NoError(t, db.Model(dest).Count(&count).Error)
		assert.Zerof(t, count, "expected no remaining %s rows", name)
	}

	// The plan itself survives; only the link to the course is removed
	var plans int64
	require.NoError(t, db.Model(&model.Subscription{}).Count(&plans).Error)
	assert.EqualValues(t, 1, plans)
}

func TestDeleteChapterCascadeRecountsStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	course := createTestCourse(t, db, "rust-101", nil)
	keep := createTestChapter(t, db, course.ID, 0)
	drop := createTestChapter(t, db, course.ID, 1)
	createTestLesson(t, db, keep, model.LessonTypeVideo, 0)
	createTestLesson(t, db, drop, model.LessonTypeQuiz, 0)
	createTestLesson(t, db, drop, model.LessonTypeArticle, 1)

	require.NoError(t, svc.RecomputeCourseStats(ctx, course.ID))
	require.NoError(t, svc.DeleteChapterCascade(ctx, drop.ID))

	var updated model.Course
	require.NoError(t, db.First(&updated, course.ID).Error)
	assert.Equal(t, 1, updated.TotalLessons)
	assert.Equal(t, 0, updated.TotalQuizzes)
	assert.Equal(t, 0, updated.TotalArticles)

	var lessons int64
	require.NoError(t, db.Model(&model.Lesson{}).Where("chapter_id = ?", drop.ID).Count(&lessons).Error)
	assert.Zero(t, lessons)
}

func TestRecomputeCourseStatsCountsByType(t *testing.T) {
	db := newTestDB(t)
	svc := NewLifecycleService(db)
	ctx := context.Background()

	student := createTestUser(t, db, "s1@example.com", model.RoleStudent)
	other := createTestUser(t, db, "s2@example.com", model.RoleStudent)
	course := createTestCourse(t, db, "algos", nil)
	chapter := createTestChapter(t, db, course.ID, 0)

	createTestLesson(t, db, chapter, model.LessonTypeVideo, 0)
	createTestLesson(t, db, chapter, model.LessonTypeArticle, 1)
	createTestLesson(t, db, chapter, model.LessonTypeQuiz, 2)

	require.NoError(t, db.Create(&model.Enrollment{UserID: student.ID, CourseID: course.ID}).Error)
	require.NoError(t, db.Create(&model.Enrollment{UserID: other.ID, CourseID: course.ID}).Error)

	require.NoError(t, svc.RecomputeCourseStats(ctx, course.ID))

	var updated model.Course
	require.NoError(t, db.First(&updated, course.ID).Error)
	assert.Equal(t, 3, updated.TotalLessons)
	assert.Equal(t, 1, updated.TotalArticles)
	assert.Equal(t, 1, updated.TotalQuizzes)
	assert.Equal(t, 0, updated.TotalCodingProblems)
	assert.Equal(t, 2, updated.TotalStudents)
}

func TestNormalizeLessonContentPrunesInactiveTypes(t *testing.T) {
	lesson := model.Lesson{
		Type: model.LessonTypeVideo,
		Content: []byte(`{
			"video": {"url": "https://cdn.example.com/v.mp4", "duration": 300},
			"article": {"body": "stale"},
			"quiz": {"questions": []}
		}`),
	}

	require.NoError(t, NormalizeLessonContent(&lesson))

	assert.JSONEq(t,
		`{"video": {"url": "https://cdn.example.com/v.mp4", "duration": 300}}`,
		string(lesson.Content))
}

func TestNormalizeLessonContentRejectsMissingActiveType(t *testing.T) {
	cases := map[string]model.Lesson{
		"missing key": {
			Type:    model.LessonTypeQuiz,
			Content: []byte(`{"video": {"url": "x"}}`),
		},
		"null value": {
			Type:    model.LessonTypeQuiz,
			Content: []byte(`{"quiz": null}`),
		},
		"empty document": {
			Type: model.LessonTypeQuiz,
		},
	}

	for name, lesson := range cases {
		t.Run(name, func(t *testing.T) {
			err := NormalizeLessonContent(&lesson)
			require.Error(t, err)

			var missing ErrContentMissing
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, model.LessonTypeQuiz, missing.Type)
		})
	}
}
