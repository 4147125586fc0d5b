package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/sahilchouksey/learnhub-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LifecycleService keeps the Course -> Chapter -> Lesson / LiveClass tree and
// user enrollment records consistent under deletion and structural changes.
// Cascades are explicit and sequential; they are NOT wrapped in a transaction
// (a whole-course cascade can touch thousands of rows and held locks were
// timing out), so an error mid-cascade aborts the remaining steps and may
// leave orphans until the nightly recount sweep.
type LifecycleService struct {
	db *gorm.DB
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(db *gorm.DB) *LifecycleService {
	return &LifecycleService{db: db}
}

// DeleteCourseCascade removes a course and everything that references it:
// enrollments, lesson completions, chapters (with their lessons and live
// classes), instructor links, plan links, the course group chat, and finally
// the course row itself.
func (s *LifecycleService) DeleteCourseCascade(ctx context.Context, courseID uint) error {
	db := s.db.WithContext(ctx)

	if err := db.Where("course_id = ?", courseID).Delete(&model.Enrollment{}).Error; err != nil {
		return fmt.Errorf("failed to delete enrollments: %w", err)
	}

	var chapters []model.Chapter
	if err := db.Where("course_id = ?", courseID).Find(&chapters).Error; err != nil {
		return fmt.Errorf("failed to list chapters: %w", err)
	}
	for _, chapter := range chapters {
		if err := s.deleteChapterChildren(ctx, chapter.ID); err != nil {
			return err
		}
	}
	if err := db.Where("course_id = ?", courseID).Delete(&model.Chapter{}).Error; err != nil {
		return fmt.Errorf("failed to delete chapters: %w", err)
	}

	if err := db.Where("course_id = ?", courseID).Delete(&model.CourseInstructor{}).Error; err != nil {
		return fmt.Errorf("failed to delete instructor links: %w", err)
	}
	if err := db.Where("course_id = ?", courseID).Delete(&model.SubscriptionCourse{}).Error; err != nil {
		return fmt.Errorf("failed to delete plan links: %w", err)
	}
	if err := db.Where("course_id = ?", courseID).Delete(&model.CourseRating{}).Error; err != nil {
		return fmt.Errorf("failed to delete ratings: %w", err)
	}

	// Group chat and its members/messages
	var chat model.GroupChat
	err := db.Where("course_id = ?", courseID).First(&chat).Error
	if err == nil {
		if err := s.deleteChat(ctx, chat.ID); err != nil {
			return err
		}
	} else if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("failed to look up group chat: %w", err)
	}

	if err := db.Delete(&model.Course{}, courseID).Error; err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	log.Printf("Deleted course %d with %d chapters", courseID, len(chapters))
	return nil
}

// DeleteChapterCascade removes a chapter, its lessons and live classes, then
// recomputes the parent course's counters.
func (s *LifecycleService) DeleteChapterCascade(ctx context.Context, chapterID uint) error {
	var chapter model.Chapter
	if err := s.db.WithContext(ctx).First(&chapter, chapterID).Error; err != nil {
		return err
	}

	if err := s.deleteChapterChildren(ctx, chapterID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&model.Chapter{}, chapterID).Error; err != nil {
		return fmt.Errorf("failed to delete chapter: %w", err)
	}

	return s.RecomputeCourseStats(ctx, chapter.CourseID)
}

// deleteChapterChildren removes the lessons and live classes of one chapter
func (s *LifecycleService) deleteChapterChildren(ctx context.Context, chapterID uint) error {
	db := s.db.WithContext(ctx)

	var lessons []model.Lesson
	if err := db.Where("chapter_id = ?", chapterID).Find(&lessons).Error; err != nil {
		return fmt.Errorf("failed to list lessons: %w", err)
	}
	for _, lesson := range lessons {
		if err := db.Where("lesson_id = ?", lesson.ID).Delete(&model.LessonCompletion{}).Error; err != nil {
			return fmt.Errorf("failed to delete lesson completions: %w", err)
		}
	}
	if err := db.Where("chapter_id = ?", chapterID).Delete(&model.Lesson{}).Error; err != nil {
		return fmt.Errorf("failed to delete lessons: %w", err)
	}

	if err := db.Where("chapter_id = ?", chapterID).Delete(&model.LiveClass{}).Error; err != nil {
		return fmt.Errorf("failed to delete live classes: %w", err)
	}
	return nil
}

// DeleteLessonCascade removes one lesson and its completion records, then
// recomputes the parent course's counters.
func (s *LifecycleService) DeleteLessonCascade(ctx context.Context, lessonID uint) error {
	db := s.db.WithContext(ctx)

	var lesson model.Lesson
	if err := db.First(&lesson, lessonID).Error; err != nil {
		return err
	}

	if err := db.Where("lesson_id = ?", lessonID).Delete(&model.LessonCompletion{}).Error; err != nil {
		return fmt.Errorf("failed to delete lesson completions: %w", err)
	}
	if err := db.Delete(&model.Lesson{}, lessonID).Error; err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}

	return s.RecomputeCourseStats(ctx, lesson.CourseID)
}

// deleteChat removes a chat with its members and messages
func (s *LifecycleService) deleteChat(ctx context.Context, chatID uint) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("chat_id = ?", chatID).Delete(&model.GroupChatMember{}).Error; err != nil {
		return fmt.Errorf("failed to delete chat members: %w", err)
	}
	if err := db.Where("chat_id = ?", chatID).Delete(&model.GroupChatMessage{}).Error; err != nil {
		return fmt.Errorf("failed to delete chat messages: %w", err)
	}
	if err := db.Delete(&model.GroupChat{}, chatID).Error; err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// RecomputeCourseStats recounts the denormalized counters of a course from its
// children. Called at the end of every child-mutation use case; the cron sweep
// calls it for every course to repair drift from racing read-modify-writes.
func (s *LifecycleService) RecomputeCourseStats(ctx context.Context, courseID uint) error {
	db := s.db.WithContext(ctx)

	var total, quizzes, articles, coding, students int64

	if err := db.Model(&model.Lesson{}).Where("course_id = ?", courseID).Count(&total).Error; err != nil {
		return fmt.Errorf("failed to count lessons: %w", err)
	}
	counts := map[model.LessonType]*int64{
		model.LessonTypeQuiz:          &quizzes,
		model.LessonTypeArticle:       &articles,
		model.LessonTypeCodingProblem: &coding,
	}
	for lessonType, dest := range counts {
		if err := db.Model(&model.Lesson{}).
			Where("course_id = ? AND type = ?", courseID, lessonType).
			Count(dest).Error; err != nil {
			return fmt.Errorf("failed to count %s lessons: %w", lessonType, err)
		}
	}
	if err := db.Model(&model.Enrollment{}).Where("course_id = ?", courseID).Count(&students).Error; err != nil {
		return fmt.Errorf("failed to count enrollments: %w", err)
	}

	return db.Model(&model.Course{}).Where("id = ?", courseID).Updates(map[string]interface{}{
		"total_lessons":         total,
		"total_quizzes":         quizzes,
		"total_articles":        articles,
		"total_coding_problems": coding,
		"total_students":        students,
	}).Error
}

// ErrContentMissing reports the content document has no sub-object for the
// lesson's active type.
type ErrContentMissing struct {
	Type model.LessonType
}

func (e ErrContentMissing) Error() string {
	return fmt.Sprintf("lesson content has no %q sub-object", e.Type)
}

// NormalizeLessonContent prunes the content document so only the sub-object
// matching the lesson's type survives. A content document missing the active
// type's key is a validation error.
func NormalizeLessonContent(lesson *model.Lesson) error {
	var doc map[string]json.RawMessage
	if len(lesson.Content) == 0 {
		return ErrContentMissing{Type: lesson.Type}
	}
	if err := json.Unmarshal(lesson.Content, &doc); err != nil {
		return fmt.Errorf("invalid content document: %w", err)
	}

	active, ok := doc[string(lesson.Type)]
	if !ok || string(active) == "null" {
		return ErrContentMissing{Type: lesson.Type}
	}

	pruned, err := json.Marshal(map[string]json.RawMessage{string(lesson.Type): active})
	if err != nil {
		return err
	}
	lesson.Content = datatypes.JSON(pruned)
	return nil
}
