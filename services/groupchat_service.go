package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"gorm.io/gorm"
)

var (
	ErrNotChatMember = errors.New("user is not a member of this chat")
	ErrChatExists    = errors.New("course already has a group chat")
)

// GroupChatService owns group chat membership: seeding it on creation,
// reconciling it against course eligibility, and handling departures.
type GroupChatService struct {
	db        *gorm.DB
	lifecycle *LifecycleService
}

// NewGroupChatService creates a new group chat service
func NewGroupChatService(db *gorm.DB, lifecycle *LifecycleService) *GroupChatService {
	return &GroupChatService{db: db, lifecycle: lifecycle}
}

// EligibleMembers computes the set of user ids entitled to belong to a
// course's chat: instructors, direct enrollees, and holders of an active
// non-expired subscription covering the course.
func (s *GroupChatService) EligibleMembers(ctx context.Context, courseID uint) (map[uint]model.ChatMemberRole, error) {
	db := s.db.WithContext(ctx)
	eligible := make(map[uint]model.ChatMemberRole)

	var instructors []model.CourseInstructor
	if err := db.Where("course_id = ?", courseID).Find(&instructors).Error; err != nil {
		return nil, fmt.Errorf("failed to load instructors: %w", err)
	}
	for _, instructor := range instructors {
		eligible[instructor.UserID] = model.ChatRoleInstructor
	}

	var enrollments []model.Enrollment
	if err := db.Where("course_id = ?", courseID).Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}
	for _, enrollment := range enrollments {
		if _, ok := eligible[enrollment.UserID]; !ok {
			eligible[enrollment.UserID] = model.ChatRoleMember
		}
	}

	var course model.Course
	if err := db.Select("id", "is_included_in_subscription").First(&course, courseID).Error; err != nil {
		return nil, err
	}
	if course.IsIncludedInSubscription {
		subscriberIDs, err := s.activeSubscriberIDs(ctx, courseID)
		if err != nil {
			return nil, err
		}
		for _, userID := range subscriberIDs {
			if _, ok := eligible[userID]; !ok {
				eligible[userID] = model.ChatRoleMember
			}
		}
	}

	return eligible, nil
}

// activeSubscriberIDs lists users whose active, non-expired subscription
// covers the course (all-inclusive plans cover everything).
func (s *GroupChatService) activeSubscriberIDs(ctx context.Context, courseID uint) ([]uint, error) {
	db := s.db.WithContext(ctx)
	now := time.Now()

	var purchases []model.UserSubscription
	if err := db.Preload("Subscription").
		Where("is_active = ?", true).
		Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscription purchases: %w", err)
	}

	var coveringPlans []model.SubscriptionCourse
	if err := db.Where("course_id = ?", courseID).Find(&coveringPlans).Error; err != nil {
		return nil, fmt.Errorf("failed to load plan links: %w", err)
	}
	covered := make(map[uint]bool, len(coveringPlans))
	for _, link := range coveringPlans {
		covered[link.SubscriptionID] = true
	}

	var ids []uint
	for _, purchase := range purchases {
		if !purchase.IsCurrent(now) {
			continue
		}
		if purchase.Subscription.IsAllIncluded || covered[purchase.SubscriptionID] {
			ids = append(ids, purchase.UserID)
		}
	}
	return ids, nil
}

// CreateForCourse creates the course's chat and seeds membership: the creator
// gets admin, other instructors get instructor, everyone else member.
func (s *GroupChatService) CreateForCourse(ctx context.Context, courseID uint, creatorID uint, name string) (*model.GroupChat, error) {
	db := s.db.WithContext(ctx)

	var existing int64
	if err := db.Model(&model.GroupChat{}).Where("course_id = ?", courseID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrChatExists
	}

	eligible, err := s.EligibleMembers(ctx, courseID)
	if err != nil {
		return nil, err
	}
	eligible[creatorID] = model.ChatRoleAdmin

	chat := model.GroupChat{CourseID: courseID, Name: name}
	if err := db.Create(&chat).Error; err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	for userID, role := range eligible {
		member := model.GroupChatMember{ChatID: chat.ID, UserID: userID, Role: role}
		if err := db.Create(&member).Error; err != nil {
			return nil, fmt.Errorf("failed to add member %d: %w", userID, err)
		}
	}

	log.Printf("Created group chat %d for course %d with %d members", chat.ID, courseID, len(eligible))
	return &chat, nil
}

// SyncResult summarizes one reconciliation run
type SyncResult struct {
	ChatsProcessed int `json:"chats_processed"`
	MembersRemoved int `json:"members_removed"`
	ChatsDeleted   int `json:"chats_deleted"`
	ChatsFailed    int `json:"chats_failed"`
}

// SyncMemberships reconciles every chat's membership against its course's
// eligible set, removing members no longer eligible and deleting chats whose
// membership becomes empty. Rows holding the instructor or admin chat role are
// permanent members and are never removed by sync, even if the user has left
// the course's instructor list. Each chat is processed independently; a
// failure on one chat is logged and the batch continues.
func (s *GroupChatService) SyncMemberships(ctx context.Context) (SyncResult, error) {
	db := s.db.WithContext(ctx)
	var result SyncResult

	var chats []model.GroupChat
	if err := db.Find(&chats).Error; err != nil {
		return result, fmt.Errorf("failed to list chats: %w", err)
	}

	for _, chat := range chats {
		removed, deleted, err := s.syncChat(ctx, chat)
		if err != nil {
			log.Printf("Membership sync failed for chat %d (course %d): %v", chat.ID, chat.CourseID, err)
			result.ChatsFailed++
			continue
		}
		result.ChatsProcessed++
		result.MembersRemoved += removed
		if deleted {
			result.ChatsDeleted++
		}
	}

	return result, nil
}

// syncChat reconciles one chat; returns members removed and whether the chat
// was deleted.
func (s *GroupChatService) syncChat(ctx context.Context, chat model.GroupChat) (int, bool, error) {
	db := s.db.WithContext(ctx)

	eligible, err := s.EligibleMembers(ctx, chat.CourseID)
	if err != nil {
		return 0, false, err
	}

	var members []model.GroupChatMember
	if err := db.Where("chat_id = ?", chat.ID).Find(&members).Error; err != nil {
		return 0, false, err
	}

	removed := 0
	remaining := 0
	for _, member := range members {
		// Instructor/admin-role members stay regardless of purchase state.
		if member.Role != model.ChatRoleMember {
			remaining++
			continue
		}
		if _, ok := eligible[member.UserID]; ok {
			remaining++
			continue
		}
		if err := db.Delete(&model.GroupChatMember{}, member.ID).Error; err != nil {
			return removed, false, err
		}
		removed++
	}

	if remaining == 0 {
		if err := s.lifecycle.deleteChat(ctx, chat.ID); err != nil {
			return removed, false, err
		}
		return removed, true, nil
	}
	return removed, false, nil
}

// Leave removes a user from a chat. When the departing member held the admin
// role it is reassigned to the earliest-joined instructor member, falling back
// to the earliest member overall; a chat left with no members is deleted.
func (s *GroupChatService) Leave(ctx context.Context, chatID uint, userID uint) error {
	db := s.db.WithContext(ctx)

	var member model.GroupChatMember
	if err := db.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&member).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotChatMember
		}
		return err
	}

	wasAdmin := member.Role == model.ChatRoleAdmin
	if err := db.Delete(&model.GroupChatMember{}, member.ID).Error; err != nil {
		return err
	}

	var rest []model.GroupChatMember
	if err := db.Where("chat_id = ?", chatID).Order("joined_at ASC").Find(&rest).Error; err != nil {
		return err
	}
	if len(rest) == 0 {
		return s.lifecycle.deleteChat(ctx, chatID)
	}

	if wasAdmin {
		next := rest[0]
		for _, candidate := range rest {
			if candidate.Role == model.ChatRoleInstructor {
				next = candidate
				break
			}
		}
		if err := db.Model(&model.GroupChatMember{}).Where("id = ?", next.ID).
			Update("role", model.ChatRoleAdmin).Error; err != nil {
			return err
		}
	}
	return nil
}

// PostMessage appends a message; only members may post.
func (s *GroupChatService) PostMessage(ctx context.Context, chatID uint, userID uint, body string) (*model.GroupChatMessage, error) {
	db := s.db.WithContext(ctx)

	var membership int64
	if err := db.Model(&model.GroupChatMember{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&membership).Error; err != nil {
		return nil, err
	}
	if membership == 0 {
		return nil, ErrNotChatMember
	}

	message := model.GroupChatMessage{ChatID: chatID, UserID: userID, Body: body}
	if err := db.Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	return &message, nil
}
