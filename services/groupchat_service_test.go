package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateForCourseSeedsMembership(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupChatService(db, NewLifecycleService(db))
	ctx := context.Background()

	admin := createTestUser(t, db, "admin@example.com", model.RoleAdmin)
	instructor := createTestUser(t, db, "teach@example.com", model.RoleInstructor)
	student := createTestUser(t, db, "student@example.com", model.RoleStudent)

	course := createTestCourse(t, db, "go-basics", nil)
	require.NoError(t, db.Create(&model.CourseInstructor{CourseID: course.ID, UserID: instructor.ID}).Error)
	require.NoError(t, db.Create(&model.Enrollment{UserID: student.ID, CourseID: course.ID}).Error)

	chat, err := svc.CreateForCourse(ctx, course.ID, admin.ID, "go basics chat")
	require.NoError(t, err)

	var members []model.GroupChatMember
	require.NoError(t, db.Where("chat_id = ?", chat.ID).Find(&members).Error)
	require.Len(t, members, 3)

	roles := make(map[uint]model.ChatMemberRole, len(members))
	for _, member := range members {
		roles[member.UserID] = member.Role
	}
	assert.Equal(t, model.ChatRoleAdmin, roles[admin.ID])
	assert.Equal(t, model.ChatRoleInstructor, roles[instructor.ID])
	assert.Equal(t, model.ChatRoleMember, roles[student.ID])

	// A second chat for the same course is refused
	_, err = svc.CreateForCourse(ctx, course.ID, admin.ID, "another")
	assert.ErrorIs(t, err, ErrChatExists)
}

func TestSyncRemovesLapsedSubscriber(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupChatService(db, NewLifecycleService(db))
	ctx := context.Background()

	instructor := createTestUser(t, db, "teach@example.com", model.RoleInstructor)
	subscriber := createTestUser(t, db, "sub@example.com", model.RoleStudent)

	course := createTestCourse(t, db, "gated", func(c *model.Course) {
		c.IsIncludedInSubscription = true
	})
	require.NoError(t, db.Create(&model.CourseInstructor{CourseID: course.ID, UserID: instructor.ID}).Error)

	plan := model.Subscription{Name: "All Access", Price: 199, IsAllIncluded: true, DurationMonths: 12}
	require.NoError(t, db.Create(&plan).Error)
	end := time.Now().AddDate(0, 6, 0)
	purchase := model.UserSubscription{
		UserID:         subscriber.ID,
		SubscriptionID: plan.ID,
		StartDate:      time.Now(),
		EndDate:        &end,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&purchase).Error)

	chat, err := svc.CreateForCourse(ctx, course.ID, instructor.ID, "gated chat")
	require.NoError(t, err)

	// Subscription lapses
	require.NoError(t, db.Model(&model.UserSubscription{}).
		Where("id = ?", purchase.ID).
		Update("is_active", false).Error)

	result, err := svc.SyncMemberships(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChatsProcessed)
	assert.Equal(t, 1, result.MembersRemoved)
	assert.Equal(t, 0, result.ChatsDeleted)

	var members []model.GroupChatMember
	require.NoError(t, db.Where("chat_id = ?", chat.ID).Find(&members).Error)
	require.Len(t, members, 1)
	assert.Equal(t, instructor.ID, members[0].UserID)
}

func TestSyncDeletesChatWithNoEligibleMembers(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupChatService(db, NewLifecycleService(db))
	ctx := context.Background()

	former := createTestUser(t, db, "former@example.com", model.RoleStudent)
	course := createTestCourse(t, db, "orphaned", nil)

	chat := model.GroupChat{CourseID: course.ID, Name: "orphaned chat"}
	require.NoError(t, db.Create(&chat).Error)
	require.NoError(t, db.Create(&model.GroupChatMember{
		ChatID: chat.ID,
		UserID: former.ID,
		Role:   model.ChatRoleMember,
	}).Error)
	require.NoError(t, db.Create(&model.GroupChatMessage{ChatID: chat.ID, UserID: former.ID, Body: "bye"}).Error)

	result, err := svc.SyncMemberships(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChatsDeleted)

	var chats, messages int64
	require.NoError(t, db.Model(&model.GroupChat{}).Count(&chats).Error)
	require.NoError(t, db.Model(&model.GroupChatMessage{}).Count(&messages).Error)
	assert.Zero(t, chats)
	assert.Zero(t, messages)
}

func TestLeaveReassignsAdminToEarliestInstructor(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupChatService(db, NewLifecycleService(db))
	ctx := context.Background()

	course := createTestCourse(t, db, "handover", nil)
	admin := createTestUser(t, db, "admin@example.com", model.RoleAdmin)
	instructor := createTestUser(t, db, "teach@example.com", model.RoleInstructor)
	student := createTestUser(t, db, "student@example.com", model.RoleStudent)

	chat := model.GroupChat{CourseID: course.ID, Name: "handover chat"}
	require.NoError(t, db.Create(&chat).Error)

	now := time.Now()
	for i, m := range []model.GroupChatMember{
		{ChatID: chat.ID, UserID: admin.ID, Role: model.ChatRoleAdmin},
		{ChatID: chat.ID, UserID: student.ID, Role: model.ChatRoleMember},
		{ChatID: chat.ID, UserID: instructor.ID, Role: model.ChatRoleInstructor},
	} {
		m.JoinedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.Create(&m).Error)
	}

	require.NoError(t, svc.Leave(ctx, chat.ID, admin.ID))

	// The instructor inherits admin even though the student joined earlier
	var next model.GroupChatMember
	require.NoError(t, db.Where("chat_id = ? AND user_id = ?", chat.ID, instructor.ID).First(&next).Error)
	assert.Equal(t, model.ChatRoleAdmin, next.Role)

	// Leaving twice is refused
	assert.ErrorIs(t, svc.Leave(ctx, chat.ID, admin.ID), ErrNotChatMember)
}

func TestLeaveDeletesEmptyChat(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupChatService(db, NewLifecycleService(db))
	ctx := context.Background()

	course := createTestCourse(t, db, "solo", nil)
	only := createTestUser(t, db, "only@example.com", model.RoleStudent)

	chat := model.GroupChat{CourseID: course.ID, Name: "solo chat"}
	require.NoError(t, db.Create(&chat).Error)
	require.NoError(t, db.Create(&model.GroupChatMember{
		ChatID: chat.ID, UserID: only.ID, Role: model.ChatRoleMember,
	}).Error)

	require.NoError(t, svc.Leave(ctx, chat.ID, only.ID))

	var chats int64
	require.NoError(t, db.Model(&model.GroupChat{}).Count(&chats).Error)
	assert.Zero(t, chats)
}

func TestPostMessageRequiresMembership(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupChatService(db, NewLifecycleService(db))
	ctx := context.Background()

	course := createTestCourse(t, db, "chatty", nil)
	member := createTestUser(t, db, "member@example.com", model.RoleStudent)
	outsider := createTestUser(t, db, "outsider@example.com", model.RoleStudent)

	chat := model.GroupChat{CourseID: course.ID, Name: "chatty chat"}
	require.NoError(t, db.Create(&chat).Error)
	require.NoError(t, db.Create(&model.GroupChatMember{
		ChatID: chat.ID, UserID: member.ID, Role: model.ChatRoleMember,
	}).Error)

	message, err := svc.PostMessage(ctx, chat.ID, member.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", message.Body)

	_, err = svc.PostMessage(ctx, chat.ID, outsider.ID, "let me in")
	assert.ErrorIs(t, err, ErrNotChatMember)
}
