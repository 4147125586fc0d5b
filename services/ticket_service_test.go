package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAssignsLeastBusyAgent(t *testing.T) {
	db := newTestDB(t)
	svc := NewTicketService(db, newTestNotifications(db))
	ctx := context.Background()

	student := createTestUser(t, db, "student@example.com", model.RoleStudent)
	busy := createTestUser(t, db, "busy@example.com", model.RoleCustomerCare)
	idle := createTestUser(t, db, "idle@example.com", model.RoleCustomerCare)

	// Pre-load the first agent with open tickets
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&model.SupportTicket{
			TicketNumber:    "TKT-seed" + string(rune('a'+i)),
			UserID:          student.ID,
			Subject:         "seed",
			Description:     "seed",
			Status:          model.TicketOpen,
			Priority:        model.PriorityMedium,
			AssignedAgentID: &busy.ID,
		}).Error)
	}
	// A closed ticket does not count toward load
	closedAssignee := idle.ID
	require.NoError(t, db.Create(&model.SupportTicket{
		TicketNumber:    "TKT-done",
		UserID:          student.ID,
		Subject:         "done",
		Description:     "done",
		Status:          model.TicketClosed,
		Priority:        model.PriorityLow,
		AssignedAgentID: &closedAssignee,
	}).Error)

	ticket, err := svc.Create(ctx, student.ID, "Cannot access lesson", "Video will not load", model.PriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, idle.ID, *ticket.AssignedAgentID)
	assert.Equal(t, model.TicketOpen, ticket.Status)
	assert.Contains(t, ticket.TicketNumber, "TKT-")

	var note model.UserNotification
	require.NoError(t, db.Where("user_id = ? AND category = ?", student.ID, model.NotificationCategorySupport).First(&note).Error)
	assert.Contains(t, note.Message, ticket.TicketNumber)
}

func TestCreateWithoutAgentsLeavesUnassigned(t *testing.T) {
	db := newTestDB(t)
	svc := NewTicketService(db, newTestNotifications(db))

	student := createTestUser(t, db, "student@example.com", model.RoleStudent)

	ticket, err := svc.Create(context.Background(), student.ID, "Refund", "Please refund my order", model.PriorityMedium)
	require.NoError(t, err)
	assert.Nil(t, ticket.AssignedAgentID)
}

func TestAgentResponseMovesToAwaitingUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewTicketService(db, newTestNotifications(db))
	ctx := context.Background()

	student := createTestUser(t, db, "student@example.com", model.RoleStudent)
	agent := createTestUser(t, db, "agent@example.com", model.RoleCustomerCare)

	ticket, err := svc.Create(ctx, student.ID, "Billing question", "Charged twice", model.PriorityHigh)
	require.NoError(t, err)

	updated, err := svc.AddAgentResponse(ctx, ticket.ID, agent.ID, "Looking into it now")
	require.NoError(t, err)
	assert.Equal(t, model.TicketAwaitingUser, updated.Status)

	var response model.TicketResponse
	require.NoError(t, db.Where("ticket_id = ?", ticket.ID).First(&response).Error)
	assert.True(t, response.IsAgent)
	assert.Equal(t, agent.ID, response.UserID)

	var entry model.TicketHistory
	require.NoError(t, db.Where("ticket_id = ? AND field = ?", ticket.ID, "status").First(&entry).Error)
	assert.Equal(t, string(model.TicketOpen), entry.From)
	assert.Equal(t, string(model.TicketAwaitingUser), entry.To)

	// The ticket owner hears about the reply
	var notes int64
	require.NoError(t, db.Model(&model.UserNotification{}).
		Where("user_id = ? AND title = ?", student.ID, "Support replied").
		Count(&notes).Error)
	assert.EqualValues(t, 1, notes)
}

func TestResolvedTicketReopensOnUserReply(t *testing.T) {
	db := newTestDB(t)
	svc := NewTicketService(db, newTestNotifications(db))
	ctx := context.Background()

	student := createTestUser(t, db, "student@example.com", model.RoleStudent)
	agent := createTestUser(t, db, "agent@example.com", model.RoleCustomerCare)

	ticket, err := svc.Create(ctx, student.ID, "Broken quiz", "Quiz never submits", model.PriorityMedium)
	require.NoError(t, err)

	resolved := model.TicketResolved
	updated, err := svc.UpdateByAgent(ctx, ticket.ID, agent.ID, &resolved, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, model.TicketResolved, updated.Status)
	require.NotNil(t, updated.ClosedAt)

	reopened, err := svc.AddUserResponse(ctx, ticket.ID, student.ID, "It is still broken")
	require.NoError(t, err)
	assert.Equal(t, model.TicketReopened, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)
}

func TestUserResponseRejectsNonOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewTicketService(db, newTestNotifications(db))
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com", model.RoleStudent)
	stranger := createTestUser(t, db, "stranger@example.com", model.RoleStudent)
	agent := createTestUser(t, db, "agent@example.com", model.RoleCustomerCare)

	ticket, err := svc.Create(ctx, owner.ID, "Video stutters", "Playback keeps buffering", model.PriorityMedium)
	require.NoError(t, err)

	resolved := model.TicketResolved
	_, err = svc.UpdateByAgent(ctx, ticket.ID, agent.ID, &resolved, nil, nil)
	require.NoError(t, err)

	_, err = svc.AddUserResponse(ctx, ticket.ID, stranger.ID, "me too")
	assert.ErrorIs(t, err, ErrNotTicketOwner)

	// The ticket stays resolved and the stray reply was not stored
	var refreshed model.SupportTicket
	require.NoError(t, db.First(&refreshed, ticket.ID).Error)
	assert.Equal(t, model.TicketResolved, refreshed.Status)
	require.NotNil(t, refreshed.ClosedAt)

	var responses int64
	require.NoError(t, db.Model(&model.TicketResponse{}).
		Where("ticket_id = ?", ticket.ID).Count(&responses).Error)
	assert.Zero(t, responses)
}

func TestUserReplyOnOpenTicketMovesToInProgress(t *testing.T) {
	db := newTestDB(t)
	svc := NewTicketService(db, newTestNotifications(db))
	ctx := context.Background()

	student := createTestUser(t, db, "student@example.com", model.RoleStudent)

	ticket, err := svc.Create(ctx, student.ID, "Login issue", "Cannot sign in", model.PriorityLow)
	require.NoError(t, err)

	updated, err := svc.AddUserResponse(ctx, ticket.ID, student.ID, "Forgot to mention I use Safari")
	require.NoError(t, err)
	assert.Equal(t, model.TicketInProgress, updated.Status)
}

func TestUpdateByAgentRecordsEachChange(t *testing.T) {
	db := newTestDB(t)
	svc := NewTicketService(db, newTestNotifications(db))
	ctx := context.Background()

	student := createTestUser(t, db, "student@example.com", model.RoleStudent)
	agent := createTestUser(t, db, "agent@example.com", model.RoleCustomerCare)
	other := createTestUser(t, db, "other@example.com", model.RoleCustomerCare)

	ticket, err := svc.Create(ctx, student.ID, "Certificate missing", "Finished the course but no certificate", model.PriorityLow)
	require.NoError(t, err)

	urgent := model.PriorityUrgent
	inProgress := model.TicketInProgress
	updated, err := svc.UpdateByAgent(ctx, ticket.ID, agent.ID, &inProgress, &urgent, &other.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketInProgress, updated.Status)
	assert.Equal(t, model.PriorityUrgent, updated.Priority)
	require.NotNil(t, updated.AssignedAgentID)
	assert.Equal(t, other.ID, *updated.AssignedAgentID)

	var history []model.TicketHistory
	require.NoError(t, db.Where("ticket_id = ?", ticket.ID).Order("id ASC").Find(&history).Error)
	require.Len(t, history, 3)

	fields := make(map[string]model.TicketHistory, len(history))
	for _, entry := range history {
		fields[entry.Field] = entry
	}
	assert.Equal(t, string(model.PriorityLow), fields["priority"].From)
	assert.Equal(t, string(model.PriorityUrgent), fields["priority"].To)
	assert.Equal(t, string(model.TicketOpen), fields["status"].From)
	assert.Equal(t, string(model.TicketInProgress), fields["status"].To)
	assert.NotEmpty(t, fields["assigned_agent"].To)
}
