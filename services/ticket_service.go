package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/learnhub-api/model"
	"gorm.io/gorm"
)

// ErrNotTicketOwner is returned when a user replies to a ticket they did not raise
var ErrNotTicketOwner = errors.New("user does not own this ticket")

// TicketService owns the support ticket lifecycle: creation with least-busy
// agent assignment, reply-driven status transitions, and the audit history.
type TicketService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewTicketService creates a new ticket service
func NewTicketService(db *gorm.DB, notifications *NotificationService) *TicketService {
	return &TicketService{db: db, notifications: notifications}
}

// Create opens a ticket and assigns it to the customer care agent with the
// fewest tickets in an open-ish status.
func (s *TicketService) Create(ctx context.Context, userID uint, subject, description string, priority model.TicketPriority) (*model.SupportTicket, error) {
	db := s.db.WithContext(ctx)

	ticket := model.SupportTicket{
		TicketNumber: "TKT-" + uuid.New().String()[:8],
		UserID:       userID,
		Subject:      subject,
		Description:  description,
		Status:       model.TicketOpen,
		Priority:     priority,
	}

	agentID, err := s.leastBusyAgent(ctx)
	if err != nil {
		// Assignment is best-effort; an unassigned ticket is picked up later.
		log.Printf("Agent assignment failed for new ticket: %v", err)
	} else if agentID != 0 {
		ticket.AssignedAgentID = &agentID
	}

	if err := db.Create(&ticket).Error; err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.notifications.Dispatch(ctx, DispatchRequest{
		UserID:   userID,
		Type:     model.NotificationTypeInfo,
		Category: model.NotificationCategorySupport,
		Title:    "Support ticket created",
		Message:  fmt.Sprintf("Ticket %s has been created. Our team will respond shortly.", ticket.TicketNumber),
		Metadata: &model.NotificationMetadata{TicketID: ticket.ID},
	})

	return &ticket, nil
}

// leastBusyAgent picks the customercare agent with the fewest open-ish
// tickets. Returns 0 when no agents exist.
func (s *TicketService) leastBusyAgent(ctx context.Context) (uint, error) {
	db := s.db.WithContext(ctx)

	var agents []model.User
	if err := db.Where("role = ?", model.RoleCustomerCare).Find(&agents).Error; err != nil {
		return 0, err
	}
	if len(agents) == 0 {
		return 0, nil
	}

	var best uint
	bestLoad := int64(-1)
	for _, agent := range agents {
		var load int64
		if err := db.Model(&model.SupportTicket{}).
			Where("assigned_agent_id = ? AND status IN ?", agent.ID, model.OpenTicketStatuses).
			Count(&load).Error; err != nil {
			return 0, err
		}
		if bestLoad == -1 || load < bestLoad {
			best = agent.ID
			bestLoad = load
		}
	}
	return best, nil
}

// AddUserResponse appends a reply from the ticket's owner. A reply on a
// resolved/closed ticket reopens it; otherwise the ticket moves to
// in-progress. Only the user who raised the ticket may reply here; agents
// reply through AddAgentResponse.
func (s *TicketService) AddUserResponse(ctx context.Context, ticketID, userID uint, body string) (*model.SupportTicket, error) {
	var ticket model.SupportTicket
	if err := s.db.WithContext(ctx).First(&ticket, ticketID).Error; err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, ErrNotTicketOwner
	}

	response := model.TicketResponse{TicketID: ticketID, UserID: userID, Body: body}
	if err := s.db.WithContext(ctx).Create(&response).Error; err != nil {
		return nil, fmt.Errorf("failed to add response: %w", err)
	}

	next := model.TicketInProgress
	if ticket.Status.IsClosedState() {
		next = model.TicketReopened
	}
	if err := s.setStatus(ctx, &ticket, next, userID, false); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// AddAgentResponse appends an agent reply and moves the ticket to
// awaiting_user, recording the transition in the history log.
func (s *TicketService) AddAgentResponse(ctx context.Context, ticketID, agentID uint, body string) (*model.SupportTicket, error) {
	var ticket model.SupportTicket
	if err := s.db.WithContext(ctx).First(&ticket, ticketID).Error; err != nil {
		return nil, err
	}

	response := model.TicketResponse{TicketID: ticketID, UserID: agentID, Body: body, IsAgent: true}
	if err := s.db.WithContext(ctx).Create(&response).Error; err != nil {
		return nil, fmt.Errorf("failed to add response: %w", err)
	}

	if err := s.setStatus(ctx, &ticket, model.TicketAwaitingUser, agentID, true); err != nil {
		return nil, err
	}

	s.notifications.Dispatch(ctx, DispatchRequest{
		UserID:   ticket.UserID,
		Type:     model.NotificationTypeInfo,
		Category: model.NotificationCategorySupport,
		Title:    "Support replied",
		Message:  fmt.Sprintf("There is a new reply on ticket %s.", ticket.TicketNumber),
		Metadata: &model.NotificationMetadata{TicketID: ticket.ID},
		Email:    true,
	})

	return &ticket, nil
}

// UpdateByAgent applies agent-driven status/priority/assignment changes, each
// recorded as a history entry.
func (s *TicketService) UpdateByAgent(ctx context.Context, ticketID, agentID uint, status *model.TicketStatus, priority *model.TicketPriority, assigneeID *uint) (*model.SupportTicket, error) {
	var ticket model.SupportTicket
	if err := s.db.WithContext(ctx).First(&ticket, ticketID).Error; err != nil {
		return nil, err
	}

	if priority != nil && *priority != ticket.Priority {
		s.appendHistory(ctx, ticket.ID, agentID, "priority", string(ticket.Priority), string(*priority))
		ticket.Priority = *priority
	}
	if assigneeID != nil {
		from := ""
		if ticket.AssignedAgentID != nil {
			from = fmt.Sprintf("%d", *ticket.AssignedAgentID)
		}
		s.appendHistory(ctx, ticket.ID, agentID, "assigned_agent", from, fmt.Sprintf("%d", *assigneeID))
		ticket.AssignedAgentID = assigneeID
	}
	if err := s.db.WithContext(ctx).Save(&ticket).Error; err != nil {
		return nil, err
	}

	if status != nil && *status != ticket.Status {
		if err := s.setStatus(ctx, &ticket, *status, agentID, true); err != nil {
			return nil, err
		}
	}
	return &ticket, nil
}

// setStatus applies a status change and the ClosedAt rule: ClosedAt is set
// exactly when the status enters {resolved, closed} and cleared when it
// leaves that set. Agent-driven changes are recorded in the history log.
func (s *TicketService) setStatus(ctx context.Context, ticket *model.SupportTicket, next model.TicketStatus, actorID uint, byAgent bool) error {
	prev := ticket.Status
	if prev == next {
		return nil
	}

	ticket.Status = next
	switch {
	case next.IsClosedState() && ticket.ClosedAt == nil:
		now := time.Now()
		ticket.ClosedAt = &now
	case !next.IsClosedState() && ticket.ClosedAt != nil:
		ticket.ClosedAt = nil
	}

	if err := s.db.WithContext(ctx).Save(ticket).Error; err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	if byAgent {
		s.appendHistory(ctx, ticket.ID, actorID, "status", string(prev), string(next))
	}
	return nil
}

// appendHistory writes one audit entry; failures are logged, never fatal
func (s *TicketService) appendHistory(ctx context.Context, ticketID, actorID uint, field, from, to string) {
	entry := model.TicketHistory{
		TicketID: ticketID,
		ActorID:  actorID,
		Field:    field,
		From:     from,
		To:       to,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("Failed to append ticket history for ticket %d: %v", ticketID, err)
	}
}
