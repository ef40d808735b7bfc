package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/events"
	"github.com/spec-kit/helpdesk-engine/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-engine/pkg/util"
)

// TicketService coordinates ticket lifecycle transitions: creation with SLA
// application and auto-assignment, status/priority changes, and manual
// assignment overrides. It implements TicketActions for the rule engine.
type TicketService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	policies   repository.SlaPolicyRepository
	sla        *SlaService
	assignment *AssignmentService
	dispatcher events.Dispatcher
	email      EmailSink
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	AgentRepo  repository.AgentRepository
	PolicyRepo repository.SlaPolicyRepository
	Sla        *SlaService
	Assignment *AssignmentService
	Dispatcher events.Dispatcher
	Email      EmailSink
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	RequesterID    string
	RequesterEmail string
	Title          string
	Description    string
	Category       string
	Priority       domain.TicketPriority
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		policies:   deps.PolicyRepo,
		sla:        deps.Sla,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
		email:      deps.Email,
		logger:     deps.Logger,
	}
}

// CreateTicket creates a ticket, applies the SLA deadline for its priority,
// publishes ticket_created, and attempts auto-assignment. An assignment miss
// leaves the ticket unassigned for a later sweep or rule.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		TicketNumber:   generateTicketNumber(),
		RequesterID:    input.RequesterID,
		RequesterEmail: input.RequesterEmail,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Category:       strings.TrimSpace(input.Category),
		Status:         domain.TicketStatusNew,
		Priority:       input.Priority,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if deadline, err := s.sla.DeadlineFor(ctx, ticket); err != nil {
		s.logger.Warn("failed to compute sla deadline",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	} else if deadline != nil {
		if err := s.tickets.UpdateFields(ctx, ticket.ID, map[string]any{"slaDeadline": *deadline}); err != nil {
			s.logger.Warn("failed to persist sla deadline",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			ticket.SlaDeadline = deadline
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Category:     ticket.Category,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
		},
	})

	if s.assignment != nil {
		s.assignment.AssignTicket(ctx, ticket)
	}
	return ticket, nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	return ticket, apperrors.MapError(err)
}

// GetTicketByNumber fetches a ticket by its human-facing number.
func (s *TicketService) GetTicketByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	return ticket, apperrors.MapError(err)
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	return tickets, apperrors.MapError(err)
}

// UpdateStatus transitions ticket status. Lifecycle timestamps are
// monotonic: attending/resolved/closed markers are set on first entry and
// never cleared afterwards.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, comment string) error {
	if !newStatus.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if ticket.Status == newStatus {
		return nil
	}

	now := time.Now()
	fields := map[string]any{"status": newStatus}
	switch newStatus {
	case domain.TicketStatusInProgress:
		if ticket.AttendingAt == nil {
			fields["attendingAt"] = now
		}
	case domain.TicketStatusResolved:
		if ticket.ResolvedAt == nil {
			fields["resolvedAt"] = now
		}
	case domain.TicketStatusClosed:
		if ticket.ClosedAt == nil {
			fields["closedAt"] = now
		}
	}

	oldStatus := ticket.Status
	if err := s.tickets.UpdateFields(ctx, ticketID, fields); err != nil {
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return nil
}

// UpdatePriority changes ticket priority and recomputes the SLA deadline
// from the policy newly in effect.
func (s *TicketService) UpdatePriority(ctx context.Context, ticketID string, newPriority domain.TicketPriority) error {
	if !newPriority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if ticket.Priority == newPriority {
		return nil
	}

	oldPriority := ticket.Priority
	ticket.Priority = newPriority

	fields := map[string]any{"priority": newPriority}
	if deadline, err := s.sla.DeadlineFor(ctx, ticket); err != nil {
		s.logger.Warn("failed to recompute sla deadline",
			zap.String("ticket_id", ticketID), zap.Error(err))
	} else if deadline != nil {
		fields["slaDeadline"] = *deadline
	} else {
		fields["slaDeadline"] = nil
	}

	if err := s.tickets.UpdateFields(ctx, ticketID, fields); err != nil {
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticketID,
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return nil
}

// AssignAgent is the manual override path, distinct from auto-assignment:
// the agent comes from rule config or an operator, not the scorer.
func (s *TicketService) AssignAgent(ctx context.Context, ticketID, agentID string) error {
	if _, err := s.agents.GetByID(ctx, agentID); err != nil {
		return apperrors.MapError(err)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}

	now := time.Now()
	fields := map[string]any{
		"assignedAgentId": agentID,
		"assignedAt":      now,
	}
	if !ticket.Status.IsTerminal() {
		fields["status"] = domain.TicketStatusAssigned
	}
	if err := s.tickets.UpdateFields(ctx, ticketID, fields); err != nil {
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		Payload: events.TicketAssignedPayload{
			AgentID: &agentID,
			Auto:    false,
		},
	})
	return nil
}

// Escalate raises the ticket's priority the given number of steps toward
// critical and notifies the escalation address of the policy then in effect.
func (s *TicketService) Escalate(ctx context.Context, ticketID string, levels int) error {
	if levels < 1 {
		levels = 1
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}

	escalated := ticket.Priority
	for i := 0; i < levels; i++ {
		escalated = escalated.Escalate()
	}
	if escalated != ticket.Priority {
		if err := s.UpdatePriority(ctx, ticketID, escalated); err != nil {
			return err
		}
	}

	policy, err := s.policies.FindByPriority(ctx, escalated)
	if err != nil {
		s.logger.Warn("failed to load policy for escalation notice",
			zap.String("ticket_id", ticketID), zap.Error(err))
		return nil
	}
	if policy == nil || policy.EscalationEmail == "" {
		return nil
	}
	msg := EmailMessage{
		To:      policy.EscalationEmail,
		Subject: fmt.Sprintf("Ticket escalated: %s", ticket.TicketNumber),
		HTML: fmt.Sprintf("<h2>Ticket escalated</h2><p>Ticket %s is now %s priority.</p>",
			ticket.TicketNumber, escalated),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Warn("failed to send escalation notice",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
	return nil
}

func generateTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
