package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/events"
	"github.com/spec-kit/helpdesk-engine/internal/observability"
	"github.com/spec-kit/helpdesk-engine/internal/repository"
)

// AssignmentService chooses which agent receives a newly created or
// re-queued ticket.
type AssignmentService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	AgentRepo  repository.AgentRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// SelectAgent scores every candidate and returns the winner, or nil when the
// candidate list is empty or no candidate scores above zero. Candidates are
// expected to already be the available set.
//
// Ties are broken by input order: the first candidate encountered with the
// top composite score wins. extraLoad carries apparent load added by earlier
// assignments in the same batch; it may be nil.
func (s *AssignmentService) SelectAgent(ctx context.Context, ticket *domain.Ticket, candidates []domain.Agent, extraLoad map[string]int) *AgentScore {
	if len(candidates) == 0 {
		return nil
	}

	scores := make([]AgentScore, 0, len(candidates))
	for _, agent := range candidates {
		count := s.liveTicketCount(ctx, agent.ID)
		if extraLoad != nil {
			count += extraLoad[agent.ID]
		}
		scores = append(scores, ScoreAgent(ticket.Category, AgentSnapshot{
			AgentID:            agent.ID,
			Skills:             agent.Skills,
			CurrentTicketCount: count,
			IsAvailable:        agent.IsAvailable,
		}))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Composite > scores[j].Composite
	})

	best := scores[0]
	if best.Composite <= 0 {
		return nil
	}
	return &best
}

// AssignTicket runs a full auto-assignment attempt for a ticket: fetch the
// available agents, select a winner, persist the assignment, and publish the
// ticket_assigned event. Returns the winning agent id, or empty when the
// ticket stays unassigned (not an error; a later sweep or rule retries).
func (s *AssignmentService) AssignTicket(ctx context.Context, ticket *domain.Ticket) string {
	candidates, err := s.agents.FindAvailable(ctx)
	if err != nil {
		s.logger.Error("agent directory unavailable; leaving ticket unassigned",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return ""
	}

	winner := s.SelectAgent(ctx, ticket, candidates, nil)
	if winner == nil {
		observability.AssignmentMissesTotal.Inc()
		s.logger.Info("no eligible agent for ticket", zap.String("ticket_id", ticket.ID))
		return ""
	}

	if err := s.applyAssignment(ctx, ticket, winner.AgentID); err != nil {
		s.logger.Error("failed to persist assignment",
			zap.String("ticket_id", ticket.ID), zap.String("agent_id", winner.AgentID), zap.Error(err))
		return ""
	}
	return winner.AgentID
}

// AssignPending sweeps active unassigned tickets and assigns them in batch.
// Apparent load is bumped per winning agent so later selections in the same
// batch see the earlier ones. Returns the number of tickets assigned.
func (s *AssignmentService) AssignPending(ctx context.Context) int {
	pending, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusNew},
	})
	if err != nil {
		s.logger.Error("failed to list unassigned tickets", zap.Error(err))
		return 0
	}

	candidates, err := s.agents.FindAvailable(ctx)
	if err != nil {
		s.logger.Error("agent directory unavailable", zap.Error(err))
		return 0
	}

	extraLoad := map[string]int{}
	assigned := 0
	for i := range pending {
		ticket := &pending[i]
		if ticket.AssignedAgentID != nil {
			continue
		}
		winner := s.SelectAgent(ctx, ticket, candidates, extraLoad)
		if winner == nil {
			observability.AssignmentMissesTotal.Inc()
			continue
		}
		if err := s.applyAssignment(ctx, ticket, winner.AgentID); err != nil {
			s.logger.Error("failed to persist assignment",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		extraLoad[winner.AgentID]++
		assigned++
	}
	return assigned
}

func (s *AssignmentService) applyAssignment(ctx context.Context, ticket *domain.Ticket, agentID string) error {
	now := time.Now()
	if err := s.tickets.UpdateFields(ctx, ticket.ID, map[string]any{
		"assignedAgentId": agentID,
		"status":          domain.TicketStatusAssigned,
		"assignedAt":      now,
	}); err != nil {
		return err
	}
	ticket.AssignedAgentID = &agentID
	ticket.Status = domain.TicketStatusAssigned
	ticket.AssignedAt = &now

	observability.AssignmentsTotal.Inc()
	s.publishAssigned(ctx, ticket.ID, agentID)
	return nil
}

// liveTicketCount derives the agent's workload from current ticket state.
// A failed count degrades the workload contribution to zero rather than
// inflating the agent's apparent idleness.
func (s *AssignmentService) liveTicketCount(ctx context.Context, agentID string) int {
	count, err := s.tickets.CountAssigned(ctx, agentID, domain.TerminalStatuses)
	if err != nil {
		s.logger.Warn("failed to count agent workload",
			zap.String("agent_id", agentID), zap.Error(err))
		return maxWorkloadTickets
	}
	return count
}

func (s *AssignmentService) publishAssigned(ctx context.Context, ticketID, agentID string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticketID,
		Timestamp: time.Now(),
		Payload: events.TicketAssignedPayload{
			AgentID: &agentID,
			Auto:    true,
		},
	})
}
