package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/events"
	"github.com/spec-kit/helpdesk-engine/internal/repository"
	"github.com/spec-kit/helpdesk-engine/internal/service"
)

// fakeTicketRepo is an in-memory TicketRepository.
type fakeTicketRepo struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	order    []string
	seq      int
	countErr error
	writeErr error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	r.order = append(r.order, ticket.ID)
	return nil
}

// add seeds a ticket without going through Create.
func (r *fakeTicketRepo) add(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = &ticket
	r.order = append(r.order, ticket.ID)
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return errors.New("not found")
	}
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	ticket, ok := r.tickets[id]
	if !ok {
		return errors.New("not found")
	}
	for key, value := range fields {
		switch key {
		case "status":
			ticket.Status = value.(domain.TicketStatus)
		case "priority":
			ticket.Priority = value.(domain.TicketPriority)
		case "assignedAgentId":
			if value == nil {
				ticket.AssignedAgentID = nil
			} else {
				agentID := value.(string)
				ticket.AssignedAgentID = &agentID
			}
		case "assignedAt":
			ticket.AssignedAt = timePtr(value)
		case "attendingAt":
			ticket.AttendingAt = timePtr(value)
		case "resolvedAt":
			ticket.ResolvedAt = timePtr(value)
		case "closedAt":
			ticket.ClosedAt = timePtr(value)
		case "slaDeadline":
			ticket.SlaDeadline = timePtr(value)
		case "breachNotifiedAt":
			ticket.BreachNotifiedAt = timePtr(value)
		default:
			return fmt.Errorf("unknown field %q", key)
		}
	}
	ticket.UpdatedAt = time.Now()
	return nil
}

func timePtr(value any) *time.Time {
	if value == nil {
		return nil
	}
	t := value.(time.Time)
	return &t
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, errors.New("ticket not found")
	}
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if r.tickets[id].TicketNumber == number {
			clone := *r.tickets[id]
			return &clone, nil
		}
	}
	return nil, errors.New("ticket not found")
}

func (r *fakeTicketRepo) FindActiveTickets(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []domain.Ticket{}
	for _, id := range r.order {
		if !r.tickets[id].Status.IsTerminal() {
			result = append(result, *r.tickets[id])
		}
	}
	return result, nil
}

func (r *fakeTicketRepo) CountAssigned(_ context.Context, agentID string, excludeStatuses []domain.TicketStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	excluded := map[domain.TicketStatus]bool{}
	for _, status := range excludeStatuses {
		excluded[status] = true
	}
	count := 0
	for _, id := range r.order {
		ticket := r.tickets[id]
		if ticket.AssignedAgentID != nil && *ticket.AssignedAgentID == agentID && !excluded[ticket.Status] {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	statuses := map[domain.TicketStatus]bool{}
	for _, status := range filter.Statuses {
		statuses[status] = true
	}
	result := []domain.Ticket{}
	for _, id := range r.order {
		ticket := r.tickets[id]
		if len(statuses) > 0 && !statuses[ticket.Status] {
			continue
		}
		if filter.HasDeadline != nil && *filter.HasDeadline != (ticket.SlaDeadline != nil) {
			continue
		}
		if filter.AgentID != nil && (ticket.AssignedAgentID == nil || *ticket.AssignedAgentID != *filter.AgentID) {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

// fakeAgentRepo is an in-memory AgentRepository.
type fakeAgentRepo struct {
	mu      sync.Mutex
	agents  []domain.Agent
	seq     int
	findErr error
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{}
}

func (r *fakeAgentRepo) Create(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if agent.ID == "" {
		agent.ID = fmt.Sprintf("agent-%d", r.seq)
	}
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = agent.CreatedAt
	r.agents = append(r.agents, *agent)
	return nil
}

func (r *fakeAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.agents {
		if r.agents[i].ID == id {
			clone := r.agents[i]
			return &clone, nil
		}
	}
	return nil, errors.New("agent not found")
}

func (r *fakeAgentRepo) FindAvailable(_ context.Context) ([]domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	result := []domain.Agent{}
	for _, agent := range r.agents {
		if agent.IsAvailable {
			result = append(result, agent)
		}
	}
	return result, nil
}

func (r *fakeAgentRepo) List(_ context.Context) ([]domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Agent{}, r.agents...), nil
}

func (r *fakeAgentRepo) SetAvailability(_ context.Context, id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.agents {
		if r.agents[i].ID == id {
			r.agents[i].IsAvailable = available
			return nil
		}
	}
	return errors.New("agent not found")
}

// fakePolicyRepo is an in-memory SlaPolicyRepository.
type fakePolicyRepo struct {
	mu       sync.Mutex
	policies []domain.SlaPolicy
	seq      int
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{}
}

func (r *fakePolicyRepo) Create(_ context.Context, policy *domain.SlaPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if policy.ID == "" {
		policy.ID = fmt.Sprintf("policy-%d", r.seq)
	}
	r.policies = append(r.policies, *policy)
	return nil
}

func (r *fakePolicyRepo) Update(_ context.Context, policy *domain.SlaPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.policies {
		if r.policies[i].ID == policy.ID {
			r.policies[i] = *policy
			return nil
		}
	}
	return errors.New("policy not found")
}

func (r *fakePolicyRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.policies {
		if r.policies[i].ID == id {
			r.policies = append(r.policies[:i], r.policies[i+1:]...)
			return nil
		}
	}
	return errors.New("policy not found")
}

func (r *fakePolicyRepo) GetByID(_ context.Context, id string) (*domain.SlaPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.policies {
		if r.policies[i].ID == id {
			clone := r.policies[i]
			return &clone, nil
		}
	}
	return nil, errors.New("policy not found")
}

func (r *fakePolicyRepo) FindByPriority(_ context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.policies {
		if r.policies[i].Priority == priority && r.policies[i].IsActive {
			clone := r.policies[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakePolicyRepo) List(_ context.Context) ([]domain.SlaPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SlaPolicy{}, r.policies...), nil
}

func (r *fakePolicyRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.policies), nil
}

// fakeWorkflowRepo is an in-memory WorkflowRepository.
type fakeWorkflowRepo struct {
	mu        sync.Mutex
	workflows []domain.Workflow
	seq       int
}

func newFakeWorkflowRepo() *fakeWorkflowRepo {
	return &fakeWorkflowRepo{}
}

func (r *fakeWorkflowRepo) Create(_ context.Context, workflow *domain.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if workflow.ID == "" {
		workflow.ID = fmt.Sprintf("workflow-%d", r.seq)
	}
	r.workflows = append(r.workflows, *workflow)
	return nil
}

func (r *fakeWorkflowRepo) Update(_ context.Context, workflow *domain.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.workflows {
		if r.workflows[i].ID == workflow.ID {
			r.workflows[i] = *workflow
			return nil
		}
	}
	return errors.New("workflow not found")
}

func (r *fakeWorkflowRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.workflows {
		if r.workflows[i].ID == id {
			r.workflows = append(r.workflows[:i], r.workflows[i+1:]...)
			return nil
		}
	}
	return errors.New("workflow not found")
}

func (r *fakeWorkflowRepo) GetByID(_ context.Context, id string) (*domain.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.workflows {
		if r.workflows[i].ID == id {
			clone := r.workflows[i]
			return &clone, nil
		}
	}
	return nil, errors.New("workflow not found")
}

func (r *fakeWorkflowRepo) FindActiveByTrigger(_ context.Context, trigger domain.WorkflowTrigger) ([]domain.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []domain.Workflow{}
	for _, workflow := range r.workflows {
		if workflow.IsActive && workflow.Trigger == trigger {
			result = append(result, workflow)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority < result[j].Priority
	})
	return result, nil
}

func (r *fakeWorkflowRepo) List(_ context.Context) ([]domain.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Workflow{}, r.workflows...), nil
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu       sync.Mutex
	events   []events.Event
	handlers map[events.EventType][]events.EventHandler
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{handlers: map[events.EventType][]events.EventHandler{}}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	handlers := append([]events.EventHandler{}, d.handlers[event.Type]...)
	d.mu.Unlock()
	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	matched := []events.Event{}
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// emailRecorder captures outbound email.
type emailRecorder struct {
	mu      sync.Mutex
	sent    []service.EmailMessage
	sendErr error
}

func (e *emailRecorder) Send(_ context.Context, msg service.EmailMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sendErr != nil {
		return e.sendErr
	}
	e.sent = append(e.sent, msg)
	return nil
}

// notifyRecorder captures in-app notifications.
type notifyRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (n *notifyRecorder) NotifyUser(_ context.Context, userID, eventName string, _ map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, userID+":"+eventName)
	return nil
}

// actionRecorder implements service.TicketActions for rule engine tests.
type actionRecorder struct {
	mu    sync.Mutex
	calls []string
	errOn string
}

func (a *actionRecorder) record(call string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
	if a.errOn != "" && call == a.errOn {
		return errors.New("action failed")
	}
	return nil
}

func (a *actionRecorder) AssignAgent(_ context.Context, ticketID, agentID string) error {
	return a.record("assign:" + ticketID + ":" + agentID)
}

func (a *actionRecorder) UpdateStatus(_ context.Context, ticketID string, status domain.TicketStatus, _ string) error {
	return a.record("status:" + ticketID + ":" + string(status))
}

func (a *actionRecorder) UpdatePriority(_ context.Context, ticketID string, priority domain.TicketPriority) error {
	return a.record("priority:" + ticketID + ":" + string(priority))
}

func (a *actionRecorder) Escalate(_ context.Context, ticketID string, levels int) error {
	return a.record(fmt.Sprintf("escalate:%s:%d", ticketID, levels))
}
