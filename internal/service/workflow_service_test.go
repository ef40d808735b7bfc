package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/events"
	"github.com/spec-kit/helpdesk-engine/internal/service"
)

type workflowFixture struct {
	svc      *service.WorkflowService
	rules    *fakeWorkflowRepo
	tickets  *fakeTicketRepo
	actions  *actionRecorder
	email    *emailRecorder
	notifier *notifyRecorder
}

func newWorkflowFixture() *workflowFixture {
	rules := newFakeWorkflowRepo()
	tickets := newFakeTicketRepo()
	actions := &actionRecorder{}
	email := &emailRecorder{}
	notifier := &notifyRecorder{}
	svc := service.NewWorkflowService(service.WorkflowDependencies{
		WorkflowRepo: rules,
		TicketRepo:   tickets,
		Email:        email,
		Notifier:     notifier,
		Logger:       zap.NewNop(),
	})
	svc.SetTicketActions(actions)
	return &workflowFixture{svc: svc, rules: rules, tickets: tickets, actions: actions, email: email, notifier: notifier}
}

func criticalTicketContext() map[string]any {
	return service.BuildRuleContext(&domain.Ticket{
		ID:           "t1",
		TicketNumber: "TKT-1",
		Title:        "VPN outage",
		Category:     "network",
		Status:       domain.TicketStatusNew,
		Priority:     domain.TicketPriorityCritical,
	}, nil)
}

func TestExecuteConditions(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		conditions []domain.WorkflowCondition
		expectRun  bool
	}{
		"EmptyConditionsAlwaysRun": {
			conditions: nil,
			expectRun:  true,
		},
		"EqualsMatch": {
			conditions: []domain.WorkflowCondition{
				{Field: "ticket.priority", Operator: domain.OperatorEquals, Value: "critical"},
			},
			expectRun: true,
		},
		"EqualsMismatch": {
			conditions: []domain.WorkflowCondition{
				{Field: "ticket.priority", Operator: domain.OperatorEquals, Value: "low"},
			},
			expectRun: false,
		},
		"NotEquals": {
			conditions: []domain.WorkflowCondition{
				{Field: "ticket.status", Operator: domain.OperatorNotEquals, Value: "closed"},
			},
			expectRun: true,
		},
		"Contains": {
			conditions: []domain.WorkflowCondition{
				{Field: "ticket.title", Operator: domain.OperatorContains, Value: "VPN"},
			},
			expectRun: true,
		},
		"AllMustHold": {
			conditions: []domain.WorkflowCondition{
				{Field: "ticket.priority", Operator: domain.OperatorEquals, Value: "critical"},
				{Field: "ticket.category", Operator: domain.OperatorEquals, Value: "billing"},
			},
			expectRun: false,
		},
		"MissingFieldFailsQuietly": {
			conditions: []domain.WorkflowCondition{
				{Field: "ticket.nonexistent.deep", Operator: domain.OperatorEquals, Value: "x"},
			},
			expectRun: false,
		},
		"UnknownOperatorFailsClosed": {
			conditions: []domain.WorkflowCondition{
				{Field: "ticket.priority", Operator: "regex_match", Value: ".*"},
			},
			expectRun: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newWorkflowFixture()
			require.NoError(t, f.rules.Create(ctx, &domain.Workflow{
				Name:       "rule",
				IsActive:   true,
				Trigger:    domain.TriggerTicketCreated,
				Conditions: tc.conditions,
				Actions: []domain.WorkflowAction{
					{Type: domain.ActionSetStatus, Config: map[string]any{"status": "pending"}},
				},
			}))

			f.svc.Execute(ctx, domain.TriggerTicketCreated, criticalTicketContext())
			if tc.expectRun {
				assert.Equal(t, []string{"status:t1:pending"}, f.actions.calls)
			} else {
				assert.Empty(t, f.actions.calls)
			}
		})
	}
}

func TestExecuteNumericOperators(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	require.NoError(t, f.rules.Create(ctx, &domain.Workflow{
		Name:     "big spender",
		IsActive: true,
		Trigger:  domain.TriggerTicketCreated,
		Conditions: []domain.WorkflowCondition{
			{Field: "event.amount", Operator: domain.OperatorGreaterThan, Value: 100},
			{Field: "event.amount", Operator: domain.OperatorLessThan, Value: 1000},
		},
		Actions: []domain.WorkflowAction{
			{Type: domain.ActionEscalate, Config: map[string]any{"level": 2}},
		},
	}))

	ruleCtx := criticalTicketContext()
	ruleCtx["event"] = map[string]any{"amount": 500.0}
	f.svc.Execute(ctx, domain.TriggerTicketCreated, ruleCtx)
	assert.Equal(t, []string{"escalate:t1:2"}, f.actions.calls)
}

func TestExecuteActionFailureIsolation(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	f.actions.errOn = "status:t1:pending"

	require.NoError(t, f.rules.Create(ctx, &domain.Workflow{
		Name:     "first",
		IsActive: true,
		Priority: 1,
		Trigger:  domain.TriggerTicketCreated,
		Actions: []domain.WorkflowAction{
			{Type: domain.ActionSetStatus, Config: map[string]any{"status": "pending"}},
			{Type: domain.ActionSetPriority, Config: map[string]any{"priority": "high"}},
		},
	}))
	require.NoError(t, f.rules.Create(ctx, &domain.Workflow{
		Name:     "second",
		IsActive: true,
		Priority: 2,
		Trigger:  domain.TriggerTicketCreated,
		Actions: []domain.WorkflowAction{
			{Type: domain.ActionAssignAgent, Config: map[string]any{"agentId": "a1"}},
		},
	}))

	f.svc.Execute(ctx, domain.TriggerTicketCreated, criticalTicketContext())
	// the failing first action does not stop the rest of its rule nor the
	// next rule
	assert.Equal(t, []string{
		"status:t1:pending",
		"priority:t1:high",
		"assign:t1:a1",
	}, f.actions.calls)
}

func TestExecuteRuleOrdering(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()

	require.NoError(t, f.rules.Create(ctx, &domain.Workflow{
		Name: "later", IsActive: true, Priority: 10, Trigger: domain.TriggerTicketCreated,
		Actions: []domain.WorkflowAction{{Type: domain.ActionSetStatus, Config: map[string]any{"status": "closed"}}},
	}))
	require.NoError(t, f.rules.Create(ctx, &domain.Workflow{
		Name: "earlier", IsActive: true, Priority: 1, Trigger: domain.TriggerTicketCreated,
		Actions: []domain.WorkflowAction{{Type: domain.ActionSetStatus, Config: map[string]any{"status": "pending"}}},
	}))
	require.NoError(t, f.rules.Create(ctx, &domain.Workflow{
		Name: "inactive", IsActive: false, Priority: 0, Trigger: domain.TriggerTicketCreated,
		Actions: []domain.WorkflowAction{{Type: domain.ActionSetStatus, Config: map[string]any{"status": "new"}}},
	}))

	f.svc.Execute(ctx, domain.TriggerTicketCreated, criticalTicketContext())
	assert.Equal(t, []string{"status:t1:pending", "status:t1:closed"}, f.actions.calls)
}

func TestExecuteNotifyAndEmailActions(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	require.NoError(t, f.rules.Create(ctx, &domain.Workflow{
		Name:     "notify",
		IsActive: true,
		Trigger:  domain.TriggerTicketAssigned,
		Actions: []domain.WorkflowAction{
			{Type: domain.ActionNotifyAgent, Config: map[string]any{"title": "New ticket"}},
			{Type: domain.ActionSendEmail, Config: map[string]any{"to": "team@example.com", "subject": "assigned", "body": "<p>hi</p>"}},
		},
	}))

	agentID := "agent-7"
	ruleCtx := service.BuildRuleContext(&domain.Ticket{
		ID:              "t1",
		Priority:        domain.TicketPriorityHigh,
		Status:          domain.TicketStatusAssigned,
		AssignedAgentID: &agentID,
	}, nil)

	f.svc.Execute(ctx, domain.TriggerTicketAssigned, ruleCtx)
	assert.Equal(t, []string{"agent-7:workflow"}, f.notifier.calls)
	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "team@example.com", f.email.sent[0].To)
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadsTicketAndRunsTrigger", func(t *testing.T) {
		f := newWorkflowFixture()
		f.tickets.add(domain.Ticket{
			ID:       "t1",
			Status:   domain.TicketStatusNew,
			Priority: domain.TicketPriorityCritical,
		})
		require.NoError(t, f.rules.Create(ctx, &domain.Workflow{
			Name:     "escalate criticals",
			IsActive: true,
			Trigger:  domain.TriggerSlaBreached,
			Conditions: []domain.WorkflowCondition{
				{Field: "ticket.priority", Operator: domain.OperatorEquals, Value: "critical"},
			},
			Actions: []domain.WorkflowAction{
				{Type: domain.ActionSetStatus, Config: map[string]any{"status": "pending"}},
			},
		}))

		err := f.svc.HandleEvent(ctx, events.Event{Type: events.EventSlaBreached, TicketID: "t1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"status:t1:pending"}, f.actions.calls)
	})

	t.Run("UnknownTicketIsSwallowed", func(t *testing.T) {
		f := newWorkflowFixture()
		err := f.svc.HandleEvent(ctx, events.Event{Type: events.EventSlaBreached, TicketID: "missing"})
		require.NoError(t, err)
		assert.Empty(t, f.actions.calls)
	})
}

func TestBuildRuleContext(t *testing.T) {
	agentID := "agent-1"
	ruleCtx := service.BuildRuleContext(&domain.Ticket{
		ID:              "t1",
		TicketNumber:    "TKT-9",
		Title:           "printer on fire",
		Category:        "hardware",
		Status:          domain.TicketStatusAssigned,
		Priority:        domain.TicketPriorityHigh,
		RequesterEmail:  "user@example.com",
		AssignedAgentID: &agentID,
	}, map[string]any{"old_status": "new"})

	assert.Equal(t, "t1", ruleCtx["ticketId"])
	assert.Equal(t, "agent-1", ruleCtx["agentId"])
	ticketNode := ruleCtx["ticket"].(map[string]any)
	assert.Equal(t, "TKT-9", ticketNode["number"])
	assert.Equal(t, "high", ticketNode["priority"])
	eventNode := ruleCtx["event"].(map[string]any)
	assert.Equal(t, "new", eventNode["old_status"])
}

func TestWorkflowValidation(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()

	err := f.svc.CreateWorkflow(ctx, &domain.Workflow{Name: "bad", Trigger: "on_full_moon"})
	assert.Error(t, err)

	err = f.svc.CreateWorkflow(ctx, &domain.Workflow{Trigger: domain.TriggerTicketCreated})
	assert.Error(t, err)

	err = f.svc.CreateWorkflow(ctx, &domain.Workflow{Name: "ok", Trigger: domain.TriggerTicketCreated})
	assert.NoError(t, err)
}
