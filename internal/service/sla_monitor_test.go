package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/events"
	"github.com/spec-kit/helpdesk-engine/internal/service"
)

type monitorFixture struct {
	monitor    *service.SlaMonitor
	tickets    *fakeTicketRepo
	policies   *fakePolicyRepo
	dispatcher *recordingDispatcher
	email      *emailRecorder
}

func newMonitorFixture() *monitorFixture {
	tickets := newFakeTicketRepo()
	policies := newFakePolicyRepo()
	dispatcher := newRecordingDispatcher()
	email := &emailRecorder{}
	sla := service.NewSlaService(policies, tickets, zap.NewNop(), slaTestConfig())
	monitor := service.NewSlaMonitor(service.SlaMonitorDependencies{
		Sla:        sla,
		TicketRepo: tickets,
		PolicyRepo: policies,
		Dispatcher: dispatcher,
		Email:      email,
		Logger:     zap.NewNop(),
	})
	return &monitorFixture{monitor: monitor, tickets: tickets, policies: policies, dispatcher: dispatcher, email: email}
}

func TestSweepBreachIsOneShot(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()

	past := time.Now().Add(-30 * time.Minute)
	f.tickets.add(domain.Ticket{
		ID:           "t1",
		TicketNumber: "TKT-1",
		Status:       domain.TicketStatusAssigned,
		Priority:     domain.TicketPriorityCritical,
		CreatedAt:    past.Add(-4 * time.Hour),
		SlaDeadline:  &past,
	})

	f.monitor.Sweep(ctx)
	require.Len(t, f.dispatcher.byType(events.EventSlaBreached), 1)

	stored, err := f.tickets.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.NotNil(t, stored.BreachNotifiedAt)

	// second sweep finds the marker and stays quiet
	f.monitor.Sweep(ctx)
	assert.Len(t, f.dispatcher.byType(events.EventSlaBreached), 1)
}

func TestSweepWarningsReEmit(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()

	soon := time.Now().Add(1 * time.Hour)
	f.tickets.add(domain.Ticket{
		ID:          "t1",
		Status:      domain.TicketStatusInProgress,
		Priority:    domain.TicketPriorityHigh,
		CreatedAt:   soon.Add(-24 * time.Hour),
		SlaDeadline: &soon,
	})

	f.monitor.Sweep(ctx)
	f.monitor.Sweep(ctx)
	assert.Len(t, f.dispatcher.byType(events.EventSlaWarning), 2)
	assert.Empty(t, f.dispatcher.byType(events.EventSlaBreached))
}

func TestSweepEscalationEmail(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		policy      *domain.SlaPolicy
		expectEmail bool
	}{
		"NotifyWithAddress": {
			policy: &domain.SlaPolicy{
				Priority:            domain.TicketPriorityCritical,
				ResponseTimeHours:   1,
				ResolutionTimeHours: 4,
				IsActive:            true,
				NotifyOnBreach:      true,
				EscalationEmail:     "oncall@example.com",
			},
			expectEmail: true,
		},
		"NotifyDisabled": {
			policy: &domain.SlaPolicy{
				Priority:            domain.TicketPriorityCritical,
				ResponseTimeHours:   1,
				ResolutionTimeHours: 4,
				IsActive:            true,
				NotifyOnBreach:      false,
				EscalationEmail:     "oncall@example.com",
			},
			expectEmail: false,
		},
		"NoAddress": {
			policy: &domain.SlaPolicy{
				Priority:            domain.TicketPriorityCritical,
				ResponseTimeHours:   1,
				ResolutionTimeHours: 4,
				IsActive:            true,
				NotifyOnBreach:      true,
			},
			expectEmail: false,
		},
		"NoPolicy": {
			expectEmail: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newMonitorFixture()
			if tc.policy != nil {
				require.NoError(t, f.policies.Create(ctx, tc.policy))
			}

			past := time.Now().Add(-time.Hour)
			f.tickets.add(domain.Ticket{
				ID:           "t1",
				TicketNumber: "TKT-1",
				Status:       domain.TicketStatusAssigned,
				Priority:     domain.TicketPriorityCritical,
				CreatedAt:    past.Add(-4 * time.Hour),
				SlaDeadline:  &past,
			})

			f.monitor.Sweep(ctx)
			if tc.expectEmail {
				require.Len(t, f.email.sent, 1)
				assert.Equal(t, "oncall@example.com", f.email.sent[0].To)
				assert.Contains(t, f.email.sent[0].Subject, "TKT-1")
			} else {
				assert.Empty(t, f.email.sent)
			}
		})
	}
}

func TestSweepEmailFailureStillMarksBreach(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	f.email.sendErr = assert.AnError
	require.NoError(t, f.policies.Create(ctx, &domain.SlaPolicy{
		Priority:            domain.TicketPriorityCritical,
		ResponseTimeHours:   1,
		ResolutionTimeHours: 4,
		IsActive:            true,
		NotifyOnBreach:      true,
		EscalationEmail:     "oncall@example.com",
	}))

	past := time.Now().Add(-time.Hour)
	f.tickets.add(domain.Ticket{
		ID:          "t1",
		Status:      domain.TicketStatusAssigned,
		Priority:    domain.TicketPriorityCritical,
		CreatedAt:   past.Add(-4 * time.Hour),
		SlaDeadline: &past,
	})

	f.monitor.Sweep(ctx)

	stored, err := f.tickets.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.NotNil(t, stored.BreachNotifiedAt)
	assert.Len(t, f.dispatcher.byType(events.EventSlaBreached), 1)
}
