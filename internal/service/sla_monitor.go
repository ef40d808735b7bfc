package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/events"
	"github.com/spec-kit/helpdesk-engine/internal/observability"
	"github.com/spec-kit/helpdesk-engine/internal/repository"
)

// SlaMonitor periodically sweeps active tickets with a deadline, partitions
// them into breached and near-breach, and emits rule-engine triggers and
// escalation emails. A failed notification never blocks the sweep.
type SlaMonitor struct {
	sla        *SlaService
	tickets    repository.TicketRepository
	policies   repository.SlaPolicyRepository
	dispatcher events.Dispatcher
	email      EmailSink
	logger     *zap.Logger
}

// SlaMonitorDependencies bundles collaborators.
type SlaMonitorDependencies struct {
	Sla        *SlaService
	TicketRepo repository.TicketRepository
	PolicyRepo repository.SlaPolicyRepository
	Dispatcher events.Dispatcher
	Email      EmailSink
	Logger     *zap.Logger
}

// NewSlaMonitor creates the monitor.
func NewSlaMonitor(deps SlaMonitorDependencies) *SlaMonitor {
	return &SlaMonitor{
		sla:        deps.Sla,
		tickets:    deps.TicketRepo,
		policies:   deps.PolicyRepo,
		dispatcher: deps.Dispatcher,
		email:      deps.Email,
		logger:     deps.Logger,
	}
}

// Sweep runs one monitor pass. Breach notifications are one-shot per breach
// transition: tickets carrying a breachNotifiedAt marker are skipped, so an
// already-breached ticket does not re-notify on every sweep. Warnings are
// re-emitted for every sweep in which the ticket sits inside the near-breach
// window.
func (m *SlaMonitor) Sweep(ctx context.Context) {
	now := time.Now()

	breached, err := m.sla.FindBreached(ctx, now)
	if err != nil {
		m.logger.Error("sla sweep: failed to fetch breached tickets", zap.Error(err))
		return
	}
	nearBreach, err := m.sla.FindNearBreach(ctx, now)
	if err != nil {
		m.logger.Error("sla sweep: failed to fetch near-breach tickets", zap.Error(err))
		return
	}

	for i := range breached {
		m.handleBreach(ctx, &breached[i], now)
	}
	for i := range nearBreach {
		m.emitWarning(ctx, &nearBreach[i], now)
	}

	observability.SweepsTotal.Inc()
	observability.LastSweepBreached.Set(float64(len(breached)))
	observability.LastSweepAtRisk.Set(float64(len(nearBreach)))
	m.logger.Info("sla sweep completed",
		zap.Int("breached", len(breached)),
		zap.Int("near_breach", len(nearBreach)))
}

func (m *SlaMonitor) handleBreach(ctx context.Context, ticket *domain.Ticket, now time.Time) {
	if ticket.BreachNotifiedAt != nil {
		return
	}

	deadline := *ticket.SlaDeadline
	m.publish(ctx, events.Event{
		Type:     events.EventSlaBreached,
		TicketID: ticket.ID,
		Payload: events.SlaBreachedPayload{
			Deadline: deadline,
			Overdue:  now.Sub(deadline).Round(time.Second).String(),
		},
	})
	observability.BreachNotificationsTotal.Inc()

	m.sendEscalationEmail(ctx, ticket)

	// The marker is what makes the breach one-shot. If this write fails the
	// ticket re-notifies on the next sweep, which beats dropping the breach.
	if err := m.tickets.UpdateFields(ctx, ticket.ID, map[string]any{
		"breachNotifiedAt": now,
	}); err != nil {
		m.logger.Warn("failed to mark breach as notified",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	ticket.BreachNotifiedAt = &now
}

func (m *SlaMonitor) sendEscalationEmail(ctx context.Context, ticket *domain.Ticket) {
	policy, err := m.policies.FindByPriority(ctx, ticket.Priority)
	if err != nil {
		m.logger.Warn("failed to load policy for breach escalation",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	if policy == nil || !policy.NotifyOnBreach || policy.EscalationEmail == "" {
		return
	}
	msg := EmailMessage{
		To:      policy.EscalationEmail,
		Subject: fmt.Sprintf("SLA breached: %s", ticket.TicketNumber),
		HTML: fmt.Sprintf("<h2>SLA breached</h2><p>Ticket %s (%s) has passed its SLA deadline.</p>",
			ticket.TicketNumber, ticket.Title),
	}
	if err := m.email.Send(ctx, msg); err != nil {
		m.logger.Warn("failed to send breach escalation email",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (m *SlaMonitor) emitWarning(ctx context.Context, ticket *domain.Ticket, now time.Time) {
	deadline := *ticket.SlaDeadline
	m.publish(ctx, events.Event{
		Type:     events.EventSlaWarning,
		TicketID: ticket.ID,
		Payload: events.SlaWarningPayload{
			Deadline:  deadline,
			Remaining: deadline.Sub(now).Round(time.Second).String(),
		},
	})
	observability.WarningNotificationsTotal.Inc()
}

func (m *SlaMonitor) publish(ctx context.Context, event events.Event) {
	if m.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = m.dispatcher.Publish(ctx, event)
}
