package events

import (
	"time"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
)

// EventType enumerates supported event identifiers. The values mirror the
// workflow trigger vocabulary so events can be replayed through the rule
// engine without translation.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventSlaWarning            EventType = "sla_warning"
	EventSlaBreached           EventType = "sla_breached"
)

// Trigger converts the event type to the workflow trigger of the same name.
func (t EventType) Trigger() domain.WorkflowTrigger {
	return domain.WorkflowTrigger(t)
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Category     string                `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID *string `json:"agent_id,omitempty"`
	Auto    bool    `json:"auto"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// SlaWarningPayload payload.
type SlaWarningPayload struct {
	Deadline  time.Time `json:"deadline"`
	Remaining string    `json:"remaining"`
}

// SlaBreachedPayload payload.
type SlaBreachedPayload struct {
	Deadline time.Time `json:"deadline"`
	Overdue  string    `json:"overdue"`
}
