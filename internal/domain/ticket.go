package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ActiveStatuses are the states that count against an agent's workload and
// remain subject to SLA monitoring.
var ActiveStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusPending,
}

// TerminalStatuses are excluded from workload counts and SLA sweeps.
var TerminalStatuses = []TicketStatus{
	TicketStatusResolved,
	TicketStatusClosed,
}

// IsTerminal reports whether the status ends SLA tracking.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Valid reports whether the status is one of the known values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Priorities lists all priorities from most to least urgent.
var Priorities = []TicketPriority{
	TicketPriorityCritical,
	TicketPriorityHigh,
	TicketPriorityMedium,
	TicketPriorityLow,
}

// Escalate returns the next priority toward critical.
func (p TicketPriority) Escalate() TicketPriority {
	switch p {
	case TicketPriorityLow:
		return TicketPriorityMedium
	case TicketPriorityMedium:
		return TicketPriorityHigh
	default:
		return TicketPriorityCritical
	}
}

// Valid reports whether the priority is one of the known values.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// Lifecycle timestamps only move forward: once ResolvedAt or ClosedAt is set
// it is never cleared.
type Ticket struct {
	ID               string
	TicketNumber     string
	RequesterID      string
	RequesterEmail   string
	Title            string
	Description      string
	Category         string
	Status           TicketStatus
	Priority         TicketPriority
	AssignedAgentID  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	AssignedAt       *time.Time
	AttendingAt      *time.Time
	ResolvedAt       *time.Time
	ClosedAt         *time.Time
	SlaDeadline      *time.Time
	BreachNotifiedAt *time.Time
}

// ClosingTime returns the timestamp at which the ticket left the active set,
// or nil while it is still active. ResolvedAt wins over ClosedAt for tickets
// that went through both.
func (t *Ticket) ClosingTime() *time.Time {
	if t.ResolvedAt != nil {
		return t.ResolvedAt
	}
	return t.ClosedAt
}
