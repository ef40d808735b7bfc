package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	RequesterID    string                `json:"requester_id"`
	RequesterEmail string                `json:"requester_email"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Category       string                `json:"category"`
	Priority       domain.TicketPriority `json:"priority"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// AssignAgentRequest payload for manual assignment overrides.
type AssignAgentRequest struct {
	AgentID string `json:"agent_id"`
}

// EscalateRequest payload. Levels defaults to 1 when omitted.
type EscalateRequest struct {
	Levels int `json:"levels"`
}

// TicketResponse is the canonical ticket representation.
type TicketResponse struct {
	ID               string                `json:"id"`
	TicketNumber     string                `json:"ticket_number"`
	RequesterID      string                `json:"requester_id"`
	RequesterEmail   string                `json:"requester_email"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Category         string                `json:"category"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	AssignedAgentID  *string               `json:"assigned_agent_id"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	AssignedAt       *time.Time            `json:"assigned_at"`
	AttendingAt      *time.Time            `json:"attending_at"`
	ResolvedAt       *time.Time            `json:"resolved_at"`
	ClosedAt         *time.Time            `json:"closed_at"`
	SlaDeadline      *time.Time            `json:"sla_deadline"`
	BreachNotifiedAt *time.Time            `json:"breach_notified_at"`
}

// TicketFromDomain maps a domain ticket to its response shape.
func TicketFromDomain(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:               ticket.ID,
		TicketNumber:     ticket.TicketNumber,
		RequesterID:      ticket.RequesterID,
		RequesterEmail:   ticket.RequesterEmail,
		Title:            ticket.Title,
		Description:      ticket.Description,
		Category:         ticket.Category,
		Status:           ticket.Status,
		Priority:         ticket.Priority,
		AssignedAgentID:  ticket.AssignedAgentID,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
		AssignedAt:       ticket.AssignedAt,
		AttendingAt:      ticket.AttendingAt,
		ResolvedAt:       ticket.ResolvedAt,
		ClosedAt:         ticket.ClosedAt,
		SlaDeadline:      ticket.SlaDeadline,
		BreachNotifiedAt: ticket.BreachNotifiedAt,
	}
}
