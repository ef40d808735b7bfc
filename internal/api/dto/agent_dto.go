package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	IsAvailable    bool     `json:"is_available"`
	Skills         []string `json:"skills"`
	TicketCapacity int      `json:"ticket_capacity"`
}

// SetAvailabilityRequest payload.
type SetAvailabilityRequest struct {
	Available bool `json:"available"`
}

// AgentResponse representation.
type AgentResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	IsAvailable    bool      `json:"is_available"`
	Skills         []string  `json:"skills"`
	TicketCapacity int       `json:"ticket_capacity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AgentFromDomain maps a domain agent to its response shape.
func AgentFromDomain(agent *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:             agent.ID,
		Name:           agent.Name,
		Email:          agent.Email,
		IsAvailable:    agent.IsAvailable,
		Skills:         agent.Skills,
		TicketCapacity: agent.TicketCapacity,
		CreatedAt:      agent.CreatedAt,
		UpdatedAt:      agent.UpdatedAt,
	}
}
