package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
)

// SlaPolicyRequest payload for create/update.
type SlaPolicyRequest struct {
	Name                string                `json:"name"`
	Description         string                `json:"description"`
	Priority            domain.TicketPriority `json:"priority"`
	ResponseTimeHours   int                   `json:"response_time_hours"`
	ResolutionTimeHours int                   `json:"resolution_time_hours"`
	IsActive            *bool                 `json:"is_active"`
	NotifyOnBreach      bool                  `json:"notify_on_breach"`
	EscalationEmail     string                `json:"escalation_email"`
}

// SlaPolicyResponse representation.
type SlaPolicyResponse struct {
	ID                  string                `json:"id"`
	Name                string                `json:"name"`
	Description         string                `json:"description"`
	Priority            domain.TicketPriority `json:"priority"`
	ResponseTimeHours   int                   `json:"response_time_hours"`
	ResolutionTimeHours int                   `json:"resolution_time_hours"`
	IsActive            bool                  `json:"is_active"`
	NotifyOnBreach      bool                  `json:"notify_on_breach"`
	EscalationEmail     string                `json:"escalation_email"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// SlaPolicyFromDomain maps a domain policy to its response shape.
func SlaPolicyFromDomain(policy *domain.SlaPolicy) SlaPolicyResponse {
	return SlaPolicyResponse{
		ID:                  policy.ID,
		Name:                policy.Name,
		Description:         policy.Description,
		Priority:            policy.Priority,
		ResponseTimeHours:   policy.ResponseTimeHours,
		ResolutionTimeHours: policy.ResolutionTimeHours,
		IsActive:            policy.IsActive,
		NotifyOnBreach:      policy.NotifyOnBreach,
		EscalationEmail:     policy.EscalationEmail,
		CreatedAt:           policy.CreatedAt,
		UpdatedAt:           policy.UpdatedAt,
	}
}
