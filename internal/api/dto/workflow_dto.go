package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
)

// WorkflowRequest payload for create/update.
type WorkflowRequest struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	IsActive    *bool                      `json:"is_active"`
	Trigger     domain.WorkflowTrigger     `json:"trigger"`
	Conditions  []domain.WorkflowCondition `json:"conditions"`
	Actions     []domain.WorkflowAction    `json:"actions"`
	Priority    int                        `json:"priority"`
}

// WorkflowResponse representation.
type WorkflowResponse struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	IsActive    bool                       `json:"is_active"`
	Trigger     domain.WorkflowTrigger     `json:"trigger"`
	Conditions  []domain.WorkflowCondition `json:"conditions"`
	Actions     []domain.WorkflowAction    `json:"actions"`
	Priority    int                        `json:"priority"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// WorkflowFromDomain maps a domain workflow to its response shape.
func WorkflowFromDomain(workflow *domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:          workflow.ID,
		Name:        workflow.Name,
		Description: workflow.Description,
		IsActive:    workflow.IsActive,
		Trigger:     workflow.Trigger,
		Conditions:  workflow.Conditions,
		Actions:     workflow.Actions,
		Priority:    workflow.Priority,
		CreatedAt:   workflow.CreatedAt,
		UpdatedAt:   workflow.UpdatedAt,
	}
}
