package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-engine/internal/api/dto"
	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/service"
	apperrors "github.com/spec-kit/helpdesk-engine/pkg/util"
)

// WorkflowsHandler manages workflow rule endpoints.
type WorkflowsHandler struct {
	service *service.WorkflowService
}

// NewWorkflowsHandler constructs handler.
func NewWorkflowsHandler(workflowService *service.WorkflowService) *WorkflowsHandler {
	return &WorkflowsHandler{service: workflowService}
}

// CreateWorkflow POST /workflows.
func (h *WorkflowsHandler) CreateWorkflow(c *fiber.Ctx) error {
	var req dto.WorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	workflow := workflowFromRequest(req)
	if err := h.service.CreateWorkflow(c.UserContext(), workflow); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.WorkflowFromDomain(workflow)})
}

// UpdateWorkflow PUT /workflows/:id.
func (h *WorkflowsHandler) UpdateWorkflow(c *fiber.Ctx) error {
	var req dto.WorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	workflow := workflowFromRequest(req)
	workflow.ID = c.Params("id")
	if err := h.service.UpdateWorkflow(c.UserContext(), workflow); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.WorkflowFromDomain(workflow)})
}

// DeleteWorkflow DELETE /workflows/:id.
func (h *WorkflowsHandler) DeleteWorkflow(c *fiber.Ctx) error {
	if err := h.service.DeleteWorkflow(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetWorkflow GET /workflows/:id.
func (h *WorkflowsHandler) GetWorkflow(c *fiber.Ctx) error {
	workflow, err := h.service.GetWorkflow(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.WorkflowFromDomain(workflow)})
}

// ListWorkflows GET /workflows.
func (h *WorkflowsHandler) ListWorkflows(c *fiber.Ctx) error {
	workflows, err := h.service.ListWorkflows(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.WorkflowResponse, 0, len(workflows))
	for i := range workflows {
		items = append(items, dto.WorkflowFromDomain(&workflows[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func workflowFromRequest(req dto.WorkflowRequest) *domain.Workflow {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &domain.Workflow{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    active,
		Trigger:     req.Trigger,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
		Priority:    req.Priority,
	}
}
