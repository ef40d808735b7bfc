package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-engine/internal/api/dto"
	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/service"
	apperrors "github.com/spec-kit/helpdesk-engine/pkg/util"
)

// SlaHandler manages SLA policy and compliance endpoints.
type SlaHandler struct {
	sla     *service.SlaService
	monitor *service.SlaMonitor
}

// NewSlaHandler constructs handler.
func NewSlaHandler(sla *service.SlaService, monitor *service.SlaMonitor) *SlaHandler {
	return &SlaHandler{sla: sla, monitor: monitor}
}

// CreatePolicy POST /sla/policies.
func (h *SlaHandler) CreatePolicy(c *fiber.Ctx) error {
	var req dto.SlaPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy := policyFromRequest(req)
	if err := h.sla.CreatePolicy(c.UserContext(), policy); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.SlaPolicyFromDomain(policy)})
}

// UpdatePolicy PUT /sla/policies/:id.
func (h *SlaHandler) UpdatePolicy(c *fiber.Ctx) error {
	var req dto.SlaPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy := policyFromRequest(req)
	policy.ID = c.Params("id")
	if err := h.sla.UpdatePolicy(c.UserContext(), policy); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SlaPolicyFromDomain(policy)})
}

// DeletePolicy DELETE /sla/policies/:id.
func (h *SlaHandler) DeletePolicy(c *fiber.Ctx) error {
	if err := h.sla.DeletePolicy(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPolicies GET /sla/policies.
func (h *SlaHandler) ListPolicies(c *fiber.Ctx) error {
	policies, err := h.sla.ListPolicies(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SlaPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, dto.SlaPolicyFromDomain(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /sla/stats reports the compliance aggregate.
func (h *SlaHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.sla.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Breached GET /sla/breached lists active tickets past their deadline.
func (h *SlaHandler) Breached(c *fiber.Ctx) error {
	tickets, err := h.sla.FindBreached(c.UserContext(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// NearBreach GET /sla/near-breach lists active tickets inside the warning
// window.
func (h *SlaHandler) NearBreach(c *fiber.Ctx) error {
	tickets, err := h.sla.FindNearBreach(c.UserContext(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// RunSweep POST /sla/sweep triggers a monitor pass outside the cron
// schedule.
func (h *SlaHandler) RunSweep(c *fiber.Ctx) error {
	h.monitor.Sweep(c.UserContext())
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "completed"}})
}

func policyFromRequest(req dto.SlaPolicyRequest) *domain.SlaPolicy {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &domain.SlaPolicy{
		Name:                req.Name,
		Description:         req.Description,
		Priority:            req.Priority,
		ResponseTimeHours:   req.ResponseTimeHours,
		ResolutionTimeHours: req.ResolutionTimeHours,
		IsActive:            active,
		NotifyOnBreach:      req.NotifyOnBreach,
		EscalationEmail:     req.EscalationEmail,
	}
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.TicketFromDomain(&tickets[i]))
	}
	return items
}
