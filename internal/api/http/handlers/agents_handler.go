package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-engine/internal/api/dto"
	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-engine/pkg/util"
)

// AgentsHandler manages agent directory endpoints.
type AgentsHandler struct {
	agents  repository.AgentRepository
	tickets repository.TicketRepository
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents repository.AgentRepository, tickets repository.TicketRepository) *AgentsHandler {
	return &AgentsHandler{agents: agents, tickets: tickets}
}

// CreateAgent POST /agents.
func (h *AgentsHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("name, email required", nil)
	}
	if req.TicketCapacity <= 0 {
		req.TicketCapacity = 10
	}

	agent := &domain.Agent{
		Name:           req.Name,
		Email:          req.Email,
		IsAvailable:    req.IsAvailable,
		Skills:         req.Skills,
		TicketCapacity: req.TicketCapacity,
	}
	if err := h.agents.Create(c.UserContext(), agent); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.AgentFromDomain(agent)})
}

// ListAgents GET /agents. Workload counts are derived live from the ticket
// store, never cached on the agent row.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	agents, err := h.agents.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]fiber.Map, 0, len(agents))
	for i := range agents {
		count, err := h.tickets.CountAssigned(c.UserContext(), agents[i].ID, domain.TerminalStatuses)
		if err != nil {
			return err
		}
		items = append(items, fiber.Map{
			"agent":                dto.AgentFromDomain(&agents[i]),
			"current_ticket_count": count,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAgent GET /agents/:id.
func (h *AgentsHandler) GetAgent(c *fiber.Ctx) error {
	agent, err := h.agents.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	count, err := h.tickets.CountAssigned(c.UserContext(), agent.ID, domain.TerminalStatuses)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"agent":                dto.AgentFromDomain(agent),
		"current_ticket_count": count,
	}})
}

// SetAvailability PATCH /agents/:id/availability.
func (h *AgentsHandler) SetAvailability(c *fiber.Ctx) error {
	var req dto.SetAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.agents.SetAvailability(c.UserContext(), c.Params("id"), req.Available); err != nil {
		return err
	}
	agent, err := h.agents.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AgentFromDomain(agent)})
}
