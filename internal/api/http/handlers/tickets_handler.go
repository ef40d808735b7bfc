package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-engine/internal/api/dto"
	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/repository"
	"github.com/spec-kit/helpdesk-engine/internal/service"
	apperrors "github.com/spec-kit/helpdesk-engine/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service    *service.TicketService
	assignment *service.AssignmentService
	sla        *service.SlaService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, assignment *service.AssignmentService, sla *service.SlaService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, assignment: assignment, sla: sla}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RequesterEmail == "" || req.Title == "" || req.Description == "" {
		return apperrors.NewValidationError("requester_email, title, description required", nil)
	}

	input := service.TicketCreateInput{
		RequesterID:    req.RequesterID,
		RequesterEmail: req.RequesterEmail,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       req.Priority,
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.TicketFromDomain(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// GetTicketByNumber GET /tickets/number/:number.
func (h *TicketsHandler) GetTicketByNumber(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicketByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status, req.Comment); err != nil {
		return err
	}
	return h.respondWithTicket(c)
}

// UpdatePriority PATCH /tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.UpdatePriority(c.UserContext(), c.Params("id"), req.Priority); err != nil {
		return err
	}
	return h.respondWithTicket(c)
}

// AssignAgent POST /tickets/:id/assign. A manual override that bypasses
// scoring.
func (h *TicketsHandler) AssignAgent(c *fiber.Ctx) error {
	var req dto.AssignAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AgentID == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}
	if err := h.service.AssignAgent(c.UserContext(), c.Params("id"), req.AgentID); err != nil {
		return err
	}
	return h.respondWithTicket(c)
}

// AutoAssign POST /tickets/:id/auto-assign runs the scoring selector for a
// single ticket.
func (h *TicketsHandler) AutoAssign(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if ticket.Status.IsTerminal() {
		return apperrors.NewConflict("ticket is no longer active", nil)
	}
	agentID := h.assignment.AssignTicket(c.UserContext(), ticket)
	if agentID == "" {
		return c.JSON(fiber.Map{"data": fiber.Map{
			"assigned": false,
			"ticket":   dto.TicketFromDomain(ticket),
		}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"assigned": true,
		"agent_id": agentID,
		"ticket":   dto.TicketFromDomain(ticket),
	}})
}

// AssignPending POST /tickets/assign-pending sweeps unassigned active
// tickets in batch.
func (h *TicketsHandler) AssignPending(c *fiber.Ctx) error {
	assigned := h.assignment.AssignPending(c.UserContext())
	return c.JSON(fiber.Map{"data": fiber.Map{"assigned": assigned}})
}

// Escalate POST /tickets/:id/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	levels := req.Levels
	if levels <= 0 {
		levels = 1
	}
	if err := h.service.Escalate(c.UserContext(), c.Params("id"), levels); err != nil {
		return err
	}
	return h.respondWithTicket(c)
}

// SlaStatus GET /tickets/:id/sla reports the ticket's compliance snapshot.
func (h *TicketsHandler) SlaStatus(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	status := h.sla.Classify(ticket, time.Now())
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket_id":          ticket.ID,
		"status":             status.Status,
		"remaining_ms":       status.Remaining.Milliseconds(),
		"percentage_elapsed": status.PercentElapsed,
		"sla_deadline":       ticket.SlaDeadline,
	}})
}

func (h *TicketsHandler) respondWithTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if category := c.Query("category"); category != "" {
		filter.Category = &category
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		filter.AgentID = &agentID
	}
	if requesterID := c.Query("requester_id"); requesterID != "" {
		filter.RequesterID = &requesterID
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
