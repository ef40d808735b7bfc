package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-engine/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	Agents    *handlers.AgentsHandler
	Sla       *handlers.SlaHandler
	Workflows *handlers.WorkflowsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("/assign-pending", cfg.Tickets.AssignPending)
	tickets.Get("/number/:number", cfg.Tickets.GetTicketByNumber)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/priority", cfg.Tickets.UpdatePriority)
	tickets.Post("/:id/assign", cfg.Tickets.AssignAgent)
	tickets.Post("/:id/auto-assign", cfg.Tickets.AutoAssign)
	tickets.Post("/:id/escalate", cfg.Tickets.Escalate)
	tickets.Get("/:id/sla", cfg.Tickets.SlaStatus)

	agents := app.Group("/agents")
	agents.Post("", cfg.Agents.CreateAgent)
	agents.Get("", cfg.Agents.ListAgents)
	agents.Get("/:id", cfg.Agents.GetAgent)
	agents.Patch("/:id/availability", cfg.Agents.SetAvailability)

	sla := app.Group("/sla")
	sla.Post("/policies", cfg.Sla.CreatePolicy)
	sla.Get("/policies", cfg.Sla.ListPolicies)
	sla.Put("/policies/:id", cfg.Sla.UpdatePolicy)
	sla.Delete("/policies/:id", cfg.Sla.DeletePolicy)
	sla.Get("/stats", cfg.Sla.Stats)
	sla.Get("/breached", cfg.Sla.Breached)
	sla.Get("/near-breach", cfg.Sla.NearBreach)
	sla.Post("/sweep", cfg.Sla.RunSweep)

	workflows := app.Group("/workflows")
	workflows.Post("", cfg.Workflows.CreateWorkflow)
	workflows.Get("", cfg.Workflows.ListWorkflows)
	workflows.Get("/:id", cfg.Workflows.GetWorkflow)
	workflows.Put("/:id", cfg.Workflows.UpdateWorkflow)
	workflows.Delete("/:id", cfg.Workflows.DeleteWorkflow)
}
