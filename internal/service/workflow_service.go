package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/events"
	"github.com/spec-kit/helpdesk-engine/internal/observability"
	"github.com/spec-kit/helpdesk-engine/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-engine/pkg/util"
)

// TicketActions is the mutation surface workflow actions apply through.
// Implemented by TicketService; kept narrow so the engine stays a stateless
// interpreter over externally stored rules.
type TicketActions interface {
	AssignAgent(ctx context.Context, ticketID, agentID string) error
	UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus, comment string) error
	UpdatePriority(ctx context.Context, ticketID string, priority domain.TicketPriority) error
	Escalate(ctx context.Context, ticketID string, levels int) error
}

// WorkflowService interprets declarative trigger/condition/action rules
// against ticket-lifecycle events.
type WorkflowService struct {
	workflows repository.WorkflowRepository
	tickets   repository.TicketRepository
	actions   TicketActions
	email     EmailSink
	notifier  NotificationSink
	logger    *zap.Logger
}

// WorkflowDependencies bundles collaborators.
type WorkflowDependencies struct {
	WorkflowRepo repository.WorkflowRepository
	TicketRepo   repository.TicketRepository
	Email        EmailSink
	Notifier     NotificationSink
	Logger       *zap.Logger
}

// NewWorkflowService creates the service. The ticket action surface is set
// afterwards via SetTicketActions to break the construction cycle with
// TicketService.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		workflows: deps.WorkflowRepo,
		tickets:   deps.TicketRepo,
		email:     deps.Email,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
	}
}

// SetTicketActions wires the mutation surface. Must be called before Execute.
func (s *WorkflowService) SetTicketActions(actions TicketActions) {
	s.actions = actions
}

// Execute evaluates all active rules for the trigger against the event
// context. Rules run sequentially in ascending-priority order; a rule's
// actions run in declared order, each best-effort. Failures inside one rule
// or action never abort the rest of the batch.
func (s *WorkflowService) Execute(ctx context.Context, trigger domain.WorkflowTrigger, ruleCtx map[string]any) {
	rules, err := s.workflows.FindActiveByTrigger(ctx, trigger)
	if err != nil {
		s.logger.Error("failed to load workflow rules",
			zap.String("trigger", string(trigger)), zap.Error(err))
		return
	}

	for i := range rules {
		rule := &rules[i]
		if !s.checkConditions(rule.Conditions, ruleCtx) {
			continue
		}
		s.executeActions(ctx, rule, ruleCtx)
		observability.RulesExecutedTotal.Inc()
		s.logger.Info("workflow executed",
			zap.String("workflow", rule.Name),
			zap.String("trigger", string(trigger)))
	}
}

// HandleEvent adapts a dispatcher event into a rule execution: it loads the
// ticket, builds the field-path context, and runs the trigger of the same
// name. Subscribed for every lifecycle event type.
func (s *WorkflowService) HandleEvent(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		s.logger.Warn("workflow event for unknown ticket",
			zap.String("ticket_id", event.TicketID), zap.Error(err))
		return nil
	}
	ruleCtx := BuildRuleContext(ticket, payloadMap(event.Payload))
	s.Execute(ctx, event.Type.Trigger(), ruleCtx)
	return nil
}

// BuildRuleContext assembles the generic key-value tree condition field
// paths resolve against (e.g. "ticket.priority").
func BuildRuleContext(ticket *domain.Ticket, eventPayload map[string]any) map[string]any {
	ruleCtx := map[string]any{
		"ticketId": ticket.ID,
		"ticket": map[string]any{
			"id":             ticket.ID,
			"number":         ticket.TicketNumber,
			"title":          ticket.Title,
			"category":       ticket.Category,
			"status":         string(ticket.Status),
			"priority":       string(ticket.Priority),
			"requesterEmail": ticket.RequesterEmail,
		},
	}
	if ticket.AssignedAgentID != nil {
		ruleCtx["agentId"] = *ticket.AssignedAgentID
	}
	if eventPayload != nil {
		ruleCtx["event"] = eventPayload
	}
	return ruleCtx
}

// checkConditions evaluates the rule's condition list as an AND. An empty
// list is vacuously true. Unknown operators fail closed with a warning.
func (s *WorkflowService) checkConditions(conditions []domain.WorkflowCondition, ruleCtx map[string]any) bool {
	for _, condition := range conditions {
		if !s.checkCondition(condition, ruleCtx) {
			return false
		}
	}
	return true
}

func (s *WorkflowService) checkCondition(condition domain.WorkflowCondition, ruleCtx map[string]any) bool {
	fieldValue, _ := resolveFieldPath(ruleCtx, condition.Field)

	switch condition.Operator {
	case domain.OperatorEquals:
		return valuesEqual(fieldValue, condition.Value)
	case domain.OperatorNotEquals:
		return !valuesEqual(fieldValue, condition.Value)
	case domain.OperatorContains:
		return strings.Contains(coerceString(fieldValue), coerceString(condition.Value))
	case domain.OperatorGreaterThan:
		left, leftOk := coerceFloat(fieldValue)
		right, rightOk := coerceFloat(condition.Value)
		return leftOk && rightOk && left > right
	case domain.OperatorLessThan:
		left, leftOk := coerceFloat(fieldValue)
		right, rightOk := coerceFloat(condition.Value)
		return leftOk && rightOk && left < right
	default:
		s.logger.Warn("unknown condition operator; treating condition as unmet",
			zap.String("operator", string(condition.Operator)),
			zap.String("field", condition.Field))
		return false
	}
}

// resolveFieldPath walks the context tree by splitting the path on dots.
// Missing intermediate keys resolve to nil rather than failing.
func resolveFieldPath(ruleCtx map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = ruleCtx
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func (s *WorkflowService) executeActions(ctx context.Context, rule *domain.Workflow, ruleCtx map[string]any) {
	ticketID, _ := ruleCtx["ticketId"].(string)
	for _, action := range rule.Actions {
		if err := s.executeAction(ctx, action, ticketID, ruleCtx); err != nil {
			observability.ActionFailuresTotal.Inc()
			s.logger.Error("workflow action failed",
				zap.String("workflow", rule.Name),
				zap.String("action", string(action.Type)),
				zap.Error(err))
		}
	}
}

func (s *WorkflowService) executeAction(ctx context.Context, action domain.WorkflowAction, ticketID string, ruleCtx map[string]any) error {
	switch action.Type {
	case domain.ActionAssignAgent:
		agentID := configString(action.Config, "agentId")
		if agentID == "" {
			return fmt.Errorf("assign_agent: missing agentId")
		}
		return s.actions.AssignAgent(ctx, ticketID, agentID)

	case domain.ActionSetStatus:
		status := domain.TicketStatus(configString(action.Config, "status"))
		return s.actions.UpdateStatus(ctx, ticketID, status, "workflow")

	case domain.ActionSetPriority:
		priority := domain.TicketPriority(configString(action.Config, "priority"))
		return s.actions.UpdatePriority(ctx, ticketID, priority)

	case domain.ActionSendEmail:
		return s.email.Send(ctx, EmailMessage{
			To:      configString(action.Config, "to"),
			Subject: configString(action.Config, "subject"),
			HTML:    configString(action.Config, "body"),
		})

	case domain.ActionNotifyAgent:
		agentID, _ := ruleCtx["agentId"].(string)
		if agentID == "" {
			return nil
		}
		title := configString(action.Config, "title")
		if title == "" {
			title = "Workflow notification"
		}
		return s.notifier.NotifyUser(ctx, agentID, "workflow", map[string]any{
			"title":   title,
			"message": configString(action.Config, "message"),
		})

	case domain.ActionEscalate:
		levels := 1
		if parsed, ok := coerceFloat(action.Config["level"]); ok && parsed > 0 {
			levels = int(parsed)
		}
		return s.actions.Escalate(ctx, ticketID, levels)

	default:
		s.logger.Warn("unknown workflow action; skipping",
			zap.String("action", string(action.Type)))
		return nil
	}
}

// CreateWorkflow validates and stores a rule.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, workflow *domain.Workflow) error {
	if err := validateWorkflow(workflow); err != nil {
		return err
	}
	return apperrors.MapError(s.workflows.Create(ctx, workflow))
}

// UpdateWorkflow validates and updates a rule.
func (s *WorkflowService) UpdateWorkflow(ctx context.Context, workflow *domain.Workflow) error {
	if err := validateWorkflow(workflow); err != nil {
		return err
	}
	return apperrors.MapError(s.workflows.Update(ctx, workflow))
}

// DeleteWorkflow removes a rule.
func (s *WorkflowService) DeleteWorkflow(ctx context.Context, id string) error {
	return apperrors.MapError(s.workflows.Delete(ctx, id))
}

// ListWorkflows returns all rules.
func (s *WorkflowService) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	workflows, err := s.workflows.List(ctx)
	return workflows, apperrors.MapError(err)
}

// GetWorkflow fetches one rule.
func (s *WorkflowService) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	workflow, err := s.workflows.GetByID(ctx, id)
	return workflow, apperrors.MapError(err)
}

func validateWorkflow(workflow *domain.Workflow) error {
	if !workflow.Trigger.Valid() {
		return apperrors.NewValidationError("invalid trigger", map[string]any{"trigger": workflow.Trigger})
	}
	if workflow.Name == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	return nil
}

func valuesEqual(left, right any) bool {
	if leftNum, leftOk := numericValue(left); leftOk {
		if rightNum, rightOk := numericValue(right); rightOk {
			return leftNum == rightNum
		}
		return false
	}
	return left == right
}

// numericValue reports JSON-decoded numbers in a single representation so
// equals works across int/float origins.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func coerceString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func coerceFloat(v any) (float64, bool) {
	if n, ok := numericValue(v); ok {
		return n, true
	}
	if s, ok := v.(string); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func configString(config map[string]any, key string) string {
	if config == nil {
		return ""
	}
	return coerceString(config[key])
}

func payloadMap(payload any) map[string]any {
	if payload == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	return decoded
}
