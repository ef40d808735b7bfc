package domain

import "time"

// WorkflowTrigger names the lifecycle event that activates rule evaluation.
type WorkflowTrigger string

const (
	TriggerTicketCreated         WorkflowTrigger = "ticket_created"
	TriggerTicketAssigned        WorkflowTrigger = "ticket_assigned"
	TriggerTicketStatusChanged   WorkflowTrigger = "ticket_status_changed"
	TriggerTicketPriorityChanged WorkflowTrigger = "ticket_priority_changed"
	TriggerSlaWarning            WorkflowTrigger = "sla_warning"
	TriggerSlaBreached           WorkflowTrigger = "sla_breached"
)

// Valid reports whether the trigger is one of the known values.
func (t WorkflowTrigger) Valid() bool {
	switch t {
	case TriggerTicketCreated, TriggerTicketAssigned, TriggerTicketStatusChanged,
		TriggerTicketPriorityChanged, TriggerSlaWarning, TriggerSlaBreached:
		return true
	}
	return false
}

// ConditionOperator names a comparison applied to a resolved field value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
)

// WorkflowCondition compares a dot-path field of the event context against a
// literal value. All conditions of a rule must hold for its actions to run.
type WorkflowCondition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value"`
}

// WorkflowActionType names an effect a matching rule applies.
type WorkflowActionType string

const (
	ActionAssignAgent WorkflowActionType = "assign_agent"
	ActionSetStatus   WorkflowActionType = "set_status"
	ActionSetPriority WorkflowActionType = "set_priority"
	ActionSendEmail   WorkflowActionType = "send_email"
	ActionNotifyAgent WorkflowActionType = "notify_agent"
	ActionEscalate    WorkflowActionType = "escalate"
)

// WorkflowAction pairs an action type with its configuration payload.
type WorkflowAction struct {
	Type   WorkflowActionType `json:"action"`
	Config map[string]any     `json:"config"`
}

// Workflow is a declarative trigger/condition/action rule. Rules are edited
// by administrators and read-only to the engine during execution.
type Workflow struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	Trigger     WorkflowTrigger
	Conditions  []WorkflowCondition
	Actions     []WorkflowAction
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
