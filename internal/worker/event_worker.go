package worker

import (
	"github.com/spec-kit/helpdesk-engine/internal/events"
	"github.com/spec-kit/helpdesk-engine/internal/service"
)

// RegisterWorkflowHandlers subscribes the rule engine to every lifecycle
// event type, so each transition point re-triggers rule evaluation.
func RegisterWorkflowHandlers(dispatcher events.Dispatcher, workflows *service.WorkflowService) {
	if dispatcher == nil || workflows == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventSlaWarning,
		events.EventSlaBreached,
	} {
		dispatcher.Subscribe(eventType, workflows.HandleEvent)
	}
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
