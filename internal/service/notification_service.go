package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/config"
	"github.com/spec-kit/helpdesk-engine/internal/events"
)

// EmailMessage is a rendered outbound email.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
}

// EmailSink delivers workflow and SLA emails. Delivery is fire-and-forget
// from the engine's perspective: a failed send is logged by the caller and
// never aborts the surrounding sweep or rule batch.
type EmailSink interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// NotificationSink delivers in-app notifications to users/agents.
type NotificationSink interface {
	NotifyUser(ctx context.Context, userID, eventName string, payload map[string]any) error
}

// NotificationService implements both sinks against the configured stub
// endpoints and mirrors lifecycle events into the log stream.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes the audit log mirror to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
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
		n.dispatcher.Subscribe(eventType, n.logEvent)
	}
}

func (n *NotificationService) logEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}

// Send implements EmailSink. Without an SMTP collaborator configured the
// message is logged at debug level only.
func (n *NotificationService) Send(ctx context.Context, msg EmailMessage) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return nil
	}
	n.logger.Debug("email dispatched",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// NotifyUser implements NotificationSink.
func (n *NotificationService) NotifyUser(ctx context.Context, userID, eventName string, payload map[string]any) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		n.logger.Debug("user notification (no webhook configured)",
			zap.String("user_id", userID),
			zap.String("event", eventName))
		return nil
	}
	n.logger.Debug("user notification dispatched",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("user_id", userID),
		zap.String("event", eventName),
		zap.Any("payload", payload))
	return nil
}
