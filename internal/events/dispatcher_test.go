package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-engine/internal/events"
)

func TestDispatcherInvokesHandlersInOrder(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var calls []string

	dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		calls = append(calls, "first")
		return nil
	})
	dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		calls = append(calls, "second")
		return nil
	})
	dispatcher.Subscribe(events.EventSlaBreached, func(context.Context, events.Event) error {
		calls = append(calls, "unrelated")
		return nil
	})

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated})
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcherContinuesPastFailingHandler(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var calls []string

	dispatcher.Subscribe(events.EventSlaWarning, func(context.Context, events.Event) error {
		calls = append(calls, "failing")
		return errors.New("handler exploded")
	})
	dispatcher.Subscribe(events.EventSlaWarning, func(context.Context, events.Event) error {
		calls = append(calls, "surviving")
		return nil
	})

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventSlaWarning})
	assert.NoError(t, err)
	assert.Equal(t, []string{"failing", "surviving"}, calls)
}

func TestEventTypeTriggerMapping(t *testing.T) {
	assert.Equal(t, "sla_breached", string(events.EventSlaBreached.Trigger()))
	assert.Equal(t, "ticket_created", string(events.EventTicketCreated.Trigger()))
}
