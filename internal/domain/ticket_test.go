package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
)

func TestPriorityEscalate(t *testing.T) {
	tests := map[string]struct {
		from domain.TicketPriority
		want domain.TicketPriority
	}{
		"LowToMedium":      {domain.TicketPriorityLow, domain.TicketPriorityMedium},
		"MediumToHigh":     {domain.TicketPriorityMedium, domain.TicketPriorityHigh},
		"HighToCritical":   {domain.TicketPriorityHigh, domain.TicketPriorityCritical},
		"CriticalSaturate": {domain.TicketPriorityCritical, domain.TicketPriorityCritical},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.Escalate())
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, domain.TicketStatusResolved.IsTerminal())
	assert.True(t, domain.TicketStatusClosed.IsTerminal())
	assert.False(t, domain.TicketStatusNew.IsTerminal())
	assert.False(t, domain.TicketStatusPending.IsTerminal())
}

func TestClosingTime(t *testing.T) {
	resolved := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	closed := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("ActiveTicketHasNone", func(t *testing.T) {
		ticket := domain.Ticket{Status: domain.TicketStatusInProgress}
		assert.Nil(t, ticket.ClosingTime())
	})

	t.Run("ResolvedWinsOverClosed", func(t *testing.T) {
		ticket := domain.Ticket{ResolvedAt: &resolved, ClosedAt: &closed}
		assert.Equal(t, resolved, *ticket.ClosingTime())
	})

	t.Run("ClosedOnly", func(t *testing.T) {
		ticket := domain.Ticket{ClosedAt: &closed}
		assert.Equal(t, closed, *ticket.ClosingTime())
	})
}
