package domain

import "time"

// Agent models a support operator eligible for ticket assignment.
//
// CurrentTicketCount is a derived value: the number of tickets assigned to
// this agent whose status is not resolved/closed. It is recomputed from live
// ticket state immediately before scoring, never cached across calls.
type Agent struct {
	ID                 string
	Name               string
	Email              string
	IsAvailable        bool
	Skills             []string
	TicketCapacity     int
	CurrentTicketCount int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
