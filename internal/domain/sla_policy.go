package domain

import "time"

// SlaPolicy maps a ticket priority onto response/resolution time budgets.
// At most one active policy exists per priority value.
type SlaPolicy struct {
	ID                  string
	Name                string
	Description         string
	Priority            TicketPriority
	ResponseTimeHours   int
	ResolutionTimeHours int
	IsActive            bool
	NotifyOnBreach      bool
	EscalationEmail     string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ResolutionBudget returns the resolution window as a duration.
func (p *SlaPolicy) ResolutionBudget() time.Duration {
	return time.Duration(p.ResolutionTimeHours) * time.Hour
}

// ResponseBudget returns the first-response window as a duration.
func (p *SlaPolicy) ResponseBudget() time.Duration {
	return time.Duration(p.ResponseTimeHours) * time.Hour
}
