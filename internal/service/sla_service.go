package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/config"
	"github.com/spec-kit/helpdesk-engine/internal/domain"
	"github.com/spec-kit/helpdesk-engine/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-engine/pkg/util"
)

// SlaComplianceStatus classifies a ticket against its deadline.
type SlaComplianceStatus string

const (
	SlaStatusNone     SlaComplianceStatus = "no_sla"
	SlaStatusOk       SlaComplianceStatus = "ok"
	SlaStatusWarning  SlaComplianceStatus = "warning"
	SlaStatusBreached SlaComplianceStatus = "breached"
)

// SlaStatus is the live classification of one ticket.
type SlaStatus struct {
	Status         SlaComplianceStatus `json:"status"`
	Remaining      time.Duration       `json:"remaining_ms"`
	PercentElapsed float64             `json:"percentage_elapsed"`
}

// PriorityStats aggregates compliance for a single priority.
type PriorityStats struct {
	Total     int `json:"total"`
	Compliant int `json:"compliant"`
	Breached  int `json:"breached"`
	AtRisk    int `json:"at_risk"`
}

// SlaStats is the dashboard-style compliance aggregate.
type SlaStats struct {
	Total          int                                      `json:"total"`
	Compliant      int                                      `json:"compliant"`
	Breached       int                                      `json:"breached"`
	AtRisk         int                                      `json:"at_risk"`
	ComplianceRate int                                      `json:"compliance_rate"`
	ByPriority     map[domain.TicketPriority]*PriorityStats `json:"by_priority"`
}

// SlaService converts priorities into deadlines and classifies tickets
// against them. Deadline math uses wall-clock hours, not business hours.
type SlaService struct {
	policies repository.SlaPolicyRepository
	tickets  repository.TicketRepository
	logger   *zap.Logger
	cfg      config.SlaConfig
}

// NewSlaService creates the service.
func NewSlaService(policies repository.SlaPolicyRepository, tickets repository.TicketRepository, logger *zap.Logger, cfg config.SlaConfig) *SlaService {
	return &SlaService{
		policies: policies,
		tickets:  tickets,
		logger:   logger,
		cfg:      cfg,
	}
}

// ComputeDeadline derives the resolution deadline from the ticket's creation
// time and a policy. Pure.
func ComputeDeadline(ticket *domain.Ticket, policy *domain.SlaPolicy) time.Time {
	return ticket.CreatedAt.Add(policy.ResolutionBudget())
}

// DeadlineFor looks up the active policy for the ticket's priority and
// computes the deadline. Returns nil when no active policy exists; that is
// input absence, not an error.
func (s *SlaService) DeadlineFor(ctx context.Context, ticket *domain.Ticket) (*time.Time, error) {
	policy, err := s.policies.FindByPriority(ctx, ticket.Priority)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, nil
	}
	deadline := ComputeDeadline(ticket, policy)
	return &deadline, nil
}

// Classify reports the ticket's compliance at the given instant. For tickets
// already resolved or closed the closing timestamp replaces now, so
// historical compliance is stable. Pure and side-effect free.
func (s *SlaService) Classify(ticket *domain.Ticket, now time.Time) SlaStatus {
	if ticket.SlaDeadline == nil {
		return SlaStatus{Status: SlaStatusNone, PercentElapsed: 100}
	}
	if closing := ticket.ClosingTime(); closing != nil {
		now = *closing
	}

	deadline := *ticket.SlaDeadline
	total := deadline.Sub(ticket.CreatedAt)
	elapsed := now.Sub(ticket.CreatedAt)

	percent := 100.0
	if total > 0 {
		percent = clampPercent(float64(elapsed) / float64(total) * 100)
	}

	if now.After(deadline) {
		return SlaStatus{Status: SlaStatusBreached, Remaining: 0, PercentElapsed: 100}
	}
	status := SlaStatusOk
	if percent > s.cfg.WarningThresholdPercent {
		status = SlaStatusWarning
	}
	return SlaStatus{Status: status, Remaining: deadline.Sub(now), PercentElapsed: percent}
}

// Stats aggregates compliance across all tickets with an active policy.
// Closed tickets are compared at their closing timestamp; active tickets in
// the ok band count as compliant.
func (s *SlaService) Stats(ctx context.Context) (*SlaStats, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	active := map[domain.TicketPriority]bool{}
	for _, policy := range policies {
		if policy.IsActive {
			active[policy.Priority] = true
		}
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stats := &SlaStats{ByPriority: map[domain.TicketPriority]*PriorityStats{}}
	for _, priority := range domain.Priorities {
		stats.ByPriority[priority] = &PriorityStats{}
	}

	now := time.Now()
	for i := range tickets {
		ticket := &tickets[i]
		if !active[ticket.Priority] {
			continue
		}
		bucket := stats.ByPriority[ticket.Priority]
		stats.Total++
		bucket.Total++

		if ticket.SlaDeadline == nil {
			stats.Compliant++
			bucket.Compliant++
			continue
		}

		switch s.Classify(ticket, now).Status {
		case SlaStatusBreached:
			stats.Breached++
			bucket.Breached++
		case SlaStatusWarning:
			if ticket.Status.IsTerminal() {
				stats.Compliant++
				bucket.Compliant++
			} else {
				stats.AtRisk++
				bucket.AtRisk++
			}
		default:
			stats.Compliant++
			bucket.Compliant++
		}
	}

	stats.ComplianceRate = 100
	if stats.Total > 0 {
		stats.ComplianceRate = int(math.Round(float64(stats.Compliant) / float64(stats.Total) * 100))
	}
	return stats, nil
}

// FindBreached returns active tickets whose deadline has passed.
func (s *SlaService) FindBreached(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	return s.partitionActive(ctx, func(deadline time.Time) bool {
		return deadline.Before(now)
	})
}

// FindNearBreach returns active tickets inside the near-breach window:
// now <= deadline <= now + window.
func (s *SlaService) FindNearBreach(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	horizon := now.Add(s.cfg.NearBreachWindow())
	return s.partitionActive(ctx, func(deadline time.Time) bool {
		return !deadline.Before(now) && !deadline.After(horizon)
	})
}

func (s *SlaService) partitionActive(ctx context.Context, match func(time.Time) bool) ([]domain.Ticket, error) {
	hasDeadline := true
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:    domain.ActiveStatuses,
		HasDeadline: &hasDeadline,
	})
	if err != nil {
		return nil, err
	}
	matched := []domain.Ticket{}
	for _, ticket := range tickets {
		if ticket.SlaDeadline != nil && match(*ticket.SlaDeadline) {
			matched = append(matched, ticket)
		}
	}
	return matched, nil
}

// SeedDefaultPolicies installs the default policy table when empty.
func (s *SlaService) SeedDefaultPolicies(ctx context.Context) error {
	count, err := s.policies.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	defaults := []domain.SlaPolicy{
		{Name: "Critical", Priority: domain.TicketPriorityCritical, ResponseTimeHours: 1, ResolutionTimeHours: 4, Description: "Critical incidents affecting operations"},
		{Name: "High", Priority: domain.TicketPriorityHigh, ResponseTimeHours: 4, ResolutionTimeHours: 24, Description: "High priority issues"},
		{Name: "Medium", Priority: domain.TicketPriorityMedium, ResponseTimeHours: 8, ResolutionTimeHours: 48, Description: "Medium priority issues"},
		{Name: "Low", Priority: domain.TicketPriorityLow, ResponseTimeHours: 24, ResolutionTimeHours: 72, Description: "Low priority issues"},
	}
	for i := range defaults {
		defaults[i].IsActive = true
		defaults[i].NotifyOnBreach = true
		if err := s.policies.Create(ctx, &defaults[i]); err != nil {
			return err
		}
	}
	s.logger.Info("seeded default sla policies", zap.Int("count", len(defaults)))
	return nil
}

// CreatePolicy validates and stores a policy.
func (s *SlaService) CreatePolicy(ctx context.Context, policy *domain.SlaPolicy) error {
	if err := validatePolicy(policy); err != nil {
		return err
	}
	return apperrors.MapError(s.policies.Create(ctx, policy))
}

// UpdatePolicy validates and updates a policy.
func (s *SlaService) UpdatePolicy(ctx context.Context, policy *domain.SlaPolicy) error {
	if err := validatePolicy(policy); err != nil {
		return err
	}
	return apperrors.MapError(s.policies.Update(ctx, policy))
}

// DeletePolicy removes a policy.
func (s *SlaService) DeletePolicy(ctx context.Context, id string) error {
	return apperrors.MapError(s.policies.Delete(ctx, id))
}

// ListPolicies returns all policies.
func (s *SlaService) ListPolicies(ctx context.Context) ([]domain.SlaPolicy, error) {
	policies, err := s.policies.List(ctx)
	return policies, apperrors.MapError(err)
}

func validatePolicy(policy *domain.SlaPolicy) error {
	if !policy.Priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": policy.Priority})
	}
	if policy.ResponseTimeHours <= 0 || policy.ResolutionTimeHours <= 0 {
		return apperrors.NewValidationError("time budgets must be positive", nil)
	}
	return nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
