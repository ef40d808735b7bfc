// Package observability bundles logging and Prometheus metrics for the
// assignment and SLA engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the engine.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// SweepsTotal counts completed SLA monitor sweeps.
var SweepsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "helpdesk",
	Name:      "sla_sweeps_total",
	Help:      "Number of SLA monitor sweeps completed",
})

// BreachNotificationsTotal counts sla_breached notifications emitted.
// Each ticket contributes at most once per breach transition.
var BreachNotificationsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "helpdesk",
	Name:      "sla_breach_notifications_total",
	Help:      "Number of SLA breach notifications emitted",
})

// WarningNotificationsTotal counts sla_warning notifications emitted.
var WarningNotificationsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "helpdesk",
	Name:      "sla_warning_notifications_total",
	Help:      "Number of SLA near-breach warnings emitted",
})

// LastSweepBreached reports tickets past deadline as of the last sweep.
var LastSweepBreached = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "helpdesk",
	Name:      "sla_last_sweep_breached",
	Help:      "Breached tickets observed by the most recent sweep",
})

// LastSweepAtRisk reports tickets inside the near-breach window as of the
// last sweep.
var LastSweepAtRisk = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "helpdesk",
	Name:      "sla_last_sweep_at_risk",
	Help:      "Near-breach tickets observed by the most recent sweep",
})

// AssignmentsTotal counts successful automatic assignments.
var AssignmentsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "helpdesk",
	Name:      "assignments_total",
	Help:      "Number of tickets assigned automatically",
})

// AssignmentMissesTotal counts auto-assignment attempts that found no
// eligible agent.
var AssignmentMissesTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "helpdesk",
	Name:      "assignment_misses_total",
	Help:      "Number of auto-assignment attempts that left the ticket unassigned",
})

// RulesExecutedTotal counts workflow rules whose actions ran.
var RulesExecutedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "helpdesk",
	Name:      "workflow_rules_executed_total",
	Help:      "Number of workflow rules whose conditions matched and actions ran",
})

// ActionFailuresTotal counts workflow actions that failed. Failures are
// logged and skipped, never propagated.
var ActionFailuresTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "helpdesk",
	Name:      "workflow_action_failures_total",
	Help:      "Number of workflow actions that returned an error",
})

// HTTPRequestsTotal counts handled HTTP requests by route, method and status.
var HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "helpdesk",
	Name:      "http_requests_total",
	Help:      "Number of HTTP requests handled",
}, []string{"route", "method", "status"})

// HTTPRequestDuration observes request latency by route and method.
var HTTPRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "helpdesk",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request latency",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method"})

// HTTPErrorsTotal counts requests that resolved to a domain error.
var HTTPErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "helpdesk",
	Name:      "http_errors_total",
	Help:      "Number of HTTP requests that failed with a domain error",
}, []string{"route", "method", "code"})
