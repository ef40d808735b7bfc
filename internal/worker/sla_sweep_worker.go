package worker

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/service"
)

// StartSlaSweep schedules the SLA monitor on a shared cron runner. The sweep
// never overlaps itself: a tick that arrives while the previous sweep is
// still running is skipped.
func StartSlaSweep(schedule string, monitor *service.SlaMonitor, logger *zap.Logger) (*cron.Cron, error) {
	runner := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	_, err := runner.AddFunc(schedule, func() {
		monitor.Sweep(context.Background())
	})
	if err != nil {
		return nil, err
	}
	runner.Start()
	logger.Info("sla sweep scheduled", zap.String("schedule", schedule))
	return runner, nil
}
