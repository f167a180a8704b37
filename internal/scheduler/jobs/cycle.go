package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/yieldpilot/internal/audit"
	"github.com/wonny/yieldpilot/internal/contracts"
	"github.com/wonny/yieldpilot/internal/engine"
	"github.com/wonny/yieldpilot/pkg/logger"
)

// CycleJob runs the yield aggregation cycle on a fixed schedule
// ⭐ SSOT: the cycle schedule lives in this Job only
type CycleJob struct {
	coordinator *engine.Coordinator
	auditor     contracts.AuditRecorder
	logger      *logger.Logger
}

// NewCycleJob creates a new aggregation cycle job
func NewCycleJob(coordinator *engine.Coordinator, auditor contracts.AuditRecorder, log *logger.Logger) *CycleJob {
	return &CycleJob{
		coordinator: coordinator,
		auditor:     auditor,
		logger:      log,
	}
}

// Name returns the job name
func (j *CycleJob) Name() string {
	return "yield_cycle"
}

// Schedule returns the cron schedule (every 5 minutes, matching the
// cache freshness window)
func (j *CycleJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run executes one aggregation cycle. An overlap with a still-running
// cycle is a skip, not a failure.
func (j *CycleJob) Run(ctx context.Context) error {
	result, err := j.coordinator.RunCycle(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrCycleInProgress) {
			j.logger.Warn("Scheduled cycle skipped, previous cycle still running")

			if auditErr := j.auditor.Record(ctx, audit.EventCycleSkipped, map[string]interface{}{
				"job": j.Name(),
			}); auditErr != nil {
				j.logger.WithError(auditErr).Warn("Failed to audit skipped cycle")
			}
			return nil
		}
		return fmt.Errorf("scheduled cycle: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"duration":  result.Duration,
		"samples":   len(result.Samples),
		"snapshots": len(result.Snapshots),
	}).Info("Scheduled cycle completed")

	return nil
}
