package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/quantgem/backend/internal/returns"
	"github.com/wonny/quantgem/backend/pkg/logger"
)

// Recomputer runs the returns batch
type Recomputer interface {
	Run(ctx context.Context, symbols []string) (*returns.RunResult, error)
}

// ReturnsJob recomputes every symbol's returns after the close
type ReturnsJob struct {
	runner   Recomputer
	schedule string
	logger   *logger.Logger
}

// NewReturnsJob creates a new returns recompute job
func NewReturnsJob(runner Recomputer, schedule string, log *logger.Logger) *ReturnsJob {
	return &ReturnsJob{
		runner:   runner,
		schedule: schedule,
		logger:   log.WithField("job", "returns_recompute"),
	}
}

// Name returns the job name
func (j *ReturnsJob) Name() string {
	return "returns_recompute"
}

// Schedule returns the cron schedule
func (j *ReturnsJob) Schedule() string {
	return j.schedule
}

// Run executes the batch. A batch where every symbol failed is an error so
// the scheduler retries it; partial failures are only logged.
func (j *ReturnsJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled returns recompute")

	result, err := j.runner.Run(ctx, nil)
	if err != nil {
		return fmt.Errorf("returns recompute: %w", err)
	}

	log := j.logger.WithFields(map[string]interface{}{
		"symbols":   result.Symbols,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"records":   result.Records,
		"duration":  result.Duration,
	})

	if result.Symbols > 0 && result.Succeeded == 0 {
		return fmt.Errorf("returns recompute: all %d symbols failed", result.Symbols)
	}
	if result.Failed > 0 {
		log.Warn("Returns recompute completed with failures")
		return nil
	}

	log.Info("Returns recompute completed")
	return nil
}
