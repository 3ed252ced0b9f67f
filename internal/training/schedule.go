package training

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Run statuses for a scheduled retraining attempt.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// RunResult reports the outcome of one retraining attempt.
type RunResult struct {
	Timestamp time.Time
	Status    string
	Message   string
}

// RetrainIfStale retrains only when the snapshot is missing or stale
// (or force is set). Errors are reported in the result, never panicked or
// propagated as fatal: a failed run leaves the previous snapshot serving.
func (t *Trainer) RetrainIfStale(ctx context.Context, opts Options, staleDays int, force bool) RunResult {
	now := time.Now().UTC()

	if !force && !ShouldRetrain(opts.ModelPath, staleDays) {
		return RunResult{
			Status:    StatusSkipped,
			Message:   "model snapshot is still fresh",
			Timestamp: now,
		}
	}

	if _, err := t.Retrain(ctx, opts); err != nil {
		slog.Error("Scheduled retraining failed", "error", err)
		return RunResult{
			Status:    StatusError,
			Message:   err.Error(),
			Timestamp: now,
		}
	}

	return RunResult{
		Status:    StatusSuccess,
		Message:   "model retrained successfully",
		Timestamp: now,
	}
}

// RunSchedule retrains on the given cron spec until the context is
// canceled. Each run is staleness-gated so overlapping schedules or
// restarts never cause redundant training.
func (t *Trainer) RunSchedule(ctx context.Context, spec string, opts Options, staleDays int) error {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(spec, func() {
		result := t.RetrainIfStale(ctx, opts, staleDays, false)
		slog.Info("Scheduled retraining run",
			"status", result.Status,
			"message", result.Message)
	})
	if err != nil {
		return err
	}

	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	return ctx.Err()
}
