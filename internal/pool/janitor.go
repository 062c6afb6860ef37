package pool

import (
	"context"
	"log/slog"
	"time"

	"github.com/joshu-sajeev/hrqueue/internal/models"
)

type StuckJobStore interface {
	ListStuckJobs(ctx context.Context, lease time.Duration) ([]models.Job, error)
	Release(ctx context.Context, id uint) error
}

// Janitor returns jobs that stayed pending longer than the lease to
// scheduled. It is only started when a lease is configured; without it a
// crash between claim and completion leaves the row pending for good.
type Janitor struct {
	store    StuckJobStore
	lease    time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func NewJanitor(store StuckJobStore, lease, interval time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{store: store, lease: lease, interval: interval, logger: logger.With("component", "janitor")}
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep releases every stuck job once and returns how many were released.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	stuck, err := j.store.ListStuckJobs(ctx, j.lease)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, job := range stuck {
		if err := j.store.Release(ctx, job.ID); err != nil {
			return released, err
		}
		j.logger.WarnContext(ctx, "recovered stuck job", "job_id", job.ID, "kind", job.Kind)
		released++
	}
	return released, nil
}
