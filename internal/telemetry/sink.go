// Package telemetry receives the scheduler's failure and backlog signals.
package telemetry

import (
	"context"
	"log/slog"

	"github.com/joshu-sajeev/hrqueue/internal/models"
)

// Sink is notified of handler failures and queue health. Implementations must
// be safe for concurrent use: failures are reported from handler goroutines.
type Sink interface {
	// OnError fires for every handler failure, retryable or not.
	OnError(ctx context.Context, err error, job *models.Job)
	// OnRetryLimitExceeded fires once, right before an abandoned job is deleted.
	OnRetryLimitExceeded(ctx context.Context, err error, job *models.Job)
	// OnQueueTooLong fires at most once per tick.
	OnQueueTooLong(ctx context.Context)
}

// LogSink writes events as structured log records.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "telemetry")}
}

func (s *LogSink) OnError(ctx context.Context, err error, job *models.Job) {
	s.logger.WarnContext(ctx, "job failed",
		"job_id", job.ID, "kind", job.Kind, "retry", job.Retry, "error", err)
}

func (s *LogSink) OnRetryLimitExceeded(ctx context.Context, err error, job *models.Job) {
	s.logger.ErrorContext(ctx, "job retry limit exceeded",
		"job_id", job.ID, "kind", job.Kind, "retry", job.Retry, "error", err)
}

func (s *LogSink) OnQueueTooLong(ctx context.Context) {
	s.logger.ErrorContext(ctx, "job queue too long")
}

// Multi fans every event out to all sinks in order.
type Multi []Sink

func (m Multi) OnError(ctx context.Context, err error, job *models.Job) {
	for _, s := range m {
		s.OnError(ctx, err, job)
	}
}

func (m Multi) OnRetryLimitExceeded(ctx context.Context, err error, job *models.Job) {
	for _, s := range m {
		s.OnRetryLimitExceeded(ctx, err, job)
	}
}

func (m Multi) OnQueueTooLong(ctx context.Context) {
	for _, s := range m {
		s.OnQueueTooLong(ctx)
	}
}

// Nop discards all events.
type Nop struct{}

func (Nop) OnError(context.Context, error, *models.Job)              {}
func (Nop) OnRetryLimitExceeded(context.Context, error, *models.Job) {}
func (Nop) OnQueueTooLong(context.Context)                           {}
