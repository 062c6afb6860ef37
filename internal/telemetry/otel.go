package telemetry

import (
	"context"
	"fmt"

	"github.com/joshu-sajeev/hrqueue/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/joshu-sajeev/hrqueue"

// OTelSink counts events with OpenTelemetry instruments.
type OTelSink struct {
	failed    metric.Int64Counter
	abandoned metric.Int64Counter
	backlog   metric.Int64Counter
}

// NewOTelSink uses the global MeterProvider.
func NewOTelSink() (*OTelSink, error) {
	return NewOTelSinkWithMeter(otel.Meter(meterName))
}

func NewOTelSinkWithMeter(meter metric.Meter) (*OTelSink, error) {
	failed, err := meter.Int64Counter("hrqueue.job.failed",
		metric.WithDescription("Handler failures, retryable or not"))
	if err != nil {
		return nil, fmt.Errorf("create failed counter: %w", err)
	}

	abandoned, err := meter.Int64Counter("hrqueue.job.abandoned",
		metric.WithDescription("Jobs deleted after exhausting retries"))
	if err != nil {
		return nil, fmt.Errorf("create abandoned counter: %w", err)
	}

	backlog, err := meter.Int64Counter("hrqueue.queue.too_long",
		metric.WithDescription("Ticks whose drained job count exceeded the alarm threshold"))
	if err != nil {
		return nil, fmt.Errorf("create backlog counter: %w", err)
	}

	return &OTelSink{failed: failed, abandoned: abandoned, backlog: backlog}, nil
}

func (s *OTelSink) OnError(ctx context.Context, _ error, job *models.Job) {
	s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("hrqueue.job.kind", job.Kind)))
}

func (s *OTelSink) OnRetryLimitExceeded(ctx context.Context, _ error, job *models.Job) {
	s.abandoned.Add(ctx, 1, metric.WithAttributes(attribute.String("hrqueue.job.kind", job.Kind)))
}

func (s *OTelSink) OnQueueTooLong(ctx context.Context) {
	s.backlog.Add(ctx, 1)
}
