package worker

import (
	"context"

	"github.com/joshu-sajeev/hrqueue/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (s *Scheduler) startSpan(ctx context.Context, job *models.Job) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "hrqueue.job.execute",
		trace.WithAttributes(
			attribute.Int64("hrqueue.job.id", int64(job.ID)),
			attribute.String("hrqueue.job.kind", job.Kind),
			attribute.Int("hrqueue.job.retry", job.Retry),
			attribute.Int("hrqueue.job.runs", job.Runs),
			attribute.Bool("hrqueue.job.force", job.Force),
			attribute.String("hrqueue.scheduler.instance", s.instanceID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
