package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/joshu-sajeev/hrqueue/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type recordingSink struct {
	events []string
}

func (r *recordingSink) OnError(_ context.Context, err error, job *models.Job) {
	r.events = append(r.events, "error:"+job.Kind)
}

func (r *recordingSink) OnRetryLimitExceeded(_ context.Context, err error, job *models.Job) {
	r.events = append(r.events, "abandoned:"+job.Kind)
}

func (r *recordingSink) OnQueueTooLong(context.Context) {
	r.events = append(r.events, "backlog")
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))
	job := &models.Job{ID: 7, Kind: "user.deactivate", Retry: 2}
	ctx := context.Background()

	sink.OnError(ctx, errors.New("ldap unavailable"), job)
	sink.OnRetryLimitExceeded(ctx, errors.New("ldap unavailable"), job)
	sink.OnQueueTooLong(ctx)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "level=WARN")
	assert.Contains(t, lines[0], "job_id=7")
	assert.Contains(t, lines[0], `error="ldap unavailable"`)
	assert.Contains(t, lines[1], "level=ERROR")
	assert.Contains(t, lines[1], "job retry limit exceeded")
	assert.Contains(t, lines[2], "job queue too long")
}

func TestMulti(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := Multi{a, b, Nop{}}
	job := &models.Job{Kind: "ping"}
	ctx := context.Background()

	m.OnError(ctx, errors.New("x"), job)
	m.OnRetryLimitExceeded(ctx, errors.New("x"), job)
	m.OnQueueTooLong(ctx)

	want := []string{"error:ping", "abandoned:ping", "backlog"}
	assert.Equal(t, want, a.events)
	assert.Equal(t, want, b.events)
}

func findSum(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Sum[int64] {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok, "expected Sum[int64] for %s", name)
				return sum
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return metricdata.Sum[int64]{}
}

func TestOTelSink(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	sink, err := NewOTelSinkWithMeter(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	job := &models.Job{Kind: "transfer.apply"}
	sink.OnError(ctx, errors.New("a"), job)
	sink.OnError(ctx, errors.New("b"), job)
	sink.OnRetryLimitExceeded(ctx, errors.New("b"), job)
	sink.OnQueueTooLong(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	failed := findSum(t, rm, "hrqueue.job.failed")
	require.Len(t, failed.DataPoints, 1)
	assert.Equal(t, int64(2), failed.DataPoints[0].Value)
	kind, ok := failed.DataPoints[0].Attributes.Value(attribute.Key("hrqueue.job.kind"))
	require.True(t, ok)
	assert.Equal(t, "transfer.apply", kind.AsString())

	abandoned := findSum(t, rm, "hrqueue.job.abandoned")
	assert.Equal(t, int64(1), abandoned.DataPoints[0].Value)

	backlog := findSum(t, rm, "hrqueue.queue.too_long")
	assert.Equal(t, int64(1), backlog.DataPoints[0].Value)
}
