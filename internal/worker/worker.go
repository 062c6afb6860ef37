// Package worker polls the jobs table, runs due jobs through the handler
// registry and applies the job state machine:
//
//	scheduled ──claim──► pending ──success──► completed ──claim──► (cron) scheduled
//	    ▲                   │                                  └──► (one-shot) deleted
//	    └──── not ready ────┤
//	    └──── retryable ────┤
//	                        └── retry limit exceeded ──► deleted
//
// Several schedulers may poll the same table; the store's atomic claim is the
// only coordination between them.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/cronexpr"
	"github.com/joshu-sajeev/hrqueue/internal/models"
	"github.com/joshu-sajeev/hrqueue/internal/pool"
	"github.com/joshu-sajeev/hrqueue/internal/retry"
	"github.com/joshu-sajeev/hrqueue/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/joshu-sajeev/hrqueue/internal/worker"

var ErrAlreadyRunning = errors.New("scheduler already running")

// JobStore is the persistence the scheduler needs.
type JobStore interface {
	ClaimNext(ctx context.Context, state config.JobState, exclude []uint) (*models.Job, error)
	Update(ctx context.Context, id uint, update models.JobUpdate) error
	Delete(ctx context.Context, id uint) error
}

// Handlers runs the handler registered for kind.
type Handlers interface {
	Dispatch(ctx context.Context, kind string, raw json.RawMessage) error
}

// TickResult counts what one tick drained.
type TickResult struct {
	Completed  int
	Scheduled  int
	Dispatched int
}

func (r TickResult) Drained() int { return r.Completed + r.Scheduled }

type Scheduler struct {
	store    JobStore
	handlers Handlers
	policy   retry.Policy
	sink     telemetry.Sink
	cron     *cronexpr.Evaluator

	interval       time.Duration
	alarmThreshold int
	now            func() time.Time
	after          func(time.Duration) <-chan time.Time
	logger         *slog.Logger
	tracer         trace.Tracer
	instanceID     string
	dispatcher     *pool.Dispatcher
	janitor        *pool.Janitor

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// WithQueueAlarmThreshold sets the drained-per-tick count above which
// OnQueueTooLong fires.
func WithQueueAlarmThreshold(n int) Option {
	return func(s *Scheduler) { s.alarmThreshold = n }
}

// WithMaxConcurrency caps concurrently running handlers. Zero means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(s *Scheduler) { s.dispatcher = pool.NewDispatcher(n) }
}

// WithJanitor runs j alongside the poll loop between Start and Stop.
func WithJanitor(j *pool.Janitor) Option {
	return func(s *Scheduler) { s.janitor = j }
}

func WithInstanceID(id string) Option {
	return func(s *Scheduler) { s.instanceID = id }
}

func NewScheduler(store JobStore, handlers Handlers, policy retry.Policy, sink telemetry.Sink, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:          store,
		handlers:       handlers,
		policy:         policy,
		sink:           sink,
		cron:           cronexpr.NewEvaluator(),
		interval:       interval,
		alarmThreshold: config.DefaultQueueAlarmThreshold,
		now:            time.Now,
		after:          time.After,
		logger:         slog.Default(),
		tracer:         otel.Tracer(tracerName),
		instanceID:     uuid.NewString(),
		dispatcher:     pool.NewDispatcher(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = telemetry.Nop{}
	}
	s.logger = s.logger.With("component", "scheduler", "instance", s.instanceID)
	return s
}

// Start runs a tick every interval until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	var wg sync.WaitGroup
	if s.janitor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.janitor.Run(ctx)
		}()
	}

	go func() {
		defer close(s.done)
		defer wg.Wait()
		s.loop(ctx)
	}()

	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop halts polling and waits for in-flight handlers, including pending
// retry grace delays, to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.dispatcher.Wait()
	s.logger.Info("scheduler stopped")
}

// Wait blocks until every handler dispatched so far has finished and its
// outcome has been written.
func (s *Scheduler) Wait() {
	s.dispatcher.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeTick(ctx)
		}
	}
}

// safeTick keeps the loop alive whatever a single tick does.
func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "tick panicked", "panic", r)
		}
	}()

	if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "tick failed", "error", err)
	}
}

// Tick drains completed jobs, then scheduled jobs, then checks the backlog.
// Handlers started by the tick may still be running when it returns.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult

	n, err := s.drainCompleted(ctx)
	res.Completed = n
	if err != nil {
		return res, fmt.Errorf("drain completed jobs: %w", err)
	}

	n, dispatched, err := s.drainScheduled(ctx)
	res.Scheduled, res.Dispatched = n, dispatched
	if err != nil {
		return res, fmt.Errorf("drain scheduled jobs: %w", err)
	}

	if res.Drained() > s.alarmThreshold {
		s.logger.WarnContext(ctx, "queue too long", "drained", res.Drained(), "threshold", s.alarmThreshold)
		s.sink.OnQueueTooLong(ctx)
	}

	s.logger.DebugContext(ctx, "tick done",
		"completed", res.Completed, "scheduled", res.Scheduled, "dispatched", res.Dispatched)
	return res, nil
}

func (s *Scheduler) drainCompleted(ctx context.Context) (int, error) {
	var seen []uint

	for {
		if err := ctx.Err(); err != nil {
			return len(seen), err
		}
		job, err := s.store.ClaimNext(ctx, config.JobStateCompleted, seen)
		if err != nil {
			return len(seen), err
		}
		if job == nil {
			return len(seen), nil
		}
		seen = append(seen, job.ID)

		// A claimed row must leave its claim state even if ctx ends now.
		wctx := context.WithoutCancel(ctx)

		if job.IsRecurring() {
			if err := s.store.Update(wctx, job.ID, rearm()); err != nil {
				return len(seen), err
			}
			s.logger.DebugContext(ctx, "cron job re-armed", "job_id", job.ID, "kind", job.Kind)
			continue
		}

		if err := s.store.Delete(wctx, job.ID); err != nil {
			return len(seen), err
		}
		s.logger.DebugContext(ctx, "job retired", "job_id", job.ID, "kind", job.Kind)
	}
}

func (s *Scheduler) drainScheduled(ctx context.Context) (int, int, error) {
	var seen []uint
	dispatched := 0

	for {
		if err := ctx.Err(); err != nil {
			return len(seen), dispatched, err
		}
		job, err := s.store.ClaimNext(ctx, config.JobStateScheduled, seen)
		if err != nil {
			return len(seen), dispatched, err
		}
		if job == nil {
			return len(seen), dispatched, nil
		}
		seen = append(seen, job.ID)

		wctx := context.WithoutCancel(ctx)

		ready, err := s.ready(job)
		if err != nil {
			// Stored with a cron expression that no longer parses or never fires.
			s.logger.ErrorContext(ctx, "job has invalid cron expression, dropping it",
				"job_id", job.ID, "kind", job.Kind, "error", err)
			s.sink.OnRetryLimitExceeded(wctx, err, job)
			if err := s.store.Delete(wctx, job.ID); err != nil {
				return len(seen), dispatched, err
			}
			continue
		}

		if !ready {
			if err := s.store.Update(wctx, job.ID, rearm()); err != nil {
				return len(seen), dispatched, err
			}
			continue
		}

		if err := s.dispatcher.Go(ctx, func() { s.execute(wctx, job) }); err != nil {
			// Gave up waiting for a free handler slot; hand the job back.
			if uerr := s.store.Update(wctx, job.ID, rearm()); uerr != nil {
				return len(seen), dispatched, errors.Join(err, uerr)
			}
			return len(seen), dispatched, err
		}
		dispatched++
	}
}

// ready reports whether a claimed scheduled job is due now. A cron job is
// judged by its schedule alone; delay and date only gate one-shot jobs.
func (s *Scheduler) ready(job *models.Job) (bool, error) {
	now := s.now()

	if job.IsRecurring() {
		next, err := s.cron.Next(*job.Cron, job.UpdatedAt)
		if err != nil {
			return false, err
		}
		return job.Force || !next.After(now), nil
	}

	if job.Date != nil {
		return !now.Before(*job.Date), nil
	}

	if job.Delay != nil && now.Sub(job.CreatedAt) < time.Duration(*job.Delay)*time.Millisecond {
		return false, nil
	}
	return true, nil
}

func (s *Scheduler) execute(ctx context.Context, job *models.Job) {
	log := s.logger.With("job_id", job.ID, "kind", job.Kind)

	ctx, span := s.startSpan(ctx, job)
	defer span.End()

	err := s.handlers.Dispatch(ctx, job.Kind, json.RawMessage(job.Data))
	endSpan(span, err)

	if err == nil {
		state, force := config.JobStateCompleted, false
		if err := s.store.Update(ctx, job.ID, models.JobUpdate{
			State:         &state,
			Force:         &force,
			IncrementRuns: true,
		}); err != nil {
			log.ErrorContext(ctx, "mark completed failed", "error", err)
			return
		}
		log.DebugContext(ctx, "job completed")
		return
	}

	s.sink.OnError(ctx, err, job)

	if !s.policy.ShouldRetry(job) {
		log.ErrorContext(ctx, "job retry limit exceeded", "retry", job.Retry, "error", err)
		s.sink.OnRetryLimitExceeded(ctx, err, job)
		if err := s.store.Delete(ctx, job.ID); err != nil {
			log.ErrorContext(ctx, "delete abandoned job failed", "error", err)
		}
		return
	}

	if grace := s.policy.Grace(job); grace > 0 {
		<-s.after(grace)
	}

	msg := err.Error()
	state := config.JobStateScheduled
	retries := job.Retry + 1
	delay := s.policy.NextDelay(job).Milliseconds()
	if err := s.store.Update(ctx, job.ID, models.JobUpdate{
		State: &state,
		Error: &msg,
		Retry: &retries,
		Delay: &delay,
	}); err != nil {
		log.ErrorContext(ctx, "schedule retry failed", "error", err)
		return
	}
	log.WarnContext(ctx, "job failed, retry scheduled", "retry", retries, "delay_ms", delay, "error", err)
}

func rearm() models.JobUpdate {
	state := config.JobStateScheduled
	return models.JobUpdate{State: &state}
}
