// Package cronexpr computes fire times of recurring jobs.
package cronexpr

import (
	"errors"
	"fmt"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

var ErrInvalidExpression = errors.New("invalid cron expression")

// parser accepts standard 5-field expressions and descriptors like "@every 30s".
var parser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// Evaluator parses expressions once and caches the resulting schedules.
// It is safe for concurrent use.
type Evaluator struct {
	mu     sync.RWMutex
	parsed map[string]cronlib.Schedule
}

func NewEvaluator() *Evaluator {
	return &Evaluator{parsed: make(map[string]cronlib.Schedule)}
}

// Validate returns ErrInvalidExpression (wrapped) if expr cannot be parsed
// or never fires, like "0 0 30 2 *".
func Validate(expr string) error {
	sched, err := parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidExpression, expr, err)
	}
	if sched.Next(time.Now()).IsZero() {
		return fmt.Errorf("%w %q: never fires", ErrInvalidExpression, expr)
	}
	return nil
}

// Next returns the first fire time strictly after ref.
func (e *Evaluator) Next(expr string, ref time.Time) (time.Time, error) {
	sched, err := e.schedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	// robfig gives up after five years and returns the zero time.
	next := sched.Next(ref)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w %q: no fire time after %s", ErrInvalidExpression, expr, ref.Format(time.RFC3339))
	}
	return next, nil
}

func (e *Evaluator) schedule(expr string) (cronlib.Schedule, error) {
	e.mu.RLock()
	sched, ok := e.parsed[expr]
	e.mu.RUnlock()
	if ok {
		return sched, nil
	}

	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidExpression, expr, err)
	}

	e.mu.Lock()
	e.parsed[expr] = sched
	e.mu.Unlock()
	return sched, nil
}
