// Package pool runs job handlers off the polling goroutine and reclaims jobs
// whose owner disappeared while they were pending.
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Dispatcher runs functions on their own goroutines. With a positive limit
// Go blocks until a slot frees up; with limit <= 0 dispatch is unbounded.
type Dispatcher struct {
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

func NewDispatcher(limit int) *Dispatcher {
	d := &Dispatcher{}
	if limit > 0 {
		d.sem = semaphore.NewWeighted(int64(limit))
	}
	return d
}

// Go runs fn asynchronously. It returns ctx.Err() if ctx ends while waiting
// for a free slot, in which case fn is not run.
func (d *Dispatcher) Go(ctx context.Context, fn func()) error {
	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}

	d.wg.Add(1)
	d.inFlight.Add(1)
	go func() {
		defer func() {
			d.inFlight.Add(-1)
			if d.sem != nil {
				d.sem.Release(1)
			}
			d.wg.Done()
		}()
		fn()
	}()
	return nil
}

// Wait blocks until every dispatched function has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}
