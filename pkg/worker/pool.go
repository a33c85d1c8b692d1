// Package worker runs CPU-bound jobs on a fixed set of goroutines so a burst
// of requests cannot decode more frames at once than there are workers.
package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	// ErrClosed is returned when submitting to a closed pool.
	ErrClosed = errors.New("worker: pool closed")
	// ErrPanic marks the error Do returns when its job panicked.
	ErrPanic = errors.New("worker: job panicked")
)

// Pool is a fixed-size goroutine pool with a bounded queue.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines reading from a queue of the given
// depth. Non-positive workers defaults to GOMAXPROCS.
func NewPool(workers, queue int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{tasks: make(chan func(), queue)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Submit queues fn. It blocks while the queue is full and gives up when ctx
// is done.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued jobs not yet picked up.
func (p *Pool) Pending() int {
	return len(p.tasks)
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

type result[T any] struct {
	val T
	err error
}

// Do runs fn on the pool and waits for its result. If ctx ends first Do
// returns ctx.Err(); a job already running is left to finish and its
// result is dropped. A panic in fn is returned as an error marked ErrPanic
// and leaves the worker running.
func Do[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	done := make(chan result[T], 1)
	err := p.Submit(ctx, func() {
		var r result[T]
		defer func() {
			if v := recover(); v != nil {
				r = result[T]{err: errors.Mark(errors.Newf("worker: job panicked: %v", v), ErrPanic)}
			}
			done <- r
		}()
		r.val, r.err = fn()
	})
	if err != nil {
		return zero, err
	}
	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
