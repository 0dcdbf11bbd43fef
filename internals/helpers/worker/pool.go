// Package worker runs fire-and-forget jobs (receipts, audit) detached from the
// request that triggered them.
package worker

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Job func(ctx context.Context) error

// defaultMaxQueued bounds jobs parked behind a saturated pool.
const defaultMaxQueued = 256

type Pool struct {
	group     errgroup.Group
	timeout   time.Duration
	maxQueued int32

	queued  atomic.Int32
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New: concurrency caps running jobs, timeout bounds each job.
func New(concurrency int, timeout time.Duration) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	p := &Pool{timeout: timeout, maxQueued: defaultMaxQueued}
	p.group.SetLimit(concurrency)
	return p
}

// Submit schedules job and never blocks. When every worker is busy the job
// waits in a bounded queue; past that it is dropped and logged. Job errors
// and panics are logged and never reach the caller.
func (p *Pool) Submit(name string, job Job) {
	// pending.Add must not race Shutdown's Wait
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		log.Printf("[WORKER] pool closed, dropping job %s", name)
		return
	}
	p.pending.Add(1)
	p.mu.Unlock()

	run := func() error {
		defer p.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[WORKER] job %s panic: %v\n%s", name, r, debug.Stack())
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := job(ctx); err != nil {
			log.Printf("[WORKER] job %s failed: %v", name, err)
		}
		return nil
	}

	if p.group.TryGo(run) {
		return
	}

	if p.queued.Add(1) > p.maxQueued {
		p.queued.Add(-1)
		p.pending.Done()
		log.Printf("[WORKER] pool saturated, dropping job %s", name)
		return
	}
	go p.group.Go(func() error {
		p.queued.Add(-1)
		return run()
	})
}

// Wait blocks until every accepted job has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Shutdown stops accepting jobs and drains the pool, bounded by ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
