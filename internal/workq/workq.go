// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workq provides bounded goroutine pools with work-queue semantics:
// Queue submits a work item without blocking, Flush is a barrier that waits
// for every item queued before it, and Destroy tears the pool down.
//
// A Queue created by NewSingleThread runs items one at a time in FIFO order.
// A Queue created by New runs items on several workers with no ordering
// guarantee among them.
//
// Worker goroutines never die from a faulting item: a panic is recovered,
// recorded on the item, and the worker keeps serving.
package workq

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	"go.uber.org/atomic"
	mlog "mosn.io/pkg/log"

	"github.com/kolkov/splat/internal/log"
)

const (
	// DefaultDepth is the queue capacity used when depth is 0.
	DefaultDepth = 256

	// MaxWorkers bounds the size of a multi-worker queue.
	MaxWorkers = 1 << 10
)

var (
	// ErrQueueFull is returned by Queue when the bounded queue has no room.
	ErrQueueFull = errors.New("work queue full")

	// ErrPending is returned by Queue when the item is already queued and
	// has not run yet.
	ErrPending = errors.New("work item already pending")

	// ErrDestroyed is returned by Queue after Destroy.
	ErrDestroyed = errors.New("work queue destroyed")

	// ErrInvalidSize is returned by the constructors for out of range sizes.
	ErrInvalidSize = errors.New("invalid work queue size")
)

// Work is a unit of deferred computation. The same Work may be queued again
// once it has run.
type Work struct {
	fn      func()
	pending atomic.Bool

	// recovered is written by the worker before the barrier is released and
	// read by the submitter after Flush returns.
	recovered interface{}
}

// NewWork binds fn into a work item.
func NewWork(fn func()) *Work {
	return &Work{fn: fn}
}

// Pending reports whether the item is queued and has not finished running.
func (w *Work) Pending() bool {
	return w.pending.Load()
}

// Panic returns the value recovered from the item's last run, or nil.
// Only meaningful after the Flush that covers the run has returned.
func (w *Work) Panic() interface{} {
	return w.recovered
}

// Option configures a Queue.
type Option func(*Queue)

// WithRegistry publishes the queue counters in r as
// workq.<name>.queued, workq.<name>.completed and workq.<name>.panics.
func WithRegistry(r metrics.Registry) Option {
	return func(q *Queue) {
		q.queued = metrics.GetOrRegisterCounter("workq."+q.name+".queued", r)
		q.completed = metrics.GetOrRegisterCounter("workq."+q.name+".completed", r)
		q.panics = metrics.GetOrRegisterCounter("workq."+q.name+".panics", r)
	}
}

// Queue is a bounded pool of worker goroutines fed by a job channel.
type Queue struct {
	name    string
	workers int
	jobs    chan *Work

	// pending counts queued items that have not finished; Flush waits on it.
	pending sync.WaitGroup
	// running counts live worker goroutines; Destroy waits on it.
	running sync.WaitGroup

	// mu orders Queue against Destroy so nothing is sent on a closed channel.
	mu        sync.Mutex
	destroyed atomic.Bool

	queued    metrics.Counter
	completed metrics.Counter
	panics    metrics.Counter
}

// NewSingleThread creates a queue served by exactly one worker. Items run
// serially in submission order.
func NewSingleThread(name string, depth int, opts ...Option) (*Queue, error) {
	return newQueue(name, 1, depth, opts)
}

// New creates a queue served by workers goroutines. workers == 0 sizes the
// pool to the available concurrency, runtime.GOMAXPROCS(0).
func New(name string, workers, depth int, opts ...Option) (*Queue, error) {
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return newQueue(name, workers, depth, opts)
}

func newQueue(name string, workers, depth int, opts []Option) (*Queue, error) {
	if workers <= 0 || workers > MaxWorkers {
		return nil, errors.Wrapf(ErrInvalidSize, "workq %s: %d workers", name, workers)
	}
	if depth == 0 {
		depth = DefaultDepth
	}
	if depth < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "workq %s: depth %d", name, depth)
	}

	q := &Queue{
		name:      name,
		workers:   workers,
		jobs:      make(chan *Work, depth),
		queued:    metrics.NilCounter{},
		completed: metrics.NilCounter{},
		panics:    metrics.NilCounter{},
	}
	for _, opt := range opts {
		opt(q)
	}

	q.running.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q, nil
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Workers returns the number of worker goroutines.
func (q *Queue) Workers() int {
	return q.workers
}

// Depth returns the queue capacity.
func (q *Queue) Depth() int {
	return cap(q.jobs)
}

// Queue submits w for execution and returns immediately.
func (q *Queue) Queue(w *Work) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed.Load() {
		return errors.Wrapf(ErrDestroyed, "workq %s", q.name)
	}
	if !w.pending.CAS(false, true) {
		return errors.Wrapf(ErrPending, "workq %s", q.name)
	}

	q.pending.Add(1)
	select {
	case q.jobs <- w:
		q.queued.Inc(1)
		if log.DefaultLogger.GetLogLevel() >= mlog.DEBUG {
			log.DefaultLogger.Debugf("[workq] %s: queued work, %d/%d slots used", q.name, len(q.jobs), cap(q.jobs))
		}
		return nil
	default:
		w.pending.Store(false)
		q.pending.Done()
		return errors.Wrapf(ErrQueueFull, "workq %s: depth %d", q.name, cap(q.jobs))
	}
}

// Flush blocks until every item queued before the call has finished running.
// It must be called from the submitting goroutine, never from a work item.
func (q *Queue) Flush() {
	q.pending.Wait()
}

// Destroy stops the workers after they drain whatever is still queued and
// waits for them to exit. It is safe to call more than once.
func (q *Queue) Destroy() {
	q.mu.Lock()
	if q.destroyed.Load() {
		q.mu.Unlock()
		return
	}
	q.destroyed.Store(true)
	close(q.jobs)
	q.mu.Unlock()

	q.running.Wait()
}

func (q *Queue) worker() {
	defer q.running.Done()
	for w := range q.jobs {
		q.run(w)
	}
}

func (q *Queue) run(w *Work) {
	defer func() {
		if r := recover(); r != nil {
			w.recovered = r
			q.panics.Inc(1)
			log.DefaultLogger.Alertf("workq", "[workq] %s: panic in work item: %v\n%s", q.name, r, string(debug.Stack()))
		}
		q.completed.Inc(1)
		w.pending.Store(false)
		q.pending.Done()
	}()
	w.recovered = nil
	w.fn()
}

func (q *Queue) String() string {
	return fmt.Sprintf("workq(%s, workers=%d, depth=%d)", q.name, q.workers, cap(q.jobs))
}
