// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workq

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/kolkov/splat/internal/goid"
)

func TestNew_Sizes(t *testing.T) {
	tests := []struct {
		name        string
		workers     int
		depth       int
		wantWorkers int
		wantDepth   int
		wantErr     bool
	}{
		{"defaults", 0, 0, runtime.GOMAXPROCS(0), DefaultDepth, false},
		{"explicit", 4, 16, 4, 16, false},
		{"negative workers", -1, 16, 0, 0, true},
		{"too many workers", MaxWorkers + 1, 16, 0, 0, true},
		{"negative depth", 2, -1, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New("sizes", tt.workers, tt.depth)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrInvalidSize, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			defer q.Destroy()
			assert.Equal(t, tt.wantWorkers, q.Workers())
			assert.Equal(t, tt.wantDepth, q.Depth())
		})
	}
}

// TestFlush_WaitsForAll verifies the barrier returns only after every item ran.
func TestFlush_WaitsForAll(t *testing.T) {
	q, err := New("flush", 4, 128)
	require.NoError(t, err)
	defer q.Destroy()

	const items = 100
	var done atomic.Int32
	for i := 0; i < items; i++ {
		require.NoError(t, q.Queue(NewWork(func() {
			time.Sleep(time.Millisecond)
			done.Inc()
		})))
	}
	q.Flush()
	assert.Equal(t, int32(items), done.Load())
}

// TestSingleThread_Serializes verifies a single-thread queue runs items one at
// a time, in order, on one goroutine.
func TestSingleThread_Serializes(t *testing.T) {
	q, err := NewSingleThread("serial", 64)
	require.NoError(t, err)
	defer q.Destroy()

	var (
		mu      sync.Mutex
		order   []int
		ids     = map[goid.ID]bool{}
		running atomic.Int32
		overlap atomic.Bool
	)
	for i := 0; i < 32; i++ {
		i := i
		require.NoError(t, q.Queue(NewWork(func() {
			if running.Inc() > 1 {
				overlap.Store(true)
			}
			mu.Lock()
			order = append(order, i)
			ids[goid.Get()] = true
			mu.Unlock()
			running.Dec()
		})))
	}
	q.Flush()

	assert.False(t, overlap.Load(), "items overlapped on a single-thread queue")
	assert.Len(t, ids, 1)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestQueue_Pending(t *testing.T) {
	q, err := NewSingleThread("pending", 4)
	require.NoError(t, err)
	defer q.Destroy()

	release := make(chan struct{})
	w := NewWork(func() { <-release })

	require.NoError(t, q.Queue(w))
	assert.True(t, w.Pending())
	err = q.Queue(w)
	assert.Equal(t, ErrPending, errors.Cause(err))

	close(release)
	q.Flush()
	assert.False(t, w.Pending())

	// Requeue after the barrier is allowed.
	require.NoError(t, q.Queue(w))
	q.Flush()
}

func TestQueue_Full(t *testing.T) {
	q, err := NewSingleThread("full", 1)
	require.NoError(t, err)
	defer q.Destroy()

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := NewWork(func() {
		close(started)
		<-release
	})
	require.NoError(t, q.Queue(blocker))
	<-started

	// The worker is busy, the single slot takes one more item.
	require.NoError(t, q.Queue(NewWork(func() {})))

	overflow := NewWork(func() {})
	err = q.Queue(overflow)
	assert.Equal(t, ErrQueueFull, errors.Cause(err))
	assert.False(t, overflow.Pending(), "rejected item left pending")

	close(release)
	q.Flush()
}

func TestQueue_PanicRecovered(t *testing.T) {
	r := metrics.NewRegistry()
	q, err := NewSingleThread("panic", 4, WithRegistry(r))
	require.NoError(t, err)
	defer q.Destroy()

	bad := NewWork(func() { panic("boom") })
	var ran atomic.Bool
	good := NewWork(func() { ran.Store(true) })

	require.NoError(t, q.Queue(bad))
	require.NoError(t, q.Queue(good))
	q.Flush()

	assert.Equal(t, "boom", bad.Panic())
	assert.Nil(t, good.Panic())
	assert.True(t, ran.Load(), "worker died after a panicking item")

	assert.Equal(t, int64(2), metrics.GetOrRegisterCounter("workq.panic.queued", r).Count())
	assert.Equal(t, int64(2), metrics.GetOrRegisterCounter("workq.panic.completed", r).Count())
	assert.Equal(t, int64(1), metrics.GetOrRegisterCounter("workq.panic.panics", r).Count())

	// A clean rerun clears the recorded panic.
	bad.fn = func() {}
	require.NoError(t, q.Queue(bad))
	q.Flush()
	assert.Nil(t, bad.Panic())
}

func TestDestroy(t *testing.T) {
	q, err := New("destroy", 2, 8)
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 8; i++ {
		require.NoError(t, q.Queue(NewWork(func() { ran.Inc() })))
	}
	q.Flush()
	q.Destroy()
	q.Destroy()

	assert.Equal(t, int32(8), ran.Load())
	err = q.Queue(NewWork(func() {}))
	assert.Equal(t, ErrDestroyed, errors.Cause(err))
}
