// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mutex is the mutex test subsystem.
//
// It validates a kmutex.Lock implementation with four tests:
//
//	0x0401 tryenter  non-blocking acquire fails while held, succeeds once released
//	0x0402 race      many workers increment a counter under the mutex
//	0x0403 owned     Owned() is true while held by the caller, false after release
//	0x0404 owner     Owner() is the caller while held, goid.None after release
//
// Tests 1 and 2 drive the mutex from workq worker goroutines. Work items
// never fail by panicking across the worker boundary: they record their
// outcome in the test's private state, which the test inspects after Flush.
package mutex

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/kolkov/splat/internal/goid"
	"github.com/kolkov/splat/internal/kmutex"
	"github.com/kolkov/splat/internal/splat"
	"github.com/kolkov/splat/internal/workq"
)

const (
	SubsystemID = 0x0400
	Name        = "mutex"
	Desc        = "Kernel Mutex Tests"

	Test1ID   = 0x0401
	Test1Name = "tryenter"
	Test1Desc = "Validate mutex_tryenter() correctness"

	Test2ID   = 0x0402
	Test2Name = "race"
	Test2Desc = "Many threads entering/exiting the mutex"

	Test3ID   = 0x0403
	Test3Name = "owned"
	Test3Desc = "Validate mutex_owned() correctness"

	Test4ID   = 0x0404
	Test4Name = "owner"
	Test4Desc = "Validate mutex_owner() correctness"
)

const (
	testMagic = 0x115599DD
	testName  = "mutex_test"
	workqName = "mutex_wq"

	// DefaultCount is the number of racing work items in the race test.
	DefaultCount = 128

	// DefaultSleep widens the race test's critical section (1/100 s).
	DefaultSleep = 10 * time.Millisecond
)

// Options configures the subsystem.
type Options struct {
	// Factory creates the mutex under test. nil selects kmutex.New.
	Factory kmutex.Factory

	// Count is the number of race work items. 0 selects DefaultCount.
	Count int

	// Sleep is held inside the race critical section. It is used as given;
	// DefaultOptions sets DefaultSleep.
	Sleep time.Duration

	// Workers sizes the race pool. 0 selects the available concurrency.
	Workers int

	// QueueDepth bounds the race pool queue. 0 selects Count.
	QueueDepth int

	// Registry receives the work queue counters. nil disables them.
	Registry metrics.Registry
}

// DefaultOptions returns 128 race items with a 10ms sleep.
func DefaultOptions() Options {
	return Options{Count: DefaultCount, Sleep: DefaultSleep}
}

// ID returns the subsystem id.
func ID() uint32 {
	return SubsystemID
}

// Init builds the subsystem with its four tests registered in order. On
// failure no subsystem is returned.
func Init(opts Options) (*splat.Subsystem, error) {
	s, err := newSuite(opts)
	if err != nil {
		return nil, splat.Wrap(splat.ErrAllocation, Name, err)
	}

	sub := splat.NewSubsystem(SubsystemID, Name, Desc)
	tests := []struct {
		id         uint32
		name, desc string
		fn         splat.TestFunc
	}{
		{Test1ID, Test1Name, Test1Desc, s.tryenter},
		{Test2ID, Test2Name, Test2Desc, s.race},
		{Test3ID, Test3Name, Test3Desc, s.owned},
		{Test4ID, Test4Name, Test4Desc, s.owner},
	}
	for _, t := range tests {
		if err := sub.AddTest(t.id, t.name, t.desc, t.fn); err != nil {
			return nil, splat.Wrap(splat.ErrAllocation, Name, err)
		}
	}
	return sub, nil
}

// Fini unregisters the tests in reverse registration order.
func Fini(sub *splat.Subsystem) {
	if sub == nil {
		return
	}
	for _, id := range []uint32{Test4ID, Test3ID, Test2ID, Test1ID} {
		_ = sub.RemoveTest(id)
	}
}

type suite struct {
	factory kmutex.Factory
	count   int
	sleep   time.Duration
	workers int
	depth   int
	qopts   []workq.Option
}

func newSuite(opts Options) (*suite, error) {
	s := &suite{
		factory: opts.Factory,
		count:   opts.Count,
		sleep:   opts.Sleep,
		workers: opts.Workers,
		depth:   opts.QueueDepth,
	}
	if s.factory == nil {
		s.factory = func(name string) kmutex.Lock { return kmutex.New(name) }
	}
	if s.count == 0 {
		s.count = DefaultCount
	}
	if s.count < 0 {
		return nil, errors.Errorf("race count %d", s.count)
	}
	if s.sleep < 0 {
		return nil, errors.Errorf("race sleep %v", s.sleep)
	}
	if s.depth == 0 {
		s.depth = s.count
	}
	if opts.Registry != nil {
		s.qopts = append(s.qopts, workq.WithRegistry(opts.Registry))
	}
	return s, nil
}

// mutexPriv is the private state shared by a test and its work items.
type mutexPriv struct {
	magic uint32
	rep   splat.Reporter
	mtx   kmutex.Lock
	sleep time.Duration

	// rc is the try-acquire result in tryenter (0 or -EBUSY) and the
	// counter in race, where it is only touched with mtx held.
	rc int

	errMu sync.Mutex
	err   error
}

func newPriv(mtx kmutex.Lock, rep splat.Reporter) *mutexPriv {
	return &mutexPriv{magic: testMagic, rep: rep, mtx: mtx}
}

// check validates the handle a work item was given.
func (mp *mutexPriv) check(op string) error {
	if mp == nil {
		return splat.Errorf(splat.ErrInvalidState, op, "nil private state")
	}
	if mp.magic != testMagic {
		return splat.Errorf(splat.ErrInvalidState, op, "private state tag %#x, want %#x", mp.magic, testMagic)
	}
	return nil
}

// record keeps the first failure reported by any work item.
func (mp *mutexPriv) record(err error) {
	if mp == nil {
		return
	}
	mp.errMu.Lock()
	defer mp.errMu.Unlock()
	if mp.err == nil {
		mp.err = err
	}
}

func (mp *mutexPriv) recorded() error {
	mp.errMu.Lock()
	defer mp.errMu.Unlock()
	return mp.err
}

// cleanup releases mtx if the test still holds it and destroys it. A
// cleanup failure only becomes the test result when the test passed.
func cleanup(mtx kmutex.Lock, held bool, op string, err *error) {
	if held {
		func() {
			defer func() { _ = recover() }()
			mtx.Exit()
		}()
	}
	if derr := mtx.Destroy(); derr != nil && *err == nil {
		*err = splat.Wrap(splat.ErrAssertion, op, derr)
	}
}

// workPanic converts a recovered work item panic into a failure.
func workPanic(op string, w *workq.Work) error {
	if p := w.Panic(); p != nil {
		return splat.Errorf(splat.ErrAssertion, op, "work item panicked: %v", p)
	}
	return nil
}

func self() goid.ID {
	return goid.Get()
}
