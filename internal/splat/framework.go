// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package splat

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/kolkov/splat/internal/log"
)

// FiniFunc tears a subsystem down. It runs once, from Framework.Close.
type FiniFunc func(*Subsystem)

// Result is the outcome of one test invocation.
type Result struct {
	RunID     string
	Subsystem Desc
	Test      Desc
	Status    int      // 0 on pass, negated errno on failure
	Err       error    // nil on pass
	Output    []string // narration lines, "<subsys>: <test>: <text>"
	Duration  time.Duration
}

// Passed reports whether the test passed.
func (r Result) Passed() bool {
	return r.Status == 0
}

func (r Result) String() string {
	if r.Passed() {
		return fmt.Sprintf("%s:%s PASS (%v)", r.Subsystem.Name, r.Test.Name, r.Duration)
	}
	return fmt.Sprintf("%s:%s FAIL %d (%v): %v", r.Subsystem.Name, r.Test.Name, r.Status, r.Duration, r.Err)
}

type registration struct {
	sub  *Subsystem
	fini FiniFunc
}

// Option configures a Framework.
type Option func(*Framework)

// WithReporter sets the sink test narration is written to. Defaults to Discard.
func WithReporter(r Reporter) Option {
	return func(f *Framework) { f.reporter = r }
}

// WithRegistry sets the metrics registry. Defaults to a fresh registry.
func WithRegistry(r metrics.Registry) Option {
	return func(f *Framework) { f.registry = r }
}

// Framework holds registered subsystems and runs their tests.
type Framework struct {
	mu     sync.Mutex
	regs   []registration
	closed bool

	reporter Reporter
	registry metrics.Registry
}

// New creates an empty framework.
func New(opts ...Option) *Framework {
	f := &Framework{
		reporter: Discard,
		registry: metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the metrics registry runs are recorded in.
func (f *Framework) Registry() metrics.Registry {
	return f.registry
}

// Register adds a subsystem. fini, if not nil, is called from Close.
func (f *Framework) Register(sub *Subsystem, fini FiniFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("splat: framework closed")
	}
	for _, reg := range f.regs {
		if reg.sub.ID == sub.ID || reg.sub.Name == sub.Name {
			return errors.Wrapf(ErrDuplicate, "subsystem 0x%04x %s", sub.ID, sub.Name)
		}
	}
	f.regs = append(f.regs, registration{sub: sub, fini: fini})
	log.DefaultLogger.Debugf("[splat] registered subsystem %s with %d tests", sub.Desc, len(sub.Tests()))
	return nil
}

// Subsystems returns the registered subsystems ordered by id.
func (f *Framework) Subsystems() []*Subsystem {
	f.mu.Lock()
	subs := make([]*Subsystem, len(f.regs))
	for i, reg := range f.regs {
		subs[i] = reg.sub
	}
	f.mu.Unlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs
}

// Subsystem looks a subsystem up by id (decimal or 0x hex) or name.
func (f *Framework) Subsystem(sel string) (*Subsystem, error) {
	id, byID := ParseID(sel)
	for _, sub := range f.Subsystems() {
		if sub.Name == sel || (byID && sub.ID == id) {
			return sub, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "subsystem %q", sel)
}

// Lookup resolves a (subsystem, test) selector pair.
func (f *Framework) Lookup(subsys, test string) (*Subsystem, *Test, error) {
	sub, err := f.Subsystem(subsys)
	if err != nil {
		return nil, nil, err
	}
	t, err := sub.Test(test)
	if err != nil {
		return nil, nil, err
	}
	return sub, t, nil
}

// Run invokes one test. The returned error reports lookup failures only;
// the test outcome is in the Result.
func (f *Framework) Run(ctx context.Context, subsys, test string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, errors.WithStack(err)
	}
	sub, t, err := f.Lookup(subsys, test)
	if err != nil {
		return Result{Status: Code(err), Err: err}, err
	}
	return f.invoke(uuid.New().String(), sub, t), nil
}

// RunAll runs every test of the selected subsystem, or of every subsystem
// when subsys is empty, in registration order. A failing test does not stop
// the rest; a cancelled ctx does.
func (f *Framework) RunAll(ctx context.Context, subsys string) ([]Result, error) {
	subs := f.Subsystems()
	if subsys != "" {
		sub, err := f.Subsystem(subsys)
		if err != nil {
			return nil, err
		}
		subs = []*Subsystem{sub}
	}

	runID := uuid.New().String()
	var results []Result
	for _, sub := range subs {
		for _, desc := range sub.Tests() {
			if err := ctx.Err(); err != nil {
				return results, errors.WithStack(err)
			}
			t, err := sub.Test(desc.Name)
			if err != nil {
				// Unregistered since Tests() was taken.
				continue
			}
			results = append(results, f.invoke(runID, sub, t))
		}
	}
	return results, nil
}

func (f *Framework) invoke(runID string, sub *Subsystem, t *Test) Result {
	rec := &recorder{next: f.reporter}
	log.DefaultLogger.Infof("[splat] run %s: %s:%s start", runID, sub.Name, t.Name)

	start := time.Now()
	err := call(t, rec)
	elapsed := time.Since(start)

	res := Result{
		RunID:     runID,
		Subsystem: sub.Desc,
		Test:      t.Desc,
		Status:    Code(err),
		Err:       err,
		Output:    rec.output(),
		Duration:  elapsed,
	}

	prefix := "splat." + sub.Name + "." + t.Name
	metrics.GetOrRegisterTimer(prefix+".duration", f.registry).Update(elapsed)
	if res.Passed() {
		metrics.GetOrRegisterCounter(prefix+".pass", f.registry).Inc(1)
		log.DefaultLogger.Infof("[splat] run %s: %s:%s pass in %v", runID, sub.Name, t.Name, elapsed)
	} else {
		metrics.GetOrRegisterCounter(prefix+".fail", f.registry).Inc(1)
		log.DefaultLogger.Errorf("[splat] run %s: %s:%s failed with %d: %v", runID, sub.Name, t.Name, res.Status, err)
	}
	return res
}

// call runs the test on the calling goroutine. A panicking test fails with
// ErrAssertion instead of taking the harness down.
func call(t *Test, r Reporter) (err error) {
	defer func() {
		if p := recover(); p != nil {
			log.DefaultLogger.Alertf("splat", "[splat] test %s panicked: %v\n%s", t.Name, p, string(debug.Stack()))
			err = Errorf(ErrAssertion, t.Name, "test panicked: %v", p)
		}
	}()
	return t.Func(r)
}

// Close finalizes every subsystem in reverse registration order. Only the
// first call has any effect.
func (f *Framework) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	regs := f.regs
	f.regs = nil
	f.mu.Unlock()

	for i := len(regs) - 1; i >= 0; i-- {
		if regs[i].fini != nil {
			regs[i].fini(regs[i].sub)
		}
		log.DefaultLogger.Debugf("[splat] finalized subsystem %s", regs[i].sub.Desc)
	}
	return nil
}
