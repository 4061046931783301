// Package splat provides the public API of the mutex correctness harness.
//
// See doc.go for detailed documentation and examples.
package splat

import (
	"context"
	"io"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/kolkov/splat/internal/config"
	"github.com/kolkov/splat/internal/goid"
	"github.com/kolkov/splat/internal/kmutex"
	isplat "github.com/kolkov/splat/internal/splat"
	"github.com/kolkov/splat/internal/subsys/mutex"
)

// Lock is the contract a mutex must meet to be tested by the harness.
//
// Enter blocks until the caller holds the mutex. TryEnter acquires it only if
// it is free and never blocks. Exit releases it and must be called by the
// holder. Owned reports whether the calling goroutine is the holder, Owner
// returns the holder or NoOwner, and Destroy fails if the mutex is held.
type Lock = kmutex.Lock

// Factory creates a named mutex for one test.
type Factory = kmutex.Factory

// GoroutineID identifies the holder of a Lock.
type GoroutineID = goid.ID

// NoOwner is the GoroutineID of an unheld Lock.
const NoOwner = goid.None

// CurrentGoroutine returns the id of the calling goroutine. Lock
// implementations use it to record and compare owners.
func CurrentGoroutine() GoroutineID {
	return goid.Get()
}

// Config is the harness configuration. See DefaultConfig and LoadConfig.
type Config = config.Config

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML or JSON configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Result is the outcome of one test.
type Result = isplat.Result

// Desc names a subsystem or a test.
type Desc = isplat.Desc

// Reporter receives test narration.
type Reporter = isplat.Reporter

// NewWriterReporter writes narration lines to w.
func NewWriterReporter(w io.Writer) Reporter {
	return isplat.NewWriterReporter(w)
}

// Code returns the status code of a test error: 0, or a negated errno.
func Code(err error) int {
	return isplat.Code(err)
}

// Subsystem lists a registered subsystem and its tests.
type Subsystem struct {
	Desc
	Tests []Desc
}

type options struct {
	cfg      *Config
	factory  Factory
	reporter Reporter
	registry metrics.Registry
}

// Option configures a Harness.
type Option func(*options)

// WithConfig sets the configuration. Defaults to DefaultConfig.
func WithConfig(cfg *Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithFactory tests mutexes built by f instead of the configured kind.
func WithFactory(f Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithOutput writes test narration to w.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.reporter = isplat.NewWriterReporter(w) }
}

// WithReporter sends test narration to r.
func WithReporter(r Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithRegistry records run metrics in r. Defaults to a fresh registry.
func WithRegistry(r metrics.Registry) Option {
	return func(o *options) { o.registry = r }
}

// Harness owns a framework with the mutex subsystem registered.
type Harness struct {
	fw *isplat.Framework
}

// New validates the configuration and registers the mutex subsystem.
func New(opts ...Option) (*Harness, error) {
	o := options{reporter: isplat.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	if o.registry == nil {
		o.registry = metrics.NewRegistry()
	}

	if err := o.cfg.Validate(SemVer()); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	mopts, err := o.cfg.MutexOptions()
	if err != nil {
		return nil, err
	}
	if o.factory != nil {
		mopts.Factory = o.factory
	}
	mopts.Registry = o.registry

	sub, err := mutex.Init(mopts)
	if err != nil {
		return nil, err
	}

	fw := isplat.New(isplat.WithReporter(o.reporter), isplat.WithRegistry(o.registry))
	if err := fw.Register(sub, mutex.Fini); err != nil {
		mutex.Fini(sub)
		return nil, err
	}
	return &Harness{fw: fw}, nil
}

// Subsystems lists the registered subsystems ordered by id, each with its
// tests in registration order.
func (h *Harness) Subsystems() []Subsystem {
	subs := h.fw.Subsystems()
	out := make([]Subsystem, len(subs))
	for i, sub := range subs {
		out[i] = Subsystem{Desc: sub.Desc, Tests: sub.Tests()}
	}
	return out
}

// Run runs one test. subsys and test are names or ids, decimal or 0x hex.
// The error reports a failed lookup; the test outcome is in the Result.
func (h *Harness) Run(ctx context.Context, subsys, test string) (Result, error) {
	return h.fw.Run(ctx, subsys, test)
}

// RunAll runs every test of subsys, or of every subsystem when subsys is
// empty.
func (h *Harness) RunAll(ctx context.Context, subsys string) ([]Result, error) {
	return h.fw.RunAll(ctx, subsys)
}

// Registry returns the metrics registry runs are recorded in.
func (h *Harness) Registry() metrics.Registry {
	return h.fw.Registry()
}

// Close unregisters every subsystem. Subsequent runs fail lookup.
func (h *Harness) Close() error {
	return h.fw.Close()
}
