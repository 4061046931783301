// Package splat is a correctness harness for mutual-exclusion primitives.
//
// The harness runs a fixed suite of numbered tests against a mutex that
// implements the [Lock] contract and reports, per test, a status code and a
// few lines of narration. It is not a benchmark or a fuzzer: each test checks
// one property of the contract and fails with a description of what it saw.
//
// # Quick Start
//
// Run the suite against the built-in mutex from the command line:
//
//	$ splat list
//	$ splat run mutex
//	$ splat --race-count 512 run 0x0400 race
//
// Or from Go:
//
//	h, err := splat.New(splat.WithOutput(os.Stdout))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer h.Close()
//
//	results, err := h.RunAll(context.Background(), "mutex")
//
// # The Mutex Tests
//
// Subsystem 0x0400 "mutex" registers four tests:
//
//	0x0401 tryenter  TryEnter fails while the mutex is held and succeeds once
//	                 it is released, probed from a worker goroutine
//	0x0402 race      many workers read, sleep and write a shared counter under
//	                 the mutex; any lost update fails the test
//	0x0403 owned     Owned is true for the holder and false after Exit
//	0x0404 owner     Owner is the holder and NoOwner after Exit
//
// The race test is probabilistic. The sleep between read and write widens the
// critical section so that a mutex which does not exclude loses updates with
// near certainty, but a pass does not prove exclusion.
//
// # Testing Your Own Mutex
//
// Any type with the [Lock] method set can be tested by passing a [Factory]:
//
//	h, err := splat.New(splat.WithFactory(func(name string) splat.Lock {
//		return NewMyMutex(name)
//	}))
//
// Ownership is tracked per goroutine. Implementations record
// [CurrentGoroutine] on Enter and compare against it in Owned.
//
// # Results
//
// Each [Result] carries a status code: 0 on pass, or a negated errno on
// failure (-EINVAL for an assertion failure, -ENOMEM when the test could not
// allocate its resources, -ENOENT for an unknown selector). Narration lines
// have the form "<subsystem>: <test>: <text>". Pass and fail counts and run
// durations are recorded in a go-metrics registry, see [Harness.Registry].
//
// # Configuration
//
// [DefaultConfig] runs 128 racing work items with a 10ms sleep on as many
// workers as GOMAXPROCS. [LoadConfig] reads overrides from YAML or JSON:
//
//	mutex:
//	  kind: chan
//	race:
//	  count: 256
//	  sleep: 1ms
//	  workers: 16
package splat
