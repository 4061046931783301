// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kmutex implements the mutex under test.
//
// A mutex is owned by the goroutine that entered it. Only the owner may exit
// it, and the owner can be queried either as a predicate (Owned) or as an
// identity (Owner). Two implementations share the contract:
//   - Mutex: sync.Mutex plus an atomically published owner
//   - ChanMutex: one-slot channel semaphore plus an atomically published owner
//
// Both are selected by kind through NewKind so the harness can validate
// either one without knowing its internals.
package kmutex

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/kolkov/splat/internal/goid"
)

// Lock is the contract every mutex under test satisfies.
type Lock interface {
	// Enter blocks until the calling goroutine holds the mutex.
	Enter()

	// TryEnter acquires the mutex without blocking and reports whether it
	// succeeded.
	TryEnter() bool

	// Exit releases the mutex. Calling it from a goroutine that does not
	// hold the mutex panics with an *OwnerError.
	Exit()

	// Owned reports whether the calling goroutine holds the mutex.
	Owned() bool

	// Owner returns the holder identity, or goid.None when unheld.
	Owner() goid.ID

	// Destroy releases the mutex. It fails if the mutex is still held.
	Destroy() error
}

// Factory creates a named mutex.
type Factory func(name string) Lock

// Mutex kinds accepted by NewKind and FactoryFor.
const (
	KindDefault = "default"
	KindChan    = "chan"
)

var factories = map[string]Factory{
	KindDefault: func(name string) Lock { return New(name) },
	KindChan:    func(name string) Lock { return NewChan(name) },
}

// ErrUnknownKind is returned for a kind with no registered implementation.
var ErrUnknownKind = errors.New("unknown mutex kind")

// Kinds returns the registered mutex kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// FactoryFor returns the constructor for kind.
func FactoryFor(kind string) (Factory, error) {
	f, ok := factories[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", kind)
	}
	return f, nil
}

// NewKind creates a mutex of the given kind.
func NewKind(kind, name string) (Lock, error) {
	f, err := FactoryFor(kind)
	if err != nil {
		return nil, err
	}
	return f(name), nil
}

// OwnerError reports an ownership contract violation: an exit by a goroutine
// that does not hold the mutex, a recursive enter, or destruction of a held
// mutex.
type OwnerError struct {
	Name   string  // mutex name
	Op     string  // "exit", "enter" or "destroy"
	Caller goid.ID // goroutine performing Op
	Owner  goid.ID // holder observed at the time, goid.None if unheld
}

func (e *OwnerError) Error() string {
	switch e.Op {
	case "destroy":
		return "kmutex " + e.Name + ": destroy while held by pid " + e.Owner.String()
	case "enter":
		return "kmutex " + e.Name + ": recursive enter by pid " + e.Caller.String()
	default:
		return "kmutex " + e.Name + ": " + e.Op + " by pid " + e.Caller.String() +
			" but owned by pid " + e.Owner.String()
	}
}
