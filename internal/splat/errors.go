// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package splat

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status codes returned to callers are negated errno values.
const (
	ENOENT = 2
	ENOMEM = 12
	EBUSY  = 16
	EINVAL = 22
)

// Error kinds. Test failures are *Error values whose Kind is one of these.
var (
	// ErrAllocation: a resource needed by the test could not be created.
	ErrAllocation = errors.New("allocation error")

	// ErrSubmission: the dispatcher rejected a work item.
	ErrSubmission = errors.New("submission error")

	// ErrInvalidState: private state handed across the worker boundary
	// failed its tag check.
	ErrInvalidState = errors.New("invalid state")

	// ErrAssertion: the mutex did not behave as its contract requires.
	ErrAssertion = errors.New("assertion failure")

	// ErrBusy: a non-blocking acquire found the mutex held.
	ErrBusy = errors.New("busy")

	// ErrNotFound: no subsystem or test matches a selector.
	ErrNotFound = errors.New("not found")
)

var codes = []struct {
	kind  error
	errno int
}{
	{ErrAllocation, ENOMEM},
	{ErrBusy, EBUSY},
	{ErrNotFound, ENOENT},
	{ErrSubmission, EINVAL},
	{ErrInvalidState, EINVAL},
	{ErrAssertion, EINVAL},
}

// Error is a failure of one operation, classified by Kind.
type Error struct {
	Kind error  // one of the Err* kinds above
	Op   string // what was being done, e.g. "tryenter"
	Msg  string // observed vs. expected condition
	Err  error  // underlying cause, may be nil
}

// Errorf creates an *Error of the given kind.
func Errorf(kind error, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as kind. It returns nil if err is nil.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Kind.Error()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code maps err to a status code: 0 for nil, a negated errno for a known
// kind anywhere in the chain, -EINVAL otherwise.
func Code(err error) int {
	if err == nil {
		return 0
	}
	for _, c := range codes {
		if errors.Is(err, c.kind) {
			return -c.errno
		}
	}
	return -EINVAL
}

// KindOf returns the kind of err, or nil if err carries none.
func KindOf(err error) error {
	for _, c := range codes {
		if errors.Is(err, c.kind) {
			return c.kind
		}
	}
	return nil
}
