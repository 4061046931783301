// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package splat is the test framework the mutex subsystem plugs into.
//
// A Subsystem owns an ordered list of numbered tests. A Framework owns the
// registered subsystems, looks tests up by id or name, runs them against a
// Reporter and records the outcome as a Result and in a metrics registry.
// Nothing here is process global: every Framework is independent.
package splat

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// Desc identifies a subsystem or a test.
type Desc struct {
	ID   uint32
	Name string
	Desc string
}

func (d Desc) String() string {
	return fmt.Sprintf("0x%04x %s", d.ID, d.Name)
}

// TestFunc runs one test. It narrates through r and returns nil on pass.
type TestFunc func(r Reporter) error

// Test is a registry entry.
type Test struct {
	Desc
	Func TestFunc
}

// ErrDuplicate is returned when a test or subsystem id or name is reused.
var ErrDuplicate = errors.New("duplicate registration")

// Subsystem is an ordered, append-only set of tests.
type Subsystem struct {
	Desc

	mu    sync.RWMutex
	tests []*Test
}

// NewSubsystem creates an empty subsystem.
func NewSubsystem(id uint32, name, desc string) *Subsystem {
	return &Subsystem{Desc: Desc{ID: id, Name: name, Desc: desc}}
}

// AddTest appends a test. Ids and names must be unique within the subsystem.
func (s *Subsystem) AddTest(id uint32, name, desc string, fn TestFunc) error {
	if fn == nil {
		return errors.Errorf("subsystem %s: test %s has no entry point", s.Name, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tests {
		if t.ID == id || t.Name == name {
			return errors.Wrapf(ErrDuplicate, "subsystem %s: test 0x%04x %s", s.Name, id, name)
		}
	}
	s.tests = append(s.tests, &Test{Desc: Desc{ID: id, Name: name, Desc: desc}, Func: fn})
	return nil
}

// RemoveTest unregisters the test with the given id.
func (s *Subsystem) RemoveTest(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tests {
		if t.ID == id {
			s.tests = append(s.tests[:i], s.tests[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "subsystem %s: test 0x%04x", s.Name, id)
}

// Tests returns the registered tests in registration order.
func (s *Subsystem) Tests() []Desc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	descs := make([]Desc, len(s.tests))
	for i, t := range s.tests {
		descs[i] = t.Desc
	}
	return descs
}

// Test looks a test up by id (decimal or 0x hex) or by name.
func (s *Subsystem) Test(sel string) (*Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, byID := ParseID(sel)
	for _, t := range s.tests {
		if t.Name == sel || (byID && t.ID == id) {
			return t, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "subsystem %s: test %q", s.Name, sel)
}

// ParseID parses a decimal or 0x-prefixed hexadecimal id.
func ParseID(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
