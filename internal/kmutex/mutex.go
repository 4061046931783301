// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kmutex

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/kolkov/splat/internal/goid"
)

// Mutex is the default mutex under test: a sync.Mutex whose holder identity
// is published in owner while the lock is held.
//
// Invariant: owner != goid.None only between a successful acquire and the
// matching Exit, and it always names the goroutine that acquired.
type Mutex struct {
	name  string
	m     sync.Mutex
	owner atomic.Int64
}

var _ Lock = (*Mutex)(nil)

// New creates an unheld mutex.
func New(name string) *Mutex {
	return &Mutex{name: name}
}

// Name returns the name given at creation.
func (m *Mutex) Name() string {
	return m.name
}

func (m *Mutex) Enter() {
	self := goid.Get()
	if goid.ID(m.owner.Load()) == self {
		panic(&OwnerError{Name: m.name, Op: "enter", Caller: self, Owner: self})
	}
	m.m.Lock()
	m.owner.Store(int64(self))
}

func (m *Mutex) TryEnter() bool {
	if !m.m.TryLock() {
		return false
	}
	m.owner.Store(int64(goid.Get()))
	return true
}

func (m *Mutex) Exit() {
	self := goid.Get()
	if owner := goid.ID(m.owner.Load()); owner != self {
		panic(&OwnerError{Name: m.name, Op: "exit", Caller: self, Owner: owner})
	}
	// Clear the owner before unlocking so a new holder never sees a stale id.
	m.owner.Store(int64(goid.None))
	m.m.Unlock()
}

func (m *Mutex) Owned() bool {
	return goid.ID(m.owner.Load()) == goid.Get()
}

func (m *Mutex) Owner() goid.ID {
	return goid.ID(m.owner.Load())
}

func (m *Mutex) Destroy() error {
	if owner := goid.ID(m.owner.Load()); owner != goid.None {
		return &OwnerError{Name: m.name, Op: "destroy", Caller: goid.Get(), Owner: owner}
	}
	return nil
}
