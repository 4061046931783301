// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kmutex

import (
	"go.uber.org/atomic"

	"github.com/kolkov/splat/internal/goid"
)

// ChanMutex is a mutex built on a one-slot channel: holding the mutex means
// having put the token into the slot.
type ChanMutex struct {
	name  string
	c     chan struct{}
	owner atomic.Int64
}

var _ Lock = (*ChanMutex)(nil)

// NewChan creates an unheld channel mutex.
func NewChan(name string) *ChanMutex {
	return &ChanMutex{name: name, c: make(chan struct{}, 1)}
}

// Name returns the name given at creation.
func (m *ChanMutex) Name() string {
	return m.name
}

func (m *ChanMutex) Enter() {
	self := goid.Get()
	if goid.ID(m.owner.Load()) == self {
		panic(&OwnerError{Name: m.name, Op: "enter", Caller: self, Owner: self})
	}
	m.c <- struct{}{}
	m.owner.Store(int64(self))
}

func (m *ChanMutex) TryEnter() bool {
	select {
	case m.c <- struct{}{}:
		m.owner.Store(int64(goid.Get()))
		return true
	default:
		return false
	}
}

func (m *ChanMutex) Exit() {
	self := goid.Get()
	if owner := goid.ID(m.owner.Load()); owner != self {
		panic(&OwnerError{Name: m.name, Op: "exit", Caller: self, Owner: owner})
	}
	m.owner.Store(int64(goid.None))
	<-m.c
}

func (m *ChanMutex) Owned() bool {
	return goid.ID(m.owner.Load()) == goid.Get()
}

func (m *ChanMutex) Owner() goid.ID {
	return goid.ID(m.owner.Load())
}

func (m *ChanMutex) Destroy() error {
	if owner := goid.ID(m.owner.Load()); owner != goid.None {
		return &OwnerError{Name: m.name, Op: "destroy", Caller: goid.Get(), Owner: owner}
	}
	return nil
}
