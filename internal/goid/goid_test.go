// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goid

import (
	"sync"
	"testing"
)

// TestGet_Basic tests basic goroutine ID extraction.
func TestGet_Basic(t *testing.T) {
	id := Get()

	if id <= None {
		t.Errorf("Get() returned non-positive ID: %d", id)
	}

	// Call again - should return same ID in same goroutine.
	if id2 := Get(); id != id2 {
		t.Errorf("Get() not stable: first=%d, second=%d", id, id2)
	}
}

// TestGet_MultipleGoroutines tests that concurrently live goroutines get distinct IDs.
func TestGet_MultipleGoroutines(t *testing.T) {
	const numGoroutines = 100

	ids := make(chan ID, numGoroutines)
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- Get()
			// Stay alive until every goroutine reported, so no ID is recycled.
			<-release
		}()
	}

	seen := make(map[ID]bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		id := <-ids
		if id <= None {
			t.Errorf("Goroutine got non-positive ID: %d", id)
		}
		if seen[id] {
			t.Errorf("Duplicate ID detected: %d", id)
		}
		seen[id] = true
	}
	close(release)
	wg.Wait()
}

// TestGet_DiffersFromCaller tests that a spawned goroutine never reports the caller's ID.
func TestGet_DiffersFromCaller(t *testing.T) {
	self := Get()
	done := make(chan ID)
	go func() { done <- Get() }()

	if other := <-done; other == self {
		t.Errorf("spawned goroutine reported caller ID %d", self)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		buf  string
		want ID
	}{
		{"running", "goroutine 123 [running]:\nmain.main()", 123},
		{"single digit", "goroutine 1 [running]:", 1},
		{"empty", "", None},
		{"short", "gorout", None},
		{"wrong prefix", "thread 12 [running]:", None},
		{"no digits", "goroutine [running]:", None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parse([]byte(tt.buf)); got != tt.want {
				t.Errorf("parse(%q) = %d, want %d", tt.buf, got, tt.want)
			}
		})
	}
}

func TestID_String(t *testing.T) {
	if got := None.String(); got != "-1" {
		t.Errorf("None.String() = %q, want -1", got)
	}
	if got := ID(42).String(); got != "42" {
		t.Errorf("ID(42).String() = %q, want 42", got)
	}
	if got := None.Pid(); got != -1 {
		t.Errorf("None.Pid() = %d, want -1", got)
	}
}
