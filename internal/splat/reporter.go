// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package splat

import (
	"fmt"
	"io"
	"strings"
	"sync"

	mlog "mosn.io/pkg/log"

	"github.com/kolkov/splat/internal/log"
)

// Reporter is the write-only sink tests narrate their outcome to.
type Reporter interface {
	Vprintf(subsys, test, format string, args ...interface{})
}

// Discard is a Reporter that drops everything.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Vprintf(string, string, string, ...interface{}) {}

// WriterReporter writes one "<subsys>: <test>: <text>" line per call.
type WriterReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterReporter creates a Reporter writing to w.
func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{w: w}
}

func (r *WriterReporter) Vprintf(subsys, test, format string, args ...interface{}) {
	line := formatLine(subsys, test, format, args...)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.w, line+"\n")
}

func formatLine(subsys, test, format string, args ...interface{}) string {
	text := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	return subsys + ": " + test + ": " + text
}

// recorder captures the lines of one test run, forwards them to the
// caller's sink and mirrors them to the debug log.
type recorder struct {
	next  Reporter
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Vprintf(subsys, test, format string, args ...interface{}) {
	line := formatLine(subsys, test, format, args...)
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()

	if log.DefaultLogger.GetLogLevel() >= mlog.DEBUG {
		log.DefaultLogger.Debugf("[splat] %s", line)
	}
	r.next.Vprintf(subsys, test, format, args...)
}

func (r *recorder) output() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}
