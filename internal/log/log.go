// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log builds the harness error logger on top of mosn.io/pkg/log.
package log

import (
	"path"
	"strings"

	"github.com/pkg/errors"
	"mosn.io/pkg/log"
)

// DefaultLogger is the logger used by the dispatcher, the framework and the
// CLI. InitDefaultLogger replaces it.
var DefaultLogger log.ErrorLogger = log.DefaultLogger

// errorLogger writes common messages to the main log and alerts (worker
// panics) to a sibling alert log when the output is a file.
type errorLogger struct {
	*log.SimpleErrorLog
	AlertLog *log.SimpleErrorLog
}

// CreateDefaultErrorLogger creates an error logger writing to output at level.
// output is a file path, or one of "", "stdout", "stderr".
func CreateDefaultErrorLogger(output string, level log.Level) (log.ErrorLogger, error) {
	lg, err := log.GetOrCreateLogger(output, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create logger %q", output)
	}
	var alg *log.Logger
	switch output {
	case "", "stdout", "stderr", "/dev/stderr", "/dev/stdout":
		alg = lg
	default:
		dir, file := path.Split(output)
		tmp, err := log.GetOrCreateLogger(path.Join(dir, "alert."+file), nil)
		if err != nil {
			return nil, errors.Wrapf(err, "create alert logger for %q", output)
		}
		alg = tmp
	}

	return &errorLogger{
		SimpleErrorLog: &log.SimpleErrorLog{
			Logger:    lg,
			Formatter: log.DefaultFormatter,
			Level:     level,
		},
		AlertLog: &log.SimpleErrorLog{
			Logger:    alg,
			Formatter: log.DefaultFormatter,
			Level:     log.ERROR,
		},
	}, nil
}

func (l *errorLogger) Alertf(alert string, format string, args ...interface{}) {
	if l.AlertLog.Disable() {
		return
	}
	l.AlertLog.Alertf(alert, format, args...)
}

// InitDefaultLogger replaces DefaultLogger with a logger for output and level.
func InitDefaultLogger(output string, level log.Level) error {
	lg, err := CreateDefaultErrorLogger(output, level)
	if err != nil {
		return err
	}
	DefaultLogger = lg
	return nil
}

var levels = map[string]log.Level{
	"fatal": log.FATAL,
	"error": log.ERROR,
	"warn":  log.WARN,
	"info":  log.INFO,
	"debug": log.DEBUG,
	"trace": log.TRACE,
}

// ErrUnknownLevel is returned by ParseLevel for an unrecognised level name.
var ErrUnknownLevel = errors.New("unknown log level")

// ParseLevel maps a level name (case insensitive) to a log.Level.
func ParseLevel(s string) (log.Level, error) {
	lv, ok := levels[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return log.INFO, errors.Wrapf(ErrUnknownLevel, "%q", s)
	}
	return lv, nil
}
