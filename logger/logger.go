// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package logger routes the library's diagnostics to a caller-supplied
// function. Nothing is written anywhere until SetLogger is called.
package logger

import (
	"sync"

	"github.com/sassoftware/viya-pdf-view/tracer"
)

// LogLevel represents log severity
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// LogFunc is a single logger function that handles all levels
type LogFunc func(level LogLevel, msg string, keyvals ...interface{})

var (
	mu      sync.RWMutex
	logFunc LogFunc = func(level LogLevel, msg string, keyvals ...interface{}) {}
	traceOn bool
)

// SetLogger sets the global logger function. A nil f is ignored.
func SetLogger(f LogFunc) {
	if f == nil {
		return
	}
	mu.Lock()
	logFunc = f
	mu.Unlock()
}

// SetTrace turns recording of traced debug messages on or off. It is off
// until first set.
func SetTrace(on bool) {
	mu.Lock()
	traceOn = on
	mu.Unlock()
}

func emit(level LogLevel, msg string, keyvals []interface{}) {
	mu.RLock()
	f := logFunc
	mu.RUnlock()
	f(level, msg, keyvals...)
}

// Debug logs a message at debug level.
// If the last keyvals element is a bool and true, the message is also
// recorded by the tracer while tracing is on (see SetTrace).
func Debug(msg string, keyvals ...interface{}) {
	trace := false
	if len(keyvals) > 0 {
		if b, ok := keyvals[len(keyvals)-1].(bool); ok {
			trace = b
			keyvals = keyvals[:len(keyvals)-1]
		}
	}
	emit(DebugLevel, msg, keyvals)

	mu.RLock()
	trace = trace && traceOn
	mu.RUnlock()
	if trace {
		tracer.Log(msg)
	}
}

// Warn logs a recoverable problem with the input.
func Warn(msg string, keyvals ...interface{}) {
	emit(WarnLevel, msg, keyvals)
}

// Error logs a message at error level
func Error(msg string, keyvals ...interface{}) {
	emit(ErrorLevel, msg, keyvals)
}
