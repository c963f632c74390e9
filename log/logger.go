// Copyright 2023 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides the structured logging surface used by cmd/vosd and
// the metrics package, built on top of log/slog with handlers for human-readable terminal
// output, logfmt and JSON, plus a glog-style per-file verbosity filter.
package log

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"
)

const errorKey = "LOG_ERROR"

const (
	LevelTrace slog.Level = -8
	LevelDebug            = slog.LevelDebug
	LevelInfo             = slog.LevelInfo
	LevelWarn             = slog.LevelWarn
	LevelError            = slog.LevelError
	LevelCrit  slog.Level = 12
)

// Logger writes structured, levelled log records with persistent context.
type Logger interface {
	// With returns a new Logger that includes the given context on every
	// subsequent record.
	With(ctx ...any) Logger
	// New is an alias of With.
	New(ctx ...any) Logger

	Log(level slog.Level, msg string, ctx ...any)

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)

	// Handler returns the underlying slog.Handler.
	Handler() slog.Handler

	// Enabled reports whether a record at the given level would be emitted.
	Enabled(ctx context.Context, level slog.Level) bool
}

type logger struct {
	inner *slog.Logger
}

// NewLogger wraps h in the Logger interface.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

func (l *logger) Handler() slog.Handler {
	return l.inner.Handler()
}

func (l *logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.inner.Enabled(ctx, level)
}

// callerSkip is the runtime.Callers depth, from write, to the user's call
// site: write -> {Trace,Debug,...} -> caller.
const callerSkip = 3

func (l *logger) write(level slog.Level, msg string, attrs []any) {
	ctx := context.Background()
	if !l.inner.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(callerSkip, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(normalize(attrs)...)
	_ = l.inner.Handler().Handle(ctx, r)
}

func (l *logger) Log(level slog.Level, msg string, ctx ...any) {
	l.write(level, msg, ctx)
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: l.inner.With(normalize(ctx)...)}
}

func (l *logger) New(ctx ...any) Logger {
	return l.With(ctx...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...any) { l.write(LevelError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...any) {
	l.write(LevelCrit, msg, ctx)
	os.Exit(1)
}

// normalize pairs up an odd-length context slice by appending errorKey, and
// converts a trailing unmatched key into a diagnostic rather than panicking,
// mirroring slog's own leniency for hand-written call sites.
func normalize(ctx []any) []any {
	if len(ctx)%2 != 0 {
		ctx = append(ctx, nil, errorKey, "Normalized odd number of arguments by adding nil")
	}
	return ctx
}

// LevelString returns the short name used in terminal/logfmt output for a
// level, including the vos-specific Trace and Crit levels slog itself does
// not define.
func LevelString(l slog.Level) string {
	switch {
	case l < LevelDebug:
		return "TRACE"
	case l < LevelInfo:
		return "DEBUG"
	case l < LevelWarn:
		return "INFO"
	case l < LevelError:
		return "WARN"
	case l < LevelCrit:
		return "ERROR"
	default:
		return "CRIT"
	}
}

// discard is a Logger that drops every record; used as a safe zero value.
var discard = NewLogger(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: LevelCrit + 1}))

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Discard returns a Logger that drops all records.
func Discard() Logger { return discard }
