// Copyright 2015 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ethereum.  If not, see <http://www.gnu.org/licenses/>.

// Package verrs defines the stable, numbered error codes returned across
// vos and eq's public boundary, and a small registry type (modeled on a
// package-scoped code table with per-code severity and fatality) for
// turning a code plus a detail string into a formatted, leveled error.
package verrs

import (
	"errors"
	"fmt"
	"log/slog"
)

// Code is a stable, wire-visible error code. Values never change meaning
// once assigned; new failure modes get new codes, never reused ones.
type Code int

const (
	OK Code = iota
	NoPerm
	Inval
	NonExist
	NoMem
	Busy
	IOInval
	Uninit
	TimedOut
	NoHdl
	Exist
	Canceled
	Unreach
)

var names = map[Code]string{
	OK:       "ok",
	NoPerm:   "operation not permitted",
	Inval:    "invalid argument",
	NonExist: "no such object, key or record",
	NoMem:    "out of memory",
	Busy:     "resource busy",
	IOInval:  "invalid I/O descriptor",
	Uninit:   "library not initialized",
	TimedOut: "operation timed out",
	NoHdl:    "invalid handle",
	Exist:    "object already exists",
	Canceled: "operation canceled",
	Unreach:  "unreachable state",
}

var severity = map[Code]slog.Level{
	OK:       slog.LevelInfo,
	NoPerm:   slog.LevelWarn,
	Inval:    slog.LevelWarn,
	NonExist: slog.LevelWarn,
	NoMem:    slog.LevelError,
	Busy:     slog.LevelWarn,
	IOInval:  slog.LevelWarn,
	Uninit:   slog.LevelError,
	TimedOut: slog.LevelWarn,
	NoHdl:    slog.LevelWarn,
	Exist:    slog.LevelWarn,
	Canceled: slog.LevelInfo,
	Unreach:  slog.LevelError,
}

// String returns the code's fixed, human-readable name.
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Severity returns the log level at which errors of this code are
// reported by default.
func (c Code) Severity() slog.Level {
	if s, ok := severity[c]; ok {
		return s
	}
	return slog.LevelError
}

// Error pairs a Code with a formatted, call-site-specific detail message.
// It implements the standard error interface. A Code is not itself an
// error, so errors.Is cannot match one: callers compare with Is(err, code)
// instead.
type Error struct {
	Package string
	Code    Code
	Detail  string
}

// New creates an Error for code, formatting detail like fmt.Sprintf.
func New(pkg string, code Code, format string, args ...any) *Error {
	return &Error{Package: pkg, Code: code, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%s] %s: %s", e.Package, e.Code.Severity(), e.Code)
	}
	return fmt.Sprintf("[%s] %s: %s: %s", e.Package, e.Code.Severity(), e.Code, e.Detail)
}

// Fatal reports whether the error's code carries error-or-above severity,
// as opposed to a recoverable condition such as Busy or TimedOut.
func (e *Error) Fatal() bool {
	return e.Code.Severity() >= slog.LevelError
}

// Is reports whether err (or any error in its Unwrap chain) carries code.
func Is(err error, code Code) bool {
	var ve *Error
	return errors.As(err, &ve) && ve.Code == code
}
