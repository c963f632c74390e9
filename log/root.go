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

package log

import (
	"os"
	"sync/atomic"
)

var root atomic.Value

func init() {
	root.Store(&rootLogger{Logger: NewLogger(NewTerminalHandlerWithLevel(os.Stderr, LevelInfo, false))})
}

type rootLogger struct {
	Logger
}

// Root returns the root logger, which every package-level log function
// (Trace, Debug, Info, ...) delegates to.
func Root() Logger {
	return root.Load().(*rootLogger).Logger
}

// SetDefault replaces the root logger.
func SetDefault(l Logger) {
	root.Store(&rootLogger{Logger: l})
}

// New creates a new Logger with ctx bound to the root logger.
func New(ctx ...any) Logger {
	return Root().With(ctx...)
}

func Trace(msg string, ctx ...any) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { Root().Crit(msg, ctx...) }
