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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// JSONHandler returns a handler that writes JSON-encoded records at trace
// level and above.
func JSONHandler(wr io.Writer) slog.Handler {
	return JSONHandlerWithLevel(wr, LevelTrace)
}

// JSONHandlerWithLevel is JSONHandler with an explicit minimum level.
func JSONHandlerWithLevel(wr io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{ReplaceAttr: builtinReplaceAttr, Level: level})
}

// LogfmtHandler returns a handler that writes logfmt-encoded records.
func LogfmtHandler(wr io.Writer) slog.Handler {
	return slog.NewTextHandler(wr, &slog.HandlerOptions{ReplaceAttr: builtinReplaceAttr, Level: LevelTrace})
}

func builtinReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			a.Value = slog.StringValue(v.Error())
		}
	}
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelString(l))
		}
	}
	return a
}

// terminalHandler writes human-readable, column-aligned records to a
// terminal, colorizing the level when the destination is a TTY.
type terminalHandler struct {
	mu       sync.Mutex
	wr       io.Writer
	level    slog.Leveler
	useColor bool
	attrs    []slog.Attr
	attrsStr string
}

// NewTerminalHandler creates a terminalHandler accepting every level; pass
// useColor to force ANSI coloring regardless of whether wr is a terminal.
func NewTerminalHandler(wr io.Writer, useColor bool) slog.Handler {
	return NewTerminalHandlerWithLevel(wr, LevelTrace, useColor)
}

// NewTerminalHandlerWithLevel is NewTerminalHandler with an explicit minimum
// level.
func NewTerminalHandlerWithLevel(wr io.Writer, level slog.Leveler, useColor bool) slog.Handler {
	return &terminalHandler{wr: wr, level: level, useColor: useColor}
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	h.mu.Unlock()

	var sb strings.Builder
	for _, a := range merged {
		writeAttr(&sb, a.Key, a.Value.Resolve().Any())
	}
	return &terminalHandler{
		wr:       h.wr,
		level:    h.level,
		useColor: h.useColor,
		attrs:    merged,
		attrsStr: sb.String(),
	}
}

func (h *terminalHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var sb strings.Builder
	writeLevel(&sb, r.Level, h.useColor)
	sb.WriteByte(' ')
	sb.WriteByte('[')
	writeTimeTermFormat(&sb, r.Time)
	sb.WriteByte(']')
	sb.WriteByte(' ')
	msg := escapeMessage(r.Message)
	sb.WriteString(msg)
	for i := len(msg); i < 40; i++ {
		sb.WriteByte(' ')
	}
	sb.WriteString(h.attrsStr)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, a.Key, a.Value.Resolve().Any())
		return true
	})
	sb.WriteByte('\n')
	_, err := io.WriteString(h.wr, sb.String())
	return err
}

func writeLevel(sb *strings.Builder, level slog.Level, useColor bool) {
	s := LevelString(level)
	if !useColor {
		sb.WriteString(s)
		return
	}
	color := 37
	switch {
	case level >= LevelCrit:
		color = 35
	case level >= LevelError:
		color = 31
	case level >= LevelWarn:
		color = 33
	case level >= LevelInfo:
		color = 32
	case level >= LevelDebug:
		color = 36
	}
	fmt.Fprintf(sb, "\x1b[%dm%s\x1b[0m", color, s)
}

func escapeMessage(s string) string {
	needsQuoting := false
	for _, r := range s {
		if r == ' ' || r == '"' || r == '\n' || r < 0x20 {
			needsQuoting = true
			break
		}
	}
	if !needsQuoting {
		return s
	}
	return strconv.Quote(s)
}

func writeAttr(sb *strings.Builder, key string, value any) {
	sb.WriteByte(' ')
	if needsQuote(key) {
		sb.WriteString(strconv.Quote(key))
	} else {
		sb.WriteString(key)
	}
	sb.WriteByte('=')
	switch v := value.(type) {
	case string:
		if needsQuote(v) {
			sb.WriteString(strconv.Quote(v))
		} else {
			sb.WriteString(v)
		}
	case int64:
		sb.WriteString(FormatLogfmtInt64(v))
	case uint64:
		sb.WriteString(FormatLogfmtUint64(v))
	case fmt.Stringer:
		sb.WriteString(strconv.Quote(fmt.Sprint(v)))
	default:
		sb.WriteString(strconv.Quote(fmt.Sprintf("%+v", v)))
	}
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r == ' ' || r == '"' || r == '=' || r == '\n' || r < 0x20 {
			return true
		}
	}
	return false
}

// NewColorableTerminalHandler is a human-readable handler that colors its
// output only when f is a TTY.
func NewColorableTerminalHandler(f *os.File, level slog.Leveler) slog.Handler {
	useColor := isatty.IsTerminal(f.Fd())
	return NewTerminalHandlerWithLevel(colorable.NewColorable(f), level, useColor)
}

// GlogHandler wraps another handler with glog-style (-vmodule) per-source-file
// verbosity filtering, layered on top of a single global Verbosity floor.
type GlogHandler struct {
	origin slog.Handler

	mu       sync.RWMutex
	level    slog.Level
	override bool
	patterns []pattern
}

type pattern struct {
	pattern *regexp.Regexp
	level   slog.Level
}

// NewGlogHandler wraps h.
func NewGlogHandler(h slog.Handler) *GlogHandler {
	return &GlogHandler{origin: h}
}

// Verbosity sets the global log verbosity floor, overridable per file by
// Vmodule patterns.
func (g *GlogHandler) Verbosity(level slog.Level) {
	g.mu.Lock()
	g.level = level
	g.mu.Unlock()
}

// Vmodule sets the glog-style pattern=level filter, e.g. "foo.go=5,bar*.go=1".
func (g *GlogHandler) Vmodule(ruleset string) error {
	var patterns []pattern
	for _, rule := range strings.Split(ruleset, ",") {
		if rule == "" {
			continue
		}
		parts := strings.Split(rule, "=")
		if len(parts) != 2 {
			return fmt.Errorf("invalid vmodule rule %q", rule)
		}
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("invalid vmodule level in %q: %w", rule, err)
		}
		// The rule's file glob compiles to a regexp; a bare glog verbosity
		// level v maps to LevelTrace + (5-v)*4, so v=5 (highest glog
		// verbosity) reaches down to LevelTrace.
		glob := strings.ReplaceAll(regexp.QuoteMeta(parts[0]), `\*`, ".*")
		re, err := regexp.Compile("^" + glob + "$")
		if err != nil {
			return fmt.Errorf("invalid vmodule pattern %q: %w", parts[0], err)
		}
		patterns = append(patterns, pattern{pattern: re, level: glogToLevel(v)})
	}
	g.mu.Lock()
	g.patterns = patterns
	g.override = len(patterns) > 0
	g.mu.Unlock()
	return nil
}

func glogToLevel(v int) slog.Level {
	return slog.Level(int(LevelCrit) - v*4)
}

func (g *GlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return level >= g.level || g.override
}

func (g *GlogHandler) Handle(ctx context.Context, r slog.Record) error {
	g.mu.RLock()
	level, override, patterns := g.level, g.override, g.patterns
	g.mu.RUnlock()

	if r.PC != 0 && override {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		file := filepath.Base(frame.File)

		for _, p := range patterns {
			if p.pattern.MatchString(file) {
				if r.Level >= p.level {
					return g.origin.Handle(ctx, r)
				}
				return nil
			}
		}
	}
	if r.Level >= level {
		return g.origin.Handle(ctx, r)
	}
	return nil
}

func (g *GlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return &GlogHandler{origin: g.origin.WithAttrs(attrs), level: g.level, override: g.override, patterns: g.patterns}
}

func (g *GlogHandler) WithGroup(name string) slog.Handler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return &GlogHandler{origin: g.origin.WithGroup(name), level: g.level, override: g.override, patterns: g.patterns}
}
