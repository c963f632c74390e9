// Copyright 2016 The go-ethereum Authors
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

// Package mclock abstracts over wall-clock time so that eq's poll timeout
// handling can be driven deterministically in tests via Simulated, and by
// the real clock in production via System.
package mclock

import (
	"sync"
	"time"
)

// AbsTime is a monotonic timestamp, measured in nanoseconds from an
// arbitrary reference point (process start for System, zero for Simulated).
type AbsTime int64

// Add returns t + d.
func (t AbsTime) Add(d time.Duration) AbsTime {
	return t + AbsTime(d)
}

// Timer represents a cancellable pending timer firing once.
type Timer interface {
	// C returns the timer's firing channel; a fire sends the AbsTime of
	// expiry.
	C() <-chan AbsTime
	// Stop cancels the timer and returns false if it already fired or was
	// already stopped.
	Stop() bool
	// Reset reschedules the timer to fire after d from now.
	Reset(d time.Duration)
}

// Clock abstracts over time so production code can use wall-clock time
// (System) while tests use a Simulated clock that only advances under
// explicit control.
type Clock interface {
	Now() AbsTime
	Sleep(time.Duration)
	NewTimer(time.Duration) Timer
	After(time.Duration) <-chan AbsTime
	AfterFunc(d time.Duration, f func()) Timer
}

// System implements Clock using the system clock.
type System struct{}

var systemStart = time.Now()

// Now returns the current monotonic time, relative to process start.
func (System) Now() AbsTime {
	return AbsTime(time.Since(systemStart))
}

// Sleep blocks for the given duration.
func (System) Sleep(d time.Duration) {
	time.Sleep(d)
}

// After returns a channel that receives the current time after d passes.
func (System) After(d time.Duration) <-chan AbsTime {
	ch := make(chan AbsTime, 1)
	time.AfterFunc(d, func() { ch <- System{}.Now() })
	return ch
}

// AfterFunc runs f after d, on its own goroutine.
func (System) AfterFunc(d time.Duration, f func()) Timer {
	return &systemTimer{timer: time.AfterFunc(d, f)}
}

// NewTimer creates a timer firing once after d.
func (c System) NewTimer(d time.Duration) Timer {
	ch := make(chan AbsTime, 1)
	t := &systemTimer{ch: ch}
	t.timer = time.AfterFunc(d, func() { ch <- System{}.Now() })
	return t
}

type systemTimer struct {
	timer *time.Timer
	ch    chan AbsTime
}

func (t *systemTimer) C() <-chan AbsTime { return t.ch }
func (t *systemTimer) Stop() bool        { return t.timer.Stop() }
func (t *systemTimer) Reset(d time.Duration) {
	t.timer.Reset(d)
}

// Simulated implements Clock with a virtual, caller-advanced clock. The
// zero value is ready to use, starting at AbsTime(0).
type Simulated struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     AbsTime
	timers  simTimerHeap
	waiting chan struct{}
}

func (s *Simulated) init() {
	if s.cond == nil {
		s.cond = sync.NewCond(&s.mu)
	}
}

// Now returns the current virtual time.
func (s *Simulated) Now() AbsTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Run advances the clock by d, firing every timer whose deadline has been
// reached, in deadline order. AfterFunc callbacks run on the calling
// goroutine before Run returns.
func (s *Simulated) Run(d time.Duration) {
	s.mu.Lock()
	s.init()
	end := s.now.Add(d)
	var do []func()
	for len(s.timers) > 0 && s.timers[0].deadline <= end {
		t := s.timers.popMin()
		s.now = t.deadline
		if t.ch != nil {
			select {
			case t.ch <- t.deadline:
			default:
			}
		}
		if t.f != nil {
			do = append(do, t.f)
		}
	}
	s.now = end
	s.cond.Broadcast()
	s.mu.Unlock()
	for _, f := range do {
		f()
	}
}

// ActiveTimers returns the number of pending timers.
func (s *Simulated) ActiveTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// WaitForTimers blocks until at least n timers are pending.
func (s *Simulated) WaitForTimers(n int) {
	s.mu.Lock()
	s.init()
	for len(s.timers) < n {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// Sleep blocks the calling goroutine until the clock has been Run forward
// by at least d.
func (s *Simulated) Sleep(d time.Duration) {
	<-s.After(d)
}

// After returns a channel receiving the expiry time once the clock has
// advanced by d.
func (s *Simulated) After(d time.Duration) <-chan AbsTime {
	ch := make(chan AbsTime, 1)
	s.schedule(d, ch, nil)
	return ch
}

// AfterFunc schedules f to run once the clock has advanced by d; f runs on
// the goroutine that calls Run.
func (s *Simulated) AfterFunc(d time.Duration, f func()) Timer {
	t := &simTimer{clock: s}
	s.mu.Lock()
	s.init()
	t.entry = &simTimerEntry{deadline: s.now.Add(d), f: f}
	s.timers.push(t.entry)
	s.cond.Broadcast()
	s.mu.Unlock()
	return t
}

// NewTimer creates a Simulated timer firing once the clock has advanced by
// d.
func (s *Simulated) NewTimer(d time.Duration) Timer {
	ch := make(chan AbsTime, 1)
	t := &simTimer{clock: s, ch: ch}
	s.mu.Lock()
	s.init()
	t.entry = &simTimerEntry{deadline: s.now.Add(d), ch: ch}
	s.timers.push(t.entry)
	s.cond.Broadcast()
	s.mu.Unlock()
	return t
}

func (s *Simulated) schedule(d time.Duration, ch chan AbsTime, f func()) {
	s.mu.Lock()
	s.init()
	s.timers.push(&simTimerEntry{deadline: s.now.Add(d), ch: ch, f: f})
	s.cond.Broadcast()
	s.mu.Unlock()
}

type simTimerEntry struct {
	deadline AbsTime
	ch       chan AbsTime
	f        func()
	index    int
	fired    bool
}

type simTimer struct {
	clock *Simulated
	entry *simTimerEntry
	ch    chan AbsTime
}

func (t *simTimer) C() <-chan AbsTime { return t.ch }

func (t *simTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.entry.fired || t.entry.index < 0 {
		return false
	}
	t.clock.timers.remove(t.entry)
	return true
}

func (t *simTimer) Reset(d time.Duration) {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if !t.entry.fired {
		t.clock.timers.remove(t.entry)
	}
	t.entry = &simTimerEntry{deadline: t.clock.now.Add(d), ch: t.ch, f: t.entry.f}
	t.clock.timers.push(t.entry)
	t.clock.cond.Broadcast()
}

// simTimerHeap is a minimal min-heap ordered by deadline.
type simTimerHeap []*simTimerEntry

func (h simTimerHeap) Len() int            { return len(h) }
func (h simTimerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h simTimerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *simTimerHeap) push(e *simTimerEntry) {
	e.index = len(*h)
	*h = append(*h, e)
	h.up(e.index)
}

func (h *simTimerHeap) popMin() *simTimerEntry {
	old := *h
	n := len(old)
	e := old[0]
	old[0] = old[n-1]
	old[0].index = 0
	*h = old[:n-1]
	if len(*h) > 0 {
		h.down(0)
	}
	e.fired = true
	e.index = -1
	return e
}

func (h *simTimerHeap) remove(e *simTimerEntry) {
	if e.index < 0 || e.index >= len(*h) || (*h)[e.index] != e {
		return
	}
	i := e.index
	old := *h
	n := len(old)
	old[i] = old[n-1]
	old[i].index = i
	*h = old[:n-1]
	if i < len(*h) {
		h.down(i)
		h.up(i)
	}
	e.index = -1
}

func (h *simTimerHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.Less(i, parent) {
			break
		}
		h.Swap(i, parent)
		i = parent
	}
}

func (h *simTimerHeap) down(i int) {
	n := len(*h)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && h.Less(right, left) {
			smallest = right
		}
		if !h.Less(smallest, i) {
			break
		}
		h.Swap(i, smallest)
		i = smallest
	}
}
