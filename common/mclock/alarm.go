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

package mclock

import (
	"sync"
	"time"
)

// Alarm sends on its channel at (or after) a deadline that can be
// rescheduled, earlier or later, at any time before it fires.
type Alarm struct {
	clock Clock
	mu    sync.Mutex
	timer Timer
	ch    chan struct{}
}

// NewAlarm creates an Alarm bound to clock.
func NewAlarm(clock Clock) *Alarm {
	if clock == nil {
		clock = System{}
	}
	return &Alarm{clock: clock, ch: make(chan struct{}, 1)}
}

// C returns the channel on which the alarm fires.
func (a *Alarm) C() <-chan struct{} {
	return a.ch
}

// Schedule arranges for the alarm to fire at (or after) the given absolute
// time, replacing any previously scheduled, not-yet-fired deadline.
func (a *Alarm) Schedule(at AbsTime) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	d := time.Duration(at - a.clock.Now())
	if d < 0 {
		d = 0
	}
	a.timer = a.clock.AfterFunc(d, a.fire)
}

func (a *Alarm) fire() {
	select {
	case a.ch <- struct{}{}:
	default:
	}
}
