package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Meter counts events and reports their rate over three fixed windows (1,
// 5 and 15 minutes), plus the all-time mean rate.
type Meter interface {
	Count() int64
	Mark(int64)
	Rate1() float64
	Rate5() float64
	Rate15() float64
	RateMean() float64
	Snapshot() Meter
	Stop()
}

// NewMeter constructs a new Meter and registers it with the shared
// arbiter; its EWMAs catch up from elapsed time whenever they are read.
// Stop must be called to release it, or the Meter will leak the arbiter's
// reference to it.
func NewMeter() Meter {
	if !Enabled {
		return NilMeter{}
	}
	m := newStandardMeter()
	arbiterRegister(m)
	return m
}

// NewRegisteredMeter constructs and registers a new Meter.
func NewRegisteredMeter(name string, r Registry) Meter {
	c := NewMeter()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// GetOrRegisterMeter returns an existing Meter or constructs and
// registers a new one.
func GetOrRegisterMeter(name string, r Registry) Meter {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewMeter).(Meter)
}

// NilMeter is a no-op Meter.
type NilMeter struct{}

func (NilMeter) Count() int64        { return 0 }
func (NilMeter) Mark(n int64)         {}
func (NilMeter) Rate1() float64       { return 0 }
func (NilMeter) Rate5() float64       { return 0 }
func (NilMeter) Rate15() float64      { return 0 }
func (NilMeter) RateMean() float64    { return 0 }
func (NilMeter) Snapshot() Meter      { return NilMeter{} }
func (NilMeter) Stop()                {}

// meterSnapshot is a read-only copy of a Meter.
type meterSnapshot struct {
	count                          int64
	rate1, rate5, rate15, rateMean float64
}

func (s *meterSnapshot) Count() int64     { return s.count }
func (*meterSnapshot) Mark(n int64)        { panic("Mark called on a meter snapshot") }
func (s *meterSnapshot) Rate1() float64   { return s.rate1 }
func (s *meterSnapshot) Rate5() float64   { return s.rate5 }
func (s *meterSnapshot) Rate15() float64  { return s.rate15 }
func (s *meterSnapshot) RateMean() float64 { return s.rateMean }
func (s *meterSnapshot) Snapshot() Meter  { return s }
func (*meterSnapshot) Stop()              {}

// StandardMeter is the standard implementation of a Meter.
type StandardMeter struct {
	count     atomic.Int64
	a1        EWMA
	a5        EWMA
	a15       EWMA
	startTime time.Time
	stopped   atomic.Bool
}

func newStandardMeter() *StandardMeter {
	return &StandardMeter{
		a1:        NewEWMA1(),
		a5:        NewEWMA5(),
		a15:       NewEWMA15(),
		startTime: time.Now(),
	}
}

// Stop deregisters the meter from the arbiter. Stop is idempotent.
func (m *StandardMeter) Stop() {
	if m.stopped.CompareAndSwap(false, true) {
		arbiterUnregister(m)
	}
}

// Count returns the number of events recorded so far.
func (m *StandardMeter) Count() int64 {
	return m.count.Load()
}

// Mark records the occurrence of n events.
func (m *StandardMeter) Mark(n int64) {
	m.count.Add(n)
	m.a1.Update(n)
	m.a5.Update(n)
	m.a15.Update(n)
}

// Rate1 returns the one-minute moving average rate of events per second.
func (m *StandardMeter) Rate1() float64 { return m.a1.Rate() }

// Rate5 returns the five-minute moving average rate of events per second.
func (m *StandardMeter) Rate5() float64 { return m.a5.Rate() }

// Rate15 returns the fifteen-minute moving average rate of events per
// second.
func (m *StandardMeter) Rate15() float64 { return m.a15.Rate() }

// RateMean returns the meter's all-time mean rate of events per second.
func (m *StandardMeter) RateMean() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.count.Load()) / elapsed
}

// Snapshot returns a read-only copy of the meter.
func (m *StandardMeter) Snapshot() Meter {
	return &meterSnapshot{
		count:    m.count.Load(),
		rate1:    m.Rate1(),
		rate5:    m.Rate5(),
		rate15:   m.Rate15(),
		rateMean: m.RateMean(),
	}
}

// meterArbiter runs a single ticking goroutine shared by every live
// Meter and Timer, rather than one goroutine per metric.
type meterArbiter struct {
	sync.RWMutex
	started bool
	meters  map[*StandardMeter]struct{}
	ticker  *time.Ticker
}

var arbiter = meterArbiter{ticker: time.NewTicker(5 * time.Second), meters: make(map[*StandardMeter]struct{})}

func arbiterRegister(m *StandardMeter) {
	arbiter.Lock()
	defer arbiter.Unlock()
	arbiter.meters[m] = struct{}{}
	if !arbiter.started {
		arbiter.started = true
		go arbiter.loop()
	}
}

func arbiterUnregister(m *StandardMeter) {
	arbiter.Lock()
	defer arbiter.Unlock()
	delete(arbiter.meters, m)
}

// loop drains the shared ticker and does not touch the registered meters:
// each EWMA catches up lazily from elapsed wall-clock time on its own
// Rate() call.
func (ma *meterArbiter) loop() {
	for range ma.ticker.C {
	}
}
