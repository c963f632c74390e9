package metrics

import (
	"sync"
	"time"
)

// Timer captures the duration and rate of events, combining a Histogram
// over observed durations with a Meter over the rate they occur at.
type Timer interface {
	Count() int64
	Max() int64
	Mean() float64
	Min() int64
	Percentile(float64) float64
	Percentiles([]float64) []float64
	Rate1() float64
	Rate5() float64
	Rate15() float64
	RateMean() float64
	Snapshot() Timer
	StdDev() float64
	Stop()
	Sum() int64
	Time(func())
	Update(time.Duration)
	UpdateSince(time.Time)
	Variance() float64
}

// NewTimer constructs a new Timer, using an exponentially-decaying
// sample with the same parameters rcrowley/go-metrics defaults to.
func NewTimer() Timer {
	if !Enabled {
		return NilTimer{}
	}
	t := &StandardTimer{
		histogram: NewHistogram(NewExpDecaySample(1028, 0.015)),
		meter:     newStandardMeter(),
	}
	arbiterRegister(t.meter)
	return t
}

// NewRegisteredTimer constructs and registers a new Timer.
func NewRegisteredTimer(name string, r Registry) Timer {
	c := NewTimer()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// GetOrRegisterTimer returns an existing Timer or constructs and
// registers a new one.
func GetOrRegisterTimer(name string, r Registry) Timer {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewTimer).(Timer)
}

// NilTimer is a no-op Timer.
type NilTimer struct{}

func (NilTimer) Count() int64                       { return 0 }
func (NilTimer) Max() int64                         { return 0 }
func (NilTimer) Mean() float64                      { return 0.0 }
func (NilTimer) Min() int64                         { return 0 }
func (NilTimer) Percentile(float64) float64          { return 0.0 }
func (NilTimer) Percentiles(ps []float64) []float64 { return make([]float64, len(ps)) }
func (NilTimer) Rate1() float64                     { return 0.0 }
func (NilTimer) Rate5() float64                     { return 0.0 }
func (NilTimer) Rate15() float64                    { return 0.0 }
func (NilTimer) RateMean() float64                  { return 0.0 }
func (NilTimer) Snapshot() Timer                    { return NilTimer{} }
func (NilTimer) StdDev() float64                    { return 0.0 }
func (NilTimer) Stop()                              {}
func (NilTimer) Sum() int64                         { return 0 }
func (NilTimer) Time(f func())                      { f() }
func (NilTimer) Update(time.Duration)                {}
func (NilTimer) UpdateSince(time.Time)               {}
func (NilTimer) Variance() float64                  { return 0.0 }

// StandardTimer is the standard implementation of a Timer.
type StandardTimer struct {
	histogram Histogram
	meter     *StandardMeter
	mutex     sync.Mutex
}

// Count returns the number of events recorded.
func (t *StandardTimer) Count() int64 { return t.histogram.Count() }

// Max returns the maximum recorded duration, in nanoseconds.
func (t *StandardTimer) Max() int64 { return t.histogram.Max() }

// Mean returns the mean recorded duration, in nanoseconds.
func (t *StandardTimer) Mean() float64 { return t.histogram.Mean() }

// Min returns the minimum recorded duration, in nanoseconds.
func (t *StandardTimer) Min() int64 { return t.histogram.Min() }

// Percentile returns the interpolated p'th percentile duration.
func (t *StandardTimer) Percentile(p float64) float64 {
	return t.histogram.Percentile(p)
}

// Percentiles returns the interpolated percentile durations.
func (t *StandardTimer) Percentiles(ps []float64) []float64 {
	return t.histogram.Percentiles(ps)
}

// Rate1 returns the one-minute moving average rate of events per second.
func (t *StandardTimer) Rate1() float64 { return t.meter.Rate1() }

// Rate5 returns the five-minute moving average rate of events per second.
func (t *StandardTimer) Rate5() float64 { return t.meter.Rate5() }

// Rate15 returns the fifteen-minute moving average rate of events per
// second.
func (t *StandardTimer) Rate15() float64 { return t.meter.Rate15() }

// RateMean returns the timer's all-time mean rate of events per second.
func (t *StandardTimer) RateMean() float64 { return t.meter.RateMean() }

// Snapshot returns a read-only copy of the timer.
func (t *StandardTimer) Snapshot() Timer {
	return &timerSnapshot{
		histogram: t.histogram.Snapshot().(*histogramSnapshot),
		meter:     t.meter.Snapshot().(*meterSnapshot),
	}
}

// StdDev returns the standard deviation of recorded durations.
func (t *StandardTimer) StdDev() float64 { return t.histogram.StdDev() }

// Stop deregisters the timer's meter from the arbiter. Stop is
// idempotent.
func (t *StandardTimer) Stop() { t.meter.Stop() }

// Sum returns the sum of recorded durations, in nanoseconds.
func (t *StandardTimer) Sum() int64 { return t.histogram.Sum() }

// Time records the duration of executing f.
func (t *StandardTimer) Time(f func()) {
	ts := time.Now()
	f()
	t.Update(time.Since(ts))
}

// Update records the duration of an event.
func (t *StandardTimer) Update(d time.Duration) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.histogram.Update(int64(d))
	t.meter.Mark(1)
}

// UpdateSince records the duration since ts.
func (t *StandardTimer) UpdateSince(ts time.Time) {
	t.Update(time.Since(ts))
}

// Variance returns the population variance of recorded durations.
func (t *StandardTimer) Variance() float64 { return t.histogram.Variance() }

// timerSnapshot is a read-only copy of a Timer.
type timerSnapshot struct {
	histogram *histogramSnapshot
	meter     *meterSnapshot
}

func (t *timerSnapshot) Count() int64 { return t.histogram.Count() }
func (t *timerSnapshot) Max() int64   { return t.histogram.Max() }
func (t *timerSnapshot) Mean() float64 { return t.histogram.Mean() }
func (t *timerSnapshot) Min() int64    { return t.histogram.Min() }

func (t *timerSnapshot) Percentile(p float64) float64 {
	return t.histogram.Percentile(p)
}

func (t *timerSnapshot) Percentiles(ps []float64) []float64 {
	return t.histogram.Percentiles(ps)
}

func (t *timerSnapshot) Rate1() float64    { return t.meter.Rate1() }
func (t *timerSnapshot) Rate5() float64    { return t.meter.Rate5() }
func (t *timerSnapshot) Rate15() float64   { return t.meter.Rate15() }
func (t *timerSnapshot) RateMean() float64 { return t.meter.RateMean() }
func (t *timerSnapshot) Snapshot() Timer   { return t }
func (t *timerSnapshot) StdDev() float64   { return t.histogram.StdDev() }
func (*timerSnapshot) Stop()               {}
func (t *timerSnapshot) Sum() int64        { return t.histogram.Sum() }

func (*timerSnapshot) Time(func()) {
	panic("Time called on a timer snapshot")
}

func (*timerSnapshot) Update(time.Duration) {
	panic("Update called on a timer snapshot")
}

func (*timerSnapshot) UpdateSince(time.Time) {
	panic("UpdateSince called on a timer snapshot")
}

func (t *timerSnapshot) Variance() float64 { return t.histogram.Variance() }
