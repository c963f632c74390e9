package metrics

import (
	"sync"
	"time"
)

// ResettingTimer records durations observed during a window and reports
// percentiles over that window; unlike Timer it keeps every raw value
// rather than feeding a fixed-size reservoir, and Snapshot clears the
// accumulated values for the next window.
type ResettingTimer interface {
	Mean() float64
	Percentiles([]float64) []float64
	Snapshot() ResettingTimer
	Time(func())
	Update(time.Duration)
	UpdateSince(time.Time)
	Values() []int64
}

// NewResettingTimer constructs a new ResettingTimer.
func NewResettingTimer() ResettingTimer {
	if !Enabled {
		return NilResettingTimer{}
	}
	return &StandardResettingTimer{}
}

// NewRegisteredResettingTimer constructs and registers a new
// ResettingTimer.
func NewRegisteredResettingTimer(name string, r Registry) ResettingTimer {
	c := NewResettingTimer()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// GetOrRegisterResettingTimer returns an existing ResettingTimer or
// constructs and registers a new one.
func GetOrRegisterResettingTimer(name string, r Registry) ResettingTimer {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewResettingTimer).(ResettingTimer)
}

// NilResettingTimer is a no-op ResettingTimer.
type NilResettingTimer struct{}

func (NilResettingTimer) Mean() float64                      { return 0.0 }
func (NilResettingTimer) Percentiles(ps []float64) []float64 { return make([]float64, len(ps)) }
func (NilResettingTimer) Snapshot() ResettingTimer           { return NilResettingTimer{} }
func (NilResettingTimer) Time(f func())                      { f() }
func (NilResettingTimer) Update(time.Duration)                {}
func (NilResettingTimer) UpdateSince(time.Time)                {}
func (NilResettingTimer) Values() []int64                    { return []int64{} }

// StandardResettingTimer is the standard implementation of a
// ResettingTimer.
type StandardResettingTimer struct {
	mutex  sync.Mutex
	values []int64
}

// Mean returns the mean of the durations recorded since the last
// Snapshot.
func (t *StandardResettingTimer) Mean() float64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return SampleMean(t.values)
}

// Percentiles returns the interpolated percentile durations recorded
// since the last Snapshot.
func (t *StandardResettingTimer) Percentiles(ps []float64) []float64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return SamplePercentiles(t.values, ps)
}

// Snapshot returns a read-only copy of the timer and clears its
// accumulated values for the next window.
func (t *StandardResettingTimer) Snapshot() ResettingTimer {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	values := t.values
	t.values = nil
	return &resettingTimerSnapshot{values: values}
}

// Time records the duration of executing f.
func (t *StandardResettingTimer) Time(f func()) {
	ts := time.Now()
	f()
	t.Update(time.Since(ts))
}

// Update records the duration of an event.
func (t *StandardResettingTimer) Update(d time.Duration) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.values = append(t.values, int64(d))
}

// UpdateSince records the duration since ts.
func (t *StandardResettingTimer) UpdateSince(ts time.Time) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.values = append(t.values, int64(time.Since(ts)))
}

// Values returns the durations recorded since the last Snapshot.
func (t *StandardResettingTimer) Values() []int64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.values
}

// resettingTimerSnapshot is a read-only copy of a ResettingTimer,
// caching its mean and percentiles on first access since the
// underlying values never change once snapshotted.
type resettingTimerSnapshot struct {
	values      []int64
	mean        float64
	percentiles map[float64]float64
	calculated  bool
	mutex       sync.Mutex
}

func (t *resettingTimerSnapshot) Mean() float64 {
	t.calc()
	return t.mean
}

func (t *resettingTimerSnapshot) Percentiles(ps []float64) []float64 {
	t.calc()
	t.mutex.Lock()
	defer t.mutex.Unlock()
	out := make([]float64, len(ps))
	for i, p := range ps {
		v, ok := t.percentiles[p]
		if !ok {
			v = SamplePercentiles(t.values, []float64{p})[0]
			t.percentiles[p] = v
		}
		out[i] = v
	}
	return out
}

func (t *resettingTimerSnapshot) calc() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.calculated {
		return
	}
	t.mean = SampleMean(t.values)
	t.percentiles = make(map[float64]float64)
	t.calculated = true
}

func (t *resettingTimerSnapshot) Snapshot() ResettingTimer { return t }

func (*resettingTimerSnapshot) Time(func()) {
	panic("Time called on a resetting timer snapshot")
}

func (*resettingTimerSnapshot) Update(time.Duration) {
	panic("Update called on a resetting timer snapshot")
}

func (*resettingTimerSnapshot) UpdateSince(time.Time) {
	panic("UpdateSince called on a resetting timer snapshot")
}

func (t *resettingTimerSnapshot) Values() []int64 { return t.values }
