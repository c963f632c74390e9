package metrics

import "sync/atomic"

// Gauge holds an int64 value that can be set arbitrarily.
type Gauge interface {
	Snapshot() Gauge
	Update(int64)
	Value() int64
}

// NewGauge constructs a new Gauge, or a no-op one when metrics collection
// is disabled.
func NewGauge() Gauge {
	if !Enabled {
		return NilGauge{}
	}
	return &StandardGauge{}
}

// NewRegisteredGauge constructs and registers a new Gauge.
func NewRegisteredGauge(name string, r Registry) Gauge {
	c := NewGauge()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// NewFunctionalGauge constructs a new Gauge that reports the value
// returned by f whenever it is read.
func NewFunctionalGauge(f func() int64) Gauge {
	if !Enabled {
		return NilGauge{}
	}
	return &FunctionalGauge{value: f}
}

// NewRegisteredFunctionalGauge constructs and registers a new
// FunctionalGauge.
func NewRegisteredFunctionalGauge(name string, r Registry, f func() int64) Gauge {
	c := NewFunctionalGauge(f)
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// GetOrRegisterGauge returns an existing Gauge or constructs and
// registers a new one.
func GetOrRegisterGauge(name string, r Registry) Gauge {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewGauge).(Gauge)
}

// NilGauge is a no-op Gauge.
type NilGauge struct{}

func (NilGauge) Snapshot() Gauge { return NilGauge{} }
func (NilGauge) Update(int64)     {}
func (NilGauge) Value() int64     { return 0 }

// gaugeSnapshot is a read-only copy of a Gauge.
type gaugeSnapshot int64

func (g gaugeSnapshot) Snapshot() Gauge { return g }
func (g gaugeSnapshot) Update(int64)     { panic("Update called on a gauge snapshot") }
func (g gaugeSnapshot) Value() int64     { return int64(g) }

// StandardGauge is the standard implementation of a Gauge.
type StandardGauge struct {
	value atomic.Int64
}

// Snapshot returns a read-only copy of the gauge.
func (g *StandardGauge) Snapshot() Gauge {
	return gaugeSnapshot(g.value.Load())
}

// Update sets the gauge's value.
func (g *StandardGauge) Update(v int64) {
	g.value.Store(v)
}

// Value returns the gauge's current value.
func (g *StandardGauge) Value() int64 {
	return g.value.Load()
}

// FunctionalGauge returns value from a function it stores.
type FunctionalGauge struct {
	value func() int64
}

// Value invokes the wrapped function and returns its result.
func (g FunctionalGauge) Value() int64 {
	return g.value()
}

// Snapshot returns a snapshot of the current value, not tied to the
// function any more.
func (g FunctionalGauge) Snapshot() Gauge { return gaugeSnapshot(g.Value()) }

// Update panics: a FunctionalGauge's value comes from its function.
func (FunctionalGauge) Update(int64) {
	panic("Update called on a functional gauge")
}
