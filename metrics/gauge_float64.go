package metrics

import "sync"

// GaugeFloat64 holds a float64 value that can be set arbitrarily.
type GaugeFloat64 interface {
	Snapshot() GaugeFloat64
	Update(float64)
	Value() float64
}

// NewGaugeFloat64 constructs a new GaugeFloat64, or a no-op one when
// metrics collection is disabled.
func NewGaugeFloat64() GaugeFloat64 {
	if !Enabled {
		return NilGaugeFloat64{}
	}
	return &StandardGaugeFloat64{}
}

// NewRegisteredGaugeFloat64 constructs and registers a new GaugeFloat64.
func NewRegisteredGaugeFloat64(name string, r Registry) GaugeFloat64 {
	c := NewGaugeFloat64()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// NewFunctionalGaugeFloat64 constructs a new GaugeFloat64 that reports the
// value returned by f whenever it is read.
func NewFunctionalGaugeFloat64(f func() float64) GaugeFloat64 {
	if !Enabled {
		return NilGaugeFloat64{}
	}
	return &FunctionalGaugeFloat64{value: f}
}

// NewRegisteredFunctionalGaugeFloat64 constructs and registers a new
// FunctionalGaugeFloat64.
func NewRegisteredFunctionalGaugeFloat64(name string, r Registry, f func() float64) GaugeFloat64 {
	c := NewFunctionalGaugeFloat64(f)
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// GetOrRegisterGaugeFloat64 returns an existing GaugeFloat64 or constructs
// and registers a new one.
func GetOrRegisterGaugeFloat64(name string, r Registry) GaugeFloat64 {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewGaugeFloat64).(GaugeFloat64)
}

// NilGaugeFloat64 is a no-op GaugeFloat64.
type NilGaugeFloat64 struct{}

func (NilGaugeFloat64) Snapshot() GaugeFloat64 { return NilGaugeFloat64{} }
func (NilGaugeFloat64) Update(float64)          {}
func (NilGaugeFloat64) Value() float64          { return 0 }

type gaugeFloat64Snapshot float64

func (g gaugeFloat64Snapshot) Snapshot() GaugeFloat64 { return g }
func (g gaugeFloat64Snapshot) Update(float64)          { panic("Update called on a gauge snapshot") }
func (g gaugeFloat64Snapshot) Value() float64          { return float64(g) }

// StandardGaugeFloat64 is the standard implementation of a GaugeFloat64.
type StandardGaugeFloat64 struct {
	mu    sync.Mutex
	value float64
}

// Snapshot returns a read-only copy of the gauge.
func (g *StandardGaugeFloat64) Snapshot() GaugeFloat64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return gaugeFloat64Snapshot(g.value)
}

// Update sets the gauge's value.
func (g *StandardGaugeFloat64) Update(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// Value returns the gauge's current value.
func (g *StandardGaugeFloat64) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// FunctionalGaugeFloat64 returns value from a function it stores.
type FunctionalGaugeFloat64 struct {
	value func() float64
}

// Value invokes the wrapped function and returns its result.
func (g FunctionalGaugeFloat64) Value() float64 {
	return g.value()
}

// Snapshot returns a snapshot of the current value, not tied to the
// function any more.
func (g FunctionalGaugeFloat64) Snapshot() GaugeFloat64 { return gaugeFloat64Snapshot(g.Value()) }

// Update panics: a FunctionalGaugeFloat64's value comes from its function.
func (FunctionalGaugeFloat64) Update(float64) {
	panic("Update called on a functional gauge")
}
