package metrics

import "sync/atomic"

// Counter holds an int64 value that can be incremented and decremented.
type Counter interface {
	Clear()
	Dec(int64)
	Inc(int64)
	Snapshot() CounterSnapshot
}

// CounterSnapshot is a read-only copy of a Counter's value at a point in
// time.
type CounterSnapshot interface {
	Count() int64
}

// NewCounter constructs a new Counter, or a no-op Counter when metrics
// collection is disabled.
func NewCounter() Counter {
	if !Enabled {
		return NilCounter{}
	}
	return &StandardCounter{}
}

// NewRegisteredCounter constructs and registers a new Counter.
func NewRegisteredCounter(name string, r Registry) Counter {
	c := NewCounter()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// GetOrRegisterCounter returns an existing Counter or constructs and
// registers a new one.
func GetOrRegisterCounter(name string, r Registry) Counter {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewCounter).(Counter)
}

// CounterSnapshotValue is a read-only copy of a Counter.
type CounterSnapshotValue int64

// Count returns the count at the time the snapshot was taken.
func (c CounterSnapshotValue) Count() int64 { return int64(c) }

// NilCounter is a no-op Counter.
type NilCounter struct{}

func (NilCounter) Clear()                    {}
func (NilCounter) Dec(i int64)                {}
func (NilCounter) Inc(i int64)                {}
func (NilCounter) Snapshot() CounterSnapshot { return CounterSnapshotValue(0) }

// StandardCounter is the standard implementation of a Counter.
type StandardCounter struct {
	count atomic.Int64
}

// Clear sets the counter to zero.
func (c *StandardCounter) Clear() {
	c.count.Store(0)
}

// Dec decrements the counter by the given amount.
func (c *StandardCounter) Dec(i int64) {
	c.count.Add(-i)
}

// Inc increments the counter by the given amount.
func (c *StandardCounter) Inc(i int64) {
	c.count.Add(i)
}

// Snapshot returns a read-only copy of the counter.
func (c *StandardCounter) Snapshot() CounterSnapshot {
	return CounterSnapshotValue(c.count.Load())
}
