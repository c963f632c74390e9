package metrics

// Histogram calculates distribution statistics from a series of int64
// values, backed by a Sample reservoir rather than storing every value.
type Histogram interface {
	Clear()
	Count() int64
	Max() int64
	Mean() float64
	Min() int64
	Percentile(float64) float64
	Percentiles([]float64) []float64
	Sample() Sample
	Snapshot() Histogram
	StdDev() float64
	Sum() int64
	Update(int64)
	Variance() float64
}

// NewHistogram constructs a new Histogram over the given Sample.
func NewHistogram(s Sample) Histogram {
	if !Enabled {
		return NilHistogram{}
	}
	return &StandardHistogram{sample: s}
}

// NewRegisteredHistogram constructs and registers a new Histogram.
func NewRegisteredHistogram(name string, r Registry, s Sample) Histogram {
	c := NewHistogram(s)
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// GetOrRegisterHistogram returns an existing Histogram or constructs and
// registers a new one.
func GetOrRegisterHistogram(name string, r Registry, s Sample) Histogram {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, func() Histogram { return NewHistogram(s) }).(Histogram)
}

// NilHistogram is a no-op Histogram.
type NilHistogram struct{}

func (NilHistogram) Clear()                            {}
func (NilHistogram) Count() int64                       { return 0 }
func (NilHistogram) Max() int64                         { return 0 }
func (NilHistogram) Mean() float64                      { return 0.0 }
func (NilHistogram) Min() int64                         { return 0 }
func (NilHistogram) Percentile(float64) float64          { return 0.0 }
func (NilHistogram) Percentiles(ps []float64) []float64 { return make([]float64, len(ps)) }
func (NilHistogram) Sample() Sample                     { return NilSample{} }
func (NilHistogram) Snapshot() Histogram                { return NilHistogram{} }
func (NilHistogram) StdDev() float64                    { return 0.0 }
func (NilHistogram) Sum() int64                         { return 0 }
func (NilHistogram) Update(v int64)                      {}
func (NilHistogram) Variance() float64                  { return 0.0 }

// StandardHistogram is the standard implementation of a Histogram,
// delegating every statistic to its underlying Sample.
type StandardHistogram struct {
	sample Sample
}

func (h *StandardHistogram) Clear() { h.sample.Clear() }

func (h *StandardHistogram) Count() int64 { return h.sample.Count() }

func (h *StandardHistogram) Max() int64 { return h.sample.Max() }

func (h *StandardHistogram) Mean() float64 { return h.sample.Mean() }

func (h *StandardHistogram) Min() int64 { return h.sample.Min() }

func (h *StandardHistogram) Percentile(p float64) float64 {
	return h.sample.Percentiles([]float64{p})[0]
}

func (h *StandardHistogram) Percentiles(ps []float64) []float64 {
	return h.sample.Percentiles(ps)
}

func (h *StandardHistogram) Sample() Sample { return h.sample }

func (h *StandardHistogram) Snapshot() Histogram {
	return &histogramSnapshot{sample: h.sample.Snapshot()}
}

func (h *StandardHistogram) StdDev() float64 { return h.sample.StdDev() }

func (h *StandardHistogram) Sum() int64 { return h.sample.Sum() }

func (h *StandardHistogram) Update(v int64) { h.sample.Update(v) }

func (h *StandardHistogram) Variance() float64 { return h.sample.Variance() }

// histogramSnapshot is a read-only copy of a Histogram.
type histogramSnapshot struct {
	sample Sample
}

func (h *histogramSnapshot) Clear() {
	panic("Clear called on a histogram snapshot")
}

func (h *histogramSnapshot) Count() int64 { return h.sample.Count() }

func (h *histogramSnapshot) Max() int64 { return h.sample.Max() }

func (h *histogramSnapshot) Mean() float64 { return h.sample.Mean() }

func (h *histogramSnapshot) Min() int64 { return h.sample.Min() }

func (h *histogramSnapshot) Percentile(p float64) float64 {
	return h.sample.Percentiles([]float64{p})[0]
}

func (h *histogramSnapshot) Percentiles(ps []float64) []float64 {
	return h.sample.Percentiles(ps)
}

func (h *histogramSnapshot) Sample() Sample { return h.sample }

func (h *histogramSnapshot) Snapshot() Histogram { return h }

func (h *histogramSnapshot) StdDev() float64 { return h.sample.StdDev() }

func (h *histogramSnapshot) Sum() int64 { return h.sample.Sum() }

func (h *histogramSnapshot) Update(int64) {
	panic("Update called on a histogram snapshot")
}

func (h *histogramSnapshot) Variance() float64 { return h.sample.Variance() }
