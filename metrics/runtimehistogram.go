package metrics

import (
	"math"
	"runtime/metrics"
	"sync/atomic"
)

// runtimeHistogram wraps a runtime/metrics histogram sample (e.g.
// /sched/latencies:seconds) as a Histogram. Its statistics are derived
// entirely from the most recently stored runtime/metrics.Float64Histogram,
// so Update is not supported: the value only changes via runtime/metrics
// reads, performed elsewhere and pushed in through store.
type runtimeHistogram struct {
	v atomic.Pointer[metrics.Float64Histogram]
}

func newRuntimeHistogram() *runtimeHistogram {
	h := new(runtimeHistogram)
	h.v.Store(new(metrics.Float64Histogram))
	return h
}

func (h *runtimeHistogram) store(v *metrics.Float64Histogram) {
	h.v.Store(v)
}

func (h *runtimeHistogram) read() runtimeHistogramSnapshot {
	v := h.v.Load()
	if v == nil {
		return runtimeHistogramSnapshot{}
	}
	return runtimeHistogramSnapshot(*v)
}

func (h *runtimeHistogram) Clear() {
	panic("runtimeHistogram does not support Clear")
}

func (h *runtimeHistogram) Count() int64 { return h.read().Count() }
func (h *runtimeHistogram) Max() int64   { return h.read().Max() }
func (h *runtimeHistogram) Mean() float64 { return h.read().Mean() }
func (h *runtimeHistogram) Min() int64    { return h.read().Min() }

func (h *runtimeHistogram) Percentile(p float64) float64 {
	return h.read().Percentile(p)
}

func (h *runtimeHistogram) Percentiles(ps []float64) []float64 {
	return h.read().Percentiles(ps)
}

func (h *runtimeHistogram) Sample() Sample {
	panic("runtimeHistogram does not support Sample")
}

func (h *runtimeHistogram) Snapshot() Histogram {
	s := h.read()
	return &s
}

func (h *runtimeHistogram) StdDev() float64 { return h.read().StdDev() }
func (h *runtimeHistogram) Sum() int64      { return h.read().Sum() }

func (h *runtimeHistogram) Update(int64) {
	panic("runtimeHistogram does not support Update; feed it through runtime/metrics instead")
}

func (h *runtimeHistogram) Variance() float64 { return h.read().Variance() }

// runtimeHistogramSnapshot is a read-only copy of a runtime/metrics
// histogram sample's bucket counts and boundaries.
type runtimeHistogramSnapshot metrics.Float64Histogram

func (s *runtimeHistogramSnapshot) Clear() {
	panic("runtimeHistogramSnapshot does not support Clear")
}

func (s *runtimeHistogramSnapshot) Update(int64) {
	panic("runtimeHistogramSnapshot does not support Update")
}

func (s *runtimeHistogramSnapshot) Sample() Sample {
	panic("runtimeHistogramSnapshot does not support Sample")
}

func (s *runtimeHistogramSnapshot) Snapshot() Histogram { return s }

// Count returns the total number of samples across every bucket.
func (s *runtimeHistogramSnapshot) Count() int64 {
	var count uint64
	for _, c := range s.Counts {
		count += c
	}
	return int64(count)
}

// Min returns the lower boundary of the first non-empty bucket.
func (s *runtimeHistogramSnapshot) Min() int64 {
	for i, c := range s.Counts {
		if c > 0 {
			return int64(s.Buckets[i])
		}
	}
	return 0
}

// Max returns the upper boundary of the last non-empty bucket, treating
// an unbounded (+Inf) top bucket as equal to its lower boundary.
func (s *runtimeHistogramSnapshot) Max() int64 {
	for i := len(s.Counts) - 1; i >= 0; i-- {
		if s.Counts[i] == 0 {
			continue
		}
		b := s.Buckets[i+1]
		if math.IsInf(b, 1) {
			b = s.Buckets[i]
		}
		return int64(b)
	}
	return 0
}

func (s *runtimeHistogramSnapshot) midpoint(i int) float64 {
	lo, hi := s.Buckets[i], s.Buckets[i+1]
	if math.IsInf(hi, 1) {
		return lo
	}
	return (lo + hi) / 2
}

// Sum approximates the total of every sample by treating each bucket's
// count as concentrated at the bucket's lower boundary.
func (s *runtimeHistogramSnapshot) Sum() int64 {
	var sum float64
	for i, c := range s.Counts {
		if c == 0 {
			continue
		}
		sum += float64(c) * s.Buckets[i]
	}
	return int64(math.Round(sum))
}

// Mean approximates the mean of the underlying samples by treating each
// bucket's count as concentrated at the bucket's midpoint.
func (s *runtimeHistogramSnapshot) Mean() float64 {
	var count, sum float64
	for i, c := range s.Counts {
		if c == 0 {
			continue
		}
		count += float64(c)
		sum += float64(c) * s.midpoint(i)
	}
	if count == 0 {
		return 0
	}
	return sum / count
}

// Variance approximates the sample variance of the bucket midpoints,
// weighted by count, with Bessel's correction.
func (s *runtimeHistogramSnapshot) Variance() float64 {
	var count float64
	for _, c := range s.Counts {
		count += float64(c)
	}
	if count < 2 {
		return 0
	}
	m := s.Mean()
	var sum float64
	for i, c := range s.Counts {
		if c == 0 {
			continue
		}
		d := s.midpoint(i) - m
		sum += float64(c) * d * d
	}
	return sum / (count - 1)
}

func (s *runtimeHistogramSnapshot) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// Percentile returns the p'th percentile of the underlying samples.
func (s *runtimeHistogramSnapshot) Percentile(p float64) float64 {
	return s.Percentiles([]float64{p})[0]
}

// Percentiles returns, for each p, the lower boundary of the bucket
// whose cumulative count first exceeds p*Count(), preserving the order
// of ps in the result.
func (s *runtimeHistogramSnapshot) Percentiles(ps []float64) []float64 {
	out := make([]float64, len(ps))
	if len(s.Buckets) == 0 {
		return out
	}
	total := s.Count()
	if total == 0 {
		return out
	}
	for i, p := range ps {
		pos := p * float64(total)
		var cum uint64
		found := false
		for j, c := range s.Counts {
			cum += c
			if float64(cum) > pos {
				out[i] = s.Buckets[j]
				found = true
				break
			}
		}
		if !found {
			out[i] = s.Buckets[len(s.Buckets)-1]
		}
	}
	return out
}
