package metrics

import (
	"fmt"
	"io"
	"time"
)

// WriteOnce writes a single line per metric in r to w, in alphabetical
// order by name, formatted the way a human would read it from a log
// file rather than a machine-parseable one (see the prometheus
// subpackage for that).
func WriteOnce(r Registry, w io.Writer) {
	eachSorted(r, func(name string, i interface{}) {
		switch m := i.(type) {
		case Counter:
			fmt.Fprintf(w, "counter %s\n", name)
			fmt.Fprintf(w, "  count:       %9d\n", m.Snapshot().Count())
		case CounterFloat64:
			fmt.Fprintf(w, "counter %s\n", name)
			fmt.Fprintf(w, "  count:       %f\n", m.Count())
		case Gauge:
			fmt.Fprintf(w, "gauge %s\n", name)
			fmt.Fprintf(w, "  value:       %9d\n", m.Snapshot().Value())
		case GaugeFloat64:
			fmt.Fprintf(w, "gauge %s\n", name)
			fmt.Fprintf(w, "  value:       %f\n", m.Snapshot().Value())
		case GaugeInfo:
			fmt.Fprintf(w, "gauge %s\n", name)
			fmt.Fprintf(w, "  value:       %s\n", m.Snapshot().Value())
		case Histogram:
			h := m.Snapshot()
			ps := h.Percentiles([]float64{0.5, 0.75, 0.95, 0.99, 0.999, 0.9999})
			fmt.Fprintf(w, "histogram %s\n", name)
			fmt.Fprintf(w, "  count:       %9d\n", h.Count())
			fmt.Fprintf(w, "  min:         %9d\n", h.Min())
			fmt.Fprintf(w, "  max:         %9d\n", h.Max())
			fmt.Fprintf(w, "  mean:        %12.2f\n", h.Mean())
			fmt.Fprintf(w, "  stddev:      %12.2f\n", h.StdDev())
			fmt.Fprintf(w, "  median:      %12.2f\n", ps[0])
			fmt.Fprintf(w, "  75%%:         %12.2f\n", ps[1])
			fmt.Fprintf(w, "  95%%:         %12.2f\n", ps[2])
			fmt.Fprintf(w, "  99%%:         %12.2f\n", ps[3])
			fmt.Fprintf(w, "  99.9%%:       %12.2f\n", ps[4])
			fmt.Fprintf(w, "  99.99%%:      %12.2f\n", ps[5])
		case Meter:
			mt := m.Snapshot()
			fmt.Fprintf(w, "meter %s\n", name)
			fmt.Fprintf(w, "  count:       %9d\n", mt.Count())
			fmt.Fprintf(w, "  1-min rate:  %12.2f\n", mt.Rate1())
			fmt.Fprintf(w, "  5-min rate:  %12.2f\n", mt.Rate5())
			fmt.Fprintf(w, "  15-min rate: %12.2f\n", mt.Rate15())
			fmt.Fprintf(w, "  mean rate:   %12.2f\n", mt.RateMean())
		case Timer:
			t := m.Snapshot()
			ps := t.Percentiles([]float64{0.5, 0.75, 0.95, 0.99, 0.999, 0.9999})
			fmt.Fprintf(w, "timer %s\n", name)
			fmt.Fprintf(w, "  count:       %9d\n", t.Count())
			fmt.Fprintf(w, "  min:         %12.2f\n", float64(t.Min())/float64(time.Millisecond))
			fmt.Fprintf(w, "  max:         %12.2f\n", float64(t.Max())/float64(time.Millisecond))
			fmt.Fprintf(w, "  mean:        %12.2f\n", t.Mean()/float64(time.Millisecond))
			fmt.Fprintf(w, "  stddev:      %12.2f\n", t.StdDev()/float64(time.Millisecond))
			fmt.Fprintf(w, "  median:      %12.2f\n", ps[0]/float64(time.Millisecond))
			fmt.Fprintf(w, "  75%%:         %12.2f\n", ps[1]/float64(time.Millisecond))
			fmt.Fprintf(w, "  95%%:         %12.2f\n", ps[2]/float64(time.Millisecond))
			fmt.Fprintf(w, "  99%%:         %12.2f\n", ps[3]/float64(time.Millisecond))
			fmt.Fprintf(w, "  99.9%%:       %12.2f\n", ps[4]/float64(time.Millisecond))
			fmt.Fprintf(w, "  99.99%%:      %12.2f\n", ps[5]/float64(time.Millisecond))
			fmt.Fprintf(w, "  1-min rate:  %12.2f\n", t.Rate1())
			fmt.Fprintf(w, "  5-min rate:  %12.2f\n", t.Rate5())
			fmt.Fprintf(w, "  15-min rate: %12.2f\n", t.Rate15())
			fmt.Fprintf(w, "  mean rate:   %12.2f\n", t.RateMean())
		case ResettingTimer:
			t := m.Snapshot()
			ps := t.Percentiles([]float64{0.5, 0.75, 0.95, 0.99})
			fmt.Fprintf(w, "resetting-timer %s\n", name)
			fmt.Fprintf(w, "  count:       %9d\n", len(t.Values()))
			fmt.Fprintf(w, "  mean:        %12.2f\n", t.Mean())
			fmt.Fprintf(w, "  median:      %12.2f\n", ps[0])
			fmt.Fprintf(w, "  75%%:         %12.2f\n", ps[1])
			fmt.Fprintf(w, "  95%%:         %12.2f\n", ps[2])
			fmt.Fprintf(w, "  99%%:         %12.2f\n", ps[3])
		}
	})
}

// Write periodically writes the given registry to w, once per d, until
// the process exits.
func Write(r Registry, d time.Duration, w io.Writer) {
	for range time.Tick(d) {
		WriteOnce(r, w)
	}
}
