// Package prometheus renders a metrics.Registry as Prometheus text
// exposition format, without depending on the official client_golang
// SDK: the format is simple enough, and the registry's metric types
// don't map one-to-one onto client_golang's, that a small hand-rolled
// writer is clearer than bridging the two models.
package prometheus

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/vosd/vos/metrics"
)

// Handler returns reg rendered as Prometheus text exposition format.
func Handler(reg metrics.Registry) string {
	c := newCollector()
	reg.Each(func(name string, i interface{}) {
		c.Add(name, i)
	})
	return c.buff.String()
}

type collector struct {
	buff *bytes.Buffer
}

func newCollector() *collector {
	return &collector{buff: new(bytes.Buffer)}
}

// Add renders one metric's lines into the collector's buffer.
func (c *collector) Add(name string, i interface{}) {
	name = mutateKey(name)
	switch m := i.(type) {
	case metrics.Counter:
		c.writeGaugeLine(name, "counter", float64(m.Snapshot().Count()))
	case metrics.CounterFloat64:
		c.writeGaugeLine(name, "counter", m.Snapshot().Count())
	case metrics.Gauge:
		c.writeGaugeLine(name, "gauge", float64(m.Snapshot().Value()))
	case metrics.GaugeFloat64:
		c.writeGaugeLine(name, "gauge", m.Snapshot().Value())
	case metrics.GaugeInfo:
		c.writeGaugeInfo(name, m.Snapshot().Value())
	case metrics.Histogram:
		c.writeHistogram(name, m.Snapshot())
	case metrics.Meter:
		c.writeMeter(name, m.Snapshot())
	case metrics.Timer:
		c.writeTimer(name, m.Snapshot())
	case metrics.ResettingTimer:
		c.writeResettingTimer(name, m.Snapshot())
	}
}

func (c *collector) writeGaugeLine(name, typ string, value float64) {
	fmt.Fprintf(c.buff, "# TYPE %s %s\n", name, typ)
	fmt.Fprintf(c.buff, "%s %v\n", name, value)
}

func (c *collector) writeGaugeInfo(name string, value metrics.GaugeInfoValue) {
	fmt.Fprintf(c.buff, "# TYPE %s gauge\n", name)
	if len(value) == 0 {
		fmt.Fprintf(c.buff, "%s{} 1\n", name)
		return
	}
	keys := make([]string, 0, len(value))
	for k := range value {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = fmt.Sprintf("%s=%q", k, value[k])
	}
	fmt.Fprintf(c.buff, "%s{%s} 1\n", name, strings.Join(labels, ","))
}

var histogramPercentiles = []float64{0.5, 0.75, 0.95, 0.99, 0.999, 0.9999}
var histogramPercentileLabels = []string{"0.5", "0.75", "0.95", "0.99", "0.999", "0.9999"}

func (c *collector) writeHistogram(name string, h metrics.Histogram) {
	fmt.Fprintf(c.buff, "# TYPE %s summary\n", name)
	ps := h.Percentiles(histogramPercentiles)
	for i, label := range histogramPercentileLabels {
		fmt.Fprintf(c.buff, "%s{quantile=\"%s\"} %v\n", name, label, ps[i])
	}
	fmt.Fprintf(c.buff, "%s_sum %v\n", name, h.Sum())
	fmt.Fprintf(c.buff, "%s_count %v\n", name, h.Count())
}

func (c *collector) writeMeter(name string, m metrics.Meter) {
	fmt.Fprintf(c.buff, "# TYPE %s gauge\n", name)
	fmt.Fprintf(c.buff, "%s_count %v\n", name, m.Count())
	fmt.Fprintf(c.buff, "%s_rate1 %v\n", name, m.Rate1())
	fmt.Fprintf(c.buff, "%s_rate5 %v\n", name, m.Rate5())
	fmt.Fprintf(c.buff, "%s_rate15 %v\n", name, m.Rate15())
	fmt.Fprintf(c.buff, "%s_ratemean %v\n", name, m.RateMean())
}

func (c *collector) writeTimer(name string, t metrics.Timer) {
	fmt.Fprintf(c.buff, "# TYPE %s summary\n", name)
	ps := t.Percentiles(histogramPercentiles)
	for i, label := range histogramPercentileLabels {
		fmt.Fprintf(c.buff, "%s{quantile=\"%s\"} %v\n", name, label, ps[i])
	}
	fmt.Fprintf(c.buff, "%s_sum %v\n", name, t.Sum())
	fmt.Fprintf(c.buff, "%s_count %v\n", name, t.Count())
	fmt.Fprintf(c.buff, "%s_rate1 %v\n", name, t.Rate1())
	fmt.Fprintf(c.buff, "%s_rate5 %v\n", name, t.Rate5())
	fmt.Fprintf(c.buff, "%s_rate15 %v\n", name, t.Rate15())
	fmt.Fprintf(c.buff, "%s_ratemean %v\n", name, t.RateMean())
}

var resettingTimerPercentiles = []float64{0.5, 0.75, 0.95, 0.99}
var resettingTimerPercentileLabels = []string{"0.5", "0.75", "0.95", "0.99"}

func (c *collector) writeResettingTimer(name string, t metrics.ResettingTimer) {
	fmt.Fprintf(c.buff, "# TYPE %s summary\n", name)
	ps := t.Percentiles(resettingTimerPercentiles)
	for i, label := range resettingTimerPercentileLabels {
		fmt.Fprintf(c.buff, "%s{quantile=\"%s\"} %v\n", name, label, ps[i])
	}
	fmt.Fprintf(c.buff, "%s_count %v\n", name, len(t.Values()))
	fmt.Fprintf(c.buff, "%s_mean %v\n", name, t.Mean())
}

// mutateKey rewrites a dotted, slash-delimited metric name into the
// character set Prometheus allows in metric names.
func mutateKey(key string) string {
	key = strings.ReplaceAll(key, "/", "_")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	return key
}
