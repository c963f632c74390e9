// Package internal holds fixtures shared by the metrics package's own
// tests: a small populated registry for exercising exporters.
package internal

import (
	"github.com/vosd/vos/metrics"
)

// ExampleMetrics returns a registry populated with one instance of
// every metric type, for exercising an exporter. Counter, Gauge and
// Histogram are given deterministic values; Meter, Timer and
// ResettingTimer are left at their zero state and registered only to
// exercise the exporter's TYPE line for them, since their Mark/Update
// paths feed a moving rate that a snapshot comparison can't pin down.
func ExampleMetrics() metrics.Registry {
	r := metrics.NewRegistry()

	counter := metrics.NewRegisteredCounter("counter", r)
	counter.Inc(12345)

	counterFloat64 := metrics.NewRegisteredCounterFloat64("counter.float", r)
	counterFloat64.Inc(1.2345)

	gauge := metrics.NewRegisteredGauge("gauge", r)
	gauge.Update(23456)

	gaugeFloat64 := metrics.NewRegisteredGaugeFloat64("gauge.float", r)
	gaugeFloat64.Update(2.3456)

	gaugeInfo := metrics.NewRegisteredGaugeInfo("gauge.info", r)
	gaugeInfo.Update(metrics.GaugeInfoValue{"key": "value"})

	sample := metrics.NewUniformSample(1028)
	histogram := metrics.NewRegisteredHistogram("histogram", r, sample)
	for i := 1; i <= 100; i++ {
		histogram.Update(int64(i))
	}

	meter := metrics.NewRegisteredMeter("meter", r)
	meter.Stop()

	timer := metrics.NewRegisteredTimer("timer", r)
	timer.Stop()

	metrics.NewRegisteredResettingTimer("resetting.timer", r)

	return r
}
