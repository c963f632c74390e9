// Package metrics provides general purpose counters, gauges, histograms,
// meters and timers, along with a registry to collect and export them.
//
// It mirrors the shape of rcrowley/go-metrics: every metric type has a
// "real" implementation plus a nil/noop implementation, and the package
// level Enabled switch decides which one the constructors hand back, so
// instrumentation can be left in hot paths without runtime cost when
// metrics collection is turned off.
package metrics

import (
	"os"
	"strings"
	"time"

	"github.com/vosd/vos/log"
)

// Enabled is checked by the constructors for all of the standard metrics.
// If it is true, the metric returned is a stat-collecting object; if it
// is false, it is a no-op. Metrics are on by default; the package's init
// turns them off when a process argument reads "metrics.disable" (leading
// dashes ignored). It is configured on
// startup before any other goroutine has a chance to use the package, so
// it does not need synchronization.
var Enabled = true

// EnabledExpensive is a soft-flag meant for external packages to check if
// they are running with expensive metrics (e.g. per-bucket histograms).
var EnabledExpensive = false

func init() {
	for _, arg := range os.Args {
		flag := strings.TrimLeft(arg, "-")
		if flag == "metrics.disable" {
			Enabled = false
		}
		if flag == "metrics.expensive" {
			EnabledExpensive = true
		}
	}
}

// CollectProcessMetrics periodically collects various metrics about the
// running process, registering them under the default registry. period is
// the sampling interval; it should be short enough that counters like
// PauseNs don't silently lose samples, but not so short it itself becomes
// load-bearing.
func CollectProcessMetrics(period time.Duration) {
	if !Enabled {
		return
	}
	refresh := period
	if refresh == 0 {
		refresh = 3 * time.Second
	}

	RegisterRuntimeMemStats(DefaultRegistry)
	RegisterDebugGCStats(DefaultRegistry)

	for {
		CaptureRuntimeMemStatsOnce(DefaultRegistry)
		CaptureDebugGCStatsOnce(DefaultRegistry)
		time.Sleep(refresh)
	}
}

// namedMetricSlice is a slice of (name, metric) pairs that sorts
// alphabetically by name.
type namedMetric struct {
	name   string
	metric interface{}
}

type namedMetricSlice []namedMetric

func (s namedMetricSlice) Len() int { return len(s) }

func (s namedMetricSlice) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s namedMetricSlice) Less(i, j int) bool {
	return s[i].name < s[j].name
}

var logger = log.New("pkg", "metrics")
