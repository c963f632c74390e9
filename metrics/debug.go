package metrics

import (
	"runtime/debug"
	"time"
)

var debugMetrics struct {
	GCStats struct {
		LastGC     Gauge
		NumGC      Gauge
		Pause      Histogram
		PauseTotal Gauge
	}
	ReadGCStats Timer
}

var gcStats debug.GCStats

// RegisterDebugGCStats constructs and registers the Go runtime's
// debug.GCStats-derived metrics under r.
func RegisterDebugGCStats(r Registry) {
	debugMetrics.GCStats.LastGC = NewGauge()
	debugMetrics.GCStats.NumGC = NewGauge()
	debugMetrics.GCStats.Pause = NewHistogram(NewExpDecaySample(1028, 0.015))
	debugMetrics.GCStats.PauseTotal = NewGauge()
	debugMetrics.ReadGCStats = NewTimer()

	MustRegister2(r, "debug.GCStats.LastGC", debugMetrics.GCStats.LastGC)
	MustRegister2(r, "debug.GCStats.NumGC", debugMetrics.GCStats.NumGC)
	MustRegister2(r, "debug.GCStats.Pause", debugMetrics.GCStats.Pause)
	MustRegister2(r, "debug.GCStats.PauseTotal", debugMetrics.GCStats.PauseTotal)
	MustRegister2(r, "debug.GCStats.ReadGCStats", debugMetrics.ReadGCStats)
}

// CaptureDebugGCStats captures new values for the Go runtime's
// debug.GCStats-derived metrics, once per period, until the process
// exits. CollectProcessMetrics does not use it; it runs its own loop over
// CaptureDebugGCStatsOnce.
func CaptureDebugGCStats(r Registry, period time.Duration) {
	for range time.Tick(period) {
		CaptureDebugGCStatsOnce(r)
	}
}

// CaptureDebugGCStatsOnce captures new values for the Go runtime's
// debug.GCStats-derived metrics.
func CaptureDebugGCStatsOnce(r Registry) {
	lastGC := gcStats.LastGC
	t := time.Now()
	debug.ReadGCStats(&gcStats)
	debugMetrics.ReadGCStats.UpdateSince(t)

	debugMetrics.GCStats.LastGC.Update(gcStats.LastGC.UnixNano())
	debugMetrics.GCStats.NumGC.Update(gcStats.NumGC)
	if lastGC != gcStats.LastGC && len(gcStats.Pause) > 0 {
		debugMetrics.GCStats.Pause.Update(int64(gcStats.Pause[0]))
	}
	debugMetrics.GCStats.PauseTotal.Update(int64(gcStats.PauseTotal))
}
