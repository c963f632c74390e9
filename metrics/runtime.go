package metrics

import (
	"runtime"
	"runtime/pprof"
	rmetrics "runtime/metrics"
	"time"
)

var runtimeMetrics struct {
	MemStats struct {
		Alloc         Gauge
		BuckHashSys   Gauge
		Frees         Gauge
		GCSys         Gauge
		HeapAlloc     Gauge
		HeapIdle      Gauge
		HeapInuse     Gauge
		HeapObjects   Gauge
		HeapReleased  Gauge
		HeapSys       Gauge
		LastGC        Gauge
		Lookups       Gauge
		MCacheInuse   Gauge
		MCacheSys     Gauge
		MSpanInuse    Gauge
		MSpanSys      Gauge
		Mallocs       Gauge
		NextGC        Gauge
		NumGC         Gauge
		GCCPUFraction GaugeFloat64
		OtherSys      Gauge
		PauseNs       Histogram
		PauseTotalNs  Gauge
		StackInuse    Gauge
		StackSys      Gauge
		Sys           Gauge
		TotalAlloc    Gauge
	}
	NumCgoCall   Gauge
	NumGoroutine Gauge
	NumThread    Gauge
	ReadMemStats Timer
}

var (
	numGC               uint32
	threadCreateProfile = pprof.Lookup("threadcreate")
)

// RegisterRuntimeMemStats constructs and registers the Go runtime memory
// and GC statistics under r, mirroring runtime.MemStats.
func RegisterRuntimeMemStats(r Registry) {
	runtimeMetrics.MemStats.Alloc = NewGauge()
	runtimeMetrics.MemStats.BuckHashSys = NewGauge()
	runtimeMetrics.MemStats.Frees = NewGauge()
	runtimeMetrics.MemStats.GCSys = NewGauge()
	runtimeMetrics.MemStats.HeapAlloc = NewGauge()
	runtimeMetrics.MemStats.HeapIdle = NewGauge()
	runtimeMetrics.MemStats.HeapInuse = NewGauge()
	runtimeMetrics.MemStats.HeapObjects = NewGauge()
	runtimeMetrics.MemStats.HeapReleased = NewGauge()
	runtimeMetrics.MemStats.HeapSys = NewGauge()
	runtimeMetrics.MemStats.LastGC = NewGauge()
	runtimeMetrics.MemStats.Lookups = NewGauge()
	runtimeMetrics.MemStats.MCacheInuse = NewGauge()
	runtimeMetrics.MemStats.MCacheSys = NewGauge()
	runtimeMetrics.MemStats.MSpanInuse = NewGauge()
	runtimeMetrics.MemStats.MSpanSys = NewGauge()
	runtimeMetrics.MemStats.Mallocs = NewGauge()
	runtimeMetrics.MemStats.NextGC = NewGauge()
	runtimeMetrics.MemStats.NumGC = NewGauge()
	runtimeMetrics.MemStats.GCCPUFraction = NewGaugeFloat64()
	runtimeMetrics.MemStats.OtherSys = NewGauge()
	runtimeMetrics.MemStats.PauseNs = NewHistogram(NewExpDecaySample(1028, 0.015))
	runtimeMetrics.MemStats.PauseTotalNs = NewGauge()
	runtimeMetrics.MemStats.StackInuse = NewGauge()
	runtimeMetrics.MemStats.StackSys = NewGauge()
	runtimeMetrics.MemStats.Sys = NewGauge()
	runtimeMetrics.MemStats.TotalAlloc = NewGauge()
	runtimeMetrics.NumCgoCall = NewGauge()
	runtimeMetrics.NumGoroutine = NewGauge()
	runtimeMetrics.NumThread = NewGauge()
	runtimeMetrics.ReadMemStats = NewTimer()

	MustRegister2(r, "runtime.MemStats.Alloc", runtimeMetrics.MemStats.Alloc)
	MustRegister2(r, "runtime.MemStats.BuckHashSys", runtimeMetrics.MemStats.BuckHashSys)
	MustRegister2(r, "runtime.MemStats.Frees", runtimeMetrics.MemStats.Frees)
	MustRegister2(r, "runtime.MemStats.GCCPUFraction", runtimeMetrics.MemStats.GCCPUFraction)
	MustRegister2(r, "runtime.MemStats.GCSys", runtimeMetrics.MemStats.GCSys)
	MustRegister2(r, "runtime.MemStats.HeapAlloc", runtimeMetrics.MemStats.HeapAlloc)
	MustRegister2(r, "runtime.MemStats.HeapIdle", runtimeMetrics.MemStats.HeapIdle)
	MustRegister2(r, "runtime.MemStats.HeapInuse", runtimeMetrics.MemStats.HeapInuse)
	MustRegister2(r, "runtime.MemStats.HeapObjects", runtimeMetrics.MemStats.HeapObjects)
	MustRegister2(r, "runtime.MemStats.HeapReleased", runtimeMetrics.MemStats.HeapReleased)
	MustRegister2(r, "runtime.MemStats.HeapSys", runtimeMetrics.MemStats.HeapSys)
	MustRegister2(r, "runtime.MemStats.LastGC", runtimeMetrics.MemStats.LastGC)
	MustRegister2(r, "runtime.MemStats.Lookups", runtimeMetrics.MemStats.Lookups)
	MustRegister2(r, "runtime.MemStats.MCacheInuse", runtimeMetrics.MemStats.MCacheInuse)
	MustRegister2(r, "runtime.MemStats.MCacheSys", runtimeMetrics.MemStats.MCacheSys)
	MustRegister2(r, "runtime.MemStats.MSpanInuse", runtimeMetrics.MemStats.MSpanInuse)
	MustRegister2(r, "runtime.MemStats.MSpanSys", runtimeMetrics.MemStats.MSpanSys)
	MustRegister2(r, "runtime.MemStats.Mallocs", runtimeMetrics.MemStats.Mallocs)
	MustRegister2(r, "runtime.MemStats.NextGC", runtimeMetrics.MemStats.NextGC)
	MustRegister2(r, "runtime.MemStats.NumGC", runtimeMetrics.MemStats.NumGC)
	MustRegister2(r, "runtime.MemStats.OtherSys", runtimeMetrics.MemStats.OtherSys)
	MustRegister2(r, "runtime.MemStats.PauseNs", runtimeMetrics.MemStats.PauseNs)
	MustRegister2(r, "runtime.MemStats.PauseTotalNs", runtimeMetrics.MemStats.PauseTotalNs)
	MustRegister2(r, "runtime.MemStats.StackInuse", runtimeMetrics.MemStats.StackInuse)
	MustRegister2(r, "runtime.MemStats.StackSys", runtimeMetrics.MemStats.StackSys)
	MustRegister2(r, "runtime.MemStats.Sys", runtimeMetrics.MemStats.Sys)
	MustRegister2(r, "runtime.MemStats.TotalAlloc", runtimeMetrics.MemStats.TotalAlloc)
	MustRegister2(r, "runtime.NumCgoCall", runtimeMetrics.NumCgoCall)
	MustRegister2(r, "runtime.NumGoroutine", runtimeMetrics.NumGoroutine)
	MustRegister2(r, "runtime.NumThread", runtimeMetrics.NumThread)
	MustRegister2(r, "runtime.ReadMemStats", runtimeMetrics.ReadMemStats)
}

// MustRegister2 registers metric under name in r, ignoring a duplicate
// registration: RegisterRuntimeMemStats/RegisterDebugGCStats may be
// called more than once against the same registry in tests.
func MustRegister2(r Registry, name string, metric interface{}) {
	if err := r.Register(name, metric); err != nil {
		if _, dup := err.(DuplicateMetric); !dup {
			panic(err)
		}
	}
}

// CaptureRuntimeMemStats captures new values for the Go runtime
// statistics exported in runtimeMetrics, once per period, until the
// process exits. CollectProcessMetrics does not use it; it runs its own
// loop over CaptureRuntimeMemStatsOnce.
func CaptureRuntimeMemStats(r Registry, period time.Duration) {
	for range time.Tick(period) {
		CaptureRuntimeMemStatsOnce(r)
	}
}

// CaptureRuntimeMemStatsOnce captures new values for the Go runtime
// statistics exported in runtimeMetrics.
func CaptureRuntimeMemStatsOnce(r Registry) {
	var memStats runtime.MemStats
	t := time.Now()
	runtime.ReadMemStats(&memStats)
	runtimeMetrics.ReadMemStats.UpdateSince(t)

	runtimeMetrics.MemStats.Alloc.Update(int64(memStats.Alloc))
	runtimeMetrics.MemStats.BuckHashSys.Update(int64(memStats.BuckHashSys))
	runtimeMetrics.MemStats.Frees.Update(int64(memStats.Frees))
	runtimeMetrics.MemStats.GCCPUFraction.Update(memStats.GCCPUFraction)
	runtimeMetrics.MemStats.GCSys.Update(int64(memStats.GCSys))
	runtimeMetrics.MemStats.HeapAlloc.Update(int64(memStats.HeapAlloc))
	runtimeMetrics.MemStats.HeapIdle.Update(int64(memStats.HeapIdle))
	runtimeMetrics.MemStats.HeapInuse.Update(int64(memStats.HeapInuse))
	runtimeMetrics.MemStats.HeapObjects.Update(int64(memStats.HeapObjects))
	runtimeMetrics.MemStats.HeapReleased.Update(int64(memStats.HeapReleased))
	runtimeMetrics.MemStats.HeapSys.Update(int64(memStats.HeapSys))
	runtimeMetrics.MemStats.LastGC.Update(int64(memStats.LastGC))
	runtimeMetrics.MemStats.Lookups.Update(int64(memStats.Lookups))
	runtimeMetrics.MemStats.MCacheInuse.Update(int64(memStats.MCacheInuse))
	runtimeMetrics.MemStats.MCacheSys.Update(int64(memStats.MCacheSys))
	runtimeMetrics.MemStats.MSpanInuse.Update(int64(memStats.MSpanInuse))
	runtimeMetrics.MemStats.MSpanSys.Update(int64(memStats.MSpanSys))
	runtimeMetrics.MemStats.Mallocs.Update(int64(memStats.Mallocs))
	runtimeMetrics.MemStats.NextGC.Update(int64(memStats.NextGC))
	runtimeMetrics.MemStats.NumGC.Update(int64(memStats.NumGC))
	runtimeMetrics.MemStats.OtherSys.Update(int64(memStats.OtherSys))
	runtimeMetrics.MemStats.PauseTotalNs.Update(int64(memStats.PauseTotalNs))
	runtimeMetrics.MemStats.StackInuse.Update(int64(memStats.StackInuse))
	runtimeMetrics.MemStats.StackSys.Update(int64(memStats.StackSys))
	runtimeMetrics.MemStats.Sys.Update(int64(memStats.Sys))
	runtimeMetrics.MemStats.TotalAlloc.Update(int64(memStats.TotalAlloc))

	// memStats.PauseNs is a ring buffer of the most recent 256 GC pause
	// durations; read only the entries that arrived since the last
	// capture, falling back to the whole ring if 256 or more GCs have
	// run since then (in which case everything before the oldest
	// remaining entry is lost).
	i := numGC % uint32(len(memStats.PauseNs))
	ii := memStats.NumGC % uint32(len(memStats.PauseNs))
	if memStats.NumGC-numGC >= uint32(len(memStats.PauseNs)) {
		for i = 0; i < uint32(len(memStats.PauseNs)); i++ {
			runtimeMetrics.MemStats.PauseNs.Update(int64(memStats.PauseNs[i]))
		}
	} else {
		if i > ii {
			for ; i < uint32(len(memStats.PauseNs)); i++ {
				runtimeMetrics.MemStats.PauseNs.Update(int64(memStats.PauseNs[i]))
			}
			i = 0
		}
		for ; i < ii; i++ {
			runtimeMetrics.MemStats.PauseNs.Update(int64(memStats.PauseNs[i]))
		}
	}
	numGC = memStats.NumGC

	runtimeMetrics.NumCgoCall.Update(runtime.NumCgoCall())
	runtimeMetrics.NumGoroutine.Update(int64(runtime.NumGoroutine()))

	if threadCreateProfile != nil {
		runtimeMetrics.NumThread.Update(int64(threadCreateProfile.Count()))
	}
}

// runtimeStats holds the runtime/metrics histograms not available
// through runtime.MemStats: scheduling latency and GC pause duration.
type runtimeStats struct {
	GCPauses     *rmetrics.Float64Histogram
	SchedLatency *rmetrics.Float64Histogram
}

// ReadRuntimeStats reads the current scheduling-latency and GC-pause
// histograms straight from the runtime/metrics package.
func ReadRuntimeStats() *runtimeStats {
	samples := []rmetrics.Sample{
		{Name: "/gc/pauses:seconds"},
		{Name: "/sched/latencies:seconds"},
	}
	rmetrics.Read(samples)
	return &runtimeStats{
		GCPauses:     samples[0].Value.Float64Histogram(),
		SchedLatency: samples[1].Value.Float64Histogram(),
	}
}
