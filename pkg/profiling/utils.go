package profiling

import (
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"
)

// MemoryProfiler logs memory usage at a fixed interval
type MemoryProfiler struct {
	interval time.Duration
	log      hclog.Logger
	stop     chan struct{}
}

// NewMemoryProfiler creates a new memory profiler
func NewMemoryProfiler(interval time.Duration, logger hclog.Logger) *MemoryProfiler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &MemoryProfiler{
		interval: interval,
		log:      logger,
		stop:     make(chan struct{}),
	}
}

// Start begins memory profiling
func (mp *MemoryProfiler) Start() {
	go func() {
		ticker := time.NewTicker(mp.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				mp.logMemoryStats()
			case <-mp.stop:
				return
			}
		}
	}()
}

// Stop ends memory profiling. It must be called once.
func (mp *MemoryProfiler) Stop() {
	close(mp.stop)
}

func (mp *MemoryProfiler) logMemoryStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mp.log.Debug("📊 memory", "alloc_mb", bToMb(m.Alloc), "total_alloc_mb", bToMb(m.TotalAlloc),
		"sys_mb", bToMb(m.Sys), "gc", m.NumGC, "goroutines", runtime.NumGoroutine())
}

// GCStats provides garbage collection statistics
type GCStats struct {
	NumGC         uint32    `json:"gc_runs"`
	PauseTotalMs  float64   `json:"pause_total_ms"`
	PauseRecentUs float64   `json:"pause_recent_us"`
	LastGC        time.Time `json:"last_gc"`
	GCCPUPercent  float64   `json:"cpu_percent"`
}

// GetGCStats returns current garbage collection statistics
func GetGCStats() GCStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return gcStatsFrom(&m)
}

func gcStatsFrom(m *runtime.MemStats) GCStats {
	var recent time.Duration
	if m.NumGC > 0 {
		recent = time.Duration(m.PauseNs[(m.NumGC+255)%256])
	}
	return GCStats{
		NumGC:         m.NumGC,
		PauseTotalMs:  float64(m.PauseTotalNs) / 1e6,
		PauseRecentUs: float64(recent.Nanoseconds()) / 1e3,
		LastGC:        time.Unix(0, int64(m.LastGC)),
		GCCPUPercent:  m.GCCPUFraction * 100,
	}
}

// LogGCStats logs garbage collection statistics
func LogGCStats(logger hclog.Logger) GCStats {
	stats := GetGCStats()
	logger.Info("🗑️ gc", "runs", stats.NumGC, "total_pause_ms", stats.PauseTotalMs,
		"recent_pause_us", stats.PauseRecentUs, "cpu_percent", stats.GCCPUPercent,
		"last_gc", stats.LastGC.Format("15:04:05"))
	return stats
}

// ForceGC triggers garbage collection and returns the stats afterwards
func ForceGC(logger hclog.Logger) GCStats {
	before := GetGCStats()
	runtime.GC()
	after := GetGCStats()

	logger.Info("🗑️ forced gc", "runs_before", before.NumGC, "runs_after", after.NumGC, "pause_us", after.PauseRecentUs)
	return after
}
