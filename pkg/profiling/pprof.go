package profiling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kristinelam/gotransit/pkg/config"
)

// Profiler manages the pprof server
type Profiler struct {
	config *config.ServerConfig
	server *http.Server
	log    hclog.Logger
}

// New creates a new profiler instance
func New(cfg *config.ServerConfig, logger hclog.Logger) *Profiler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Profiler{config: cfg, log: logger}
}

// Handler returns the profiling routes
func (p *Profiler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/info", infoHandler)
	return mux
}

// Start starts the profiling server on a separate port. It is a no-op when
// profiling is disabled.
func (p *Profiler) Start() error {
	if !p.config.EnableProfiling {
		p.log.Debug("📊 profiling disabled")
		return nil
	}

	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)

	p.server = &http.Server{
		Addr:              ":" + p.config.ProfilingPort,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.log.Info("📊 starting profiling server", "port", p.config.ProfilingPort,
		"index", fmt.Sprintf("http://localhost:%s/debug/pprof/", p.config.ProfilingPort))

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			p.log.Error("❌ profiling server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully stops the profiling server
func (p *Profiler) Stop() error {
	if p.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("profiling server shutdown error: %w", err)
	}
	p.server = nil
	p.log.Info("✅ profiling server stopped")
	return nil
}

// RuntimeInfo is the body of /debug/info
type RuntimeInfo struct {
	Timestamp  string  `json:"timestamp"`
	Goroutines int     `json:"goroutines"`
	GOMAXPROCS int     `json:"gomaxprocs"`
	NumCPU     int     `json:"num_cpu"`
	Version    string  `json:"version"`
	AllocMB    float64 `json:"alloc_mb"`
	SysMB      float64 `json:"sys_mb"`
	HeapObjs   uint64  `json:"heap_objects"`
	GC         GCStats `json:"gc"`
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RuntimeInfo{
		Timestamp:  time.Now().Format(time.RFC3339),
		Goroutines: runtime.NumGoroutine(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		NumCPU:     runtime.NumCPU(),
		Version:    runtime.Version(),
		AllocMB:    bToMb(m.Alloc),
		SysMB:      bToMb(m.Sys),
		HeapObjs:   m.HeapObjects,
		GC:         gcStatsFrom(&m),
	})
}

// bToMb converts bytes to megabytes
func bToMb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
