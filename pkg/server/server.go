package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kristinelam/gotransit/pkg/config"
	"github.com/kristinelam/gotransit/pkg/handlers"
	"github.com/kristinelam/gotransit/pkg/metrics"
	"github.com/kristinelam/gotransit/pkg/profiling"
	"github.com/kristinelam/gotransit/pkg/webhook"
	"github.com/kristinelam/gotransit/pkg/worker"
)

// Server represents the HTTP server with all dependencies
type Server struct {
	config       *config.Config
	serverConfig *config.ServerConfig
	workerPool   *worker.Pool
	httpServer   *http.Server
	profiler     *profiling.Profiler
	memProfiler  *profiling.MemoryProfiler
	middleware   *profiling.Middleware
	log          hclog.Logger
}

// Options holds configuration for creating a new server
type Options struct {
	Config       *config.Config
	ServerConfig *config.ServerConfig
	Processor    worker.ProcessorFunc
	// Sender delivers batch results. When nil a webhook client for
	// ServerConfig.WebhookURL is used; an empty URL disables delivery.
	Sender worker.Sender
	Logger hclog.Logger
}

// New creates a new server instance
func New(opts Options) (*Server, error) {
	if opts.Processor == nil {
		return nil, errors.New("server: processor is required")
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.ServerConfig == nil {
		opts.ServerConfig = config.DefaultServerConfig()
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Sender == nil && opts.ServerConfig.WebhookURL != "" {
		opts.Sender = webhook.NewClient(webhook.Options{
			URL:              opts.ServerConfig.WebhookURL,
			FailureThreshold: opts.ServerConfig.BreakerFailures,
			BreakerTimeout:   opts.ServerConfig.BreakerTimeout,
			Quiet:            opts.Config.Quiet,
			Logger:           opts.Logger.Named("webhook"),
		})
	}

	s := &Server{
		config:       opts.Config,
		serverConfig: opts.ServerConfig,
		workerPool: worker.New(worker.Options{
			Workers:   opts.ServerConfig.WorkerCount,
			Processor: opts.Processor,
			Sender:    opts.Sender,
			Logger:    opts.Logger.Named("worker"),
		}),
		profiler:   profiling.New(opts.ServerConfig, opts.Logger.Named("profiling")),
		middleware: profiling.NewMiddleware(opts.ServerConfig.EnableProfiling),
		log:        opts.Logger,
	}
	if opts.ServerConfig.EnableProfiling {
		s.memProfiler = profiling.NewMemoryProfiler(30*time.Second, opts.Logger.Named("memory"))
	}

	s.setupRoutes(opts.Processor)
	return s, nil
}

// setupRoutes configures HTTP routes and handlers
func (s *Server) setupRoutes(processor worker.ProcessorFunc) {
	mux := http.NewServeMux()

	single := handlers.NewLightCurveHandler(s.config, processor, s.log.Named("lightcurve"))
	batch := handlers.NewBatchHandler(s.config, s.workerPool, s.serverConfig.TimingFile, s.log.Named("batch"))

	mux.Handle("/lightcurve", s.middleware.ProfiledHandler("lightcurve-single", single))
	mux.Handle("/lightcurve/batch", s.middleware.ProfiledHandler("lightcurve-batch", batch))
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/debug/gc", s.gcHandler)
	mux.HandleFunc("/debug/memory", s.memoryHandler)

	var handler http.Handler = mux
	if s.serverConfig.EnableMetrics {
		mux.Handle("/metrics", metrics.Handler())
		handler = metrics.Middleware(mux)
	}

	s.httpServer = &http.Server{
		Addr:         ":" + s.serverConfig.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// healthHandler provides a simple health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"workers":   s.workerPool.Workers(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// gcHandler triggers garbage collection and returns stats
func (s *Server) gcHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, profiling.ForceGC(s.log))
}

// memoryHandler logs and returns the current GC statistics
func (s *Server) memoryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, profiling.LogGCStats(s.log))
}

// Start starts the HTTP server. It blocks until the server stops and returns
// nil after a graceful shutdown.
func (s *Server) Start() error {
	if err := s.profiler.Start(); err != nil {
		s.log.Error("❌ failed to start profiler", "error", err)
	}
	if s.memProfiler != nil {
		s.memProfiler.Start()
	}

	s.log.Info("🚀 starting HTTP server", "port", s.serverConfig.Port,
		"single", fmt.Sprintf("http://localhost:%s/lightcurve", s.serverConfig.Port),
		"batch", fmt.Sprintf("http://localhost:%s/lightcurve/batch", s.serverConfig.Port),
		"metrics", s.serverConfig.EnableMetrics)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and drains the
// worker pool
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("🛑 shutting down server")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.log.Warn("⚠️ http shutdown error", "error", err)
	}
	if perr := s.profiler.Stop(); perr != nil {
		s.log.Warn("⚠️ profiler shutdown error", "error", perr)
	}
	if s.memProfiler != nil {
		s.memProfiler.Stop()
	}
	s.workerPool.Shutdown()

	s.log.Info("✅ server shutdown complete")
	return err
}
