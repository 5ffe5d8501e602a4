package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kristinelam/gotransit"
	"github.com/kristinelam/gotransit/internal/processing"
	"github.com/kristinelam/gotransit/internal/tablestore"
	"github.com/kristinelam/gotransit/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve light curve evaluations over HTTP",
	Long: `Start the HTTP service.

Endpoints:
  POST /lightcurve        evaluate one light curve
  POST /lightcurve/batch  evaluate a batch on the worker pool, results by webhook
  GET  /health            health check
  GET  /metrics           Prometheus metrics`,
	RunE: runServe,
}

func init() {
	bindModelFlags(serveCmd.Flags())

	fs := serveCmd.Flags()
	fs.StringVarP(&srvCfg.Port, "port", "p", srvCfg.Port, "HTTP port")
	fs.IntVar(&srvCfg.WorkerCount, "workers", srvCfg.WorkerCount, "batch worker goroutines")
	fs.StringVar(&srvCfg.WebhookURL, "webhook-url", srvCfg.WebhookURL, "batch result receiver, empty disables delivery")
	fs.BoolVar(&srvCfg.EnableMetrics, "metrics", srvCfg.EnableMetrics, "expose /metrics")
	fs.BoolVar(&srvCfg.EnableProfiling, "profile", srvCfg.EnableProfiling, "start the pprof server")
	fs.StringVar(&srvCfg.ProfilingPort, "profile-port", srvCfg.ProfilingPort, "pprof port")
	fs.StringVar(&srvCfg.TableDB, "table-db", srvCfg.TableDB, "interpolation table database, empty keeps tables in memory only")
	fs.StringVar(&srvCfg.TimingFile, "timing-file", srvCfg.TimingFile, "batch timing CSV, empty disables it")
	fs.Uint32Var(&srvCfg.BreakerFailures, "breaker-failures", srvCfg.BreakerFailures, "consecutive webhook failures that open the breaker")
	fs.DurationVar(&srvCfg.BreakerTimeout, "breaker-timeout", srvCfg.BreakerTimeout, "time the breaker stays open")
	fs.DurationVar(&srvCfg.ShutdownTimeout, "shutdown-timeout", srvCfg.ShutdownTimeout, "graceful shutdown limit")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backing gotransit.TableStore
	if srvCfg.TableDB != "" {
		store, err := tablestore.Open(srvCfg.TableDB)
		if err != nil {
			return err
		}
		defer store.Close()
		backing = store
		logger.Info("📦 table store opened", "path", store.Path())
	}
	tables := tablestore.NewCache(backing, logger.Named("tables"))

	processor := processing.NewLightCurveProcessor(cfg, tables, logger.Named("processing"))
	srv, err := server.New(server.Options{
		Config:       cfg,
		ServerConfig: srvCfg,
		Processor:    processor.ProcessorFunc(),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
