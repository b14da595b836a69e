package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fastprop/internal/config"
	"fastprop/internal/obs"
	"fastprop/internal/wire"
	"fastprop/pkg/concurrency"
	"fastprop/pkg/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownGrace = 5 * time.Second

func newServeCommand() *cobra.Command {
	flags := struct {
		projectDir     string
		tempDir        string
		numThreads     int
		numFeatures    int
		samplingFactor float64
		bindAddress    string
		metricsAddress string
		dialect        string
		logLevel       string
		development    bool
	}{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the propositionalization daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runServe(cmd.Context(), cfg, flags.metricsAddress)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.projectDir, "project-directory", ".", "directory holding frame sources")
	fs.StringVar(&flags.tempDir, "temp-dir", "/tmp/fastprop", "scratch directory for spilled columns")
	fs.IntVar(&flags.numThreads, "num-threads", 0, "worker pool size (0 means max(2, hw_concurrency/2))")
	fs.IntVar(&flags.numFeatures, "num-features", 500, "candidate feature budget per fit")
	fs.Float64Var(&flags.samplingFactor, "sampling-factor", 1.0, "row sampling factor during candidate scoring")
	fs.StringVar(&flags.bindAddress, "bind-address", "127.0.0.1:1711", "loopback address for the command socket")
	fs.StringVar(&flags.metricsAddress, "metrics-address", "127.0.0.1:1712", "loopback address for the /metrics endpoint")
	fs.StringVar(&flags.dialect, "dialect", "ansi", "default SQL dialect for to_sql (ansi, postgres, sqlite, mysql)")
	fs.StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.BoolVar(&flags.development, "development", false, "use zap's development logging profile")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, metricsAddress string) error {
	if err := obs.Init(obs.Config{Development: cfg.Development, Level: cfg.LogLevel}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer obs.Close()

	logger := obs.GetLogger()
	logger.Info("starting fastpropd",
		zap.String("bind_address", cfg.BindAddress),
		zap.String("project_directory", cfg.ProjectDirectory),
		zap.Int("num_threads", effectiveThreads(cfg.NumThreads)),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := pipeline.NewFrameStore()
	manager := pipeline.NewManager()
	server := wire.NewServer(cfg.BindAddress, manager, store)

	metricsServer := &http.Server{
		Addr:    metricsAddress,
		Handler: newMetricsMux(),
	}
	go func() {
		logger.Info("metrics listening", zap.String("addr", metricsAddress))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func newMetricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.MetricsHandler())
	return mux
}

func effectiveThreads(configured int) int {
	if configured > 0 {
		return configured
	}
	return concurrency.DefaultParallelism()
}
