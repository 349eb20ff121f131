package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/taixiu/internal/adapters/http/api"
	"github.com/okian/taixiu/internal/adapters/http/site"
	"github.com/okian/taixiu/internal/adapters/http/swagger"
	"github.com/okian/taixiu/internal/adapters/provider"
	app "github.com/okian/taixiu/internal/app"
	"github.com/okian/taixiu/internal/config"
	"github.com/okian/taixiu/internal/domain/ensemble"
	"github.com/okian/taixiu/pkg/logger"
	"github.com/okian/taixiu/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}

	configureLogging(ctx, cfg)

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
	_ = logger.Sync()
}

// configureLogging applies the configured format and level. Invalid values
// fall back to text/info.
func configureLogging(ctx context.Context, cfg *config.Config) {
	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		_ = logger.InitWithWriter(os.Stdout, "text")
		logger.Get().Warn(ctx, "invalid log_format; falling back to text",
			logger.String("log_format", cfg.LogFormat), logger.Error(err))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
}

// newService builds the prediction service from configuration.
func newService(cfg *config.Config) *app.Service {
	log := logger.Get()

	source := provider.NewHTTP(cfg.HistoryURL,
		provider.WithPath(cfg.HistoryPath),
		provider.WithTimeout(cfg.FetchTimeout()),
		provider.WithRequestsPerSecond(cfg.FetchRPS),
		provider.WithMaxElapsed(cfg.FetchMaxElapsed()),
		provider.WithLogger(log.Named("provider")),
	)

	opts := []ensemble.Option{
		ensemble.WithSupplementaryVoters(cfg.SupplementaryVoters),
		ensemble.WithSupplementaryConfidence(cfg.SupplementaryMinConfidence, cfg.SupplementaryMaxConfidence),
	}
	if cfg.RandomSeed != 0 {
		opts = append(opts, ensemble.WithSeed(cfg.RandomSeed))
	}

	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithProvider(source),
		app.WithPredictor(ensemble.New(opts...)),
		app.WithLedgerDriver(cfg.LedgerDriver, cfg.LedgerDSN),
		app.WithCacheTTL(cfg.CacheTTL()),
		app.WithRefreshInterval(cfg.RefreshInterval()),
	)
}

// newMux registers every route.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc, cfg.MaxHistoryLimit)
	apiServer.Register(ctx, mux)
	return mux
}

// run starts the service and HTTP server and blocks until ctx ends.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("historyURL", cfg.HistoryURL),
			logger.String("ledger", cfg.LedgerDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges derived from service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if n, ok := stats["historySessions"].(int); ok {
		metrics.UpdateHistorySessions(n)
	}

	if pending, ok := stats["ledgerPending"].(int); ok {
		metrics.UpdateLedgerPending(pending)
	}

	if pct, ok := stats["accuracyPct"].(float64); ok {
		metrics.UpdateLedgerAccuracy(pct / 100)
	}
}
