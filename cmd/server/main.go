package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giftcast/internal/core/ports"
	"giftcast/internal/core/services"
	httphandlers "giftcast/internal/handlers/http"
	archive "giftcast/internal/infrastructure/backup"
	"giftcast/internal/infrastructure/middleware"
	"giftcast/internal/infrastructure/monitoring"
	"giftcast/internal/infrastructure/repositories"
	"giftcast/pkg/config"
	"giftcast/pkg/logger"
	"giftcast/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", envOr("GIFTCAST_CONFIG", "configs/config.yaml"), "path to the YAML config")
	flag.Parse()

	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	if err := run(cfg, zapLogger); err != nil {
		log.Fatalw("Server failed", "error", err)
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	log := zapLogger.Sugar()
	clock := clockwork.NewRealClock()
	ctx := context.Background()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	economy, err := services.EconomyConfigFrom(cfg)
	if err != nil {
		return err
	}

	repoFactory, err := repositories.NewRepositoryFactory(ctx, cfg, clock, log)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	groupRepo := repoFactory.CreateGroupRepository()
	walletRepo := repoFactory.CreateWalletRepository()
	sessionRepo := repoFactory.CreateSessionRepository()

	activity := services.NewMetricsService()
	var metrics ports.EconomyMetrics = activity
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.Fanout{activity, monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)}
	}

	rt := services.Runtime{Clock: clock, Metrics: metrics, Logger: log}
	writer := services.NewSnapshotWriter(groupRepo, walletRepo, repoFactory.SnapshotStore(), services.SnapshotWriterConfig{
		BatchSize:     cfg.Persistence.BatchSize,
		FlushInterval: cfg.Persistence.FlushInterval,
		SaveTimeout:   cfg.Persistence.SaveTimeout,
	}, rt)
	if err := writer.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	rt.Notifier = writer

	groups := services.NewGroupService(groupRepo, economy, rt)
	wallets := services.NewWalletService(walletRepo, economy, rt)
	live := services.NewLiveService(groups, sessionRepo, wallets, economy, rt)
	feed := services.NewFeedService(sessionRepo, economy, rt)

	walletAPI := wallets
	var keyed *services.IdempotentWalletService
	if cfg.Idempotency.Enabled {
		keyed = services.NewIdempotentWalletService(wallets, cfg.Idempotency.TTL, clock)
		walletAPI = keyed
	}

	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		storage, err := repoFactory.ArchiveStorage()
		if err != nil {
			return fmt.Errorf("failed to open archive storage: %w", err)
		}
		backups := archive.NewArchiveService(storage, clock)
		archiver = archive.NewArchiver(backups, writer, cfg.Archive.RetentionDays, clock, log)
	}
	archiveInterval := time.Duration(0)
	if archiver != nil {
		archiveInterval = cfg.Archive.Interval
	}
	scheduler, err := archive.NewScheduler(archiver, live, archive.SchedulerConfig{
		ArchiveInterval:  archiveInterval,
		PruneInterval:    cfg.Live.PruneInterval,
		SessionRetention: cfg.Live.EndedSessionRetention,
		JobTimeout:       time.Minute,
	}, clock, log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	scheduler.Start()

	health := monitoring.NewHealthChecker(clock)
	health.AddPingCheck("snapshot_store", repoFactory, 2*time.Second)
	health.AddFreshnessCheck("snapshot_writer", writer.LastSaved, 10*cfg.Persistence.FlushInterval+time.Minute)

	var verifier *middleware.TokenVerifier
	if cfg.Auth.Enabled {
		verifier = middleware.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, clock)
	}

	var metricsHandler http.Handler
	if cfg.Monitoring.PrometheusEnabled {
		metricsHandler = promhttp.Handler()
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httphandlers.NewRouter(httphandlers.RouterConfig{
		Config:        cfg,
		Logger:        log,
		ContextLogger: logger.NewContextLogger(zapLogger),
		Clock:         clock,
		Verifier:      verifier,
		Health:        httphandlers.NewHealthHandler(health),
		Metrics:       metricsHandler,
		Handlers: []ports.RouteRegistrar{
			httphandlers.NewGroupHandler(groups, live),
			httphandlers.NewWalletHandler(walletAPI),
			httphandlers.NewLiveHandler(live, feed, groups),
			httphandlers.NewCatalogHandler(wallets, activity),
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting giftcast server",
			"address", cfg.Server.Address,
			"backend", repoFactory.Backend(),
			"auth", cfg.Auth.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-serverErr:
		log.Errorw("HTTP server stopped unexpectedly", "error", runErr)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	}

	if err := scheduler.Stop(); err != nil {
		log.Warnw("Error stopping scheduler", "error", err)
	}
	if keyed != nil {
		keyed.Stop()
	}

	// Stop writes whatever is still pending
	writer.Stop()

	if err := repoFactory.Close(shutdownCtx); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Error shutting down tracer", "error", err)
	}

	log.Info("giftcast server stopped")
	return runErr
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
