package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfman30/inkstudio-platform/cmd/mainconfig"
	"github.com/wolfman30/inkstudio-platform/internal/app/bootstrap"
	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/calsync"
	"github.com/wolfman30/inkstudio-platform/internal/config"
	"github.com/wolfman30/inkstudio-platform/internal/customers"
	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/internal/notify"
	"github.com/wolfman30/inkstudio-platform/internal/observability/metrics"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

const metricsAddr = ":9090"

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).Component("worker")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("notification worker requires DATABASE_URL")
		os.Exit(1)
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	metricsHandler, studioMetrics := mainconfig.SetupMetrics()
	stores := bootstrap.BuildStores(pool)
	email := mainconfig.BuildEmailSender(ctx, cfg, logger)

	deliverer := buildDeliverer(cfg, stores.Outbox, stores.Processed, email, studioMetrics, logger)

	if sink := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, logger); sink != nil {
		deliverer = deliverer.WithSink(sink)
		defer func() { _ = sink.Close() }()
		logger.Info("publishing delivered events to kafka", "topic", cfg.KafkaTopic)
	}

	if scheduler := buildScheduler(cfg, stores, bootstrap.BuildSyncStateStore(redisClient), studioMetrics, logger); scheduler != nil {
		go scheduler.Start(ctx)
		logger.Info("calendar sync scheduler started", "interval", cfg.CalsyncInterval)
	}

	go deliverer.Run(ctx)

	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("notification worker shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	time.Sleep(2 * time.Second)
}

func buildDeliverer(cfg *config.Config, outbox events.Outbox, sent events.IdempotencyStore, email notify.EmailSender, m *metrics.StudioMetrics, logger *logging.Logger) *events.Deliverer {
	notifier := bootstrap.BuildNotifier(cfg, email, sent, logger)
	return events.NewDeliverer(outbox, notifier, logger).
		WithBatchSize(cfg.NotifyBatchSize).
		WithInterval(cfg.NotifyPollInterval).
		WithMaxAttempts(cfg.NotifyMaxAttempts).
		WithBaseDelay(cfg.NotifyBaseDelay).
		WithMetrics(m)
}

// buildScheduler returns nil unless periodic calendar sync is enabled and configured.
func buildScheduler(cfg *config.Config, stores bootstrap.Stores, state calsync.StateStore, m *metrics.StudioMetrics, logger *logging.Logger) *calsync.Scheduler {
	if !cfg.CalsyncEnabled {
		return nil
	}
	customerSvc := customers.NewService(stores.Customers, logger)
	dispatcher := events.NewDispatcher(stores.Outbox, logger)
	appointmentSvc := appointments.NewService(stores.Appointments, logger).
		WithCustomers(customerSvc).
		WithEvents(dispatcher).
		WithMetrics(m)

	syncer := bootstrap.BuildSyncer(cfg, bootstrap.SyncDeps{
		Bookings:     stores.Bookings,
		Appointments: appointmentSvc,
		Customers:    customerSvc,
		Events:       dispatcher,
		Metrics:      m,
	}, state, logger)
	if !syncer.Configured() {
		return nil
	}
	scheduler, err := calsync.NewScheduler(syncer, calsync.SchedulerConfig{
		Interval:  cfg.CalsyncInterval,
		BatchSize: cfg.CalsyncBatchSize,
	}, logger)
	if err != nil {
		logger.Error("failed to build calendar sync scheduler", "error", err)
		return nil
	}
	return scheduler
}
