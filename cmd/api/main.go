package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/inkstudio-platform/cmd/mainconfig"
	"github.com/wolfman30/inkstudio-platform/internal/analytics"
	"github.com/wolfman30/inkstudio-platform/internal/api/router"
	"github.com/wolfman30/inkstudio-platform/internal/app/bootstrap"
	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/bookings"
	"github.com/wolfman30/inkstudio-platform/internal/calsync"
	appconfig "github.com/wolfman30/inkstudio-platform/internal/config"
	"github.com/wolfman30/inkstudio-platform/internal/contacts"
	"github.com/wolfman30/inkstudio-platform/internal/customers"
	"github.com/wolfman30/inkstudio-platform/internal/events"
	httpmiddleware "github.com/wolfman30/inkstudio-platform/internal/http/middleware"
	"github.com/wolfman30/inkstudio-platform/internal/notify"
	"github.com/wolfman30/inkstudio-platform/internal/observability/metrics"
	"github.com/wolfman30/inkstudio-platform/internal/payments"
	"github.com/wolfman30/inkstudio-platform/internal/users"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting inkstudio-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	if pool == nil {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	} else {
		defer pool.Close()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	metricsHandler, studioMetrics := mainconfig.SetupMetrics()
	email := mainconfig.BuildEmailSender(ctx, cfg, logger)

	app := buildApp(cfg, appDeps{
		Pool:           pool,
		Redis:          redisClient,
		Email:          email,
		MetricsHandler: metricsHandler,
		Metrics:        studioMetrics,
	}, logger)
	defer app.Close()

	go app.Hub.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type appDeps struct {
	Pool           *pgxpool.Pool
	Redis          *redis.Client
	Email          notify.EmailSender
	MetricsHandler http.Handler
	Metrics        *metrics.StudioMetrics
}

// app is everything main needs to run and tear down the API process.
type app struct {
	Handler http.Handler
	Hub     *analytics.Hub
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(cfg *appconfig.Config, deps appDeps, logger *logging.Logger) *app {
	stores := bootstrap.BuildStores(deps.Pool)
	a := &app{}

	hub := analytics.NewHub(cfg.CORSAllowedOrigins, logger)
	a.Hub = hub
	dispatcher := events.NewDispatcher(stores.Outbox, logger, hub)

	customerSvc := customers.NewService(stores.Customers, logger)
	appointmentSvc := appointments.NewService(stores.Appointments, logger).
		WithCustomers(customerSvc).
		WithEvents(dispatcher).
		WithMetrics(deps.Metrics)
	contactSvc := contacts.NewService(stores.Contacts, deps.Email, logger).
		WithEvents(dispatcher).
		WithStudioName(cfg.StudioName)
	bookingSvc := bookings.NewService(customerSvc, appointmentSvc, logger)

	syncer := bootstrap.BuildSyncer(cfg, bootstrap.SyncDeps{
		Bookings:     stores.Bookings,
		Appointments: appointmentSvc,
		Customers:    customerSvc,
		Events:       dispatcher,
		Metrics:      deps.Metrics,
	}, bootstrap.BuildSyncStateStore(deps.Redis), logger)

	var gateway payments.Gateway
	if stripeGateway := payments.NewStripeGateway(cfg.StripeSecretKey, nil); stripeGateway != nil {
		gateway = stripeGateway
	} else {
		logger.Warn("stripe not configured, payment endpoints will report setup_required")
	}
	paymentSvc := payments.NewService(gateway, cfg.StripeDefaultCurrency, logger)
	stripeHook := payments.NewWebhookHandler(cfg.StripeWebhookSecret, appointmentSvc, stores.Processed, logger).
		WithEvents(dispatcher).
		WithMetrics(deps.Metrics)

	var reporter *analytics.Reporter
	if deps.Pool != nil {
		db := stdlib.OpenDBFromPool(deps.Pool)
		a.closers = append(a.closers, func() { _ = db.Close() })
		reporter = analytics.NewReporter(db)
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	a.closers = append(a.closers, limiter.Close)

	a.Handler = router.New(&router.Config{
		Logger:             logger,
		Metrics:            deps.Metrics,
		Appointments:       appointments.NewHandler(appointmentSvc, logger),
		Customers:          customers.NewHandler(customerSvc, logger),
		Users:              users.NewHandler(stores.Users, logger),
		Contacts:           contacts.NewHandler(contactSvc, logger),
		Bookings:           bookings.NewHandler(bookingSvc, logger),
		CalSync:            calsync.NewHandler(syncer, logger),
		Payments:           payments.NewHandler(paymentSvc, logger),
		StripeHook:         stripeHook,
		Analytics:          analytics.NewHandler(reporter, hub, logger),
		DeadLetters:        events.NewDeadLetterHandler(stores.Outbox, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		MetricsHandler:     deps.MetricsHandler,
		HealthChecks:       healthChecks(deps.Pool, deps.Redis),
	})
	return a
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
