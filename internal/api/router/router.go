package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/inkstudio-platform/internal/analytics"
	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/bookings"
	"github.com/wolfman30/inkstudio-platform/internal/calsync"
	"github.com/wolfman30/inkstudio-platform/internal/contacts"
	"github.com/wolfman30/inkstudio-platform/internal/customers"
	"github.com/wolfman30/inkstudio-platform/internal/events"
	httpmiddleware "github.com/wolfman30/inkstudio-platform/internal/http/middleware"
	"github.com/wolfman30/inkstudio-platform/internal/observability/metrics"
	"github.com/wolfman30/inkstudio-platform/internal/payments"
	"github.com/wolfman30/inkstudio-platform/internal/users"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger  *logging.Logger
	Metrics *metrics.StudioMetrics

	Appointments *appointments.Handler
	Customers    *customers.Handler
	Users        *users.Handler
	Contacts     *contacts.Handler
	Bookings     *bookings.Handler
	CalSync      *calsync.Handler
	Payments     *payments.Handler
	StripeHook   *payments.WebhookHandler
	Analytics    *analytics.Handler
	DeadLetters  *events.DeadLetterHandler

	AdminAuthSecret    string
	CORSAllowedOrigins []string

	RateLimiter    *httpmiddleware.RateLimiter // public form endpoints only
	MetricsHandler http.Handler
	HealthChecks   map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.Metrics))

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		// signature verification needs the raw body, so no JSON or compression middleware here
		if cfg.StripeHook != nil {
			public.Post("/webhooks/stripe", cfg.StripeHook.Handle)
		}
	})

	r.Route("/api", func(api chi.Router) {
		api.Group(func(forms chi.Router) {
			forms.Use(requireJSON)
			if cfg.RateLimiter != nil {
				forms.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			if cfg.Contacts != nil {
				forms.Post("/contact", cfg.Contacts.Create)
			}
			if cfg.Bookings != nil {
				forms.Post("/bookings", cfg.Bookings.Submit)
			}
			if cfg.Payments != nil {
				forms.Route("/payments", cfg.Payments.Routes)
			}
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Use(middleware.Compress(5, "application/json"))
			if cfg.Appointments != nil {
				admin.Route("/appointments", cfg.Appointments.Routes)
			}
			if cfg.Customers != nil {
				admin.Route("/customers", cfg.Customers.Routes)
			}
			if cfg.Users != nil {
				admin.Route("/users", cfg.Users.Routes)
			}
			if cfg.Contacts != nil {
				admin.Route("/contacts", cfg.Contacts.AdminRoutes)
			}
			if cfg.CalSync != nil {
				admin.Route("/bookings", cfg.CalSync.Routes)
			}
			if cfg.DeadLetters != nil {
				admin.Route("/notifications", cfg.DeadLetters.Routes)
			}
			if cfg.Analytics != nil {
				admin.Route("/analytics", cfg.Analytics.Routes)
				admin.Get("/live", cfg.Analytics.Live)
			}
		})
	})

	return r
}
