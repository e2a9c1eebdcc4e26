package bootstrap

import (
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/inkstudio-platform/internal/calsync"
	appconfig "github.com/wolfman30/inkstudio-platform/internal/config"
	"github.com/wolfman30/inkstudio-platform/internal/observability/metrics"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

const calsyncKeyPrefix = "inkstudio:"

// SyncDeps are the collaborators the calendar syncer reconciles into.
type SyncDeps struct {
	Bookings     calsync.BookingStore
	Appointments calsync.AppointmentReconciler
	Customers    calsync.CustomerResolver
	Events       calsync.EventPublisher
	Metrics      *metrics.StudioMetrics
}

// BuildCalendarAPI returns the Cal.com client, or nil when no API key is set.
func BuildCalendarAPI(cfg *appconfig.Config, logger *logging.Logger) calsync.API {
	if cfg == nil || !cfg.CalcomConfigured() {
		return nil
	}
	client := calsync.NewCalcomClient(cfg.CalcomBaseURL, cfg.CalcomAPIKey, logger)
	if client == nil {
		return nil
	}
	return client
}

// BuildSyncStateStore prefers Redis so the sync lock holds across replicas.
func BuildSyncStateStore(client *redis.Client) calsync.StateStore {
	if client == nil {
		return calsync.NewMemoryStateStore()
	}
	return calsync.NewRedisStateStore(client, calsyncKeyPrefix)
}

// BuildSyncer wires the calendar syncer. The returned syncer reports
// Configured() == false when the API key is missing.
func BuildSyncer(cfg *appconfig.Config, deps SyncDeps, state calsync.StateStore, logger *logging.Logger) *calsync.Syncer {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}
	if state == nil {
		state = calsync.NewMemoryStateStore()
	}
	syncer := calsync.NewSyncer(BuildCalendarAPI(cfg, logger), deps.Bookings, state, deps.Appointments, deps.Customers, logger).
		WithMetrics(deps.Metrics).
		WithLockTTL(cfg.CalsyncLockTTL)
	if deps.Events != nil {
		syncer = syncer.WithEvents(deps.Events)
	}
	if !syncer.Configured() {
		logger.Warn("calendar sync not configured", "reason", "CALCOM_API_KEY missing")
	}
	return syncer
}
