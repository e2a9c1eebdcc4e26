package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/calsync"
	appconfig "github.com/wolfman30/inkstudio-platform/internal/config"
	"github.com/wolfman30/inkstudio-platform/internal/customers"
	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/internal/notify"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
}

func TestBuildRedisClientVerifiesPing(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), true))
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	pool, err := BuildPostgresPool(context.Background(), "  ", nil)
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestBuildStoresFallsBackToMemory(t *testing.T) {
	stores := BuildStores(nil)
	assert.False(t, stores.Persistent)
	assert.IsType(t, &appointments.InMemoryRepository{}, stores.Appointments)
	assert.IsType(t, &customers.InMemoryRepository{}, stores.Customers)
	assert.IsType(t, &events.MemoryOutbox{}, stores.Outbox)
	assert.IsType(t, &events.MemoryProcessedStore{}, stores.Processed)
	assert.IsType(t, &calsync.MemoryBookingStore{}, stores.Bookings)
}

func TestBuildEmailSenderFallsBackToStub(t *testing.T) {
	sender := BuildEmailSender(&appconfig.Config{EmailProvider: "auto"}, nil, logging.New("error"))
	assert.IsType(t, &notify.StubEmailSender{}, sender)

	sender = BuildEmailSender(&appconfig.Config{
		EmailProvider:     "sendgrid",
		SendGridAPIKey:    "SG.test",
		SendGridFromEmail: "studio@example.com",
	}, nil, logging.New("error"))
	assert.IsType(t, &notify.SendGridSender{}, sender)
}

func TestBuildSyncerWithoutAPIKeyIsNotConfigured(t *testing.T) {
	appts := appointments.NewService(appointments.NewInMemoryRepository(), nil)
	custs := customers.NewService(customers.NewInMemoryRepository(), nil)
	syncer := BuildSyncer(&appconfig.Config{}, SyncDeps{
		Bookings:     calsync.NewMemoryBookingStore(),
		Appointments: appts,
		Customers:    custs,
	}, nil, logging.New("error"))

	require.NotNil(t, syncer)
	assert.False(t, syncer.Configured())
	assert.Nil(t, BuildCalendarAPI(&appconfig.Config{}, nil))
}

func TestBuildSyncerWithAPIKeyIsConfigured(t *testing.T) {
	appts := appointments.NewService(appointments.NewInMemoryRepository(), nil)
	custs := customers.NewService(customers.NewInMemoryRepository(), nil)
	cfg := &appconfig.Config{CalcomAPIKey: "cal_test", CalcomBaseURL: "https://cal.example.com", CalsyncLockTTL: time.Minute}

	syncer := BuildSyncer(cfg, SyncDeps{
		Bookings:     calsync.NewMemoryBookingStore(),
		Appointments: appts,
		Customers:    custs,
	}, calsync.NewMemoryStateStore(), nil)
	assert.True(t, syncer.Configured())
}

func TestBuildSyncStateStorePrefersRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	t.Cleanup(func() { _ = client.Close() })

	assert.IsType(t, &calsync.RedisStateStore{}, BuildSyncStateStore(client))
	assert.IsType(t, &calsync.MemoryStateStore{}, BuildSyncStateStore(nil))
}
