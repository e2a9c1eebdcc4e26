package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/calsync"
	"github.com/wolfman30/inkstudio-platform/internal/contacts"
	"github.com/wolfman30/inkstudio-platform/internal/customers"
	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/internal/users"
)

// Stores groups every persistence dependency of the studio.
type Stores struct {
	Appointments appointments.Repository
	Customers    customers.Repository
	Users        users.Repository
	Contacts     contacts.Repository
	Bookings     calsync.BookingStore
	Outbox       events.Outbox
	Processed    events.IdempotencyStore
	Persistent   bool
}

// BuildStores returns Postgres-backed stores, or in-memory ones when pool is nil.
func BuildStores(pool *pgxpool.Pool) Stores {
	if pool == nil {
		return Stores{
			Appointments: appointments.NewInMemoryRepository(),
			Customers:    customers.NewInMemoryRepository(),
			Users:        users.NewInMemoryRepository(),
			Contacts:     contacts.NewInMemoryRepository(),
			Bookings:     calsync.NewMemoryBookingStore(),
			Outbox:       events.NewMemoryOutbox(),
			Processed:    events.NewMemoryProcessedStore(),
		}
	}
	return Stores{
		Appointments: appointments.NewPostgresRepository(pool),
		Customers:    customers.NewPostgresRepository(pool),
		Users:        users.NewPostgresRepository(pool),
		Contacts:     contacts.NewPostgresRepository(pool),
		Bookings:     calsync.NewPostgresBookingStore(pool),
		Outbox:       events.NewPostgresOutbox(pool),
		Processed:    events.NewProcessedStore(pool),
		Persistent:   true,
	}
}
