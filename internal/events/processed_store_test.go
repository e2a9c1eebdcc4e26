package events

import (
	"context"
	"testing"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestProcessedStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newProcessedStoreWithExec(mock)

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("stripe", "evt_1").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	processed, err := store.AlreadyProcessed(context.Background(), "stripe", "evt_1")
	if err != nil || !processed {
		t.Fatalf("expected existing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("stripe", "evt_miss").WillReturnError(pgx.ErrNoRows)
	processed, err = store.AlreadyProcessed(context.Background(), "stripe", "evt_miss")
	if err != nil || processed {
		t.Fatalf("expected missing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("stripe", "evt_new").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ok, err := store.MarkProcessed(context.Background(), "stripe", "evt_new")
	if err != nil || !ok {
		t.Fatalf("expected mark processed success, got %v %v", ok, err)
	}

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("stripe", "evt_new").WillReturnResult(pgxmock.NewResult("INSERT", 0))
	ok, err = store.MarkProcessed(context.Background(), "stripe", "evt_new")
	if err != nil || ok {
		t.Fatalf("expected duplicate to report false, got %v %v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemoryProcessedStore(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()

	if seen, _ := store.AlreadyProcessed(ctx, "stripe", "evt"); seen {
		t.Fatalf("expected unseen event")
	}
	if ok, _ := store.MarkProcessed(ctx, "stripe", "evt"); !ok {
		t.Fatalf("expected first mark to succeed")
	}
	if ok, _ := store.MarkProcessed(ctx, "stripe", "evt"); ok {
		t.Fatalf("expected second mark to report duplicate")
	}
	if seen, _ := store.AlreadyProcessed(ctx, "stripe", "evt"); !seen {
		t.Fatalf("expected event to be seen")
	}
}
