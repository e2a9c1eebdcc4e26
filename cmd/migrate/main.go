// Command migrate applies the embedded schema migrations.
//
//	migrate            apply all pending migrations
//	migrate up [N]     apply N (or all) pending migrations
//	migrate down N     roll back N migrations
//	migrate version    print the current version
//	migrate force V    mark version V as clean after a failed run
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/wolfman30/inkstudio-platform/migrations"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// migrator is the part of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
}

func main() {
	_ = godotenv.Load()
	logger := logging.New(strings.TrimSpace(os.Getenv("LOG_LEVEL")))

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	m, closeFn, err := open(databaseURL)
	if err != nil {
		logger.Error("open migrator", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	if err := run(m, os.Args[1:], os.Stdout); err != nil {
		logger.Error("migrate failed", "error", err)
		closeFn()
		os.Exit(1)
	}
}

func open(databaseURL string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	target, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "inkstudio_schema_migrations"})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("postgres driver: %w", err)
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("embedded source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", target)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	closed := false
	return m, func() {
		if closed {
			return
		}
		closed = true
		_, _ = m.Close()
	}, nil
}

func run(m migrator, args []string, out io.Writer) error {
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "up":
		if len(args) == 0 {
			return ignoreNoChange(m.Up())
		}
		n, err := positive(args[0])
		if err != nil {
			return err
		}
		return ignoreNoChange(m.Steps(n))
	case "down":
		if len(args) != 1 {
			return errors.New("down needs a step count")
		}
		n, err := positive(args[0])
		if err != nil {
			return err
		}
		return ignoreNoChange(m.Steps(-n))
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(out, "no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version %d (dirty=%t)\n", v, dirty)
		return nil
	case "force":
		if len(args) != 1 {
			return errors.New("force needs a version")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := m.Force(v); err != nil {
			return err
		}
		fmt.Fprintf(out, "forced version to %d\n", v)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func positive(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("step count must be a positive integer, got %q", raw)
	}
	return n, nil
}
