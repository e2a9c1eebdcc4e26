package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores contacts in the contacts table.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("contacts: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const contactColumns = `id, name, email, phone, subject, message, replied_at, created_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req CreateRequest) (*Contact, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO contacts (id, name, email, phone, subject, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+contactColumns,
		uuid.NewString(), req.Name, req.Email, req.Phone, req.Subject, req.Message)
	c, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("contacts: insert failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Contact, error) {
	c, err := scanContact(r.db.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("contacts: select failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Contact, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM contacts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("contacts: count failed: %w", err)
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("contacts: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]*Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("contacts: scan failed: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepository) MarkReplied(ctx context.Context, id string, at time.Time) error {
	ct, err := r.db.Exec(ctx, `UPDATE contacts SET replied_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("contacts: mark replied failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("contacts: delete failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Subject, &c.Message, &c.RepliedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
