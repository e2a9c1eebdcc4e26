package customers

import (
	"context"
	"errors"
	"fmt"

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

// PostgresRepository stores customers in the customers table.
type PostgresRepository struct {
	db querier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("customers: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const customerColumns = `id, name, email, phone, notes, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, in Input) (*Customer, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO customers (id, name, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+customerColumns,
		uuid.NewString(), in.Name, in.Email, in.Phone, in.Notes)
	c, err := scanCustomer(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("customers: insert failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Customer, error) {
	return r.one(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	return r.one(ctx, `SELECT `+customerColumns+` FROM customers WHERE email = $1`, email)
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Customer, int, error) {
	pattern := "%" + filter.Query + "%"
	var total int
	if err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM customers
		WHERE $1 = '%%' OR name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1
	`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("customers: count failed: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE $1 = '%%' OR name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`, pattern, limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("customers: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]*Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("customers: scan failed: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, id string, in Input) (*Customer, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE customers SET name = $2, email = $3, phone = $4, notes = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		id, in.Name, in.Email, in.Phone, in.Notes)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("customers: update failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("customers: delete failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg any) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customers: select failed: %w", err)
	}
	return c, nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
