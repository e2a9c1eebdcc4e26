package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the appointments table.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `
	id, customer_id, external_uid, client_name, client_email, client_phone,
	appointment_date, duration_minutes, status, deposit_paid, deposit_amount_cents,
	total_price_cents, tattoo_style, size, description, location, version,
	created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (
			id, customer_id, external_uid, client_name, client_email, client_phone,
			appointment_date, duration_minutes, status, deposit_paid, deposit_amount_cents,
			total_price_cents, tattoo_style, size, description, location
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING version, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		appt.ID, appt.CustomerID, appt.ExternalUID, appt.ClientName, appt.ClientEmail, appt.ClientPhone,
		appt.AppointmentDate, appt.Duration, string(appt.Status), appt.DepositPaid, appt.DepositAmountCents,
		appt.TotalPriceCents, appt.TattooStyle, appt.Size, appt.Description, appt.Location,
	).Scan(&appt.Version, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateExternal
		}
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM appointments WHERE id = $1`, id)
	return scanOne(row)
}

func (r *PostgresRepository) GetByExternalUID(ctx context.Context, uid string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM appointments WHERE external_uid = $1`, uid)
	return scanOne(row)
}

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*Appointment, error) {
	query, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]*Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

func buildListQuery(filter Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(args))))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		add(`(client_name ILIKE ? OR client_email ILIKE ? OR tattoo_style ILIKE ? OR description ILIKE ?)`, "%"+escapeLike(q)+"%")
	}
	if filter.Status != "" {
		add(`status = ?`, string(filter.Status))
	}
	if filter.CustomerID != "" {
		add(`customer_id = ?`, filter.CustomerID)
	}
	if filter.From != nil {
		add(`appointment_date >= ?`, *filter.From)
	}
	if filter.To != nil {
		add(`appointment_date < ?`, *filter.To)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + selectColumns + ` FROM appointments`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY appointment_date, id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args
}

func (r *PostgresRepository) Update(ctx context.Context, appt *Appointment, expectedVersion int64) error {
	query := `
		UPDATE appointments SET
			customer_id = $2, external_uid = $3, client_name = $4, client_email = $5, client_phone = $6,
			appointment_date = $7, duration_minutes = $8, status = $9, deposit_paid = $10,
			deposit_amount_cents = $11, total_price_cents = $12, tattoo_style = $13, size = $14,
			description = $15, location = $16, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $17
		RETURNING version, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		appt.ID, appt.CustomerID, appt.ExternalUID, appt.ClientName, appt.ClientEmail, appt.ClientPhone,
		appt.AppointmentDate, appt.Duration, string(appt.Status), appt.DepositPaid,
		appt.DepositAmountCents, appt.TotalPriceCents, appt.TattooStyle, appt.Size,
		appt.Description, appt.Location, expectedVersion,
	).Scan(&appt.Version, &appt.CreatedAt, &appt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.Get(ctx, appt.ID); getErr != nil {
			return getErr
		}
		return ErrVersionConflict
	}
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateExternal
		}
		return fmt.Errorf("appointments: update failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOne(row pgx.Row) (*Appointment, error) {
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt   Appointment
		status string
	)
	if err := row.Scan(
		&appt.ID, &appt.CustomerID, &appt.ExternalUID, &appt.ClientName, &appt.ClientEmail, &appt.ClientPhone,
		&appt.AppointmentDate, &appt.Duration, &status, &appt.DepositPaid, &appt.DepositAmountCents,
		&appt.TotalPriceCents, &appt.TattooStyle, &appt.Size, &appt.Description, &appt.Location, &appt.Version,
		&appt.CreatedAt, &appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	return &appt, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
