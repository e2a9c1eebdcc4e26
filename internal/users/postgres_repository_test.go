package users

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepository(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithQuerier(mock)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "a@studio.test", "A", "admin", true).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	u := &User{Email: "a@studio.test", Name: "A", Role: "admin", Active: true}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEmpty(t, u.ID)

	mock.ExpectQuery("UPDATE users SET").WithArgs(u.ID, u.Email, u.Name, "staff", true).WillReturnError(pgx.ErrNoRows)
	u.Role = "staff"
	assert.ErrorIs(t, repo.Update(ctx, u), ErrNotFound)

	mock.ExpectQuery("FROM users ORDER BY email").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "name", "role", "active", "created_at", "updated_at"}).
			AddRow("u1", "a@studio.test", "A", "admin", true, now, now))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}
