package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStorage(db), mock
}

func TestPostgresStorage_Get(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("mawakit_adhan_sound").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("tunis"))
	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	v, err := s.Get(ctx, "mawakit_adhan_sound")
	require.NoError(t, err)
	assert.Equal(t, "tunis", v)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_SetMapsDiskFull(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs("k", "v").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs("k", "big").
		WillReturnError(&pq.Error{Code: "53100", Message: "could not extend file"})
	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs("k", "boom").
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, s.Set(ctx, "k", "v"))
	assert.ErrorIs(t, s.Set(ctx, "k", "big"), ErrQuotaExceeded)

	err := s.Set(ctx, "k", "boom")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrQuotaExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_RemoveAndKeys(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM kv_store WHERE key = \$1`).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT key FROM kv_store ORDER BY key`).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("a").AddRow("b"))

	require.NoError(t, s.Remove(ctx, "k"))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_EnsureSchema(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS kv_store`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
