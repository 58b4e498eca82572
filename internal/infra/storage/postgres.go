// internal/infra/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL driver and error codes
)

const (
	defaultMaxOpenConns    = 5
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// pgDiskFull is the SQLSTATE postgres reports when it cannot extend a table.
const pgDiskFull = "53100"

// NewPostgresConnection creates and returns a new PostgreSQL database connection.
// It also pings the database to ensure connectivity.
func NewPostgresConnection(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// PostgresStorage keeps items in a kv_store table.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// EnsureSchema creates the kv_store table if it does not exist.
func (p *PostgresStorage) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS kv_store (
               key        TEXT PRIMARY KEY,
               value      TEXT NOT NULL,
               updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
           )`
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error creating kv_store table: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`
	var value string
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("error getting key %s: %w", key, err)
	}
	return value, nil
}

func (p *PostgresStorage) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO kv_store (key, value, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := p.db.ExecContext(ctx, query, key, value); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgDiskFull {
			return fmt.Errorf("error setting key %s: %w", key, ErrQuotaExceeded)
		}
		return fmt.Errorf("error setting key %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStorage) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`
	if _, err := p.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("error deleting key %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStorage) Keys(ctx context.Context) ([]string, error) {
	query := `SELECT key FROM kv_store ORDER BY key`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("error scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keys: %w", err)
	}
	return keys, nil
}

func (p *PostgresStorage) Close() error {
	return p.db.Close()
}
