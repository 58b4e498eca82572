// Package storage provides the durable key/value stores that back the cache
// and the user's preferences. Every backend behaves like a flat string map.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned by Set when the store has no room left.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Storage is a synchronous string key/value store shared by all consumers.
// Implementations must be safe for concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
