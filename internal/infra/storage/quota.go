package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// QuotaStorage caps the total size of keys plus values held by the wrapped
// store, the way browser local storage caps an origin.
type QuotaStorage struct {
	Storage
	mu       sync.Mutex
	maxBytes int
}

// WithQuota wraps s. A non-positive maxBytes disables the limit.
func WithQuota(s Storage, maxBytes int) *QuotaStorage {
	return &QuotaStorage{Storage: s, maxBytes: maxBytes}
}

// Set returns ErrQuotaExceeded when writing value would push the store over
// its limit. Replacing an existing key only counts the new value.
func (q *QuotaStorage) Set(ctx context.Context, key, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxBytes > 0 {
		used, err := q.usage(ctx, key)
		if err != nil {
			return err
		}
		if used+len(key)+len(value) > q.maxBytes {
			return ErrQuotaExceeded
		}
	}
	return q.Storage.Set(ctx, key, value)
}

// Usage reports how many bytes the store currently holds.
func (q *QuotaStorage) Usage(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.usage(ctx, "")
}

func (q *QuotaStorage) usage(ctx context.Context, skip string) (int, error) {
	keys, err := q.Storage.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to measure storage usage: %w", err)
	}
	total := 0
	for _, k := range keys {
		if k == skip {
			continue
		}
		v, err := q.Storage.Get(ctx, k)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return 0, fmt.Errorf("failed to measure storage usage: %w", err)
		}
		total += len(k) + len(v)
	}
	return total, nil
}
