// Package cache stores upstream responses in the shared storage with a schema
// version, the city they belong to and the time they were fetched.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"mawakit/internal/infra/storage"
)

const (
	// DefaultTTL is how long an entry counts as fresh.
	DefaultTTL = 24 * time.Hour
	// DefaultVersion is the current entry schema. Bumping it invalidates
	// every existing entry on its next read.
	DefaultVersion = "1.0.0"

	TimingsPrefix  = "mawakit-cache-data-"
	CalendarPrefix = "mawakit-cache-calendar-"
)

// EvictablePrefixes are the key prefixes a full store may be cleared of.
// Preference keys must never start with one of these.
var EvictablePrefixes = []string{"mawakit-cache", "mawakit_data", "mawakit_calendar"}

// TimingsKey is the key of a city's daily timings.
func TimingsKey(cityAPIName string) string {
	return TimingsPrefix + cityAPIName
}

// CalendarKey is the key of a city's monthly schedule.
func CalendarKey(cityAPIName string, month, year int) string {
	return fmt.Sprintf("%s%s_%d_%d", CalendarPrefix, cityAPIName, month, year)
}

// Entry is the stored envelope. Timestamp is in epoch milliseconds.
type Entry[T any] struct {
	Data      T      `json:"data"`
	Timestamp int64  `json:"timestamp"`
	CityName  string `json:"cityName"`
	Version   string `json:"version"`
}

// StoredAt returns the fetch time of the entry.
func (e Entry[T]) StoredAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Cache is a TTL and version aware view over a Storage.
type Cache struct {
	store   storage.Storage
	clock   clockwork.Clock
	ttl     time.Duration
	version string
	log     *logrus.Entry
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func WithVersion(v string) Option {
	return func(c *Cache) { c.version = v }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Cache) { c.log = log }
}

func New(store storage.Storage, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		clock:   clockwork.NewRealClock(),
		ttl:     DefaultTTL,
		version: DefaultVersion,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores data for cityName under key, replacing any previous entry. When
// the store is full it evicts every cache entry and retries once. Failures are
// logged and otherwise ignored.
func (c *Cache) Set(ctx context.Context, key string, data any, cityName string) {
	payload, err := json.Marshal(Entry[any]{
		Data:      data,
		Timestamp: c.clock.Now().UnixMilli(),
		CityName:  cityName,
		Version:   c.version,
	})
	if err != nil {
		c.log.WithError(err).WithField("key", key).Error("Failed to encode cache entry")
		return
	}

	err = c.store.Set(ctx, key, string(payload))
	if err == nil {
		return
	}
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		c.log.WithError(err).WithField("key", key).Error("Error saving cache entry")
		return
	}

	c.log.WithField("key", key).Warn("Storage quota exceeded. Cleaning up old cache entries...")
	removed := c.evict(ctx)
	if err := c.store.Set(ctx, key, string(payload)); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"key": key, "evicted": removed}).
			Error("Failed to save cache entry even after cleanup")
	}
}

// Get returns the entry for key if it belongs to cityName, matches the current
// version and is younger than the TTL. Corrupt and outdated-version entries
// are deleted; expired ones are kept for GetStale.
func Get[T any](ctx context.Context, c *Cache, key, cityName string) *Entry[T] {
	entry := read[T](ctx, c, key, cityName)
	if entry == nil {
		return nil
	}
	if c.expired(entry.Timestamp) {
		return nil
	}
	return entry
}

// GetStale is Get without the TTL check. It is meant for offline fallback.
func GetStale[T any](ctx context.Context, c *Cache, key, cityName string) *Entry[T] {
	return read[T](ctx, c, key, cityName)
}

// Remove deletes key unconditionally.
func (c *Cache) Remove(ctx context.Context, key string) {
	if err := c.store.Remove(ctx, key); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Failed to remove cache entry")
	}
}

func read[T any](ctx context.Context, c *Cache, key, cityName string) *Entry[T] {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.WithError(err).WithField("key", key).Warn("Error reading cache entry")
		}
		return nil
	}

	var entry Entry[T]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Corrupt cache entry, removing it")
		c.Remove(ctx, key)
		return nil
	}
	if entry.Version != c.version {
		c.log.WithFields(logrus.Fields{"key": key, "version": entry.Version}).Debug("Outdated cache entry, removing it")
		c.Remove(ctx, key)
		return nil
	}
	if entry.CityName != cityName {
		// belongs to another city; leave it alone
		return nil
	}
	return &entry
}

func (c *Cache) expired(timestamp int64) bool {
	age := c.clock.Now().UnixMilli() - timestamp
	return age >= c.ttl.Milliseconds()
}

func (c *Cache) evict(ctx context.Context) int {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.log.WithError(err).Error("Failed to list keys for cleanup")
		return 0
	}
	removed := 0
	for _, k := range keys {
		if !evictable(k) {
			continue
		}
		if err := c.store.Remove(ctx, k); err != nil {
			c.log.WithError(err).WithField("key", k).Warn("Failed to evict cache entry")
			continue
		}
		removed++
	}
	return removed
}

func evictable(key string) bool {
	for _, p := range EvictablePrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
