package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mawakit/internal/infra/logger"
	"mawakit/internal/infra/storage"
)

type payload struct {
	Fajr string `json:"fajr"`
}

func newTestCache(store storage.Storage, clock clockwork.Clock, opts ...Option) *Cache {
	opts = append([]Option{WithClock(clock), WithLogger(logger.Discard())}, opts...)
	return New(store, opts...)
}

func TestSetAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC))
	store := storage.NewMemoryStorage()
	c := newTestCache(store, clock)

	c.Set(ctx, TimingsKey("Tunis"), payload{Fajr: "05:12"}, "Tunis")

	raw, err := store.Get(ctx, "mawakit-cache-data-Tunis")
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "Tunis", stored["cityName"])
	assert.Equal(t, DefaultVersion, stored["version"])
	assert.EqualValues(t, clock.Now().UnixMilli(), stored["timestamp"])

	got := Get[payload](ctx, c, TimingsKey("Tunis"), "Tunis")
	require.NotNil(t, got)
	assert.Equal(t, "05:12", got.Data.Fajr)
	assert.True(t, clock.Now().Equal(got.StoredAt()))
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	c := newTestCache(storage.NewMemoryStorage(), clockwork.NewFakeClock())
	assert.Nil(t, Get[payload](context.Background(), c, "nothing", "Tunis"))
	assert.Nil(t, GetStale[payload](context.Background(), c, "nothing", "Tunis"))
}

func TestTTLBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := newTestCache(storage.NewMemoryStorage(), clock)
	key := TimingsKey("Sfax")

	c.Set(ctx, key, payload{Fajr: "05:10"}, "Sfax")

	clock.Advance(DefaultTTL - time.Millisecond)
	assert.NotNil(t, Get[payload](ctx, c, key, "Sfax"))

	clock.Advance(time.Millisecond)
	assert.Nil(t, Get[payload](ctx, c, key, "Sfax"))

	stale := GetStale[payload](ctx, c, key, "Sfax")
	require.NotNil(t, stale, "expired entries stay available to GetStale")
	assert.Equal(t, "05:10", stale.Data.Fajr)

	clock.Advance(30 * 24 * time.Hour)
	assert.NotNil(t, GetStale[payload](ctx, c, key, "Sfax"))
}

func TestCityMismatchKeepsEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	c := newTestCache(store, clockwork.NewFakeClock())

	c.Set(ctx, "shared", payload{Fajr: "05:00"}, "Tunis")
	assert.Nil(t, Get[payload](ctx, c, "shared", "Sousse"))
	assert.Nil(t, GetStale[payload](ctx, c, "shared", "Sousse"))

	_, err := store.Get(ctx, "shared")
	assert.NoError(t, err, "an entry for another city must not be deleted")
	assert.NotNil(t, Get[payload](ctx, c, "shared", "Tunis"))
}

func TestVersionBumpDeletesEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := storage.NewMemoryStorage()

	old := newTestCache(store, clock, WithVersion("0.9.0"))
	old.Set(ctx, TimingsKey("Tunis"), payload{Fajr: "05:00"}, "Tunis")

	current := newTestCache(store, clock)
	assert.Nil(t, Get[payload](ctx, current, TimingsKey("Tunis"), "Tunis"))

	_, err := store.Get(ctx, TimingsKey("Tunis"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVersionBumpAlsoHidesStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	clock := clockwork.NewFakeClock()

	newTestCache(store, clock, WithVersion("0.9.0")).Set(ctx, "k", payload{}, "Tunis")
	assert.Nil(t, GetStale[payload](ctx, newTestCache(store, clock), "k", "Tunis"))
}

func TestCorruptEntryIsDeleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	c := newTestCache(store, clockwork.NewFakeClock())

	require.NoError(t, store.Set(ctx, "k", "{not json"))
	assert.Nil(t, Get[payload](ctx, c, "k", "Tunis"))
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Set(ctx, "k2", `{"data":"oops","timestamp":1,"cityName":"Tunis","version":"1.0.0"}`))
	assert.Nil(t, GetStale[payload](ctx, c, "k2", "Tunis"))
	_, err = store.Get(ctx, "k2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newTestCache(storage.NewMemoryStorage(), clockwork.NewFakeClock())

	c.Set(ctx, "k", payload{Fajr: "05:00"}, "Tunis")
	c.Remove(ctx, "k")
	assert.Nil(t, GetStale[payload](ctx, c, "k", "Tunis"))
	c.Remove(ctx, "k")
}

func TestKeys(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "mawakit-cache-data-Gabes", TimingsKey("Gabes"))
	assert.Equal(t, "mawakit-cache-calendar-Gabes_3_2026", CalendarKey("Gabes", 3, 2026))
}

// flakyStore fails the first failN writes with failErr.
type flakyStore struct {
	*storage.MemoryStorage
	failN   int
	failErr error
	writes  int
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	f.writes++
	if f.writes <= f.failN {
		return f.failErr
	}
	return f.MemoryStorage.Set(ctx, key, value)
}

func TestQuotaExceededEvictsAndRetries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	for k, v := range map[string]string{
		"mawakit-cache-data-Sfax":              "{}",
		"mawakit-cache-calendar-Sfax_1_2026":   "{}",
		"mawakit_data_legacy":                  "{}",
		"mawakit_calendar_legacy":              "{}",
		"mawakit_adhan_sound":                  "tunis",
		"mawakit_audio_permission":             "granted",
		"mawakit_settings_notifications":       "{}",
		"unrelated":                            "x",
	} {
		require.NoError(t, mem.Set(ctx, k, v))
	}
	store := &flakyStore{MemoryStorage: mem, failN: 1, failErr: storage.ErrQuotaExceeded}
	c := newTestCache(store, clockwork.NewFakeClock())

	assert.NotPanics(t, func() {
		c.Set(ctx, TimingsKey("Tunis"), payload{Fajr: "05:12"}, "Tunis")
	})

	got := Get[payload](ctx, c, TimingsKey("Tunis"), "Tunis")
	require.NotNil(t, got)
	assert.Equal(t, "05:12", got.Data.Fajr)

	keys, err := mem.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"mawakit-cache-data-Tunis",
		"mawakit_adhan_sound",
		"mawakit_audio_permission",
		"mawakit_settings_notifications",
		"unrelated",
	}, keys)
}

func TestQuotaExceededTwiceDropsWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &flakyStore{MemoryStorage: storage.NewMemoryStorage(), failN: 2, failErr: storage.ErrQuotaExceeded}
	c := newTestCache(store, clockwork.NewFakeClock())

	c.Set(ctx, "k", payload{}, "Tunis")
	assert.Equal(t, 2, store.writes)
	assert.Nil(t, Get[payload](ctx, c, "k", "Tunis"))
}

func TestOtherWriteErrorsDoNotEvict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Set(ctx, "mawakit-cache-data-Sfax", "{}"))
	store := &flakyStore{MemoryStorage: mem, failN: 1, failErr: errors.New("disk on fire")}
	c := newTestCache(store, clockwork.NewFakeClock())

	c.Set(ctx, "k", payload{}, "Tunis")
	assert.Equal(t, 1, store.writes)
	_, err := mem.Get(ctx, "mawakit-cache-data-Sfax")
	assert.NoError(t, err)
}

func TestQuotaStorageIntegration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	c := newTestCache(storage.WithQuota(mem, 400), clockwork.NewFakeClock())

	for _, city := range []string{"Tunis", "Sfax", "Sousse", "Gabes"} {
		c.Set(ctx, TimingsKey(city), payload{Fajr: "05:00"}, city)
	}

	// Whatever was evicted on the way, the last write must be readable.
	assert.NotNil(t, Get[payload](ctx, c, TimingsKey("Gabes"), "Gabes"))
}
