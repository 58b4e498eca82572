package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"mawakit/internal/app"
	"mawakit/internal/domain/prayer"
	"mawakit/internal/infra/aladhan"
	"mawakit/internal/infra/cache"
	"mawakit/internal/infra/config"
	"mawakit/internal/infra/logger"
	"mawakit/internal/infra/network"
	"mawakit/internal/infra/storage"
)

// services is everything the commands share.
type services struct {
	cfg       *config.AppConfig
	clock     clockwork.Clock
	store     *storage.QuotaStorage
	prefs     *app.Preferences
	monitor   *network.Monitor
	timings   *app.TimingsService
	calendar  *app.CalendarService
	countdown *app.CountdownService
	settings  *app.SettingsService
}

// build loads configuration and wires the services. cityFlag, when set,
// overrides the saved city for this invocation.
func build(ctx context.Context, cityFlag string) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not open %s storage: %w", cfg.StorageDriver, err)
	}
	used, err := store.Usage(ctx)
	if err != nil {
		logger.For("main").WithError(err).Warn("Could not measure storage usage")
	}
	logger.For("main").WithFields(logrus.Fields{
		"driver":      cfg.StorageDriver,
		"used_bytes":  used,
		"quota_bytes": cfg.StorageQuotaBytes,
	}).Info("Storage opened")

	clock := clockwork.NewRealClock()
	c := cache.New(store,
		cache.WithTTL(cfg.CacheTTL),
		cache.WithVersion(cfg.CacheVersion),
		cache.WithClock(clock),
		cache.WithLogger(logger.For("cache")),
	)
	api := aladhan.NewClient(cfg.APIBaseURL, cfg.APICountry, cfg.APIMethod, cfg.HTTPTimeout)
	monitor := network.NewMonitor(cfg.ConnectivityProbeAddr, 5*time.Second, logger.For("network"))
	prefs := app.NewPreferences(store, logger.For("preferences"))

	city, err := resolveCity(ctx, cfg, prefs, cityFlag)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	timings := app.NewTimingsService(c, api, monitor, clock, logger.For("timings"), city)
	calendar := app.NewCalendarService(c, api, monitor, clock, logger.For("calendar"))
	return &services{
		cfg:       cfg,
		clock:     clock,
		store:     store,
		prefs:     prefs,
		monitor:   monitor,
		timings:   timings,
		calendar:  calendar,
		countdown: app.NewCountdownService(timings, calendar, clock, logger.For("countdown")),
		settings:  app.NewSettingsService(prefs, timings, logger.For("settings")),
	}, nil
}

func resolveCity(ctx context.Context, cfg *config.AppConfig, prefs *app.Preferences, cityFlag string) (prayer.City, error) {
	if cityFlag != "" {
		c, ok := prayer.LookupCity(cityFlag)
		if !ok {
			return prayer.City{}, fmt.Errorf("%w: %q", app.ErrUnknownCity, cityFlag)
		}
		return c, nil
	}
	if c, ok := prefs.StoredCity(ctx); ok {
		return c, nil
	}
	c, ok := prayer.LookupCity(cfg.City)
	if !ok {
		return prayer.City{}, fmt.Errorf("%w: CITY=%q", app.ErrUnknownCity, cfg.City)
	}
	return c, nil
}

func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		logger.For("main").WithError(err).Warn("Failed to close storage")
	}
}
