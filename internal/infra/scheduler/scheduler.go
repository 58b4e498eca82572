package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"mawakit/internal/app"
)

// Ticker is anything refreshed on a fixed cadence.
type Ticker interface {
	Tick(ctx context.Context)
}

// Refresher reloads today's timings.
type Refresher interface {
	Refetch(ctx context.Context) app.Snapshot
}

// Prober checks connectivity and notifies listeners of changes.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Specs are the cron expressions for each job. An empty spec disables the job.
type Specs struct {
	NotificationCheck string
	Countdown         string
	MidnightRefresh   string
	Connectivity      string
}

type PrayerScheduler struct {
	cronEngine *cron.Cron
	adhan      app.AdhanService
	countdown  Ticker
	refresher  Refresher
	prober     Prober
	logger     *logrus.Entry
	specs      Specs

	ctx    context.Context
	cancel context.CancelFunc
}

func NewPrayerScheduler(
	adhan app.AdhanService,
	countdown Ticker,
	refresher Refresher,
	prober Prober,
	logger *logrus.Entry,
	specs Specs,
) *PrayerScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &PrayerScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local), // Prayer times are wall-clock times
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		adhan:     adhan,
		countdown: countdown,
		refresher: refresher,
		prober:    prober,
		logger:    logger,
		specs:     specs,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the jobs and starts the cron engine.
func (s *PrayerScheduler) Start() error {
	s.logger.Info("Starting prayer scheduler...")

	jobs := []struct {
		name    string
		spec    string
		timeout time.Duration
		run     func(ctx context.Context)
	}{
		{"notification check", s.specs.NotificationCheck, 30 * time.Second, func(ctx context.Context) {
			if s.adhan != nil {
				s.adhan.CheckTime(ctx)
			}
		}},
		{"countdown", s.specs.Countdown, 5 * time.Second, func(ctx context.Context) {
			if s.countdown != nil {
				s.countdown.Tick(ctx)
			}
		}},
		{"midnight refresh", s.specs.MidnightRefresh, time.Minute, func(ctx context.Context) {
			if s.refresher == nil {
				return
			}
			s.logger.Info("New day, refreshing timings")
			snap := s.refresher.Refetch(ctx)
			if snap.Err != nil {
				s.logger.WithError(snap.Err).Warn("Midnight refresh produced no timings")
			}
		}},
		{"connectivity probe", s.specs.Connectivity, 15 * time.Second, func(ctx context.Context) {
			if s.prober != nil {
				s.prober.Probe(ctx)
			}
		}},
	}

	for _, job := range jobs {
		if job.spec == "" {
			s.logger.WithField("job", job.name).Debug("Job disabled")
			continue
		}
		job := job
		_, err := s.cronEngine.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(s.ctx, job.timeout)
			defer cancel()
			job.run(ctx)
		})
		if err != nil {
			return fmt.Errorf("could not add %s job (%q): %w", job.name, job.spec, err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.cronEngine.Entries())).Info("Prayer scheduler started with jobs.")
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *PrayerScheduler) Stop() {
	s.logger.Info("Stopping prayer scheduler...")
	s.cancel()
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Prayer scheduler gracefully stopped.")
}
