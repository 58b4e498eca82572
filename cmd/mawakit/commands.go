package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"gopkg.in/telebot.v3"

	"mawakit/internal/app"
	"mawakit/internal/domain/adhan"
	"mawakit/internal/domain/notification"
	"mawakit/internal/domain/prayer"
	"mawakit/internal/infra/audio"
	"mawakit/internal/infra/logger"
	"mawakit/internal/infra/scheduler"
	"mawakit/internal/infra/telegram"
)

const soundDownloadTimeout = 2 * time.Minute

func runDaemon(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := build(ctx, c.GlobalString("city"))
	if err != nil {
		return err
	}
	defer svc.Close()
	mainLogger := logger.For("main")

	var (
		notifier notification.Notifier = logger.NewNotifier(logger.For("notifier"))
		bot      *telebot.Bot
	)
	if svc.cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(svc.cfg.TelegramToken, logger.For("telebot"))
		if err != nil {
			return err
		}
		notifier = telegram.NewNotifier(telegram.NewTelebotAdapter(bot), svc.prefs, logger.For("telegram"))
	}

	var (
		player   app.AdhanPlayer
		tgPlayer telegram.Player
		manager  *audio.Manager
	)
	if svc.cfg.AudioEnabled {
		manager = newAudioManager(svc)
		player, tgPlayer = manager, manager
		defer func() {
			if err := manager.Close(); err != nil {
				mainLogger.WithError(err).Warn("Failed to release audio output")
			}
		}()
		if svc.prefs.AudioPermission(ctx) == adhan.PermissionGranted {
			if err := manager.Unlock(ctx); err != nil {
				mainLogger.WithError(err).Warn("Audio is not available yet")
			}
		}
	}

	adhanService := app.NewAdhanServiceImpl(svc.timings, svc.prefs, notifier, player, svc.clock, logger.For("adhan"))

	svc.monitor.OnChange(func(online bool) {
		svc.timings.HandleConnectivityChange(ctx, online)
	})
	svc.monitor.Probe(ctx)
	snap := svc.timings.FetchTimings(ctx, false)
	mainLogger.WithFields(logrus.Fields{"city": snap.City.APIName, "state": snap.State}).Info("Initial timings loaded")

	if err := notifier.RequestPermission(ctx); err != nil {
		mainLogger.WithError(err).Warn("Notifications are not permitted yet")
	}

	prayerScheduler := scheduler.NewPrayerScheduler(
		adhanService,
		svc.countdown,
		svc.timings,
		svc.monitor,
		logger.For("scheduler"),
		scheduler.Specs{
			NotificationCheck: svc.cfg.CronSpecNotificationCheck,
			Countdown:         svc.cfg.CronSpecCountdown,
			MidnightRefresh:   svc.cfg.CronSpecMidnightRefresh,
			Connectivity:      svc.cfg.CronSpecConnectivity,
		},
	)
	if err := prayerScheduler.Start(); err != nil {
		return err
	}

	if bot != nil {
		deps := telegram.Deps{
			Settings:  svc.settings,
			Prefs:     svc.prefs,
			Timings:   svc.timings,
			Countdown: svc.countdown,
			Player:    tgPlayer,
		}
		telegram.RegisterBotCommands(ctx, bot, deps, logger.For("telegram"))
		telegram.RegisterSettingsHandlers(ctx, bot, deps, logger.For("telegram"))
		telegram.RegisterPlaybackHandlers(ctx, bot, deps, logger.For("telegram"))
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	mainLogger.Info("Application setup complete. Waiting for prayer times...")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	if bot != nil {
		bot.Stop()
	}
	prayerScheduler.Stop()
	if manager != nil {
		manager.Stop()
	}
	adhanService.Wait()
	mainLogger.Info("Application shut down gracefully.")
	return nil
}

func newAudioManager(svc *services) *audio.Manager {
	log := logger.For("audio")
	loader := audio.NewLoader(afero.NewOsFs(), svc.cfg.SoundCacheDir, soundDownloadTimeout, log)
	return audio.NewManager(audio.NewMalgoOutput(log), loader, log)
}

func printTimes(c *cli.Context) error {
	ctx := context.Background()
	svc, err := build(ctx, c.GlobalString("city"))
	if err != nil {
		return err
	}
	defer svc.Close()

	snap := svc.timings.FetchTimings(ctx, c.Bool("refresh"))
	if snap.Timings == nil {
		return fmt.Errorf("%s: %w", snap.City.APIName, snap.Err)
	}
	writeTimings(c.App.Writer, snap, svc.prefs.IqamaSettings(ctx))
	return nil
}

func writeTimings(w io.Writer, snap app.Snapshot, iqama prayer.IqamaSettings) {
	fmt.Fprintf(w, "%s (%s)  %s\n", snap.City.NameAr, snap.City.APIName, snap.HijriDate)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range prayer.Notifiable {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p, p.ArabicName(), snap.Timings.Clock(p), prayer.IqamaTime(p, *snap.Timings, iqama))
	}
	_ = tw.Flush()
	if snap.IsStale {
		fmt.Fprintf(w, "offline: showing saved data from %s\n", snap.LastUpdated.Format("2006-01-02 15:04"))
	}
}

func printNext(c *cli.Context) error {
	ctx := context.Background()
	svc, err := build(ctx, c.GlobalString("city"))
	if err != nil {
		return err
	}
	defer svc.Close()

	snap := svc.timings.FetchTimings(ctx, false)
	if snap.Timings == nil {
		return fmt.Errorf("%s: %w", snap.City.APIName, snap.Err)
	}
	next, ok := svc.countdown.Next(ctx)
	if !ok {
		return errors.New("no usable prayer times")
	}
	marker := ""
	if next.IsUrgent {
		marker = " !"
	}
	fmt.Fprintf(c.App.Writer, "%s (%s) at %s in %s%s\n", next.Prayer, next.NameAr(), next.At.Format("15:04"), next.Countdown, marker)
	return nil
}

func printCalendar(c *cli.Context) error {
	ctx := context.Background()
	svc, err := build(ctx, c.GlobalString("city"))
	if err != nil {
		return err
	}
	defer svc.Close()
	city := svc.timings.Snapshot().City

	var days []prayer.CalendarDay
	stale := false
	if c.Bool("week") {
		days, err = svc.calendar.Week(ctx, city)
		if err != nil {
			return err
		}
	} else {
		cursor := app.CursorFor(svc.clock.Now())
		if m := c.Int("month"); m != 0 {
			if m < 1 || m > 12 {
				return fmt.Errorf("invalid month %d", m)
			}
			cursor.Month = m
		}
		if y := c.Int("year"); y != 0 {
			cursor.Year = y
		}
		cursor = cursor.Shift(c.Int("offset"))
		res, err := svc.calendar.Month(ctx, city, cursor)
		if err != nil {
			return err
		}
		days, stale = res.Days, res.Stale
		fmt.Fprintf(c.App.Writer, "%s (%s) %s\n", city.NameAr, city.APIName, cursor)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "date\thijri")
	for _, p := range prayer.Notifiable {
		fmt.Fprintf(tw, "\t%s", p)
	}
	fmt.Fprintln(tw)
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%s", d.Date.Gregorian.Date, d.Date.Hijri.Format())
		for _, p := range prayer.Notifiable {
			fmt.Fprintf(tw, "\t%s", d.Timings.Clock(p))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if stale {
		fmt.Fprintln(c.App.Writer, "offline: showing saved data")
	}
	return nil
}

func sounds(c *cli.Context) error {
	ctx := context.Background()
	svc, err := build(ctx, c.GlobalString("city"))
	if err != nil {
		return err
	}
	defer svc.Close()
	current := svc.prefs.AdhanSound(ctx)

	if c.Bool("fetch") {
		loader := audio.NewLoader(afero.NewOsFs(), svc.cfg.SoundCacheDir, soundDownloadTimeout, logger.For("audio"))
		for _, s := range adhan.Sounds {
			if _, err := loader.Load(ctx, s); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "cached %s -> %s\n", s.ID, loader.Path(s))
		}
		return nil
	}

	if raw := c.String("play"); raw != "" {
		if !svc.cfg.AudioEnabled {
			return errors.New("audio is disabled (AUDIO_ENABLED=false)")
		}
		id, err := adhan.ParseSoundID(raw)
		if err != nil {
			return err
		}
		playCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		manager := newAudioManager(svc)
		defer manager.Close()
		return manager.Play(playCtx, id)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	for _, s := range adhan.Sounds {
		mark := " "
		if s.ID == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, s.ID, s.Name)
	}
	return tw.Flush()
}
