package main

import (
	"os"

	"github.com/urfave/cli"

	"mawakit/internal/infra/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Log.WithError(err).Fatal("mawakit failed")
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "mawakit"
	app.Usage = "Prayer times, countdown and adhan notifications for Tunisian cities"
	app.UsageText = "mawakit [--city <name>] <command> [arguments...]"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "city",
			Usage: "city to use for this run (API or Arabic name); defaults to the saved one",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run the scheduler, notifications and the Telegram bot until interrupted",
			Action: runDaemon,
		},
		{
			Name:    "times",
			Aliases: []string{"t"},
			Usage:   "print today's prayer times",
			Action:  printTimes,
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "refresh, r", Usage: "skip the fresh cache"},
			},
		},
		{
			Name:    "next",
			Aliases: []string{"n"},
			Usage:   "print the next prayer and the time left",
			Action:  printNext,
		},
		{
			Name:    "calendar",
			Aliases: []string{"c"},
			Usage:   "print a month (or the coming week) of prayer times",
			Action:  printCalendar,
			Flags: []cli.Flag{
				cli.IntFlag{Name: "month, m", Usage: "month number, defaults to the current month"},
				cli.IntFlag{Name: "year, y", Usage: "year, defaults to the current year"},
				cli.IntFlag{Name: "offset, o", Usage: "months to move from the selected month"},
				cli.BoolFlag{Name: "week, w", Usage: "show the seven days starting today"},
			},
		},
		{
			Name:   "sounds",
			Usage:  "list adhan sounds, download them or play one",
			Action: sounds,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "play, p", Usage: "play the sound with this id"},
				cli.BoolFlag{Name: "fetch, f", Usage: "download every sound into the cache dir"},
			},
		},
	}
	return app
}
