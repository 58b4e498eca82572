// Package logger holds the process-wide logrus logger.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"mawakit/internal/infra/config"
)

// Log is the global logger instance
var Log = logrus.New()

// Init applies the configured level and picks a formatter for the
// environment. Structured JSON goes to log collectors in production and
// staging, readable text everywhere else.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)
	Log.SetLevel(parseLevel(cfg.LogLevel))
	Log.SetFormatter(formatterFor(cfg.Environment))

	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": cfg.Environment,
	}).Debug("Logger configured")
}

func parseLevel(raw string) logrus.Level {
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		Log.WithError(err).Warnf("Invalid log level %q, using info", raw)
		return logrus.InfoLevel
	}
	return level
}

func formatterFor(environment string) logrus.Formatter {
	switch environment {
	case "production", "staging":
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	default:
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"}
	}
}

// For returns an entry tagged with the component name, the way every
// service and infra adapter logs.
func For(component string) *logrus.Entry {
	return Log.WithField("component", component)
}

// Discard returns an entry that drops everything; used by tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
