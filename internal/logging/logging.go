// Package logging builds the logrus logger shared by the server and the
// rectification stages.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to out.
//
// Debug level or format "text" selects a human-readable text formatter;
// anything else logs JSON. An unknown level falls back to info and is
// reported through the new logger itself.
func New(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if lvl >= logrus.DebugLevel || strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if err != nil && level != "" {
		logger.WithField("level", level).Warn("Unknown log level, using info")
	}
	return logger
}

// Discard returns a logger that drops everything. Components fall back to it
// when constructed without a logger.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}
