package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's internal logging into slog. Cron's info lines
// (wake, run, schedule) are noisy, so they go to debug.
type cronLogger struct {
	log *slog.Logger
}

func NewCronLogger(log *slog.Logger) cron.Logger {
	return cronLogger{log: log.With("component", "cron")}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "err", err)...)
}
