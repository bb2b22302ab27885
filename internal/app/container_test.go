package app

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/config"
	"vigil/internal/db/dbtest"
	"vigil/internal/mail"
	"vigil/internal/marketing"
	"vigil/internal/reminder"
)

func testConfig() config.Config {
	return config.Config{
		HTTPAddr:      ":0",
		JWTSecret:     "secret",
		PublicBaseURL: "https://pray.example",
		Jobs:          config.JobsConfig{PollInterval: 30 * time.Second, BatchSize: 10, StaleAfter: 15 * time.Minute, CacheTTL: time.Minute},
		Translation:   config.TranslationConfig{PollInterval: 10 * time.Second, BatchSize: 1, CleanupSchedule: "0 3 * * *", Retention: 24 * time.Hour},
		Reminder:      config.ReminderConfig{PollInterval: time.Minute, BatchSize: 100},
	}
}

func TestNewContainer_Wiring(t *testing.T) {
	gdb, mock := dbtest.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := NewContainer(context.Background(), testConfig(), log, WithDB(gdb), WithMailer(mail.Unconfigured{}))
	require.NoError(t, err)

	types := c.Registry.Types()
	sort.Strings(types)
	assert.Equal(t, []string{marketing.JobType, reminder.JobType}, types)

	var names []string
	for _, task := range c.Scheduler.Tasks() {
		names = append(names, task.Name)
	}
	assert.ElementsMatch(t, []string{"jobs", "translations", "reminders", "stale-recover", "translations-cleanup"}, names)
	assert.Nil(t, c.Redis)
	assert.NoError(t, mock.ExpectationsWereMet(), "building the container must not touch the database")
}

func TestNewContainer_BadCleanupSchedule(t *testing.T) {
	gdb, _ := dbtest.New(t)
	cfg := testConfig()
	cfg.Translation.CleanupSchedule = "every tuesday"

	_, err := NewContainer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), WithDB(gdb))
	assert.Error(t, err)
}
