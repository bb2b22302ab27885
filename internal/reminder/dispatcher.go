package reminder

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"vigil/internal/jobs"
)

// Dispatcher turns due subscriptions into reminder_email jobs.
type Dispatcher struct {
	DB        *gorm.DB
	Subs      *Repo
	Jobs      *jobs.Repo
	BatchSize int
	Log       *slog.Logger
	Now       func() time.Time
}

func (d *Dispatcher) Tick(ctx context.Context) error {
	n, err := d.RunOnce(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		d.logger().Debug("reminders queued", "count", n)
	}
	return nil
}

// RunOnce queues a job per due subscription and moves next_reminder_utc
// forward in the same transaction, so a reminder is queued at most once.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	if d.Now != nil {
		now = d.Now().UTC()
	}
	limit := d.BatchSize
	if limit <= 0 {
		limit = 100
	}

	queued := 0
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subs := d.Subs.WithTx(tx)
		js := d.Jobs.WithTx(tx)

		due, err := subs.ClaimDue(ctx, now, limit)
		if err != nil {
			return err
		}

		for _, s := range due {
			_, err := js.CreateJob(ctx, Payload{SubscriptionID: s.ID, ScheduledFor: *s.NextReminderUTC}, jobs.Options{})
			if err != nil {
				return err
			}

			var next *time.Time
			if t, err := NextReminder(s.Schedule(), now.Add(time.Second)); err != nil {
				d.logger().Warn("reminder schedule invalid, stopping reminders", "subscription_id", s.ID, "err", err)
			} else {
				next = &t
			}
			if err := subs.Advance(ctx, s.ID, next, now); err != nil {
				return err
			}
			queued++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return queued, nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
