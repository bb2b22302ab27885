package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Repo writes subscriptions column by column so preference edits and the
// dispatcher never overwrite each other's fields.
type Repo struct {
	DB *gorm.DB
}

func (r *Repo) WithTx(tx *gorm.DB) *Repo { return &Repo{DB: tx} }

func (r *Repo) Get(ctx context.Context, id uint64) (*Subscription, error) {
	var s Subscription
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get subscription %d: %w", id, err)
	}
	return &s, nil
}

// Activate turns a pending (or already active) subscription on with its first reminder time.
func (r *Repo) Activate(ctx context.Context, id uint64, next time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Exec(`
update subscriptions
set status = ?, next_reminder_utc = ?, updated_at = now()
where id = ? and status in (?, ?)`, StatusActive, next, id, StatusPending, StatusActive)
	if res.Error != nil {
		return false, fmt.Errorf("activate subscription %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SavePreferences stores the schedule columns and the recomputed next reminder.
func (r *Repo) SavePreferences(ctx context.Context, id uint64, s Schedule, next *time.Time) error {
	days := make(pq.Int64Array, len(s.DaysOfWeek))
	for i, d := range s.DaysOfWeek {
		days[i] = int64(d)
	}
	res := r.DB.WithContext(ctx).Exec(`
update subscriptions
set frequency = ?, days_of_week = ?, time_preference = ?, timezone = ?, next_reminder_utc = ?, updated_at = now()
where id = ?`, s.Frequency, days, s.TimePreference, s.Timezone, next, id)
	if res.Error != nil {
		return fmt.Errorf("save preferences %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Unsubscribe stops every subscription the subscriber holds in the campaign.
func (r *Repo) Unsubscribe(ctx context.Context, subscriberID, campaignID uint64) (int64, error) {
	res := r.DB.WithContext(ctx).Exec(`
update subscriptions
set status = ?, next_reminder_utc = null, updated_at = now()
where subscriber_id = ? and campaign_id = ? and status <> ?`,
		StatusUnsubscribed, subscriberID, campaignID, StatusUnsubscribed)
	if res.Error != nil {
		return 0, fmt.Errorf("unsubscribe %d from %d: %w", subscriberID, campaignID, res.Error)
	}
	return res.RowsAffected, nil
}

// ClaimDue locks active subscriptions whose reminder is due. Call it inside a transaction.
func (r *Repo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Subscription, error) {
	var out []Subscription
	err := r.DB.WithContext(ctx).Raw(`
select *
from subscriptions
where status = ? and next_reminder_utc is not null and next_reminder_utc <= ?
order by next_reminder_utc asc
limit ?
for update skip locked`, StatusActive, now, limit).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("claim due reminders: %w", err)
	}
	return out, nil
}

// Advance rolls the schedule forward after a reminder was queued. A nil next stops reminders.
func (r *Repo) Advance(ctx context.Context, id uint64, next *time.Time, firedAt time.Time) error {
	return r.DB.WithContext(ctx).Exec(`
update subscriptions
set next_reminder_utc = ?, last_reminder_at = ?, updated_at = now()
where id = ?`, next, firedAt, id).Error
}
