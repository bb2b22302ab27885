package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

func (r *Repo) Campaign(ctx context.Context, id uint64) (*Campaign, error) {
	var c Campaign
	if err := first(r.DB.WithContext(ctx), &c, id); err != nil {
		return nil, fmt.Errorf("campaign %d: %w", id, err)
	}
	return &c, nil
}

func (r *Repo) Subscriber(ctx context.Context, id uint64) (*Subscriber, error) {
	var s Subscriber
	if err := first(r.DB.WithContext(ctx), &s, id); err != nil {
		return nil, fmt.Errorf("subscriber %d: %w", id, err)
	}
	return &s, nil
}

// MarkVerified stamps verified_at once; later calls keep the first time.
func (r *Repo) MarkVerified(ctx context.Context, subscriberID uint64, at time.Time) error {
	return r.DB.WithContext(ctx).Exec(
		`update subscribers set verified_at = ? where id = ? and verified_at is null`, at, subscriberID,
	).Error
}

// SetNewsletterOptIn flips the newsletter flag for a subscriber.
func (r *Repo) SetNewsletterOptIn(ctx context.Context, subscriberID uint64, on bool) error {
	return r.DB.WithContext(ctx).Exec(
		`update subscribers set newsletter_opt_in = ? where id = ?`, on, subscriberID,
	).Error
}

func first(db *gorm.DB, dst any, id uint64) error {
	err := db.First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
