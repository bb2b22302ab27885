package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vigil/internal/auth"
	"vigil/internal/campaign"
)

type Service struct {
	Subs      *Repo
	Campaigns *campaign.Repo
	Links     *auth.JWT
	Log       *slog.Logger
	Now       func() time.Time
}

// Preferences is the editable part of a subscription.
type Preferences struct {
	Frequency      Frequency `json:"frequency"`
	DaysOfWeek     []int     `json:"days_of_week"`
	TimePreference string    `json:"time_preference"`
	Timezone       string    `json:"timezone"`
}

// Verify confirms the subscriber's e-mail from a verify link, activates the
// subscription and schedules its first reminder.
func (s *Service) Verify(ctx context.Context, token string) (*Subscription, error) {
	claims, err := s.Links.VerifyLink(token, auth.PurposeVerify)
	if err != nil {
		return nil, err
	}
	sub, err := s.owned(ctx, claims)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, err := NextReminder(sub.Schedule(), now)
	if err != nil {
		return nil, err
	}
	ok, err := s.Subs.Activate(ctx, sub.ID, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotActivatable
	}
	if err := s.Campaigns.MarkVerified(ctx, sub.SubscriberID, now); err != nil {
		return nil, fmt.Errorf("mark subscriber verified: %w", err)
	}

	sub.Status = StatusActive
	sub.NextReminderUTC = &next
	s.logger().Info("subscription verified", "subscription_id", sub.ID, "next_reminder_utc", next)
	return sub, nil
}

// UpdatePreferences validates and stores a new schedule. Active subscriptions get
// their next reminder recomputed; others keep theirs unset.
func (s *Service) UpdatePreferences(ctx context.Context, token string, p Preferences) (*Subscription, error) {
	claims, err := s.Links.VerifyLink(token, auth.PurposePreferences)
	if err != nil {
		return nil, err
	}
	sub, err := s.owned(ctx, claims)
	if err != nil {
		return nil, err
	}

	sched, err := normalize(p)
	if err != nil {
		return nil, err
	}
	next, err := NextReminder(sched, s.now())
	if err != nil {
		return nil, err
	}

	var nextPtr *time.Time
	if sub.Status == StatusActive {
		nextPtr = &next
	}
	if err := s.Subs.SavePreferences(ctx, sub.ID, sched, nextPtr); err != nil {
		return nil, err
	}

	sub.Frequency = sched.Frequency
	sub.TimePreference = sched.TimePreference
	sub.Timezone = sched.Timezone
	sub.DaysOfWeek = sub.DaysOfWeek[:0]
	for _, d := range sched.DaysOfWeek {
		sub.DaysOfWeek = append(sub.DaysOfWeek, int64(d))
	}
	sub.NextReminderUTC = nextPtr
	return sub, nil
}

// Unsubscribe handles the link in marketing and reminder e-mail.
func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	claims, err := s.Links.VerifyLink(token, auth.PurposeUnsubscribe)
	if err != nil {
		return err
	}

	if claims.AudienceType == "newsletter" {
		return s.Campaigns.SetNewsletterOptIn(ctx, claims.SubscriberID, false)
	}
	if claims.CampaignID == 0 {
		return fmt.Errorf("%w: no campaign", auth.ErrInvalidToken)
	}
	n, err := s.Subs.Unsubscribe(ctx, claims.SubscriberID, claims.CampaignID)
	if err != nil {
		return err
	}
	s.logger().Info("unsubscribed", "subscriber_id", claims.SubscriberID, "campaign_id", claims.CampaignID, "subscriptions", n)
	return nil
}

func (s *Service) owned(ctx context.Context, c auth.LinkClaims) (*Subscription, error) {
	sub, err := s.Subs.Get(ctx, c.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.SubscriberID != c.SubscriberID {
		return nil, auth.ErrInvalidToken
	}
	return sub, nil
}

func normalize(p Preferences) (Schedule, error) {
	s := Schedule{
		Frequency:      Frequency(strings.ToLower(strings.TrimSpace(string(p.Frequency)))),
		DaysOfWeek:     p.DaysOfWeek,
		TimePreference: strings.TrimSpace(p.TimePreference),
		Timezone:       strings.TrimSpace(p.Timezone),
	}
	if s.Frequency == Daily {
		s.DaysOfWeek = nil
	}
	h, m, err := parseClock(s.TimePreference)
	if err != nil {
		return Schedule{}, err
	}
	s.TimePreference = fmt.Sprintf("%02d:%02d", h, m)
	if s.Timezone == "" || Location(s.Timezone) == time.UTC {
		s.Timezone = "UTC"
	}
	return s, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
