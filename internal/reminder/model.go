package reminder

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

type SubscriptionStatus string

const (
	StatusPending      SubscriptionStatus = "pending"
	StatusActive       SubscriptionStatus = "active"
	StatusInactive     SubscriptionStatus = "inactive"
	StatusUnsubscribed SubscriptionStatus = "unsubscribed"
)

const JobType = "reminder_email"

var (
	ErrNotFound       = errors.New("subscription not found")
	ErrNotActivatable = errors.New("subscription cannot be activated")
)

type Subscription struct {
	ID             uint64 `gorm:"primaryKey" json:"id"`
	SubscriberID   uint64 `gorm:"not null;index" json:"subscriber_id"`
	CampaignID     uint64 `gorm:"not null;index" json:"campaign_id"`
	DeliveryMethod string `gorm:"type:text;not null;default:'email'" json:"delivery_method"`

	Frequency      Frequency     `gorm:"type:text;not null;default:'daily'" json:"frequency"`
	DaysOfWeek     pq.Int64Array `gorm:"type:integer[]" json:"days_of_week"`
	TimePreference string        `gorm:"type:text;not null;default:'09:00'" json:"time_preference"`
	Timezone       string        `gorm:"type:text;not null;default:'UTC'" json:"timezone"`

	Status          SubscriptionStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	NextReminderUTC *time.Time         `gorm:"column:next_reminder_utc;type:timestamptz" json:"next_reminder_utc,omitempty"`
	LastReminderAt  *time.Time         `gorm:"type:timestamptz" json:"last_reminder_at,omitempty"`

	FollowupCount         int        `gorm:"not null;default:0" json:"followup_count"`
	FollowupReminderCount int        `gorm:"not null;default:0" json:"followup_reminder_count"`
	LastFollowupAt        *time.Time `gorm:"type:timestamptz" json:"last_followup_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (s *Subscription) Schedule() Schedule {
	days := make([]int, len(s.DaysOfWeek))
	for i, d := range s.DaysOfWeek {
		days[i] = int(d)
	}
	return Schedule{
		Frequency:      s.Frequency,
		DaysOfWeek:     days,
		TimePreference: s.TimePreference,
		Timezone:       s.Timezone,
	}
}

// Payload asks for one reminder e-mail for one subscription.
type Payload struct {
	SubscriptionID uint64    `json:"subscription_id"`
	ScheduledFor   time.Time `json:"scheduled_for"`
}

func (Payload) JobType() string { return JobType }
