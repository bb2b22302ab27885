// Package marketing fans a marketing e-mail out to its audience through the job queue.
package marketing

import (
	"errors"
	"time"
)

type Audience string

const (
	AudienceCampaign   Audience = "campaign"
	AudienceNewsletter Audience = "newsletter"
)

type Status string

const (
	StatusDraft   Status = "draft"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

const (
	JobType       = "marketing_email"
	ReferenceType = "marketing_email"
)

var (
	ErrNotFound      = errors.New("marketing email not found")
	ErrNotSendable   = errors.New("marketing email is not in a sendable state")
	ErrNoRecipients  = errors.New("marketing email has no recipients")
	ErrMissingTarget = errors.New("campaign audience without campaign")
)

type Email struct {
	ID           uint64   `gorm:"primaryKey" json:"id"`
	Subject      string   `gorm:"type:text;not null" json:"subject"`
	BodyText     string   `gorm:"type:text;not null" json:"body_text"`
	AudienceType Audience `gorm:"type:text;not null" json:"audience_type"`
	CampaignID   *uint64  `json:"campaign_id,omitempty"`

	Status         Status     `gorm:"type:text;not null;default:'draft';index" json:"status"`
	RecipientCount int        `gorm:"not null;default:0" json:"recipient_count"`
	SentCount      int        `gorm:"not null;default:0" json:"sent_count"`
	FailedCount    int        `gorm:"not null;default:0" json:"failed_count"`
	QueuedAt       *time.Time `gorm:"type:timestamptz" json:"queued_at,omitempty"`
	SentAt         *time.Time `gorm:"type:timestamptz" json:"sent_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Email) TableName() string { return "marketing_emails" }

// Payload is one recipient of a marketing e-mail.
type Payload struct {
	MarketingEmailID uint64   `json:"marketing_email_id"`
	SubscriberID     uint64   `json:"subscriber_id"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	AudienceType     Audience `json:"audience_type"`
	CampaignSlug     string   `json:"campaign_slug,omitempty"`
}

func (Payload) JobType() string { return JobType }

type Recipient struct {
	SubscriberID uint64
	Email        string
	Name         string
}
