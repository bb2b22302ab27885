package marketing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"gorm.io/gorm"

	"vigil/internal/campaign"
	"vigil/internal/jobs"
)

type Service struct {
	DB        *gorm.DB
	Emails    *Repo
	Jobs      *jobs.Repo
	Campaigns *campaign.Repo
	Log       *slog.Logger
}

// Send queues one job per recipient and flips the e-mail to sending, in one transaction.
// It returns the number of jobs queued.
func (s *Service) Send(ctx context.Context, emailID uint64) (int, error) {
	e, err := s.Emails.Get(ctx, emailID)
	if err != nil {
		return 0, err
	}
	if e.Status != StatusDraft && e.Status != StatusFailed {
		return 0, ErrNotSendable
	}

	var slug string
	if e.AudienceType == AudienceCampaign {
		if e.CampaignID == nil {
			return 0, ErrMissingTarget
		}
		c, err := s.Campaigns.Campaign(ctx, *e.CampaignID)
		if err != nil {
			return 0, err
		}
		slug = c.Slug
	}

	recipients, err := s.Emails.Recipients(ctx, e)
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, ErrNoRecipients
	}

	payloads := make([]jobs.Payload, 0, len(recipients))
	for _, rc := range recipients {
		payloads = append(payloads, Payload{
			MarketingEmailID: e.ID,
			SubscriberID:     rc.SubscriberID,
			Email:            rc.Email,
			Name:             rc.Name,
			AudienceType:     e.AudienceType,
			CampaignSlug:     slug,
		})
	}
	ref := jobs.Reference{Type: ReferenceType, ID: strconv.FormatUint(e.ID, 10)}
	opts := jobs.Options{Reference: &ref}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Emails.WithTx(tx).MarkSending(ctx, e.ID, len(recipients)); err != nil {
			return err
		}
		// A resend of a failed e-mail must not count the previous run's rows.
		js := s.Jobs.WithTx(tx)
		if _, err := js.DeleteResolved(ctx, ref); err != nil {
			return err
		}
		_, err := js.CreateJobs(ctx, payloads, opts)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger().Info("marketing email queued", "marketing_email_id", e.ID, "recipients", len(recipients))
	return len(recipients), nil
}

// Finalize is the completion hook for the marketing_email reference group.
func (s *Service) Finalize(ctx context.Context, ref jobs.Reference, outcome jobs.Outcome, stats jobs.Stats) error {
	id, err := strconv.ParseUint(ref.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad marketing email reference %q", ref.ID)
	}

	status := StatusFor(outcome)
	moved, err := s.Emails.Finish(ctx, id, status)
	if err != nil {
		return err
	}
	if moved {
		s.logger().Info("marketing email finished",
			"marketing_email_id", id,
			"status", status,
			"completed", stats.Completed,
			"failed", stats.Failed,
		)
	}
	return nil
}

// StatusFor maps a reference-group outcome onto the e-mail's final status.
func StatusFor(o jobs.Outcome) Status {
	if o == jobs.OutcomeFailed {
		return StatusFailed
	}
	return StatusSent
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
