package marketing

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"vigil/internal/auth"
	"vigil/internal/cache"
	"vigil/internal/jobs"
	"vigil/internal/mail"
)

// Store is what the processor needs from the marketing_emails table.
type Store interface {
	Get(ctx context.Context, id uint64) (*Email, error)
	IncrementSent(ctx context.Context, id uint64) error
	IncrementFailed(ctx context.Context, id uint64) error
}

type LinkSigner interface {
	SignLink(c auth.LinkClaims, ttl time.Duration) (string, error)
}

type Processor struct {
	Emails  Store
	Cache   cache.Cache[Email]
	Mailer  mail.Sender
	Links   LinkSigner
	BaseURL string
	Log     *slog.Logger
}

type Result struct {
	Recipient string `json:"recipient"`
}

// Handle sends one marketing e-mail to one recipient.
func (p *Processor) Handle(ctx context.Context, job *jobs.Job, pl Payload) (any, error) {
	e, err := cache.GetOrLoad(ctx, p.Cache, strconv.FormatUint(pl.MarketingEmailID, 10),
		func(ctx context.Context) (Email, error) {
			e, err := p.Emails.Get(ctx, pl.MarketingEmailID)
			if err != nil {
				return Email{}, err
			}
			return *e, nil
		})
	if err != nil {
		return nil, err
	}

	unsub, err := p.unsubscribeURL(pl, e)
	if err != nil {
		return nil, err
	}
	html, err := mail.RenderHTML(mail.Body{
		Greeting:       greeting(pl.Name),
		Text:           e.BodyText,
		UnsubscribeURL: unsub,
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	err = p.Mailer.Send(ctx, mail.Message{
		To:      pl.Email,
		ToName:  pl.Name,
		Subject: e.Subject,
		HTML:    html,
		Text:    e.BodyText + "\n\nUnsubscribe: " + unsub,
		Headers: map[string]string{"List-Unsubscribe": "<" + unsub + ">"},
	})
	if err != nil {
		if job.Attempts >= job.MaxAttempts {
			if incErr := p.Emails.IncrementFailed(ctx, e.ID); incErr != nil {
				p.logger().Error("count failed send", "marketing_email_id", e.ID, "err", incErr)
			}
		}
		return nil, err
	}

	// The mail is out; a counter error must not trigger a resend.
	if err := p.Emails.IncrementSent(ctx, e.ID); err != nil {
		p.logger().Error("count sent", "marketing_email_id", e.ID, "err", err)
	}
	return Result{Recipient: pl.Email}, nil
}

func (p *Processor) unsubscribeURL(pl Payload, e Email) (string, error) {
	claims := auth.LinkClaims{
		Purpose:      auth.PurposeUnsubscribe,
		SubscriberID: pl.SubscriberID,
		AudienceType: string(pl.AudienceType),
	}
	path := "/newsletter/unsubscribe"
	if pl.AudienceType == AudienceCampaign {
		if pl.CampaignSlug == "" {
			return "", ErrMissingTarget
		}
		path = "/" + url.PathEscape(pl.CampaignSlug) + "/unsubscribe"
		if e.CampaignID != nil {
			claims.CampaignID = *e.CampaignID
		}
	}

	tok, err := p.Links.SignLink(claims, 0)
	if err != nil {
		return "", fmt.Errorf("sign unsubscribe link: %w", err)
	}
	return p.BaseURL + path + "?token=" + url.QueryEscape(tok), nil
}

func greeting(name string) string {
	if name == "" {
		return ""
	}
	return "Hi " + name + ","
}

func (p *Processor) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}
