package reminder

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"vigil/internal/auth"
	"vigil/internal/campaign"
	"vigil/internal/jobs"
	"vigil/internal/mail"
)

type SubscriptionGetter interface {
	Get(ctx context.Context, id uint64) (*Subscription, error)
}

type Directory interface {
	Campaign(ctx context.Context, id uint64) (*campaign.Campaign, error)
	Subscriber(ctx context.Context, id uint64) (*campaign.Subscriber, error)
}

type LinkSigner interface {
	SignLink(c auth.LinkClaims, ttl time.Duration) (string, error)
}

// Processor sends reminder_email jobs.
type Processor struct {
	Subs      SubscriptionGetter
	Directory Directory
	Mailer    mail.Sender
	Links     LinkSigner
	BaseURL   string
}

type Result struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

const preferencesLinkTTL = 30 * 24 * time.Hour

func (p *Processor) Handle(ctx context.Context, _ *jobs.Job, pl Payload) (any, error) {
	sub, err := p.Subs.Get(ctx, pl.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusActive {
		return Result{Status: "skipped", Reason: string(sub.Status)}, nil
	}

	subscriber, err := p.Directory.Subscriber(ctx, sub.SubscriberID)
	if err != nil {
		return nil, err
	}
	c, err := p.Directory.Campaign(ctx, sub.CampaignID)
	if err != nil {
		return nil, err
	}

	unsubTok, err := p.Links.SignLink(auth.LinkClaims{
		Purpose:      auth.PurposeUnsubscribe,
		SubscriberID: subscriber.ID,
		AudienceType: "campaign",
		CampaignID:   c.ID,
	}, 0)
	if err != nil {
		return nil, err
	}
	prefTok, err := p.Links.SignLink(auth.LinkClaims{
		Purpose:        auth.PurposePreferences,
		SubscriberID:   subscriber.ID,
		SubscriptionID: sub.ID,
	}, preferencesLinkTTL)
	if err != nil {
		return nil, err
	}

	slug := url.PathEscape(c.Slug)
	prayURL := p.BaseURL + "/" + slug
	unsubURL := p.BaseURL + "/" + slug + "/unsubscribe?token=" + url.QueryEscape(unsubTok)
	prefURL := p.BaseURL + "/" + slug + "/preferences?token=" + url.QueryEscape(prefTok)

	text := fmt.Sprintf("It is time to pray with %s.\n\nToday's prayer is waiting for you.\n\nChange when you get reminders: %s", c.Title, prefURL)
	html, err := mail.RenderHTML(mail.Body{
		Greeting:       greeting(subscriber.Name),
		Text:           text,
		ActionURL:      prayURL,
		ActionLabel:    "Start praying",
		UnsubscribeURL: unsubURL,
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	err = p.Mailer.Send(ctx, mail.Message{
		To:      subscriber.Email,
		ToName:  subscriber.Name,
		Subject: "Prayer reminder: " + c.Title,
		HTML:    html,
		Text:    text + "\n\n" + prayURL + "\n\nUnsubscribe: " + unsubURL,
		Headers: map[string]string{"List-Unsubscribe": "<" + unsubURL + ">"},
	})
	if err != nil {
		return nil, err
	}
	return Result{Status: "sent"}, nil
}

func greeting(name string) string {
	if name == "" {
		return ""
	}
	return "Hi " + name + ","
}
