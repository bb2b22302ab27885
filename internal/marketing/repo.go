package marketing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

func (r *Repo) WithTx(tx *gorm.DB) *Repo { return &Repo{DB: tx} }

func (r *Repo) Get(ctx context.Context, id uint64) (*Email, error) {
	var e Email
	if err := r.DB.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get marketing email %d: %w", id, err)
	}
	return &e, nil
}

// Recipients resolves the audience: active subscribers of the campaign, or
// verified newsletter subscribers.
func (r *Repo) Recipients(ctx context.Context, e *Email) ([]Recipient, error) {
	var out []Recipient
	var q *gorm.DB

	switch e.AudienceType {
	case AudienceCampaign:
		if e.CampaignID == nil {
			return nil, ErrMissingTarget
		}
		q = r.DB.WithContext(ctx).Raw(`
select distinct s.id as subscriber_id, s.email, s.name
from subscribers s
join subscriptions sub on sub.subscriber_id = s.id
where sub.campaign_id = ? and sub.status = 'active'
order by s.id`, *e.CampaignID)
	case AudienceNewsletter:
		q = r.DB.WithContext(ctx).Raw(`
select id as subscriber_id, email, name
from subscribers
where newsletter_opt_in and verified_at is not null
order by id`)
	default:
		return nil, fmt.Errorf("unknown audience %q", e.AudienceType)
	}

	if err := q.Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("recipients for %d: %w", e.ID, err)
	}
	return out, nil
}

// MarkSending moves a draft (or a previously failed send) to sending and resets its counters.
func (r *Repo) MarkSending(ctx context.Context, id uint64, recipients int) error {
	res := r.DB.WithContext(ctx).Exec(`
update marketing_emails
set status = ?, recipient_count = ?, sent_count = 0, failed_count = 0, queued_at = now(), sent_at = null, updated_at = now()
where id = ? and status in (?, ?)`, StatusSending, recipients, id, StatusDraft, StatusFailed)
	if res.Error != nil {
		return fmt.Errorf("mark %d sending: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotSendable
	}
	return nil
}

func (r *Repo) IncrementSent(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Exec(
		`update marketing_emails set sent_count = sent_count + 1, updated_at = now() where id = ?`, id,
	).Error
}

func (r *Repo) IncrementFailed(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Exec(
		`update marketing_emails set failed_count = failed_count + 1, updated_at = now() where id = ?`, id,
	).Error
}

// Finish records the final status of a send. Only a sending row moves, so repeated calls are no-ops.
func (r *Repo) Finish(ctx context.Context, id uint64, status Status) (bool, error) {
	res := r.DB.WithContext(ctx).Exec(`
update marketing_emails
set status = ?, sent_at = case when ? = 'sent' then now() else sent_at end, updated_at = now()
where id = ? and status = ?`, status, status, id, StatusSending)
	if res.Error != nil {
		return false, fmt.Errorf("finish %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
