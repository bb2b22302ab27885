package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vigil/internal/auth"
	"vigil/internal/campaign"
	"vigil/internal/content"
	"vigil/internal/jobs"
	"vigil/internal/marketing"
	"vigil/internal/reminder"
	"vigil/internal/translation"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.AdminUser{},
		&campaign.Campaign{},
		&campaign.Subscriber{},
		&reminder.Subscription{},
		&content.LibraryContent{},
		&marketing.Email{},
		&jobs.Job{},
		&translation.Batch{},
		&translation.Job{},
	); err != nil {
		return err
	}

	stmts := []string{
		// Claim paths
		`create index if not exists idx_jobs_due on jobs(status, type, scheduled_at);`,
		`create index if not exists idx_translation_jobs_due on translation_jobs(status, created_at);`,
		`create index if not exists idx_subscriptions_due on subscriptions(status, next_reminder_utc) where next_reminder_utc is not null;`,

		// Completion checks per reference / batch
		`create index if not exists idx_jobs_reference on jobs(reference_type, reference_id, status);`,
		`create index if not exists idx_translation_jobs_batch on translation_jobs(batch_id, status);`,

		// Stale recovery
		`create index if not exists idx_jobs_processing on jobs(status, last_attempt_at) where status = 'processing';`,

		`create unique index if not exists uq_subscriptions_method on subscriptions(subscriber_id, campaign_id, delivery_method);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
