package content

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("content not found")

type Repo struct {
	DB *gorm.DB
}

func (r *Repo) Get(ctx context.Context, id uint64) (*LibraryContent, error) {
	var c LibraryContent
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get content %d: %w", id, err)
	}
	return &c, nil
}

// Find looks a day up by its natural key.
func (r *Repo) Find(ctx context.Context, libraryID uint64, day int, lang string) (*LibraryContent, error) {
	var c LibraryContent
	err := r.DB.WithContext(ctx).
		Where("library_id = ? AND day_number = ? AND language_code = ?", libraryID, day, lang).
		Take(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find content %d/%d/%s: %w", libraryID, day, lang, err)
	}
	return &c, nil
}

// ListByLanguage returns a library's days in lang ordered by day.
func (r *Repo) ListByLanguage(ctx context.Context, libraryID uint64, lang string) ([]LibraryContent, error) {
	var out []LibraryContent
	err := r.DB.WithContext(ctx).
		Where("library_id = ? AND language_code = ?", libraryID, lang).
		Order("day_number asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list content %d/%s: %w", libraryID, lang, err)
	}
	return out, nil
}

// Upsert inserts c or overwrites title and body of the existing row with the same natural key.
func (r *Repo) Upsert(ctx context.Context, c *LibraryContent) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "library_id"}, {Name: "day_number"}, {Name: "language_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "updated_at"}),
	}).Create(c).Error
	if err != nil {
		return fmt.Errorf("upsert content %d/%d/%s: %w", c.LibraryID, c.DayNumber, c.LanguageCode, err)
	}
	return nil
}
