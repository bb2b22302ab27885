// Package content stores the day-by-day prayer library documents.
package content

import (
	"encoding/json"
	"time"
)

// LibraryContent is one day of a prayer library in one language.
type LibraryContent struct {
	ID           uint64          `gorm:"primaryKey"`
	LibraryID    uint64          `gorm:"not null;uniqueIndex:uq_library_day_lang,priority:1"`
	DayNumber    int             `gorm:"not null;uniqueIndex:uq_library_day_lang,priority:2"`
	LanguageCode string          `gorm:"type:text;not null;uniqueIndex:uq_library_day_lang,priority:3"`
	Title        string          `gorm:"type:text;not null;default:''"`
	Content      json.RawMessage `gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	CreatedAt    time.Time       `gorm:"not null;default:now()"`
	UpdatedAt    time.Time       `gorm:"not null;default:now()"`
}
