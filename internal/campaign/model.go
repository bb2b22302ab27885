// Package campaign holds campaigns and the people subscribed to them.
package campaign

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Campaign struct {
	ID        uint64    `gorm:"primaryKey"`
	Slug      string    `gorm:"type:text;uniqueIndex;not null"`
	Title     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

type Subscriber struct {
	ID                uint64     `gorm:"primaryKey"`
	Email             string     `gorm:"type:text;uniqueIndex;not null"`
	Name              string     `gorm:"type:text;not null;default:''"`
	PreferredLanguage string     `gorm:"type:text;not null;default:'en'"`
	NewsletterOptIn   bool       `gorm:"not null;default:false"`
	VerifiedAt        *time.Time `gorm:"type:timestamptz"`
	CreatedAt         time.Time  `gorm:"not null;default:now()"`
}
