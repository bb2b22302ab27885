package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// AdminUser can sign in to the dashboard and trigger sends and translations.
type AdminUser struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}

// EnsureAdmin creates the configured admin account on first boot. It reports
// whether a row was created; an existing account is left untouched.
func EnsureAdmin(ctx context.Context, db *gorm.DB, email, password string) (bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return false, nil
	}

	var existing AdminUser
	err := db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	if err := db.WithContext(ctx).Create(&AdminUser{Email: email, PasswordHash: hash}).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
