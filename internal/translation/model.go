// Package translation machine-translates library content into other languages, one day per job.
package translation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// ReferenceType names translation batches in the completion tracker.
const ReferenceType = "translation_batch"

const (
	ResultTranslated = "translated"
	ResultSkipped    = "skipped"
)

var (
	ErrBatchNotFound = errors.New("translation batch not found")
	ErrNoContent     = errors.New("library has no content in the source language")
	ErrNoLanguages   = errors.New("no target languages")
)

// Job is a translation_jobs row: one source day into one target language.
type Job struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	BatchID         uuid.UUID `gorm:"type:uuid;not null;index" json:"batch_id"`
	LibraryID       uint64    `gorm:"not null" json:"library_id"`
	SourceContentID uint64    `gorm:"not null" json:"source_content_id"`
	TargetLanguage  string    `gorm:"type:text;not null" json:"target_language"`
	Overwrite       bool      `gorm:"not null;default:false" json:"overwrite"`

	Status       Status  `gorm:"type:text;not null;default:'pending';index" json:"status"`
	Attempts     int     `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts  int     `gorm:"not null;default:3" json:"max_attempts"`
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`
	Result       *string `gorm:"type:text" json:"result,omitempty"`

	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
	CompletedAt *time.Time `gorm:"type:timestamptz" json:"completed_at,omitempty"`
}

func (Job) TableName() string { return "translation_jobs" }

type BatchStatus string

const (
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
	BatchCancelled  BatchStatus = "cancelled"
)

type Batch struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LibraryID       uint64         `gorm:"not null;index" json:"library_id"`
	SourceLanguage  string         `gorm:"type:text;not null" json:"source_language"`
	TargetLanguages pq.StringArray `gorm:"type:text[];not null" json:"target_languages"`
	Overwrite       bool           `gorm:"not null;default:false" json:"overwrite"`
	Status          BatchStatus    `gorm:"type:text;not null;default:'processing'" json:"status"`
	TotalJobs       int            `gorm:"not null;default:0" json:"total_jobs"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	CompletedAt     *time.Time     `gorm:"type:timestamptz" json:"completed_at,omitempty"`
}

func (Batch) TableName() string { return "translation_batches" }
