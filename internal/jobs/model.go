package jobs

import (
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsActive reports whether a job in this status still has work ahead of it.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

const DefaultMaxAttempts = 3

var (
	ErrNotFound       = errors.New("job not found")
	ErrNotProcessing  = errors.New("job is not processing")
	ErrUnknownType    = errors.New("unknown job type")
	ErrInvalidPayload = errors.New("invalid job payload")
)

type Job struct {
	ID   uint64 `gorm:"primaryKey"`
	Type string `gorm:"type:text;not null;index"`

	ReferenceType *string `gorm:"type:text"`
	ReferenceID   *string `gorm:"type:text"`

	Payload json.RawMessage `gorm:"type:jsonb;not null;default:'{}'::jsonb"`

	Status      Status    `gorm:"type:text;index;not null;default:'pending'"`
	Priority    int       `gorm:"not null;default:0"`
	ScheduledAt time.Time `gorm:"type:timestamptz;not null;default:now()"`

	Attempts      int        `gorm:"not null;default:0"`
	MaxAttempts   int        `gorm:"not null;default:3"`
	LastAttemptAt *time.Time `gorm:"type:timestamptz"`

	ErrorMessage *string         `gorm:"type:text"`
	Result       json.RawMessage `gorm:"type:jsonb"`
	CompletedAt  *time.Time      `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// Reference returns the reference group the job belongs to, if any.
func (j *Job) Reference() (Reference, bool) {
	if j.ReferenceType == nil || j.ReferenceID == nil {
		return Reference{}, false
	}
	return Reference{Type: *j.ReferenceType, ID: *j.ReferenceID}, true
}

// Reference identifies the parent entity a group of jobs reports to.
type Reference struct {
	Type string
	ID   string
}

func (r Reference) String() string { return r.Type + "/" + r.ID }

// Options tune a job at creation time. Zero values fall back to defaults.
type Options struct {
	Priority    int
	ScheduledAt time.Time
	MaxAttempts int
	Reference   *Reference
}

// Stats counts the jobs of a reference group by status.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
}

func (s Stats) Total() int64 {
	return s.Pending + s.Processing + s.Completed + s.Failed + s.Cancelled
}

// AddCount folds a (status, count) row into the stats.
func (s *Stats) AddCount(status string, n int64) {
	switch status {
	case string(StatusPending):
		s.Pending += n
	case string(StatusProcessing):
		s.Processing += n
	case string(StatusCompleted):
		s.Completed += n
	case string(StatusFailed):
		s.Failed += n
	case "cancelled":
		s.Cancelled += n
	}
}
