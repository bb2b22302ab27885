package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Payload is implemented by every job payload type. JobType must not depend on
// the receiver's field values.
type Payload interface {
	JobType() string
}

type entry struct {
	decode func(json.RawMessage) (Payload, error)
	handle func(ctx context.Context, job *Job, p Payload) (any, error)
}

// Registry maps a job type to its payload decoder and processor.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register binds the payload type P to fn. It fails if P's job type is already bound.
// The value fn returns is stored as the job result.
func Register[P Payload](r *Registry, fn func(ctx context.Context, job *Job, payload P) (any, error)) error {
	var zero P
	typ := zero.JobType()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[typ]; exists {
		return fmt.Errorf("job type %q already registered", typ)
	}
	r.entries[typ] = entry{
		decode: func(raw json.RawMessage) (Payload, error) {
			var p P
			if len(raw) == 0 {
				return nil, fmt.Errorf("%w: empty payload for %s", ErrInvalidPayload, typ)
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, typ, err)
			}
			return p, nil
		},
		handle: func(ctx context.Context, job *Job, p Payload) (any, error) {
			return fn(ctx, job, p.(P))
		},
	}
	return nil
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.entries))
	for typ := range r.entries {
		out = append(out, typ)
	}
	return out
}

// Decode returns the typed payload stored on job.
func (r *Registry) Decode(job *Job) (Payload, error) {
	e, err := r.lookup(job.Type)
	if err != nil {
		return nil, err
	}
	return e.decode(job.Payload)
}

// Dispatch decodes the job payload and runs the registered processor.
func (r *Registry) Dispatch(ctx context.Context, job *Job) (any, error) {
	e, err := r.lookup(job.Type)
	if err != nil {
		return nil, err
	}
	p, err := e.decode(job.Payload)
	if err != nil {
		return nil, err
	}
	return e.handle(ctx, job, p)
}

func (r *Registry) lookup(typ string) (entry, error) {
	r.mu.RLock()
	e, ok := r.entries[typ]
	r.mu.RUnlock()
	if !ok {
		return entry{}, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	return e, nil
}

// NewJob builds an unsaved pending job row for p.
func NewJob(p Payload, opts Options) (*Job, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.JobType(), err)
	}

	j := &Job{
		Type:        p.JobType(),
		Payload:     raw,
		Status:      StatusPending,
		Priority:    opts.Priority,
		ScheduledAt: opts.ScheduledAt,
		MaxAttempts: opts.MaxAttempts,
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = now()
	}
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Reference != nil {
		typ, id := opts.Reference.Type, opts.Reference.ID
		j.ReferenceType = &typ
		j.ReferenceID = &id
	}
	return j, nil
}
