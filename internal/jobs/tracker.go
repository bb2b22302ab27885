package jobs

import (
	"context"
	"fmt"
	"sync"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Resolve applies the quorum rule: a group fails only when nothing in it completed.
func Resolve(s Stats) Outcome {
	if s.Failed > 0 && s.Completed == 0 {
		return OutcomeFailed
	}
	return OutcomeSucceeded
}

// Finalizer moves the parent of a finished reference group to its final state.
// It can run more than once for the same group and must be idempotent.
type Finalizer func(ctx context.Context, ref Reference, outcome Outcome, stats Stats) error

type binding struct {
	src StatsSource
	fn  Finalizer
}

// Tracker finalizes parent entities once all their jobs have resolved.
type Tracker struct {
	src StatsSource

	mu       sync.RWMutex
	bindings map[string]binding
}

// NewTracker uses src for reference types registered without their own source.
func NewTracker(src StatsSource) *Tracker {
	return &Tracker{src: src, bindings: make(map[string]binding)}
}

func (t *Tracker) Register(refType string, fn Finalizer) {
	t.RegisterSource(refType, nil, fn)
}

// RegisterSource binds refType to fn, reading counts from src instead of the job table.
func (t *Tracker) RegisterSource(refType string, src StatsSource, fn Finalizer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindings[refType] = binding{src: src, fn: fn}
}

// Check finalizes ref if it has no active work left. It reports whether the finalizer ran.
func (t *Tracker) Check(ctx context.Context, ref Reference) (bool, error) {
	t.mu.RLock()
	b, ok := t.bindings[ref.Type]
	t.mu.RUnlock()
	if !ok {
		return false, nil
	}

	src := b.src
	if src == nil {
		src = t.src
	}
	if src == nil {
		return false, fmt.Errorf("no stats source for %s", ref.Type)
	}

	done, err := src.IsComplete(ctx, ref)
	if err != nil || !done {
		return false, err
	}

	stats, err := src.GetJobStats(ctx, ref.Type, ref.ID)
	if err != nil {
		return false, err
	}
	if err := b.fn(ctx, ref, Resolve(stats), stats); err != nil {
		return false, fmt.Errorf("finalize %s: %w", ref, err)
	}
	return true, nil
}
