package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats struct {
	done  bool
	stats Stats
}

func (f fixedStats) IsComplete(context.Context, Reference) (bool, error) { return f.done, nil }
func (f fixedStats) GetJobStats(context.Context, string, string) (Stats, error) {
	return f.stats, nil
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  Outcome
	}{
		{"all completed", Stats{Completed: 3}, OutcomeSucceeded},
		{"partial failure", Stats{Completed: 2, Failed: 1}, OutcomeSucceeded},
		{"all failed", Stats{Failed: 3}, OutcomeFailed},
		{"failed and cancelled", Stats{Failed: 1, Cancelled: 4}, OutcomeFailed},
		{"only cancelled", Stats{Cancelled: 2}, OutcomeSucceeded},
		{"empty", Stats{}, OutcomeSucceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.stats))
		})
	}
}

func TestTracker_Check(t *testing.T) {
	ref := Reference{Type: "marketing_email", ID: "7"}

	t.Run("incomplete group is left alone", func(t *testing.T) {
		tr := NewTracker(fixedStats{done: false})
		called := false
		tr.Register(ref.Type, func(context.Context, Reference, Outcome, Stats) error {
			called = true
			return nil
		})

		ran, err := tr.Check(context.Background(), ref)
		require.NoError(t, err)
		assert.False(t, ran)
		assert.False(t, called)
	})

	t.Run("unregistered type is ignored", func(t *testing.T) {
		tr := NewTracker(fixedStats{done: true})
		ran, err := tr.Check(context.Background(), Reference{Type: "nope", ID: "1"})
		require.NoError(t, err)
		assert.False(t, ran)
	})

	t.Run("own source wins", func(t *testing.T) {
		tr := NewTracker(fixedStats{done: false})
		var got Outcome
		tr.RegisterSource("translation_batch", fixedStats{done: true, stats: Stats{Failed: 2}},
			func(_ context.Context, _ Reference, o Outcome, _ Stats) error {
				got = o
				return nil
			})

		ran, err := tr.Check(context.Background(), Reference{Type: "translation_batch", ID: "b"})
		require.NoError(t, err)
		assert.True(t, ran)
		assert.Equal(t, OutcomeFailed, got)
	})

	t.Run("finalizer error is wrapped", func(t *testing.T) {
		tr := NewTracker(fixedStats{done: true, stats: Stats{Completed: 1}})
		tr.Register(ref.Type, func(context.Context, Reference, Outcome, Stats) error {
			return errors.New("db gone")
		})

		_, err := tr.Check(context.Background(), ref)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "marketing_email/7")
	})
}
