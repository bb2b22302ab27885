package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPayload struct {
	Msg string `json:"msg"`
}

func (echoPayload) JobType() string { return "echo" }

func TestRegister_Duplicate(t *testing.T) {
	reg := NewRegistry()
	fn := func(context.Context, *Job, echoPayload) (any, error) { return nil, nil }

	require.NoError(t, Register(reg, fn))
	assert.Error(t, Register(reg, fn))
	assert.Equal(t, []string{"echo"}, reg.Types())
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, Register(reg, func(_ context.Context, _ *Job, p echoPayload) (any, error) {
		return p.Msg, nil
	}))

	out, err := reg.Dispatch(context.Background(), &Job{Type: "echo", Payload: json.RawMessage(`{"msg":"hi"}`)})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, err = reg.Dispatch(context.Background(), &Job{Type: "echo", Payload: json.RawMessage(`{"msg":`)})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = reg.Dispatch(context.Background(), &Job{Type: "echo"})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = reg.Dispatch(context.Background(), &Job{Type: "missing", Payload: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestNewJob_Defaults(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	j, err := NewJob(echoPayload{Msg: "x"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "echo", j.Type)
	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, 0, j.Priority)
	assert.Equal(t, DefaultMaxAttempts, j.MaxAttempts)
	assert.Equal(t, fixed, j.ScheduledAt)
	assert.Equal(t, 0, j.Attempts)
	assert.Nil(t, j.ReferenceType)
	assert.JSONEq(t, `{"msg":"x"}`, string(j.Payload))

	j, err = NewJob(echoPayload{}, Options{Reference: &Reference{Type: "marketing_email", ID: "42"}, MaxAttempts: 5})
	require.NoError(t, err)
	ref, ok := j.Reference()
	require.True(t, ok)
	assert.Equal(t, "marketing_email/42", ref.String())
	assert.Equal(t, 5, j.MaxAttempts)
}
