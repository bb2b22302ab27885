package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Expires(t *testing.T) {
	c := NewMemory[string](10, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemory_Delete(t *testing.T) {
	c := NewMemory[int](0, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "n", 1))
	require.NoError(t, c.Delete(ctx, "n"))
	_, ok, _ := c.Get(ctx, "n")
	assert.False(t, ok)
}

func TestGetOrLoad(t *testing.T) {
	c := NewMemory[int](10, time.Minute)
	ctx := context.Background()
	loads := 0
	load := func(context.Context) (int, error) {
		loads++
		return 7, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoad[int](ctx, c, "x", load)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 1, loads)

	_, err := GetOrLoad[int](ctx, c, "y", func(context.Context) (int, error) {
		return 0, errors.New("not found")
	})
	assert.Error(t, err)
	_, ok, _ := c.Get(ctx, "y")
	assert.False(t, ok)
}
