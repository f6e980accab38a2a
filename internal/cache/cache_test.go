package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfolio/service/internal/logger"
)

func TestMemoryFallbackRoundTrip(t *testing.T) {
	c := New(nil, logger.Nop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []string{"a", "b"}, time.Minute))
	var got []string
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	c.Delete(ctx, "k")
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	c := New(nil, logger.Nop())
	now := time.Unix(1000, 0)
	c.mem.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", 1, time.Second))
	now = now.Add(2 * time.Second)

	var v int
	ok, err := c.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrLoad(t *testing.T) {
	c := New(nil, logger.Nop())
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoad(ctx, c, "answer", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)

	_, err := GetOrLoad(ctx, c, "broken", time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	assert.Error(t, err)
	var v int
	ok, _ := c.Get(ctx, "broken", &v)
	assert.False(t, ok)
}

func TestConnectRequiresAddress(t *testing.T) {
	_, err := Connect(context.Background(), "", "", 0)
	assert.Error(t, err)
}
