package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Lines []string `json:"lines"`
}

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, HeldCartKey("t1"), snapshot{Lines: []string{"a"}}, time.Minute))

	var got snapshot
	ok, err := c.GetJSON(ctx, "held:t1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, got.Lines)

	now = now.Add(time.Minute)
	ok, err = c.GetJSON(ctx, "held:t1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, SettingsKey("/api/sales/settings"), map[string]int{"x": 1}, 0))
	require.NoError(t, c.Delete(ctx, "settings:/api/sales/settings"))

	var v map[string]int
	ok, err := c.GetJSON(ctx, "settings:/api/sales/settings", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoopCacheMisses(t *testing.T) {
	var c Cache = NoopCache{}
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, "k", 1, 0))
	var v int
	ok, err := c.GetJSON(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}
