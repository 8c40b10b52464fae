package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProviderSetNX(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewMemoryProvider()
	p.now = func() time.Time { return now }

	ok, err := p.SetNX(ctx, "k", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.SetNX(ctx, "k", []byte("2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, err = p.SetNX(ctx, "k", []byte("3"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryProviderNoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	ok, _ := p.SetNX(ctx, "k", nil, 0)
	assert.True(t, ok)
	ok, _ = p.SetNX(ctx, "k", nil, 0)
	assert.False(t, ok)
}

func TestMemoryProviderDeleteFreesKey(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	ok, _ := p.SetNX(ctx, "k", nil, time.Hour)
	require.True(t, ok)
	require.NoError(t, p.Delete(ctx, "k"))
	require.NoError(t, p.Delete(ctx, "missing"))

	ok, err := p.SetNX(ctx, "k", nil, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoopProviderAlwaysSets(t *testing.T) {
	var p Provider = NoopProvider{}
	for i := 0; i < 3; i++ {
		ok, err := p.SetNX(context.Background(), "k", nil, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestNewRedisProviderRequiresAddr(t *testing.T) {
	_, err := NewRedisProvider(context.Background(), RedisConfig{})
	assert.Error(t, err)
}
