package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantgem/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Enabled: false},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(Disabled(), "returns", time.Minute)

	// When Redis is disabled, cache operations should be no-ops
	var result []string
	found, err := cache.Get(ctx, "k", &result)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "k", []string{"a"}))

	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	gen, err = cache.Bump(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)
}

func TestQueryKey(t *testing.T) {
	tests := []struct {
		name   string
		gen    int64
		kind   string
		params []string
		want   string
	}{
		{"plain", 3, "rankings", []string{"daily", "listed", "all"}, "g3:rankings:daily:listed:all"},
		{"empty params become dash", 0, "statistics", []string{"weekly", "", "all"}, "g0:statistics:weekly:-:all"},
		{"no params", 7, "heatmap", nil, "g7:heatmap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryKey(tt.gen, tt.kind, tt.params...))
		})
	}
}

func TestQueryKey_GenerationChangesKey(t *testing.T) {
	assert.NotEqual(t,
		QueryKey(1, "rankings", "daily"),
		QueryKey(2, "rankings", "daily"))
}
