package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fedcore/internal/platform/config"
	"fedcore/pkg/platform/sentinel"
)

func TestNew_EmptyURLDisablesRedis(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestOptions(t *testing.T) {
	t.Run("applies pool and timeout knobs", func(t *testing.T) {
		opts, err := Options(config.RedisConfig{
			URL:          "redis://localhost:6380/2",
			PoolSize:     20,
			MinIdleConns: 4,
			DialTimeout:  time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "localhost:6380", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 20, opts.PoolSize)
		assert.Equal(t, 4, opts.MinIdleConns)
		assert.Equal(t, time.Second, opts.DialTimeout)
		assert.Equal(t, 2*time.Second, opts.ReadTimeout)
		assert.Equal(t, 3*time.Second, opts.WriteTimeout)
	})

	t.Run("rejects a malformed url", func(t *testing.T) {
		_, err := Options(config.RedisConfig{URL: "http://localhost"})
		assert.Error(t, err)
	})
}

func TestNew_UnreachableServerIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, config.RedisConfig{URL: "redis://127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}
