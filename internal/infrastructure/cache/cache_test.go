package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := &config.RedisConfig{
		URL:          mr.Addr(),
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}

	c, err := NewRedisCache(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", time.Minute))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)
}

func TestCacheGetMissingKey(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.IsType(t, ErrCacheKeyNotFound{}, err)
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", time.Minute))
	require.NoError(t, c.Delete(ctx, "k1"))

	_, err := c.Get(ctx, "k1")
	assert.Error(t, err)
}

func TestCacheJSONRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	type scored struct {
		ClaimID string  `json:"claim_id"`
		Score   float64 `json:"score"`
	}

	in := scored{ClaimID: "CLM_1", Score: 72.5}
	require.NoError(t, c.SetJSON(ctx, "fraud:score:"+in.ClaimID, in, time.Minute))

	var out scored
	require.NoError(t, c.GetJSON(ctx, "fraud:score:CLM_1", &out))
	assert.Equal(t, in, out)
}
