package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheFetchJSONLoadsOnceUntilBump(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return map[string]int{"value": loads}, nil
	}

	key, err := cache.BuildKey(ctx, "reports", "machine_roi", "w1")
	require.NoError(t, err)

	var first map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.Equal(t, 1, first["value"])

	var second map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, second["value"])
	require.Equal(t, 1, loads)

	// Bumping the version changes every key, so the loader runs again.
	require.NoError(t, cache.Bump(ctx))
	bumped, err := cache.BuildKey(ctx, "reports", "machine_roi", "w1")
	require.NoError(t, err)
	require.NotEqual(t, key, bumped)

	var third map[string]int
	require.NoError(t, cache.FetchJSON(ctx, bumped, &third, loader))
	require.Equal(t, 2, third["value"])
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	cache := NewCache(nil, 0)
	ctx := context.Background()

	loads := 0
	var out map[string]int
	for range 2 {
		require.NoError(t, cache.FetchJSON(ctx, "k", &out, func(context.Context) (any, error) {
			loads++
			return map[string]int{"value": loads}, nil
		}))
	}
	require.Equal(t, 2, loads)
}
