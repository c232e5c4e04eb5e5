package cycle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	userID := uuid.NewString()

	_, hit, err := cache.GetLatest(ctx, userID)
	require.NoError(t, err)
	assert.False(t, hit)

	end := CycleDate{Day: 6, Month: 4, Year: 2025}
	stored := Cycle{
		ID:     uuid.New(),
		UserID: uuid.MustParse(userID),
		Start:  CycleDate{Day: 1, Month: 4, Year: 2025},
		End:    &end,
	}
	require.NoError(t, cache.SetLatest(ctx, userID, &stored))

	got, hit, err := cache.GetLatest(ctx, userID)
	require.NoError(t, err)
	require.True(t, hit)
	require.NotNil(t, got)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, end, *got.End)
}

func TestCacheStoresAbsence(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	userID := uuid.NewString()

	require.NoError(t, cache.SetLatest(ctx, userID, nil))

	got, hit, err := cache.GetLatest(ctx, userID)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Nil(t, got)
}

func TestCacheInvalidate(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	userID := uuid.NewString()

	require.NoError(t, cache.SetLatest(ctx, userID, nil))
	require.NoError(t, cache.Invalidate(ctx, userID))

	_, hit, err := cache.GetLatest(ctx, userID)
	require.NoError(t, err)
	assert.False(t, hit)
}
