package shared

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

func newTestLocks(t *testing.T) (*UserLocks, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewUserLocks(client, time.Minute), mr
}

func TestUserLocksAcquireRelease(t *testing.T) {
	locks, mr := newTestLocks(t)
	userID := uuid.NewString()

	release, err := locks.Acquire(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(CycleLockKey(userID)))

	release()
	assert.False(t, mr.Exists(CycleLockKey(userID)))
}

func TestUserLocksContention(t *testing.T) {
	locks, _ := newTestLocks(t)
	userID := uuid.NewString()

	release, err := locks.Acquire(context.Background(), userID)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	_, err = locks.Acquire(ctx, userID)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestUserLocksReleaseOnlyOwn(t *testing.T) {
	locks, mr := newTestLocks(t)
	userID := uuid.NewString()

	release, err := locks.Acquire(context.Background(), userID)
	require.NoError(t, err)

	// Simulate TTL expiry followed by another holder taking the lock.
	mr.Set(CycleLockKey(userID), "someone-else")
	release()
	assert.True(t, mr.Exists(CycleLockKey(userID)))
}

func TestUserLocksIndependentUsers(t *testing.T) {
	locks, _ := newTestLocks(t)

	releaseA, err := locks.Acquire(context.Background(), uuid.NewString())
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locks.Acquire(context.Background(), uuid.NewString())
	require.NoError(t, err)
	defer releaseB()
}
