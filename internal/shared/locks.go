package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CycleLockKey builds redis keys for per-user cycle critical sections.
func CycleLockKey(userID string) string {
	return fmt.Sprintf("cycle:user:%s:lock", userID)
}

// UserLocks serializes cycle mutations per user via redis SET NX.
// A mutation holds the lock for the duration of its read-then-write
// sequence so two concurrent starts cannot both pass the open-cycle check.
type UserLocks struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewUserLocks constructs a UserLocks manager. The ttl bounds how long a
// crashed holder can block other mutations for the same user.
func NewUserLocks(client *redis.Client, ttl time.Duration) *UserLocks {
	return &UserLocks{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

// Acquire takes the lock for userID, retrying until the context expires.
// The returned release function must be called exactly once.
func (l *UserLocks) Acquire(ctx context.Context, userID string) (func(), error) {
	key := CycleLockKey(userID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("shared: acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
		case <-time.After(l.retry):
		}
	}

	release := func() {
		// Only delete the lock if we still own it.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		_ = l.client.Eval(context.Background(), script, []string{key}, token).Err()
	}
	return release, nil
}
