package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultLockTTL = 60 * time.Second

// Lock guards winning-ticket generation per competition so two admin requests
// cannot run the generator concurrently. The database flag is the durable
// guard; this lock just keeps a double-submitted request from doing the draw
// work twice before the flag flips. The TTL bounds how long a crashed run can
// keep the lock held.
type Lock struct {
	Client *redis.Client
	Owner  string
	TTL    time.Duration
}

func NewLock(client *redis.Client, owner string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Lock{
		Client: client,
		Owner:  owner,
		TTL:    ttl,
	}
}

func lockKey(competitionID string) string {
	return "winning_gen:" + competitionID
}

// Acquire takes the generation lock for a competition. Returns false when
// another run already holds it.
func (l *Lock) Acquire(competitionID string) (bool, error) {
	key := lockKey(competitionID)
	ok, err := l.Client.SetNX(context.Background(), key, l.Owner, l.TTL).Result()
	return ok, err
}

// Release frees the lock, but only if this instance still owns it. A lock
// that expired and was re-acquired elsewhere is left alone.
func (l *Lock) Release(competitionID string) error {
	ctx := context.Background()
	key := lockKey(competitionID)
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == l.Owner {
		_, err := l.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// IsLocked reports whether a generation run currently holds the lock, without
// taking it.
func (l *Lock) IsLocked(competitionID string) (bool, error) {
	_, err := l.Client.Get(context.Background(), lockKey(competitionID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check generation lock: %w", err)
	}
	return true, nil
}
