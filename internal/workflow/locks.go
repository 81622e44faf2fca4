package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// lockTTL bounds how long a crashed worker can hold a project lock
const lockTTL = 10 * time.Minute

// RedisLocker serializes revisions per project across instances with a
// SET NX key. The TTL guarantees eventual release if a worker dies before
// calling the release func.
type RedisLocker struct {
	Client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{Client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, projectID string) (ReleaseFunc, error) {
	key := "project:revision-lock:" + projectID

	ok, err := l.Client.SetNX(ctx, key, "1", lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRevisionInFlight
	}

	release := func() {
		// Release must not depend on the (possibly cancelled) caller context
		l.Client.Del(context.Background(), key)
	}
	return release, nil
}

// LocalLocker is the single-instance fallback used when Redis is not
// configured.
type LocalLocker struct {
	mu     sync.Mutex
	locked map[string]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locked: make(map[string]bool)}
}

func (l *LocalLocker) Acquire(ctx context.Context, projectID string) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked[projectID] {
		return nil, ErrRevisionInFlight
	}
	l.locked[projectID] = true

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.locked, projectID)
	}
	return release, nil
}
