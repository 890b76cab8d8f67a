// Package lock guards training so only one run mutates a Q-table at a time,
// either within a process or across replicas sharing a Redis instance.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is held by another run")

// Locker hands out an exclusive lock without waiting. The returned function
// releases it.
type Locker interface {
	TryLock(ctx context.Context) (unlock func() error, err error)
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held bool
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) TryLock(_ context.Context) (func() error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, ErrLocked
	}
	l.held = true

	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// Redis is a Locker backed by a redsync mutex. The lock expires after ttl so
// a crashed process cannot block training forever.
type Redis struct {
	locker *redsync.Redsync
	key    string
	ttl    time.Duration
}

// NewRedis creates a Locker that shares key with every process using the
// same Redis server.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	pool := goredis.NewPool(client)
	return &Redis{
		locker: redsync.New(pool),
		key:    key,
		ttl:    ttl,
	}
}

func (r *Redis) TryLock(ctx context.Context) (func() error, error) {
	mutex := r.locker.NewMutex(r.key, redsync.WithExpiry(r.ttl), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		if isTaken(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("error while obtaining training lock: %w", err)
	}

	return func() error {
		ok, err := mutex.Unlock()
		if err != nil {
			return fmt.Errorf("error while releasing training lock: %w", err)
		}
		if !ok {
			return errors.New("error while releasing training lock: redis eval func returned 0 while releasing")
		}
		return nil
	}, nil
}

func isTaken(err error) bool {
	var taken *redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken)
}
