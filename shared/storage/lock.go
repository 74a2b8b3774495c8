package storage

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Locker provides per-tenant mutual exclusion around record writes. The
// returned unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, tenantID string) (unlock func(), err error)
}

// NoopLocker never blocks. Concurrent writers race exactly as they would
// with no locking at all.
type NoopLocker struct{}

// Lock returns immediately
func (NoopLocker) Lock(ctx context.Context, tenantID string) (func(), error) {
	return func() {}, nil
}

// MutexLocker serializes writers inside one process
type MutexLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewMutexLocker creates an in-process locker
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{slots: make(map[string]chan struct{})}
}

func (l *MutexLocker) slot(tenantID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[tenantID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[tenantID] = ch
	}
	return ch
}

// Lock waits for the tenant's slot or for ctx to end
func (l *MutexLocker) Lock(ctx context.Context, tenantID string) (func(), error) {
	ch := l.slot(tenantID)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes writers across processes with SET NX PX
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	log    *logrus.Entry
}

// NewRedisLocker creates a locker on client. ttl bounds how long a crashed
// holder can block others.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: "rsvp:lock:",
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		log:    logrus.WithField("component", "redis-locker"),
	}
}

// Lock polls until the tenant key is acquired or ctx ends
func (l *RedisLocker) Lock(ctx context.Context, tenantID string) (func(), error) {
	key := l.prefix + tenantID
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, ioError("acquire tenant lock", err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
				l.log.WithError(err).WithField("tenant", tenantID).Warn("Failed to release tenant lock")
			}
		})
	}, nil
}
