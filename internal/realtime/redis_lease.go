package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const leasePrefix = "conference:owner:"

// Compare-and-set scripts so an instance only touches leases it holds.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisLease holds conference ownership leases for one instance.
type RedisLease struct {
	client   *redis.Client
	instance string
	ttl      time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	held   map[string]struct{}
	onLost func(conferenceID string)
}

// NewRedisLease creates a lease holder. ttl must be positive.
func NewRedisLease(client *redis.Client, instance string, ttl time.Duration, logger *zap.Logger) *RedisLease {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLease{client: client, instance: instance, ttl: ttl, logger: logger, held: make(map[string]struct{})}
}

// OnLost sets the callback run when renewal finds a lease taken or expired. The
// instance no longer owns that conference and must stop serving it.
func (l *RedisLease) OnLost(fn func(conferenceID string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLost = fn
}

// Acquire claims a conference id. It returns false when another instance owns it.
func (l *RedisLease) Acquire(ctx context.Context, conferenceID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, leasePrefix+conferenceID, l.instance, l.ttl).Result()
	if err != nil || !ok {
		return false, err
	}
	l.mu.Lock()
	l.held[conferenceID] = struct{}{}
	l.mu.Unlock()
	return true, nil
}

// Release drops the lease if this instance still holds it.
func (l *RedisLease) Release(ctx context.Context, conferenceID string) error {
	l.mu.Lock()
	delete(l.held, conferenceID)
	l.mu.Unlock()
	return releaseScript.Run(ctx, l.client, []string{leasePrefix + conferenceID}, l.instance).Err()
}

// Run renews held leases every ttl/3 until ctx is cancelled. A lease lost to expiry is
// dropped and reported to the OnLost callback.
func (l *RedisLease) Run(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.renew(ctx)
		}
	}
}

func (l *RedisLease) renew(ctx context.Context) {
	l.mu.Lock()
	ids := make([]string, 0, len(l.held))
	for id := range l.held {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	for _, id := range ids {
		n, err := renewScript.Run(ctx, l.client, []string{leasePrefix + id}, l.instance, l.ttl.Milliseconds()).Int()
		if err != nil {
			l.logger.Warn("lease renew failed", zap.String("conference_id", id), zap.Error(err))
			continue
		}
		if n == 0 {
			l.lost(id)
		}
	}
}

func (l *RedisLease) lost(conferenceID string) {
	l.logger.Error("lease lost", zap.String("conference_id", conferenceID))
	l.mu.Lock()
	delete(l.held, conferenceID)
	fn := l.onLost
	l.mu.Unlock()
	if fn != nil {
		fn(conferenceID)
	}
}
