package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a single-key mutual exclusion lock shared by every instance
// pointing at the same Redis (SET NX PX + token-checked release).
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

// Adquirir tries to take the lock once. ok is false when another holder has it.
func (l *RedisLocker) Adquirir(ctx context.Context, clave string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, clave, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis SETNX %s: %w", clave, err)
	}
	if !ok {
		return nil, false, nil
	}
	liberar := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{clave}, token).Err()
	}
	return liberar, true, nil
}
