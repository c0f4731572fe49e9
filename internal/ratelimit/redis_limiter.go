package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check that RedisLimiter implements Limiter.
var _ Limiter = (*RedisLimiter)(nil)

// RedisLimiter keeps the rate-limit ledger in a Redis sorted set per
// (user, action) key, scored by attempt time. Used when one deployment
// runs several server processes behind a balancer, so the window is
// shared across them.
type RedisLimiter struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed sliding-window limiter.
func NewRedisLimiter(client *redis.Client, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		logger: logger.Named("RedisLimiter"),
		now:    time.Now,
	}
}

func ledgerKey(userID, action string) string {
	return fmt.Sprintf("ratelimit:%s:%s", userID, action)
}

// allowScript prunes the ledger, checks the window count, and records
// the attempt in one atomic step, so concurrent callers racing on the
// same key can never over-admit. KEYS[1] is the ledger key; ARGV holds
// the cutoff score, the attempt limit, the attempt score, a unique
// member, and the key TTL in milliseconds. Returns 1 when admitted,
// 0 when rejected.
var allowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Allow admits an attempt when fewer than MaxAttempts land inside the
// window. Prune, count, and record run as a single script evaluation.
// The key expires one window after the last admitted attempt. Members
// carry a random suffix so simultaneous attempts never collapse into
// one sorted-set entry.
func (l *RedisLimiter) Allow(ctx context.Context, userID string, policy Policy) (bool, error) {
	key := ledgerKey(userID, policy.Action)
	now := l.now()
	cutoff := now.Add(-policy.Window)

	admitted, err := allowScript.Run(ctx, l.client, []string{key},
		cutoff.UnixNano(),
		policy.MaxAttempts,
		now.UnixNano(),
		fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString()),
		policy.Window.Milliseconds(),
	).Int()
	if err != nil {
		l.logger.Error("Failed to update rate-limit ledger", zap.Error(err), zap.String("key", key))
		return false, fmt.Errorf("failed to update rate-limit ledger: %w", err)
	}

	return admitted == 1, nil
}
