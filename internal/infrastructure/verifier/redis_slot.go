package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// acquireScript swaps in the new owner and returns the previous one, if any
var acquireScript = redis.NewScript(`
local prev = redis.call("GET", KEYS[1])
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
if prev then
	return prev
end
return ""
`)

// releaseScript deletes the slot only while the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlot keeps one verifier lease per scope in Redis so every replica sees the same owner
type RedisSlot struct {
	client   *redis.Client
	leaseTTL time.Duration
	logger   *zap.Logger
}

// NewRedisSlot creates a Redis-backed verifier slot. Leases expire after leaseTTL if never released.
func NewRedisSlot(client *redis.Client, leaseTTL time.Duration, logger *zap.Logger) *RedisSlot {
	if leaseTTL <= 0 {
		leaseTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSlot{client: client, leaseTTL: leaseTTL, logger: logger}
}

func slotKey(scope string) string { return fmt.Sprintf("verifier:slot:%s", scope) }

// Acquire takes the scope's slot, replacing any stale lease
func (s *RedisSlot) Acquire(ctx context.Context, scope string) (*domain.VerifierLease, error) {
	token := uuid.NewString()
	prev, err := acquireScript.Run(ctx, s.client, []string{slotKey(scope)}, token, s.leaseTTL.Milliseconds()).Text()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVerifierSlotTaken, err)
	}
	if prev != "" {
		s.logger.Debug("verifier lease taken over", zap.String("scope", scope))
	}
	return &domain.VerifierLease{
		Scope:      scope,
		Token:      token,
		AcquiredAt: time.Now(),
		TookOver:   prev != "",
	}, nil
}

// Release frees the slot if the lease still owns it. A lease that was taken over is a no-op.
func (s *RedisSlot) Release(ctx context.Context, lease *domain.VerifierLease) error {
	if lease == nil {
		return nil
	}
	err := releaseScript.Run(ctx, s.client, []string{slotKey(lease.Scope)}, lease.Token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release verifier slot: %w", err)
	}
	return nil
}

var _ domain.VerifierSlot = (*RedisSlot)(nil)
