package payments

import (
	"context"
	"time"

	"github.com/lamnguyendev/keymart-backend/pkg/redis"
)

const guardTTL = 24 * time.Hour

// IdempotencyGuard short-circuits duplicate webhook deliveries with a Redis
// SETNX marker. It is an optimization only; the conditional status update on
// the bill is the authoritative defense.
type IdempotencyGuard struct {
	redis *redis.Client
}

func NewIdempotencyGuard(client *redis.Client) *IdempotencyGuard {
	return &IdempotencyGuard{redis: client}
}

// CheckAndMark claims the delivery key. Returns false when another delivery
// already claimed it.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, deliveryID string) (bool, error) {
	if g == nil || g.redis == nil {
		return true, nil
	}
	return g.redis.SetNX(ctx, redis.Key("webhook", "payos", deliveryID), "1", guardTTL)
}

// Release drops the marker so a failed delivery can be retried.
func (g *IdempotencyGuard) Release(ctx context.Context, deliveryID string) error {
	if g == nil || g.redis == nil {
		return nil
	}
	return g.redis.Del(ctx, redis.Key("webhook", "payos", deliveryID))
}
