package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisLedgerPrefix = "reconcile:seen:"

// RedisLedger is the durable ledger variant: entries expire by TTL
// instead of FIFO eviction, and survive process restarts. Redis being
// unreachable degrades to processing the notification, never to
// dropping it.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLedger(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLedger{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (l *RedisLedger) Seen(ctx context.Context, paymentID string) bool {
	n, err := l.client.Exists(ctx, redisLedgerPrefix+paymentID).Result()
	if err != nil {
		l.logger.Warn("ledger lookup failed, treating as unseen",
			"error", err,
			"payment_id", paymentID)
		return false
	}
	return n > 0
}

func (l *RedisLedger) Mark(ctx context.Context, paymentID string) {
	if err := l.client.SetNX(ctx, redisLedgerPrefix+paymentID, "1", l.ttl).Err(); err != nil {
		l.logger.Warn("ledger mark failed",
			"error", err,
			"payment_id", paymentID)
	}
}
