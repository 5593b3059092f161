// Package guard records which order transitions have already been handed to
// the coordinator, so redelivered messages do not adjust stock twice.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fulfillment:transition:"

// RedisGuard claims transition keys with SET NX.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard connects to Redis and verifies the connection.
func NewRedisGuard(ctx context.Context, redisURL string, ttl time.Duration) (*RedisGuard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisGuard{client: client, ttl: ttl}, nil
}

// Key builds the claim key for one order transition.
func Key(orderID, from, to string) string {
	return keyPrefix + orderID + ":" + from + ":" + to
}

// Claim returns true if this caller is the first to claim key.
func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a claim so the transition can be retried.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

// Noop claims every key. It is used when no Redis URL is configured.
type Noop struct{}

func (Noop) Claim(context.Context, string) (bool, error) { return true, nil }
func (Noop) Release(context.Context, string) error       { return nil }
func (Noop) Close() error                                { return nil }
