package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const presencePrefix = "presence:"

type presenceStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisPresence keeps presence:<userId> = online with a TTL so a crashed
// instance cannot leave users online forever.
type RedisPresence struct {
	store presenceStore
	ttl   time.Duration
}

func NewRedisPresence(store presenceStore, ttl time.Duration) *RedisPresence {
	return &RedisPresence{store: store, ttl: ttl}
}

func (p *RedisPresence) Online(ctx context.Context, userID string) error {
	if err := p.store.Set(ctx, presencePrefix+userID, "online", p.ttl).Err(); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func (p *RedisPresence) Offline(ctx context.Context, userID string) error {
	if err := p.store.Del(ctx, presencePrefix+userID).Err(); err != nil {
		return fmt.Errorf("clear presence: %w", err)
	}
	return nil
}

func (p *RedisPresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := p.store.Exists(ctx, presencePrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("read presence: %w", err)
	}
	return n > 0, nil
}
