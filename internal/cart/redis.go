package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/greenbasket/orderapi/internal/domain"
)

const cartTTL = 30 * 24 * time.Hour

// RedisBackend stores authenticated carts as JSON blobs under namespaced
// keys. Whatever is stored here is the authoritative cart state.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func cartKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}

func (b *RedisBackend) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	data, err := b.client.Get(ctx, cartKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return &cart, nil
}

func (b *RedisBackend) Put(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := b.client.Set(ctx, cartKey(cart.ID), data, cartTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, cartID string) error {
	if err := b.client.Del(ctx, cartKey(cartID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// RedisMergeGuard enforces the exactly-once login merge with SETNX
type RedisMergeGuard struct {
	client *redis.Client
}

func NewRedisMergeGuard(client *redis.Client) *RedisMergeGuard {
	return &RedisMergeGuard{client: client}
}

func (g *RedisMergeGuard) Once(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, key, "1", 24*time.Hour).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}
