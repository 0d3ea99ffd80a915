package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptStore holds the server-side state of a payment attempt between
// gateway-order creation and order persistence. No order row exists yet,
// so both records live outside the orders table: the amount the gateway
// was asked to collect, and any terminal failure, keyed by gateway order
// id.
type AttemptStore interface {
	RecordAmount(ctx context.Context, gatewayOrderID string, amount float64) error
	Amount(ctx context.Context, gatewayOrderID string) (float64, bool, error)
	MarkFailed(ctx context.Context, gatewayOrderID, reason string) error
	Failed(ctx context.Context, gatewayOrderID string) (string, bool, error)
}

const attemptTTL = 24 * time.Hour

// RedisAttemptStore keeps attempt records under short-lived keys
type RedisAttemptStore struct {
	client *redis.Client
}

func NewRedisAttemptStore(client *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{client: client}
}

func amountKey(gatewayOrderID string) string {
	return fmt.Sprintf("payment:amount:%s", gatewayOrderID)
}

func failureKey(gatewayOrderID string) string {
	return fmt.Sprintf("payment:failed:%s", gatewayOrderID)
}

func (s *RedisAttemptStore) RecordAmount(ctx context.Context, gatewayOrderID string, amount float64) error {
	if err := s.client.Set(ctx, amountKey(gatewayOrderID), amount, attemptTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisAttemptStore) Amount(ctx context.Context, gatewayOrderID string) (float64, bool, error) {
	raw, err := s.client.Get(ctx, amountKey(gatewayOrderID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get failed: %w", err)
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed amount record: %w", err)
	}
	return amount, true, nil
}

func (s *RedisAttemptStore) MarkFailed(ctx context.Context, gatewayOrderID, reason string) error {
	if err := s.client.Set(ctx, failureKey(gatewayOrderID), reason, attemptTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisAttemptStore) Failed(ctx context.Context, gatewayOrderID string) (string, bool, error) {
	reason, err := s.client.Get(ctx, failureKey(gatewayOrderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return reason, true, nil
}

// MemoryAttemptStore is an in-process AttemptStore for tests
type MemoryAttemptStore struct {
	mu      sync.RWMutex
	amounts map[string]float64
	reasons map[string]string
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{
		amounts: make(map[string]float64),
		reasons: make(map[string]string),
	}
}

func (s *MemoryAttemptStore) RecordAmount(_ context.Context, gatewayOrderID string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amounts[gatewayOrderID] = amount
	return nil
}

func (s *MemoryAttemptStore) Amount(_ context.Context, gatewayOrderID string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	amount, ok := s.amounts[gatewayOrderID]
	return amount, ok, nil
}

func (s *MemoryAttemptStore) MarkFailed(_ context.Context, gatewayOrderID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons[gatewayOrderID] = reason
	return nil
}

func (s *MemoryAttemptStore) Failed(_ context.Context, gatewayOrderID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reason, ok := s.reasons[gatewayOrderID]
	return reason, ok, nil
}
