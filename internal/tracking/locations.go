package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/greenbasket/orderapi/internal/domain"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

// LocationStore holds the latest reported position per delivery partner.
// Latest-value-wins; no history is kept.
type LocationStore interface {
	Set(ctx context.Context, partnerID uuid.UUID, lat, lng float64) error
	Get(ctx context.Context, partnerID uuid.UUID) (*domain.PartnerLocation, error)
}

// Positions older than this are considered gone, not stale
const locationTTL = 10 * time.Minute

// RedisLocationStore keeps partner positions under short-lived keys
type RedisLocationStore struct {
	client *redis.Client
}

func NewRedisLocationStore(client *redis.Client) *RedisLocationStore {
	return &RedisLocationStore{client: client}
}

func locationKey(partnerID uuid.UUID) string {
	return fmt.Sprintf("delivery:location:%s", partnerID)
}

func (s *RedisLocationStore) Set(ctx context.Context, partnerID uuid.UUID, lat, lng float64) error {
	loc := domain.PartnerLocation{
		Latitude:  lat,
		Longitude: lng,
		UpdatedAt: time.Now(),
	}

	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal location failed: %w", err)
	}

	if err := s.client.Set(ctx, locationKey(partnerID), data, locationTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (s *RedisLocationStore) Get(ctx context.Context, partnerID uuid.UUID) (*domain.PartnerLocation, error) {
	data, err := s.client.Get(ctx, locationKey(partnerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &apperrors.ErrNotFound{Resource: "partner location", ID: partnerID.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var loc domain.PartnerLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("unmarshal location failed: %w", err)
	}

	return &loc, nil
}
