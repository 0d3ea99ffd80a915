package cart

import (
	"context"
	"errors"

	"github.com/greenbasket/orderapi/internal/domain"
)

// ErrCartNotFound is returned by backends when no cart exists for the key.
// The ledger treats it as an empty cart.
var ErrCartNotFound = errors.New("cart not found")

// Backend is the storage behind a cart ledger. MemoryBackend holds
// anonymous device-local carts; RedisBackend holds authenticated carts,
// for which the stored value is the single source of truth.
type Backend interface {
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	Put(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, cartID string) error
}
