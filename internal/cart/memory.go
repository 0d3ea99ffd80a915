package cart

import (
	"context"
	"sync"
	"time"

	"github.com/greenbasket/orderapi/internal/domain"
)

// MemoryBackend stores anonymous carts in process memory, keyed by device
// ID. Deliberately not backed by shared infrastructure: an anonymous cart
// belongs to one device and is discarded after the login merge.
type MemoryBackend struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{carts: make(map[string]*domain.Cart)}
}

func (b *MemoryBackend) Get(_ context.Context, cartID string) (*domain.Cart, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cart, ok := b.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}

	// Copy so callers never mutate stored state without going through Put
	cp := *cart
	cp.Items = append([]domain.CartItem(nil), cart.Items...)
	if cart.Coupon != nil {
		coupon := *cart.Coupon
		cp.Coupon = &coupon
	}
	return &cp, nil
}

func (b *MemoryBackend) Put(_ context.Context, cart *domain.Cart) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := *cart
	cp.Items = append([]domain.CartItem(nil), cart.Items...)
	if cart.Coupon != nil {
		coupon := *cart.Coupon
		cp.Coupon = &coupon
	}
	cp.UpdatedAt = time.Now()
	b.carts[cart.ID] = &cp
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, cartID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.carts, cartID)
	return nil
}
