package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/domain"
)

// MergeGuard makes the login-time cart merge run exactly once per
// (user, device) pair. Merging is not idempotent: running it twice
// doubles quantities.
type MergeGuard interface {
	// Once returns true the first time it sees key, false afterwards.
	Once(ctx context.Context, key string) (bool, error)
}

// MemoryMergeGuard is an in-process MergeGuard for tests
type MemoryMergeGuard struct {
	seen map[string]struct{}
}

func NewMemoryMergeGuard() *MemoryMergeGuard {
	return &MemoryMergeGuard{seen: make(map[string]struct{})}
}

func (g *MemoryMergeGuard) Once(_ context.Context, key string) (bool, error) {
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

// MergeGuestCart migrates every guest cart line into the user's remote
// cart by re-issuing AddItem once per line, then discards the guest cart.
// A repeated call for the same login event returns the user cart
// untouched.
func MergeGuestCart(ctx context.Context, guard MergeGuard, guest, user *Ledger, deviceID, userID string, role domain.Role, logger *zap.Logger) (*View, error) {
	key := fmt.Sprintf("cart:merged:%s:%s", userID, deviceID)

	first, err := guard.Once(ctx, key)
	if err != nil {
		return nil, err
	}
	if !first {
		return user.Fetch(ctx, userID, role)
	}

	guestCart, err := guest.backend.Get(ctx, deviceID)
	if errors.Is(err, ErrCartNotFound) {
		return user.Fetch(ctx, userID, role)
	}
	if err != nil {
		return nil, err
	}

	for _, item := range guestCart.Items {
		if _, err := user.AddItem(ctx, userID, role, item.ProductID, item.Quantity); err != nil {
			// A single unmergeable line (delisted product, MOQ change)
			// must not abort the rest of the migration
			logger.Warn("Skipping unmergeable guest cart line",
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err))
		}
	}

	if err := guest.backend.Delete(ctx, deviceID); err != nil {
		logger.Warn("Failed to discard guest cart after merge", zap.Error(err))
	}

	return user.Fetch(ctx, userID, role)
}
