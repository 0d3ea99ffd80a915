package coupon

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/cart"
	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/repository"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

// Engine validates and applies at most one coupon per cart. All business
// rules (validity window, minimum subtotal) are decided here against the
// repository; clients never pre-judge them. The target ledger is passed
// per call because guest and account carts live on different backends.
type Engine struct {
	coupons repository.CouponRepository
	logger  *zap.Logger
}

func NewEngine(coupons repository.CouponRepository, logger *zap.Logger) *Engine {
	return &Engine{
		coupons: coupons,
		logger:  logger,
	}
}

// Validate checks a coupon code against a subtotal and returns the coupon
// row. Shared by Apply and by order creation, which re-validates at
// checkout time.
func (e *Engine) Validate(ctx context.Context, code string, subtotal float64) (*domain.Coupon, error) {
	coupon, err := e.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !coupon.IsActive || now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil) {
		return nil, &apperrors.ErrCouponExpired{Code: code}
	}

	if subtotal < coupon.MinSubtotal {
		return nil, &apperrors.ErrValidation{
			Message: "cart subtotal does not meet the coupon minimum order value",
		}
	}

	return coupon, nil
}

// Apply validates a code and attaches it to the cart, then returns the
// fully refetched cart so every derived field is resynchronized. On any
// failure the previously applied coupon is left untouched.
func (e *Engine) Apply(ctx context.Context, ledger *cart.Ledger, cartID string, role domain.Role, code string) (*cart.View, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, &apperrors.ErrValidation{Message: "coupon code is required"}
	}

	view, err := ledger.Fetch(ctx, cartID, role)
	if err != nil {
		return nil, err
	}

	coupon, err := e.Validate(ctx, code, view.Subtotal)
	if err != nil {
		return nil, err
	}

	applied := &domain.AppliedCoupon{
		Code:           coupon.Code,
		DiscountAmount: coupon.DiscountAmount,
	}

	// SetCoupon ends in the same refresh path as every cart mutation, so
	// the returned view is the post-apply authoritative state
	return ledger.SetCoupon(ctx, cartID, role, applied)
}

// Remove detaches the applied coupon and returns the refetched cart.
// Removing when no coupon is applied is a no-op.
func (e *Engine) Remove(ctx context.Context, ledger *cart.Ledger, cartID string, role domain.Role) (*cart.View, error) {
	return ledger.SetCoupon(ctx, cartID, role, nil)
}
