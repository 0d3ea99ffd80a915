package postgres

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/pkg/errors"
)

type couponRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(db *sql.DB, logger *zap.Logger) *couponRepository {
	return &couponRepository{
		db:     db,
		logger: logger,
	}
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT id, code, discount_amount, min_subtotal, valid_from, valid_until, is_active, created_at
		FROM coupons
		WHERE code = $1
	`

	var coupon domain.Coupon

	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.DiscountAmount,
		&coupon.MinSubtotal,
		&coupon.ValidFrom,
		&coupon.ValidUntil,
		&coupon.IsActive,
		&coupon.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "coupon", ID: code}
	}
	if err != nil {
		r.logger.Error("Failed to get coupon by code", zap.Error(err))
		return nil, err
	}

	return &coupon, nil
}
