package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `
	id, account_id, customer_name, order_type, status,
	subtotal, delivery_fee, discount, gift_wrap_fee, total_price,
	delivery_address, payment_method, payment_status, coupon_code,
	gift_wrap_enabled, gift_wrap_message, cancellation_reason,
	delivery_partner_id, gateway_order_id, gateway_payment_id,
	created_at, updated_at
`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error {
	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	addressJSON, err := json.Marshal(order.DeliveryAddress)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err = tx.ExecContext(ctx, query,
		order.ID,
		order.AccountID,
		order.CustomerName,
		order.Type,
		order.Status,
		order.Pricing.Subtotal,
		order.Pricing.DeliveryFee,
		order.Pricing.Discount,
		order.Pricing.GiftWrapFee,
		order.Pricing.TotalPrice,
		addressJSON,
		order.PaymentMethod,
		order.PaymentStatus,
		order.CouponCode,
		order.GiftWrap.Enabled,
		order.GiftWrap.Message,
		order.CancellationReason,
		order.DeliveryPartnerID,
		order.GatewayOrderID,
		order.GatewayPaymentID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", zap.Error(err))
		return err
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}

		_, err = tx.ExecContext(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.UnitPrice,
			item.Quantity,
			item.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create order item", zap.Error(err))
			return err
		}
	}

	return tx.Commit()
}

func (r *orderRepository) scanOrder(scanner interface{ Scan(dest ...interface{}) error }) (*domain.Order, error) {
	var (
		order              domain.Order
		addressJSON        []byte
		couponCode         sql.NullString
		giftWrapMessage    sql.NullString
		cancellationReason sql.NullString
		partnerID          uuid.NullUUID
		gatewayOrderID     sql.NullString
		gatewayPaymentID   sql.NullString
	)

	err := scanner.Scan(
		&order.ID,
		&order.AccountID,
		&order.CustomerName,
		&order.Type,
		&order.Status,
		&order.Pricing.Subtotal,
		&order.Pricing.DeliveryFee,
		&order.Pricing.Discount,
		&order.Pricing.GiftWrapFee,
		&order.Pricing.TotalPrice,
		&addressJSON,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&couponCode,
		&order.GiftWrap.Enabled,
		&giftWrapMessage,
		&cancellationReason,
		&partnerID,
		&gatewayOrderID,
		&gatewayPaymentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(addressJSON, &order.DeliveryAddress); err != nil {
		return nil, err
	}

	if couponCode.Valid {
		order.CouponCode = &couponCode.String
	}
	if giftWrapMessage.Valid {
		order.GiftWrap.Message = giftWrapMessage.String
	}
	if cancellationReason.Valid {
		order.CancellationReason = &cancellationReason.String
	}
	if partnerID.Valid {
		order.DeliveryPartnerID = &partnerID.UUID
	}
	if gatewayOrderID.Valid {
		order.GatewayOrderID = &gatewayOrderID.String
	}
	if gatewayPaymentID.Valid {
		order.GatewayPaymentID = &gatewayPaymentID.String
	}

	return &order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway_order_id = $1`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, gatewayOrderID))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: gatewayOrderID}
	}
	if err != nil {
		r.logger.Error("Failed to get order by gateway order ID", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, unit_price, quantity, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan order item", zap.Error(err))
			continue
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, reason *string) error {
	query := `
		UPDATE orders
		SET status = $2, cancellation_reason = COALESCE($3, cancellation_reason), updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, reason, time.Now())
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}

	return nil
}

// AssignPartner sets the delivery partner on an order that has none.
// The WHERE clause closes the race between two concurrent assignments.
func (r *orderRepository) AssignPartner(ctx context.Context, id uuid.UUID, partnerID uuid.UUID) error {
	query := `
		UPDATE orders
		SET delivery_partner_id = $2, updated_at = $3
		WHERE id = $1 AND delivery_partner_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, partnerID, time.Now())
	if err != nil {
		r.logger.Error("Failed to assign delivery partner", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrConflict{Message: "order already has a delivery partner assigned"}
	}

	return nil
}

func (r *orderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			r.logger.Error("Failed to scan order", zap.Error(err))
			continue
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

func (r *orderRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, accountID, limit, offset)
}

func (r *orderRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE delivery_partner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, partnerID, limit, offset)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, status, limit, offset)
}

func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, query, limit, offset)
}
