package payment

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/cart"
	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/order"
	"github.com/greenbasket/orderapi/internal/pricing"
	"github.com/greenbasket/orderapi/internal/repository"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

// Reconciler implements the pay-before-persist protocol: a gateway
// transaction is created for the server-computed cart total, and the order
// row only comes into existence after the gateway's signed confirmation
// re-verifies. A failed or abandoned payment leaves no order and no cart
// mutation, so the user can simply retry.
type Reconciler struct {
	gateway   Gateway
	ledger    *cart.Ledger
	orders    *order.Service
	orderRepo repository.OrderRepository
	delivery  *pricing.ConfigSource
	attempts  AttemptStore
	logger    *zap.Logger
}

func NewReconciler(
	gateway Gateway,
	ledger *cart.Ledger,
	orders *order.Service,
	orderRepo repository.OrderRepository,
	delivery *pricing.ConfigSource,
	attempts AttemptStore,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		gateway:   gateway,
		ledger:    ledger,
		orders:    orders,
		orderRepo: orderRepo,
		delivery:  delivery,
		attempts:  attempts,
		logger:    logger,
	}
}

// CheckoutRequest carries the checkout inputs resubmitted at each step of
// the protocol.
type CheckoutRequest struct {
	Address  domain.Address
	GiftWrap domain.GiftWrap
	Type     domain.OrderType
}

// VerifyRequest is the gateway's signed payment confirmation plus the
// original checkout inputs.
type VerifyRequest struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
	Checkout       CheckoutRequest
}

// CreateGatewayOrder is step one: register a transaction for the current
// authoritative cart total. The client never supplies the amount, and no
// order row exists yet.
func (r *Reconciler) CreateGatewayOrder(ctx context.Context, account domain.Account, cartID string, req CheckoutRequest) (*GatewayOrder, error) {
	view, err := r.ledger.Fetch(ctx, cartID, account.Role)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 {
		return nil, &apperrors.ErrValidation{Message: "cart is empty"}
	}

	breakdown := pricing.ComputeBreakdown(view.Subtotal, r.delivery.Current(), view.CouponDiscount, req.GiftWrap.Enabled)

	receipt := uuid.NewString()
	gatewayOrder, err := r.gateway.CreateOrder(ctx, breakdown.Total, receipt)
	if err != nil {
		return nil, err
	}

	// The recorded amount is what the verify step reconciles against; a
	// gateway order with no amount on record cannot be confirmed
	if err := r.attempts.RecordAmount(ctx, gatewayOrder.ID, breakdown.Total); err != nil {
		return nil, err
	}

	r.logger.Info("Gateway order created",
		zap.String("gateway_order_id", gatewayOrder.ID),
		zap.Float64("amount", breakdown.Total))

	return gatewayOrder, nil
}

// VerifyAndCreateOrder is step three: re-validate the gateway signature,
// reconcile the current cart total against the amount the gateway
// actually collected, and only then freeze the cart into a confirmed
// order and clear it. Once the signature has verified, money changed
// hands; any abort after that point is recorded so the status poll
// resolves to cancelled instead of hanging pending.
func (r *Reconciler) VerifyAndCreateOrder(ctx context.Context, account domain.Account, cartID string, req VerifyRequest) (*domain.Order, error) {
	if strings.TrimSpace(req.GatewayOrderID) == "" ||
		strings.TrimSpace(req.PaymentID) == "" ||
		strings.TrimSpace(req.Signature) == "" {
		return nil, &apperrors.ErrValidation{Message: "payment confirmation fields are required"}
	}

	if !r.gateway.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature) {
		// Terminal for this attempt; nothing has been persisted and the
		// cart is untouched
		return nil, &apperrors.ErrGateway{Message: "payment signature verification failed"}
	}

	paid, known, err := r.attempts.Amount(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, &apperrors.ErrGateway{Message: "no payment attempt on record for this gateway order"}
	}

	view, err := r.ledger.Fetch(ctx, cartID, account.Role)
	if err != nil {
		r.failAttempt(ctx, req.GatewayOrderID, err.Error())
		return nil, err
	}

	// The cart may have changed between gateway-order creation and this
	// confirmation; an order is only ever created for the amount that was
	// collected
	breakdown := pricing.ComputeBreakdown(view.Subtotal, r.delivery.Current(), view.CouponDiscount, req.Checkout.GiftWrap.Enabled)
	if math.Round(breakdown.Total*100) != math.Round(paid*100) {
		reason := "cart total no longer matches the amount paid"
		r.failAttempt(ctx, req.GatewayOrderID, reason)
		r.logger.Warn("Payment amount mismatch",
			zap.String("gateway_order_id", req.GatewayOrderID),
			zap.Float64("paid", paid),
			zap.Float64("cart_total", breakdown.Total))
		return nil, &apperrors.ErrConflict{Message: reason}
	}

	created, err := r.orders.CreateFromCart(ctx, order.CheckoutInput{
		Account:          account,
		View:             view,
		Address:          req.Checkout.Address,
		Method:           domain.PaymentMethodRazorpay,
		GiftWrap:         req.Checkout.GiftWrap,
		Type:             req.Checkout.Type,
		GatewayOrderID:   &req.GatewayOrderID,
		GatewayPaymentID: &req.PaymentID,
	})
	if err != nil {
		r.failAttempt(ctx, req.GatewayOrderID, err.Error())
		return nil, err
	}

	if _, err := r.ledger.Clear(ctx, cartID, account.Role); err != nil {
		// The order exists; a stale cart is recoverable, a lost order is not
		r.logger.Warn("Failed to clear cart after order creation",
			zap.String("order_id", created.ID.String()), zap.Error(err))
	}

	return created, nil
}

// CreateCashOrder is the cash-on-delivery path: no gateway interaction,
// the order starts in pending awaiting admin confirmation.
func (r *Reconciler) CreateCashOrder(ctx context.Context, account domain.Account, cartID string, req CheckoutRequest) (*domain.Order, error) {
	view, err := r.ledger.Fetch(ctx, cartID, account.Role)
	if err != nil {
		return nil, err
	}

	created, err := r.orders.CreateFromCart(ctx, order.CheckoutInput{
		Account:  account,
		View:     view,
		Address:  req.Address,
		Method:   domain.PaymentMethodCOD,
		GiftWrap: req.GiftWrap,
		Type:     req.Type,
	})
	if err != nil {
		return nil, err
	}

	if _, err := r.ledger.Clear(ctx, cartID, account.Role); err != nil {
		r.logger.Warn("Failed to clear cart after order creation",
			zap.String("order_id", created.ID.String()), zap.Error(err))
	}

	return created, nil
}

// RecordFailure notes a gateway-reported failure for an attempt. Terminal
// and never retried automatically; the cart is left intact for a manual
// retry.
func (r *Reconciler) RecordFailure(ctx context.Context, gatewayOrderID, reason string) error {
	if strings.TrimSpace(gatewayOrderID) == "" {
		return &apperrors.ErrValidation{Message: "gateway order id is required"}
	}
	if strings.TrimSpace(reason) == "" {
		reason = "payment failed"
	}
	return r.attempts.MarkFailed(ctx, gatewayOrderID, reason)
}

// failAttempt records a terminal failure; a store error here must not
// mask the original failure being reported.
func (r *Reconciler) failAttempt(ctx context.Context, gatewayOrderID, reason string) {
	if err := r.attempts.MarkFailed(ctx, gatewayOrderID, reason); err != nil {
		r.logger.Error("Failed to record payment failure",
			zap.String("gateway_order_id", gatewayOrderID), zap.Error(err))
	}
}

// Payment attempt states reported to polling clients
const (
	StateConfirmed = "confirmed"
	StateCancelled = "cancelled"
	StatePending   = "pending"
)

// StatusView answers the pending-payment poll
type StatusView struct {
	State   string             `json:"state"`
	OrderID string             `json:"orderId,omitempty"`
	Status  domain.OrderStatus `json:"status,omitempty"`
	Reason  string             `json:"reason,omitempty"`
}

// Status resolves a gateway order to confirmed (our order exists),
// cancelled (the gateway reported failure) or pending (still waiting).
// Server-side order existence is the single source of truth; the client's
// belief that payment "probably succeeded" never is.
func (r *Reconciler) Status(ctx context.Context, gatewayOrderID string) (*StatusView, error) {
	created, err := r.orderRepo.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err == nil {
		return &StatusView{
			State:   StateConfirmed,
			OrderID: created.ID.String(),
			Status:  created.Status,
		}, nil
	}
	if _, ok := err.(*apperrors.ErrNotFound); !ok {
		return nil, err
	}

	if reason, failed, err := r.attempts.Failed(ctx, gatewayOrderID); err != nil {
		return nil, err
	} else if failed {
		return &StatusView{State: StateCancelled, Reason: reason}, nil
	}

	return &StatusView{State: StatePending}, nil
}
