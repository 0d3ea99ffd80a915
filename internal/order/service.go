package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/cart"
	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/events"
	"github.com/greenbasket/orderapi/internal/pricing"
	"github.com/greenbasket/orderapi/internal/repository"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

// CouponValidator re-validates an applied coupon at order-creation time
type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal float64) (*domain.Coupon, error)
}

// Service owns order creation and the lifecycle state machine. Every
// transition is gated by actor role and re-validated here, server-side,
// regardless of what the client believed when it rendered the button.
type Service struct {
	repos    *repository.Repositories
	coupons  CouponValidator
	delivery *pricing.ConfigSource
	bus      events.Bus
	logger   *zap.Logger
}

// NewService creates a new order service
func NewService(repos *repository.Repositories, coupons CouponValidator, delivery *pricing.ConfigSource, bus events.Bus, logger *zap.Logger) *Service {
	return &Service{
		repos:    repos,
		coupons:  coupons,
		delivery: delivery,
		bus:      bus,
		logger:   logger,
	}
}

// CheckoutInput carries everything needed to turn a priced cart into an
// immutable order.
type CheckoutInput struct {
	Account          domain.Account
	View             *cart.View
	Address          domain.Address
	Method           domain.PaymentMethod
	GiftWrap         domain.GiftWrap
	Type             domain.OrderType
	GatewayOrderID   *string
	GatewayPaymentID *string
}

// CreateFromCart freezes the cart into an order. The pricing breakdown is
// recomputed here from the authoritative cart subtotal; an applied coupon
// is re-validated and an expired one rejects the checkout rather than
// silently dropping the discount.
func (s *Service) CreateFromCart(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	if in.View == nil || len(in.View.Items) == 0 {
		return nil, &apperrors.ErrValidation{Message: "cart is empty"}
	}
	if err := validateAddress(in.Address); err != nil {
		return nil, err
	}
	if !in.Method.IsValid() {
		return nil, &apperrors.ErrValidation{Message: "unsupported payment method"}
	}
	if in.Type == "" {
		in.Type = domain.OrderTypeStandard
	}
	if !in.Type.IsValid() {
		return nil, &apperrors.ErrValidation{Message: "unsupported order type"}
	}
	if len(in.GiftWrap.Message) > 200 {
		return nil, &apperrors.ErrValidation{Message: "gift wrap message must be at most 200 characters"}
	}

	var discount float64
	var couponCode *string
	if in.View.AppliedCoupon != nil {
		coupon, err := s.coupons.Validate(ctx, in.View.AppliedCoupon.Code, in.View.Subtotal)
		if err != nil {
			return nil, err
		}
		discount = coupon.DiscountAmount
		couponCode = &coupon.Code
	}

	breakdown := pricing.ComputeBreakdown(in.View.Subtotal, s.delivery.Current(), discount, in.GiftWrap.Enabled)

	status := domain.OrderStatusPending
	paymentStatus := domain.PaymentStatusPending
	if in.Method == domain.PaymentMethodRazorpay {
		// Online-paid orders are created only after signature verification,
		// so they enter the lifecycle already confirmed
		status = domain.OrderStatusConfirmed
		paymentStatus = domain.PaymentStatusPaid
	}

	order := &domain.Order{
		AccountID:    in.Account.ID,
		CustomerName: in.Account.Name,
		Type:         in.Type,
		Status:       status,
		Pricing: domain.PricingSnapshot{
			Subtotal:    breakdown.Subtotal,
			DeliveryFee: breakdown.DeliveryFee,
			Discount:    breakdown.Discount,
			GiftWrapFee: breakdown.GiftWrapFee,
			TotalPrice:  breakdown.Total,
		},
		DeliveryAddress:  in.Address,
		PaymentMethod:    in.Method,
		PaymentStatus:    paymentStatus,
		CouponCode:       couponCode,
		GiftWrap:         in.GiftWrap,
		GatewayOrderID:   in.GatewayOrderID,
		GatewayPaymentID: in.GatewayPaymentID,
	}

	items := make([]*domain.OrderItem, 0, len(in.View.Items))
	for _, cartItem := range in.View.Items {
		items = append(items, &domain.OrderItem{
			ProductID: cartItem.ProductID,
			Name:      cartItem.Name,
			UnitPrice: cartItem.UnitPrice,
			Quantity:  cartItem.Quantity,
		})
	}

	if err := s.repos.Order.Create(ctx, order, items); err != nil {
		return nil, err
	}

	s.audit(ctx, order.ID, "order_created", map[string]interface{}{
		"status":         order.Status,
		"payment_method": order.PaymentMethod,
		"total_price":    order.Pricing.TotalPrice,
	})

	s.publish(ctx, events.Event{
		Type:       events.TypeNewOrder,
		OrderID:    order.ID.String(),
		Status:     order.Status.String(),
		Customer:   order.CustomerName,
		TotalPrice: order.Pricing.TotalPrice,
	})

	return order, nil
}

// Get returns an order visible to the actor: its owner, an admin, or the
// assigned delivery partner.
func (s *Service) Get(ctx context.Context, actor domain.Account, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !canView(actor, order) {
		return nil, &apperrors.ErrUnauthorized{Message: "access denied"}
	}

	return order, nil
}

// UpdateStatus drives the order forward along the delivery chain.
// Cancellation goes through Cancel, never through here.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Account, orderID uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	if !to.IsValid() || to == domain.OrderStatusCancelled || to == domain.OrderStatusPending {
		return nil, &apperrors.ErrValidation{Message: fmt.Sprintf("unsupported target status %s", to)}
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch to {
	case domain.OrderStatusConfirmed:
		if actor.Role != domain.RoleAdmin {
			return nil, &apperrors.ErrUnauthorized{Message: "only an admin can confirm an order"}
		}
		if order.PaymentMethod != domain.PaymentMethodCOD && order.PaymentStatus != domain.PaymentStatusPaid {
			return nil, &apperrors.ErrConflict{Message: "payment has not been settled"}
		}
	case domain.OrderStatusPicked, domain.OrderStatusArriving, domain.OrderStatusDelivered:
		if actor.Role != domain.RoleDeliveryPartner {
			return nil, &apperrors.ErrUnauthorized{Message: "only the assigned delivery partner can update delivery progress"}
		}
		if order.DeliveryPartnerID == nil {
			return nil, &apperrors.ErrConflict{Message: "no delivery partner assigned to this order"}
		}
		if *order.DeliveryPartnerID != actor.ID {
			return nil, &apperrors.ErrUnauthorized{Message: "order is assigned to a different delivery partner"}
		}
	}

	if order.Status.IsTerminal() {
		return nil, &apperrors.ErrConflict{
			Message: fmt.Sprintf("order is already %s and cannot change state", strings.ToLower(order.Status.String())),
		}
	}
	if !order.Status.CanTransitionTo(to) {
		return nil, &apperrors.ErrInvalidStateTransition{
			From: order.Status.String(),
			To:   to.String(),
		}
	}

	if err := s.repos.Order.UpdateStatus(ctx, orderID, to, nil); err != nil {
		return nil, err
	}

	s.audit(ctx, orderID, "status_change", map[string]interface{}{
		"from":  order.Status,
		"to":    to,
		"actor": actor.Role,
	})

	order.Status = to
	s.publish(ctx, events.Event{
		Type:       events.TypeOrderStatusUpdate,
		OrderID:    order.ID.String(),
		Status:     to.String(),
		Customer:   order.CustomerName,
		TotalPrice: order.Pricing.TotalPrice,
	})

	return order, nil
}

// Cancel rejects without a reason and re-validates cancellability at the
// moment of the request, closing the race between "partner picks up" and
// "customer cancels".
func (s *Service) Cancel(ctx context.Context, actor domain.Account, orderID uuid.UUID, reason string) (*domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &apperrors.ErrValidation{Message: "cancellation reason is required"}
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != domain.RoleAdmin && order.AccountID != actor.ID {
		return nil, &apperrors.ErrUnauthorized{Message: "access denied"}
	}

	if order.Status.IsTerminal() {
		return nil, &apperrors.ErrConflict{
			Message: fmt.Sprintf("order is already %s and cannot change state", strings.ToLower(order.Status.String())),
		}
	}
	if !order.Status.IsCancellable() {
		return nil, &apperrors.ErrConflict{Message: "order is already out for delivery and cannot be cancelled"}
	}

	if err := s.repos.Order.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled, &reason); err != nil {
		return nil, err
	}

	s.audit(ctx, orderID, "status_change", map[string]interface{}{
		"from":   order.Status,
		"to":     domain.OrderStatusCancelled,
		"reason": reason,
		"actor":  actor.Role,
	})

	order.Status = domain.OrderStatusCancelled
	order.CancellationReason = &reason
	s.publish(ctx, events.Event{
		Type:       events.TypeOrderCancelled,
		OrderID:    order.ID.String(),
		Reason:     reason,
		Customer:   order.CustomerName,
		TotalPrice: order.Pricing.TotalPrice,
	})

	return order, nil
}

// AssignPartner attaches a delivery partner to an order. Assignment is not
// a state transition; it is the precondition for confirmed -> picked.
// Re-assigning an order that already has a partner fails.
func (s *Service) AssignPartner(ctx context.Context, actor domain.Account, orderID, partnerID uuid.UUID) (*domain.Order, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, &apperrors.ErrUnauthorized{Message: "only an admin can assign a delivery partner"}
	}

	partner, err := s.repos.Account.GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if partner.Role != domain.RoleDeliveryPartner || !partner.IsActive {
		return nil, &apperrors.ErrValidation{Message: "account is not an active delivery partner"}
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() || order.Status.IsTrackable() {
		return nil, &apperrors.ErrConflict{Message: "order can no longer be assigned"}
	}
	if order.DeliveryPartnerID != nil {
		return nil, &apperrors.ErrConflict{Message: "order already has a delivery partner assigned"}
	}

	if err := s.repos.Order.AssignPartner(ctx, orderID, partnerID); err != nil {
		return nil, err
	}

	s.audit(ctx, orderID, "partner_assigned", map[string]interface{}{
		"partner_id": partnerID.String(),
	})

	order.DeliveryPartnerID = &partnerID
	return order, nil
}

func (s *Service) audit(ctx context.Context, orderID uuid.UUID, eventType string, data map[string]interface{}) {
	event := &domain.OrderEvent{
		OrderID:   orderID,
		EventType: eventType,
		EventData: data,
	}
	if err := s.repos.OrderEvent.Create(ctx, event); err != nil {
		s.logger.Warn("Failed to record order event", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("type", event.Type), zap.Error(err))
	}
}

func canView(actor domain.Account, order *domain.Order) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if order.AccountID == actor.ID {
		return true
	}
	if actor.Role == domain.RoleDeliveryPartner && order.DeliveryPartnerID != nil && *order.DeliveryPartnerID == actor.ID {
		return true
	}
	return false
}

func validateAddress(addr domain.Address) error {
	var missing []string
	if strings.TrimSpace(addr.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(addr.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(addr.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if len(missing) > 0 {
		return &apperrors.ErrValidation{
			Message: fmt.Sprintf("delivery address is missing: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}
