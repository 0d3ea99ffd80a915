package order

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/cart"
	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/events"
	"github.com/greenbasket/orderapi/internal/pricing"
	"github.com/greenbasket/orderapi/internal/repository"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order
	items  map[uuid.UUID][]*domain.OrderItem
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders: make(map[uuid.UUID]domain.Order),
		items:  make(map[uuid.UUID][]*domain.OrderItem),
	}
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order, items []*domain.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.orders[order.ID] = *order
	r.items[order.ID] = items
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	return &order, nil
}

func (r *memOrderRepo) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.GatewayOrderID != nil && *order.GatewayOrderID == gatewayOrderID {
			o := order
			return &o, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "order", ID: gatewayOrderID}
}

func (r *memOrderRepo) GetItems(_ context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[orderID], nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return &apperrors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.Status = status
	if reason != nil {
		order.CancellationReason = reason
	}
	r.orders[id] = order
	return nil
}

func (r *memOrderRepo) AssignPartner(_ context.Context, id uuid.UUID, partnerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return &apperrors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if order.DeliveryPartnerID != nil {
		return &apperrors.ErrConflict{Message: "order already has a delivery partner assigned"}
	}
	order.DeliveryPartnerID = &partnerID
	r.orders[id] = order
	return nil
}

func (r *memOrderRepo) ListByAccount(_ context.Context, accountID uuid.UUID, _, _ int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.AccountID == accountID {
			o := order
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListByPartner(_ context.Context, partnerID uuid.UUID, _, _ int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.DeliveryPartnerID != nil && *order.DeliveryPartnerID == partnerID {
			o := order
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListByStatus(_ context.Context, status domain.OrderStatus, _, _ int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.Status == status {
			o := order
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) List(_ context.Context, _, _ int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		o := order
		out = append(out, &o)
	}
	return out, nil
}

func (r *memOrderRepo) seed(order domain.Order) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.orders[order.ID] = order
	return order.ID
}

type memAccountRepo struct {
	accounts map[uuid.UUID]domain.Account
}

func (r *memAccountRepo) GetByAPIKey(_ context.Context, _ string) (*domain.Account, error) {
	return nil, &apperrors.ErrUnauthorized{Message: "invalid API key"}
}

func (r *memAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "account", ID: id.String()}
	}
	return &account, nil
}

func (r *memAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.accounts[account.ID] = *account
	return nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*domain.OrderEvent
}

func (r *memEventRepo) Create(_ context.Context, event *domain.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type stubValidator struct {
	coupon *domain.Coupon
	err    error
}

func (s *stubValidator) Validate(_ context.Context, _ string, _ float64) (*domain.Coupon, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.coupon, nil
}

type fixture struct {
	svc       *Service
	orders    *memOrderRepo
	accounts  *memAccountRepo
	audit     *memEventRepo
	bus       *events.MemoryBus
	validator *stubValidator

	customer domain.Account
	admin    domain.Account
	partner  domain.Account
}

func newFixture() *fixture {
	f := &fixture{
		orders:    newMemOrderRepo(),
		accounts:  &memAccountRepo{accounts: make(map[uuid.UUID]domain.Account)},
		audit:     &memEventRepo{},
		bus:       events.NewMemoryBus(),
		validator: &stubValidator{},
	}

	f.customer = domain.Account{ID: uuid.New(), Name: "Asha", Role: domain.RoleCustomer, IsActive: true}
	f.admin = domain.Account{ID: uuid.New(), Name: "Ops", Role: domain.RoleAdmin, IsActive: true}
	f.partner = domain.Account{ID: uuid.New(), Name: "Ravi", Role: domain.RoleDeliveryPartner, IsActive: true}
	for _, a := range []domain.Account{f.customer, f.admin, f.partner} {
		f.accounts.accounts[a.ID] = a
	}

	repos := &repository.Repositories{
		Account:    f.accounts,
		Order:      f.orders,
		OrderEvent: f.audit,
	}
	delivery := pricing.NewConfigSource(domain.DefaultDeliveryConfig())
	f.svc = NewService(repos, f.validator, delivery, f.bus, zap.NewNop())
	return f
}

func testView(subtotal float64) *cart.View {
	return &cart.View{
		CartID: "cart-1",
		Items: []domain.CartItem{
			{ProductID: uuid.New(), Name: "Apples", UnitPrice: subtotal, Quantity: 1},
		},
		Subtotal: subtotal,
	}
}

func testAddress() domain.Address {
	return domain.Address{Street: "12 MG Road", City: "Bengaluru", PostalCode: "560001"}
}

func TestCreateFromCartCOD(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	feed, cancel, err := f.bus.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	created, err := f.svc.CreateFromCart(ctx, CheckoutInput{
		Account: f.customer,
		View:    testView(600),
		Address: testAddress(),
		Method:  domain.PaymentMethodCOD,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, created.Status)
	assert.Equal(t, domain.PaymentStatusPending, created.PaymentStatus)
	assert.Equal(t, domain.OrderTypeStandard, created.Type)
	assert.Equal(t, 600.0, created.Pricing.Subtotal)
	assert.Equal(t, 0.0, created.Pricing.DeliveryFee)
	assert.Equal(t, 600.0, created.Pricing.TotalPrice)

	items, err := f.orders.GetItems(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Apples", items[0].Name)

	event := <-feed
	assert.Equal(t, events.TypeNewOrder, event.Type)
	assert.Equal(t, created.ID.String(), event.OrderID)
}

func TestCreateFromCartRazorpayStartsConfirmed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	gatewayOrderID := "order_xyz"
	paymentID := "pay_abc"
	created, err := f.svc.CreateFromCart(ctx, CheckoutInput{
		Account:          f.customer,
		View:             testView(600),
		Address:          testAddress(),
		Method:           domain.PaymentMethodRazorpay,
		GatewayOrderID:   &gatewayOrderID,
		GatewayPaymentID: &paymentID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusConfirmed, created.Status)
	assert.Equal(t, domain.PaymentStatusPaid, created.PaymentStatus)
}

func TestCreateFromCartValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.svc.CreateFromCart(ctx, CheckoutInput{
		Account: f.customer,
		View:    &cart.View{},
		Address: testAddress(),
		Method:  domain.PaymentMethodCOD,
	})
	assert.IsType(t, &apperrors.ErrValidation{}, err, "empty cart")

	_, err = f.svc.CreateFromCart(ctx, CheckoutInput{
		Account: f.customer,
		View:    testView(600),
		Address: domain.Address{City: "Bengaluru"},
		Method:  domain.PaymentMethodCOD,
	})
	assert.IsType(t, &apperrors.ErrValidation{}, err, "incomplete address")

	_, err = f.svc.CreateFromCart(ctx, CheckoutInput{
		Account: f.customer,
		View:    testView(600),
		Address: testAddress(),
		Method:  domain.PaymentMethod("CHEQUE"),
	})
	assert.IsType(t, &apperrors.ErrValidation{}, err, "unsupported method")

	_, err = f.svc.CreateFromCart(ctx, CheckoutInput{
		Account:  f.customer,
		View:     testView(600),
		Address:  testAddress(),
		Method:   domain.PaymentMethodCOD,
		GiftWrap: domain.GiftWrap{Enabled: true, Message: strings.Repeat("x", 201)},
	})
	assert.IsType(t, &apperrors.ErrValidation{}, err, "oversized gift message")
}

func TestCreateFromCartStaleCouponRejectsCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.validator.err = &apperrors.ErrCouponExpired{Code: "OLD"}

	view := testView(600)
	view.AppliedCoupon = &domain.AppliedCoupon{Code: "OLD", DiscountAmount: 50}

	_, err := f.svc.CreateFromCart(ctx, CheckoutInput{
		Account: f.customer,
		View:    view,
		Address: testAddress(),
		Method:  domain.PaymentMethodCOD,
	})
	assert.IsType(t, &apperrors.ErrCouponExpired{}, err)

	// Nothing was persisted
	orders, err := f.orders.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateFromCartValidCouponDiscountsTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.validator.coupon = &domain.Coupon{Code: "SAVE50", DiscountAmount: 50, IsActive: true}

	view := testView(600)
	view.AppliedCoupon = &domain.AppliedCoupon{Code: "SAVE50", DiscountAmount: 50}

	created, err := f.svc.CreateFromCart(ctx, CheckoutInput{
		Account: f.customer,
		View:    view,
		Address: testAddress(),
		Method:  domain.PaymentMethodCOD,
	})
	require.NoError(t, err)

	assert.Equal(t, 50.0, created.Pricing.Discount)
	assert.Equal(t, 550.0, created.Pricing.TotalPrice)
	require.NotNil(t, created.CouponCode)
	assert.Equal(t, "SAVE50", *created.CouponCode)
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	stranger := domain.Account{ID: uuid.New(), Role: domain.RoleCustomer}
	orderID := f.orders.seed(domain.Order{
		AccountID:         f.customer.ID,
		Status:            domain.OrderStatusPicked,
		DeliveryPartnerID: &f.partner.ID,
	})

	_, err := f.svc.Get(ctx, f.customer, orderID)
	assert.NoError(t, err, "owner")
	_, err = f.svc.Get(ctx, f.admin, orderID)
	assert.NoError(t, err, "admin")
	_, err = f.svc.Get(ctx, f.partner, orderID)
	assert.NoError(t, err, "assigned partner")

	_, err = f.svc.Get(ctx, stranger, orderID)
	assert.IsType(t, &apperrors.ErrUnauthorized{}, err)
}

func TestUpdateStatusAdminConfirm(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orderID := f.orders.seed(domain.Order{
		AccountID:     f.customer.ID,
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodCOD,
		PaymentStatus: domain.PaymentStatusPending,
	})

	_, err := f.svc.UpdateStatus(ctx, f.customer, orderID, domain.OrderStatusConfirmed)
	assert.IsType(t, &apperrors.ErrUnauthorized{}, err, "customer cannot confirm")

	updated, err := f.svc.UpdateStatus(ctx, f.admin, orderID, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)
}

func TestUpdateStatusDeliveryChain(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orderID := f.orders.seed(domain.Order{
		AccountID:         f.customer.ID,
		Status:            domain.OrderStatusConfirmed,
		PaymentMethod:     domain.PaymentMethodCOD,
		DeliveryPartnerID: &f.partner.ID,
	})

	// Skipping a state is rejected
	_, err := f.svc.UpdateStatus(ctx, f.partner, orderID, domain.OrderStatusArriving)
	assert.IsType(t, &apperrors.ErrInvalidStateTransition{}, err)

	// A different partner cannot drive the order
	otherPartner := domain.Account{ID: uuid.New(), Role: domain.RoleDeliveryPartner, IsActive: true}
	_, err = f.svc.UpdateStatus(ctx, otherPartner, orderID, domain.OrderStatusPicked)
	assert.IsType(t, &apperrors.ErrUnauthorized{}, err)

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusPicked, domain.OrderStatusArriving, domain.OrderStatusDelivered,
	} {
		updated, err := f.svc.UpdateStatus(ctx, f.partner, orderID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	// Terminal now; nothing more is accepted
	_, err = f.svc.UpdateStatus(ctx, f.partner, orderID, domain.OrderStatusPicked)
	assert.IsType(t, &apperrors.ErrConflict{}, err)
}

func TestUpdateStatusRejectsCancellationTarget(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orderID := f.orders.seed(domain.Order{
		AccountID: f.customer.ID,
		Status:    domain.OrderStatusConfirmed,
	})

	_, err := f.svc.UpdateStatus(ctx, f.admin, orderID, domain.OrderStatusCancelled)
	assert.IsType(t, &apperrors.ErrValidation{}, err)
}

func TestCancelRequiresReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orderID := f.orders.seed(domain.Order{
		AccountID: f.customer.ID,
		Status:    domain.OrderStatusPending,
	})

	_, err := f.svc.Cancel(ctx, f.customer, orderID, "   ")
	assert.IsType(t, &apperrors.ErrValidation{}, err)
}

func TestCancelPendingOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	feed, cancel, err := f.bus.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	orderID := f.orders.seed(domain.Order{
		AccountID:    f.customer.ID,
		CustomerName: f.customer.Name,
		Status:       domain.OrderStatusPending,
	})

	cancelled, err := f.svc.Cancel(ctx, f.customer, orderID, "ordered by mistake")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "ordered by mistake", *cancelled.CancellationReason)

	event := <-feed
	assert.Equal(t, events.TypeOrderCancelled, event.Type)
	assert.Equal(t, "ordered by mistake", event.Reason)
}

func TestCancelPickedOrderRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orderID := f.orders.seed(domain.Order{
		AccountID: f.customer.ID,
		Status:    domain.OrderStatusPicked,
	})

	_, err := f.svc.Cancel(ctx, f.customer, orderID, "changed my mind")
	assert.IsType(t, &apperrors.ErrConflict{}, err)
}

func TestCancelAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orderID := f.orders.seed(domain.Order{
		AccountID: f.customer.ID,
		Status:    domain.OrderStatusPending,
	})

	stranger := domain.Account{ID: uuid.New(), Role: domain.RoleCustomer}
	_, err := f.svc.Cancel(ctx, stranger, orderID, "not mine")
	assert.IsType(t, &apperrors.ErrUnauthorized{}, err)

	// Admin can cancel on the customer's behalf
	_, err = f.svc.Cancel(ctx, f.admin, orderID, "customer called in")
	assert.NoError(t, err)
}

func TestAssignPartner(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orderID := f.orders.seed(domain.Order{
		AccountID: f.customer.ID,
		Status:    domain.OrderStatusConfirmed,
	})

	_, err := f.svc.AssignPartner(ctx, f.customer, orderID, f.partner.ID)
	assert.IsType(t, &apperrors.ErrUnauthorized{}, err, "admin only")

	_, err = f.svc.AssignPartner(ctx, f.admin, orderID, f.customer.ID)
	assert.IsType(t, &apperrors.ErrValidation{}, err, "target must be a delivery partner")

	assigned, err := f.svc.AssignPartner(ctx, f.admin, orderID, f.partner.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.DeliveryPartnerID)
	assert.Equal(t, f.partner.ID, *assigned.DeliveryPartnerID)

	// Re-assignment is refused
	_, err = f.svc.AssignPartner(ctx, f.admin, orderID, f.partner.ID)
	assert.IsType(t, &apperrors.ErrConflict{}, err)
}

func TestAssignPartnerOrderStateGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	picked := f.orders.seed(domain.Order{
		AccountID: f.customer.ID,
		Status:    domain.OrderStatusPicked,
	})
	_, err := f.svc.AssignPartner(ctx, f.admin, picked, f.partner.ID)
	assert.IsType(t, &apperrors.ErrConflict{}, err)

	cancelled := f.orders.seed(domain.Order{
		AccountID: f.customer.ID,
		Status:    domain.OrderStatusCancelled,
	})
	_, err = f.svc.AssignPartner(ctx, f.admin, cancelled, f.partner.ID)
	assert.IsType(t, &apperrors.ErrConflict{}, err)
}
