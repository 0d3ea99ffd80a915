package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenbasket/orderapi/internal/domain"
	"github.com/greenbasket/orderapi/internal/pricing"
	"github.com/greenbasket/orderapi/internal/repository"
	apperrors "github.com/greenbasket/orderapi/pkg/errors"
)

const maxGiftWrapMessage = 200

// View is the full authoritative cart state returned by every ledger
// operation. Clients replace their local state with it wholesale.
type View struct {
	CartID         string                `json:"cart_id"`
	Items          []domain.CartItem     `json:"items"`
	Subtotal       float64               `json:"subtotal"`
	TotalItems     int                   `json:"totalItems"`
	AppliedCoupon  *domain.AppliedCoupon `json:"appliedCoupon,omitempty"`
	CouponDiscount float64               `json:"couponDiscount"`
	GiftWrap       domain.GiftWrap       `json:"giftWrap"`
	Breakdown      pricing.Breakdown     `json:"breakdown"`
}

// Ledger applies cart mutations against one backend and re-prices after
// every change through a single refresh path. Mutations on the same cart
// are serialized so a slow request can never resurrect state a faster one
// already replaced.
type Ledger struct {
	backend        Backend
	products       repository.ProductRepository
	delivery       *pricing.ConfigSource
	resolveCatalog bool
	locks          sync.Map // cartID -> *sync.Mutex
	logger         *zap.Logger
}

// NewLedger creates a ledger over a backend. resolveCatalogPrices selects
// remote-cart semantics: unit prices are re-resolved from the catalog on
// every refresh instead of trusting the stored snapshot.
func NewLedger(backend Backend, products repository.ProductRepository, delivery *pricing.ConfigSource, resolveCatalogPrices bool, logger *zap.Logger) *Ledger {
	return &Ledger{
		backend:        backend,
		products:       products,
		delivery:       delivery,
		resolveCatalog: resolveCatalogPrices,
		logger:         logger,
	}
}

func (l *Ledger) lock(cartID string) func() {
	v, _ := l.locks.LoadOrStore(cartID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (l *Ledger) load(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := l.backend.Get(ctx, cartID)
	if errors.Is(err, ErrCartNotFound) {
		return &domain.Cart{ID: cartID, Items: []domain.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem puts qty units of a product into the cart, merging with an
// existing line for the same product.
func (l *Ledger) AddItem(ctx context.Context, cartID string, role domain.Role, productID uuid.UUID, qty int) (*View, error) {
	if qty < 1 {
		return nil, &apperrors.ErrValidation{Message: "quantity must be at least 1"}
	}

	product, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.InStock {
		return nil, &apperrors.ErrValidation{Message: fmt.Sprintf("product %s is out of stock", product.Name)}
	}

	unlock := l.lock(cartID)
	defer unlock()

	cart, err := l.load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	idx := findItem(cart.Items, productID)
	newQty := qty
	if idx >= 0 {
		newQty += cart.Items[idx].Quantity
	}
	if moq := pricing.EffectiveMinQuantity(role, *product); newQty < moq {
		return nil, &apperrors.ErrValidation{
			Message: fmt.Sprintf("minimum order quantity for %s is %d", product.Name, moq),
		}
	}

	if idx >= 0 {
		cart.Items[idx].Quantity = newQty
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: pricing.ResolvePrice(role, *product),
			Quantity:  newQty,
		})
	}

	if err := l.backend.Put(ctx, cart); err != nil {
		return nil, err
	}

	return l.refresh(ctx, cart, role)
}

// UpdateQuantity sets a line's quantity. A target below the effective
// minimum order quantity removes the line rather than clamping it.
func (l *Ledger) UpdateQuantity(ctx context.Context, cartID string, role domain.Role, productID uuid.UUID, qty int) (*View, error) {
	unlock := l.lock(cartID)
	defer unlock()

	cart, err := l.load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	idx := findItem(cart.Items, productID)
	if idx < 0 {
		return nil, &apperrors.ErrNotFound{Resource: "cart item", ID: productID.String()}
	}

	minQty := 1
	if product, err := l.products.GetByID(ctx, productID); err == nil {
		minQty = pricing.EffectiveMinQuantity(role, *product)
	}

	if qty < minQty {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Quantity = qty
	}

	if err := l.backend.Put(ctx, cart); err != nil {
		return nil, err
	}

	return l.refresh(ctx, cart, role)
}

// RemoveItem deletes a line. Removing an absent item is a no-op.
func (l *Ledger) RemoveItem(ctx context.Context, cartID string, role domain.Role, productID uuid.UUID) (*View, error) {
	unlock := l.lock(cartID)
	defer unlock()

	cart, err := l.load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if idx := findItem(cart.Items, productID); idx >= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		if err := l.backend.Put(ctx, cart); err != nil {
			return nil, err
		}
	}

	return l.refresh(ctx, cart, role)
}

// Clear empties the cart, dropping items, coupon and gift wrap
func (l *Ledger) Clear(ctx context.Context, cartID string, role domain.Role) (*View, error) {
	unlock := l.lock(cartID)
	defer unlock()

	cart := &domain.Cart{ID: cartID, Items: []domain.CartItem{}}
	if err := l.backend.Put(ctx, cart); err != nil {
		return nil, err
	}

	return l.refresh(ctx, cart, role)
}

// Fetch returns the current authoritative cart state
func (l *Ledger) Fetch(ctx context.Context, cartID string, role domain.Role) (*View, error) {
	cart, err := l.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return l.refresh(ctx, cart, role)
}

// SetGiftWrap toggles gift wrapping and its card message
func (l *Ledger) SetGiftWrap(ctx context.Context, cartID string, role domain.Role, wrap domain.GiftWrap) (*View, error) {
	if len(wrap.Message) > maxGiftWrapMessage {
		return nil, &apperrors.ErrValidation{
			Message: fmt.Sprintf("gift wrap message must be at most %d characters", maxGiftWrapMessage),
		}
	}
	if !wrap.Enabled {
		wrap.Message = ""
	}

	unlock := l.lock(cartID)
	defer unlock()

	cart, err := l.load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	cart.GiftWrap = wrap
	if err := l.backend.Put(ctx, cart); err != nil {
		return nil, err
	}

	return l.refresh(ctx, cart, role)
}

// SetCoupon replaces the applied coupon wholesale. A nil coupon clears it.
// Validation belongs to the coupon engine; the ledger only stores.
func (l *Ledger) SetCoupon(ctx context.Context, cartID string, role domain.Role, coupon *domain.AppliedCoupon) (*View, error) {
	unlock := l.lock(cartID)
	defer unlock()

	cart, err := l.load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	cart.Coupon = coupon
	if err := l.backend.Put(ctx, cart); err != nil {
		return nil, err
	}

	return l.refresh(ctx, cart, role)
}

// refresh is the single path every operation funnels through: re-resolve
// prices when the catalog is authoritative, then recompute the breakdown.
func (l *Ledger) refresh(ctx context.Context, cart *domain.Cart, role domain.Role) (*View, error) {
	if l.resolveCatalog && len(cart.Items) > 0 {
		ids := make([]uuid.UUID, len(cart.Items))
		for i, item := range cart.Items {
			ids[i] = item.ProductID
		}

		catalog, err := l.products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}

		for i := range cart.Items {
			product, ok := catalog[cart.Items[i].ProductID]
			if !ok {
				l.logger.Warn("Cart references unknown product, keeping snapshot price",
					zap.String("product_id", cart.Items[i].ProductID.String()))
				continue
			}
			cart.Items[i].Name = product.Name
			cart.Items[i].UnitPrice = pricing.ResolvePrice(role, product)
		}
	}

	var subtotal float64
	var totalItems int
	for _, item := range cart.Items {
		subtotal += item.UnitPrice * float64(item.Quantity)
		totalItems += item.Quantity
	}

	var discount float64
	if cart.Coupon != nil {
		discount = cart.Coupon.DiscountAmount
	}

	breakdown := pricing.ComputeBreakdown(subtotal, l.delivery.Current(), discount, cart.GiftWrap.Enabled)

	return &View{
		CartID:         cart.ID,
		Items:          cart.Items,
		Subtotal:       breakdown.Subtotal,
		TotalItems:     totalItems,
		AppliedCoupon:  cart.Coupon,
		CouponDiscount: breakdown.Discount,
		GiftWrap:       cart.GiftWrap,
		Breakdown:      breakdown,
	}, nil
}

func findItem(items []domain.CartItem, productID uuid.UUID) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
