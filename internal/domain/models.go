package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a platform user: customer, business buyer, admin or
// delivery partner.
type Account struct {
	ID         uuid.UUID
	Name       string
	Phone      string
	Role       Role
	APIKeyHash string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Product is a catalog entry. Business accounts buy at BusinessPrice and
// are bound by MinOrderQty; retail accounts buy at DiscountPrice when one
// is set, otherwise RetailPrice.
type Product struct {
	ID            uuid.UUID
	Name          string
	Category      string
	RetailPrice   float64
	DiscountPrice float64
	BusinessPrice float64
	MinOrderQty   int
	InStock       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CartItem is one cart line. UnitPrice is a snapshot: authoritative for
// guest carts, re-resolved from the catalog on every refresh for
// authenticated carts.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice float64   `json:"unit_price"`
	Quantity  int       `json:"quantity"`
}

// AppliedCoupon is the at-most-one coupon held by a cart. Never mutated in
// place; replaced wholesale after a coupon apply/remove round-trip.
type AppliedCoupon struct {
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discount_amount"`
}

// GiftWrap is the optional gift-wrap request attached to a cart or order
type GiftWrap struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message,omitempty"`
}

// Cart is the mutable pre-order state for one shopper
type Cart struct {
	ID        string         `json:"id"`
	AccountID *uuid.UUID     `json:"account_id,omitempty"`
	Items     []CartItem     `json:"items"`
	Coupon    *AppliedCoupon `json:"coupon,omitempty"`
	GiftWrap  GiftWrap       `json:"gift_wrap"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Coupon is a discount code row. Validity is decided here, server-side,
// never by clients.
type Coupon struct {
	ID             uuid.UUID
	Code           string
	DiscountAmount float64
	MinSubtotal    float64
	ValidFrom      time.Time
	ValidUntil     time.Time
	IsActive       bool
	CreatedAt      time.Time
}

// Address is a delivery destination, copied onto orders at creation
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone,omitempty"`
}

// PricingSnapshot is an order's price breakdown frozen at creation time
type PricingSnapshot struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	Discount    float64 `json:"discount"`
	GiftWrapFee float64 `json:"gift_wrap_fee"`
	TotalPrice  float64 `json:"total_price"`
}

// Order is immutable once created except for status, cancellation reason
// and the assigned delivery partner.
type Order struct {
	ID                 uuid.UUID
	AccountID          uuid.UUID
	CustomerName       string
	Type               OrderType
	Status             OrderStatus
	Pricing            PricingSnapshot
	DeliveryAddress    Address
	PaymentMethod      PaymentMethod
	PaymentStatus      PaymentStatus
	CouponCode         *string
	GiftWrap           GiftWrap
	CancellationReason *string
	DeliveryPartnerID  *uuid.UUID
	GatewayOrderID     *string
	GatewayPaymentID   *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OrderItem is a line-item snapshot owned by an order, not a live
// catalog reference.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	UnitPrice float64
	Quantity  int
	CreatedAt time.Time
}

// OrderEvent represents an audit event for an order
type OrderEvent struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	EventType string
	EventData map[string]interface{} // JSONB
	CreatedAt time.Time
}

// PartnerLocation is the latest reported position of a delivery partner.
// Latest-value-wins; no history is kept.
type PartnerLocation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeliveryConfig holds the platform-wide delivery pricing knobs
type DeliveryConfig struct {
	FlatFee               float64 `json:"fee"`
	FreeDeliveryThreshold float64 `json:"free_delivery_threshold"`
	GiftWrapCharge        float64 `json:"gift_wrap_charge"`
}

// DefaultDeliveryConfig is the fallback used when no configured value is
// available. The public config endpoint serves the same source the order
// pipeline charges from, so the fallback cannot diverge from billing.
func DefaultDeliveryConfig() DeliveryConfig {
	return DeliveryConfig{
		FlatFee:               50,
		FreeDeliveryThreshold: 500,
		GiftWrapCharge:        30,
	}
}
