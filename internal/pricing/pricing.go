package pricing

import (
	"github.com/greenbasket/orderapi/internal/domain"
)

// Breakdown captures the monetary results of pricing a cart
type Breakdown struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	GiftWrapFee float64 `json:"gift_wrap_fee"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// ComputeBreakdown turns a subtotal, delivery config, coupon discount and
// gift-wrap flag into a priced breakdown. Pure and deterministic: identical
// inputs always yield identical output, which is what lets client-estimated
// and server-confirmed totals be compared exactly. No tax component exists
// anywhere in the pipeline.
func ComputeBreakdown(subtotal float64, cfg domain.DeliveryConfig, discount float64, giftWrap bool) Breakdown {
	b := Breakdown{Subtotal: subtotal}

	if subtotal < cfg.FreeDeliveryThreshold {
		b.DeliveryFee = cfg.FlatFee
	}

	if giftWrap {
		b.GiftWrapFee = cfg.GiftWrapCharge
	}

	// Discount never exceeds the subtotal
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	b.Discount = discount

	b.Total = subtotal + b.DeliveryFee + b.GiftWrapFee - b.Discount
	if b.Total < 0 {
		b.Total = 0
	}

	return b
}

// ResolvePrice is the single place the business-vs-retail price rule lives.
// Every surface that needs a unit price goes through here.
func ResolvePrice(role domain.Role, p domain.Product) float64 {
	if role == domain.RoleBusiness {
		return p.BusinessPrice
	}
	if p.DiscountPrice > 0 && p.DiscountPrice < p.RetailPrice {
		return p.DiscountPrice
	}
	return p.RetailPrice
}

// EffectiveMinQuantity returns the smallest quantity a cart line may hold.
// Business accounts are bound by the product's minimum order quantity;
// everyone else bottoms out at 1.
func EffectiveMinQuantity(role domain.Role, p domain.Product) int {
	if role == domain.RoleBusiness && p.MinOrderQty > 1 {
		return p.MinOrderQty
	}
	return 1
}
