package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/greenbasket/orderapi/internal/domain"
)

func testConfig() domain.DeliveryConfig {
	return domain.DeliveryConfig{
		FlatFee:               50,
		FreeDeliveryThreshold: 500,
		GiftWrapCharge:        30,
	}
}

func TestComputeBreakdown_BelowThresholdChargesDelivery(t *testing.T) {
	b := ComputeBreakdown(300, testConfig(), 0, false)

	assert.Equal(t, 300.0, b.Subtotal)
	assert.Equal(t, 50.0, b.DeliveryFee)
	assert.Equal(t, 0.0, b.GiftWrapFee)
	assert.Equal(t, 0.0, b.Discount)
	assert.Equal(t, 350.0, b.Total)
}

func TestComputeBreakdown_AtThresholdIsFree(t *testing.T) {
	b := ComputeBreakdown(500, testConfig(), 0, false)

	assert.Equal(t, 0.0, b.DeliveryFee)
	assert.Equal(t, 500.0, b.Total)
}

func TestComputeBreakdown_GiftWrapAddsFlatCharge(t *testing.T) {
	b := ComputeBreakdown(600, testConfig(), 0, true)

	assert.Equal(t, 30.0, b.GiftWrapFee)
	assert.Equal(t, 630.0, b.Total)
}

func TestComputeBreakdown_DiscountWithFeesBelowThreshold(t *testing.T) {
	b := ComputeBreakdown(450, testConfig(), 100, true)

	assert.Equal(t, 50.0, b.DeliveryFee)
	assert.Equal(t, 30.0, b.GiftWrapFee)
	assert.Equal(t, 100.0, b.Discount)
	assert.Equal(t, 430.0, b.Total)
}

func TestComputeBreakdown_DiscountCappedAtSubtotal(t *testing.T) {
	b := ComputeBreakdown(80, testConfig(), 200, false)

	assert.Equal(t, 80.0, b.Discount)
	// Fees survive the cap; only the item value can be discounted away
	assert.Equal(t, 50.0, b.Total)
}

func TestComputeBreakdown_NegativeDiscountIgnored(t *testing.T) {
	b := ComputeBreakdown(600, testConfig(), -40, false)

	assert.Equal(t, 0.0, b.Discount)
	assert.Equal(t, 600.0, b.Total)
}

func TestComputeBreakdown_TotalNeverNegative(t *testing.T) {
	b := ComputeBreakdown(0, domain.DeliveryConfig{FreeDeliveryThreshold: 500}, 100, false)

	assert.GreaterOrEqual(t, b.Total, 0.0)
}

func TestComputeBreakdown_DeliveryFeeDependsOnlyOnSubtotal(t *testing.T) {
	cfg := testConfig()

	// A large discount can bring the payable amount under the threshold,
	// but the fee decision is made on the undiscounted subtotal
	b := ComputeBreakdown(600, cfg, 550, false)
	assert.Equal(t, 0.0, b.DeliveryFee)
	assert.Equal(t, 50.0, b.Total)
}

func TestResolvePrice(t *testing.T) {
	p := domain.Product{
		RetailPrice:   100,
		DiscountPrice: 80,
		BusinessPrice: 70,
	}

	assert.Equal(t, 70.0, ResolvePrice(domain.RoleBusiness, p))
	assert.Equal(t, 80.0, ResolvePrice(domain.RoleCustomer, p))

	p.DiscountPrice = 0
	assert.Equal(t, 100.0, ResolvePrice(domain.RoleCustomer, p))

	// A discount price above retail is ignored
	p.DiscountPrice = 120
	assert.Equal(t, 100.0, ResolvePrice(domain.RoleCustomer, p))
}

func TestEffectiveMinQuantity(t *testing.T) {
	p := domain.Product{MinOrderQty: 5}

	assert.Equal(t, 5, EffectiveMinQuantity(domain.RoleBusiness, p))
	assert.Equal(t, 1, EffectiveMinQuantity(domain.RoleCustomer, p))

	p.MinOrderQty = 0
	assert.Equal(t, 1, EffectiveMinQuantity(domain.RoleBusiness, p))
}

func TestConfigSource_FallsBackToDefaults(t *testing.T) {
	src := NewConfigSource(domain.DeliveryConfig{})

	assert.Equal(t, domain.DefaultDeliveryConfig(), src.Current())

	updated := domain.DeliveryConfig{FlatFee: 20, FreeDeliveryThreshold: 300, GiftWrapCharge: 10}
	src.Update(updated)
	assert.Equal(t, updated, src.Current())
}
