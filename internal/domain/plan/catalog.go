package plan

import (
	"github.com/shopspring/decimal"

	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/types"
)

type priceKey struct {
	tier  types.PlanTier
	cycle types.BillingCycle
}

// Catalog maps (plan tier, billing cycle) to a price. Prices are in whole
// KRW. The catalog is static and loaded at process start; an unknown pair is
// a configuration defect, never a zero-cost charge.
type Catalog struct {
	prices map[priceKey]decimal.Decimal
}

// NewCatalog returns the catalog of sellable plans. The free tier is priced
// at zero explicitly and bypasses charging entirely.
func NewCatalog() *Catalog {
	return &Catalog{
		prices: map[priceKey]decimal.Decimal{
			{types.PlanTierFree, types.BillingCycleMonthly}:    decimal.Zero,
			{types.PlanTierFree, types.BillingCycleYearly}:     decimal.Zero,
			{types.PlanTierStarter, types.BillingCycleMonthly}: decimal.NewFromInt(19900),
			{types.PlanTierStarter, types.BillingCycleYearly}:  decimal.NewFromInt(199000),
			{types.PlanTierPro, types.BillingCycleMonthly}:     decimal.NewFromInt(49900),
			{types.PlanTierPro, types.BillingCycleYearly}:      decimal.NewFromInt(499000),
		},
	}
}

// PriceOf returns the price for a (tier, cycle) pair.
func (c *Catalog) PriceOf(tier types.PlanTier, cycle types.BillingCycle) (decimal.Decimal, error) {
	price, ok := c.prices[priceKey{tier, cycle}]
	if !ok {
		return decimal.Zero, ierr.NewError("no price configured for plan").
			WithHint("The selected plan and billing cycle combination is not available").
			WithReportableDetails(map[string]interface{}{
				"plan":          tier.String(),
				"billing_cycle": cycle.String(),
			}).
			Mark(ierr.ErrNotFound)
	}
	return price, nil
}
