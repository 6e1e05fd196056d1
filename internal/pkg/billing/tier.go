package billing

import (
	"strings"

	"github.com/soundhaven/soundhaven/internal/pkg/entitlements"
	"github.com/soundhaven/soundhaven/internal/pkg/env"
)

// Tier is a named subscription level mapped 1:1 to a processor price ID.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
	TierStudio   Tier = "studio"
)

// PriceTable holds the static price-ID-to-tier mapping. Exactly one tier per
// price ID; prices without a mapping are never applied to user plans.
type PriceTable struct {
	tierByPrice map[string]Tier
	priceByTier map[Tier]string
}

// NewPriceTable builds a mapping from explicit tier/price pairs. Empty price
// IDs leave the tier unconfigured.
func NewPriceTable(standard, premium, studio string) *PriceTable {
	pt := &PriceTable{
		tierByPrice: make(map[string]Tier, 3),
		priceByTier: make(map[Tier]string, 3),
	}
	for tier, price := range map[Tier]string{
		TierStandard: strings.TrimSpace(standard),
		TierPremium:  strings.TrimSpace(premium),
		TierStudio:   strings.TrimSpace(studio),
	} {
		if price == "" {
			continue
		}
		pt.tierByPrice[price] = tier
		pt.priceByTier[tier] = price
	}
	return pt
}

// NewPriceTableFromEnv reads the environment-supplied price identifiers,
// one per tier.
func NewPriceTableFromEnv() *PriceTable {
	return NewPriceTable(
		env.GetEnv("STRIPE_PRICE_STANDARD", ""),
		env.GetEnv("STRIPE_PRICE_PREMIUM", ""),
		env.GetEnv("STRIPE_PRICE_STUDIO", ""),
	)
}

// TierForPrice resolves a processor price ID to its tier.
func (pt *PriceTable) TierForPrice(priceID string) (Tier, bool) {
	tier, ok := pt.tierByPrice[strings.TrimSpace(priceID)]
	return tier, ok
}

// PriceForTier resolves a tier to its configured price ID.
func (pt *PriceTable) PriceForTier(tier Tier) (string, bool) {
	price, ok := pt.priceByTier[tier]
	return price, ok
}

// ParseTier normalizes a tier selector from a request.
func ParseTier(selector string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case string(TierStandard):
		return TierStandard, true
	case string(TierPremium):
		return TierPremium, true
	case string(TierStudio):
		return TierStudio, true
	default:
		return "", false
	}
}

// PlanForTier maps a billing tier to the entitlement plan written on users.
func PlanForTier(tier Tier) entitlements.Plan {
	switch tier {
	case TierStudio:
		return entitlements.PlanStudio
	case TierPremium:
		return entitlements.PlanPremium
	case TierStandard:
		return entitlements.PlanStandard
	default:
		return entitlements.PlanFree
	}
}
