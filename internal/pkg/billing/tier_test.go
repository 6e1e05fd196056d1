package billing

import (
	"testing"

	"github.com/soundhaven/soundhaven/internal/pkg/entitlements"
)

func TestPriceTableMapping(t *testing.T) {
	pt := NewPriceTable("price_std", "price_prem", "price_studio")

	tests := []struct {
		price string
		want  Tier
		ok    bool
	}{
		{price: "price_std", want: TierStandard, ok: true},
		{price: "price_prem", want: TierPremium, ok: true},
		{price: "price_studio", want: TierStudio, ok: true},
		{price: "price_unknown", ok: false},
		{price: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := pt.TierForPrice(tt.price)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("TierForPrice(%q) = (%q, %v), want (%q, %v)", tt.price, got, ok, tt.want, tt.ok)
		}
	}

	if price, ok := pt.PriceForTier(TierPremium); !ok || price != "price_prem" {
		t.Fatalf("PriceForTier(premium) = (%q, %v)", price, ok)
	}
}

func TestPriceTableUnconfiguredTier(t *testing.T) {
	pt := NewPriceTable("price_std", "", "")

	if _, ok := pt.PriceForTier(TierStudio); ok {
		t.Fatalf("expected studio to be unconfigured")
	}
	if _, ok := pt.TierForPrice("price_std"); !ok {
		t.Fatalf("expected configured standard price to resolve")
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
		ok   bool
	}{
		{in: "standard", want: TierStandard, ok: true},
		{in: " Premium ", want: TierPremium, ok: true},
		{in: "STUDIO", want: TierStudio, ok: true},
		{in: "free", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := ParseTier(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseTier(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPlanForTier(t *testing.T) {
	if got := PlanForTier(TierStandard); got != entitlements.PlanStandard {
		t.Fatalf("PlanForTier(standard) = %q", got)
	}
	if got := PlanForTier(TierStudio); got != entitlements.PlanStudio {
		t.Fatalf("PlanForTier(studio) = %q", got)
	}
	if got := PlanForTier(Tier("bogus")); got != entitlements.PlanFree {
		t.Fatalf("PlanForTier(bogus) = %q, want free", got)
	}
}
