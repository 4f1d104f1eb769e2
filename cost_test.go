package opspod

import (
	"math"
	"testing"
)

func TestCostOf(t *testing.T) {
	cost, ok := CostOf("gpt-4o", Usage{InputTokens: 1000000, OutputTokens: 500000})
	if !ok {
		t.Fatalf("expected gpt-4o to be priced")
	}
	if math.Abs(cost.TotalCost-7.5) > 1e-9 {
		t.Fatalf("expected 7.5, got %f", cost.TotalCost)
	}
}

func TestLookupPricingStripsProviderPrefix(t *testing.T) {
	if _, ok := LookupPricing("azure/gpt-4o-mini"); !ok {
		t.Fatalf("expected azure/gpt-4o-mini to be priced")
	}
	if _, ok := LookupPricing("unknown-model"); ok {
		t.Fatalf("unexpected pricing for unknown model")
	}
}
