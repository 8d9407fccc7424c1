package internal

import "testing"

func TestLookupProduct(t *testing.T) {
	tests := []struct {
		id       string
		wantPlan Plan
		wantErr  bool
	}{
		{"bas", PlanBasic, false},
		{"basic", PlanBasic, false},
		{"PRO", PlanPro, false},
		{"elite", PlanElite, false},
		{"free", "", true},
	}

	for _, tt := range tests {
		p, err := LookupProduct(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("LookupProduct(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			continue
		}
		if p.Plan != tt.wantPlan {
			t.Errorf("LookupProduct(%q).Plan = %q, want %q", tt.id, p.Plan, tt.wantPlan)
		}
	}
}

func TestProducts_SortedByPrice(t *testing.T) {
	ps := Products()
	if len(ps) != 3 {
		t.Fatalf("Products() returned %d products, want 3", len(ps))
	}
	for i := 1; i < len(ps); i++ {
		if ps[i-1].PriceUSD > ps[i].PriceUSD {
			t.Errorf("Products() not sorted by price: %v", ps)
		}
	}
}

func TestPriceIDs_For(t *testing.T) {
	prices := PriceIDs{Basic: "price_b", Pro: "price_p", Elite: "price_e"}
	if prices.For("pro") != "price_p" || prices.For("bas") != "price_b" || prices.For("elite") != "price_e" {
		t.Errorf("For() returned wrong price ids for %+v", prices)
	}
	if prices.For("free") != "" {
		t.Error("For(free) should be empty")
	}
}
