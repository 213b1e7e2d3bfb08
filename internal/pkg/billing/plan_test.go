package billing

import (
	"errors"
	"testing"
)

func TestCatalogLookup(t *testing.T) {
	tests := []struct {
		in        string
		wantPrice int64
	}{
		{in: "basic", wantPrice: 300},
		{in: "premium", wantPrice: 14990},
		{in: " ENTERPRISE ", wantPrice: 29990},
	}

	catalog := DefaultCatalog()
	for _, tt := range tests {
		got, err := catalog.Lookup(tt.in)
		if err != nil {
			t.Fatalf("Lookup(%q) returned error: %v", tt.in, err)
		}
		if got.PriceCents != tt.wantPrice {
			t.Fatalf("Lookup(%q).PriceCents = %d, want %d", tt.in, got.PriceCents, tt.wantPrice)
		}
		if got.ValidityDays != DefaultValidityDays {
			t.Fatalf("Lookup(%q).ValidityDays = %d, want %d", tt.in, got.ValidityDays, DefaultValidityDays)
		}
	}
}

func TestCatalogLookup_Unknown(t *testing.T) {
	for _, in := range []string{"", "free", "premium_max"} {
		if _, err := DefaultCatalog().Lookup(in); !errors.Is(err, ErrUnknownPlan) {
			t.Fatalf("Lookup(%q) error = %v, want ErrUnknownPlan", in, err)
		}
	}
}
