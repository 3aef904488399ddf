package types

import (
	"testing"
	"time"

	"github.com/angelmondragon/smart-inventory/pkg/enums"
)

func TestSeasonalityFactorDefaults(t *testing.T) {
	var s Seasonality
	if got := s.Factor(time.March); got != 1.0 {
		t.Fatalf("expected default factor 1.0, got %v", got)
	}
	s[2] = 1.4
	if got := s.Factor(time.March); got != 1.4 {
		t.Fatalf("expected march factor 1.4, got %v", got)
	}
	var nilSeasonality *Seasonality
	if got := nilSeasonality.Factor(time.June); got != 1.0 {
		t.Fatalf("expected nil receiver to default, got %v", got)
	}
}

func TestSeasonalityScanValue(t *testing.T) {
	in := Seasonality{1.1, 0.9, 1, 1, 1, 1, 1, 1, 1, 1, 0.8, 1.2}
	val, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var out Seasonality
	if err := out.Scan(val); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if out != in {
		t.Fatalf("expected %v, got %v", in, out)
	}
	if err := out.Scan(42); err == nil {
		t.Fatalf("expected unsupported type to fail")
	}
	if err := out.Scan(nil); err != nil || !out.IsZero() {
		t.Fatalf("expected nil scan to reset, got %v err=%v", out, err)
	}
}

func TestSalesLogDetailsValidate(t *testing.T) {
	if err := (SalesLogDetails{}).Validate(enums.SalesActionPurchased); err != nil {
		t.Fatalf("empty details should be valid: %v", err)
	}
	if err := (SalesLogDetails{Purchased: &PurchasedDetails{}}).Validate(enums.SalesActionPurchased); err != nil {
		t.Fatalf("matching variant should be valid: %v", err)
	}
	if err := (SalesLogDetails{Viewed: &ViewedDetails{}}).Validate(enums.SalesActionPurchased); err == nil {
		t.Fatalf("mismatched variant should fail")
	}
	both := SalesLogDetails{Viewed: &ViewedDetails{}, Purchased: &PurchasedDetails{}}
	if err := both.Validate(enums.SalesActionPurchased); err == nil {
		t.Fatalf("two variants should fail")
	}
}
