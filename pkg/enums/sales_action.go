package enums

import "fmt"

// SalesAction maps to the sales_action enum in Postgres.
type SalesAction string

const (
	SalesActionViewed      SalesAction = "viewed"
	SalesActionAddedToCart SalesAction = "added_to_cart"
	SalesActionPurchased   SalesAction = "purchased"
)

var validSalesActions = []SalesAction{
	SalesActionViewed,
	SalesActionAddedToCart,
	SalesActionPurchased,
}

// String implements fmt.Stringer.
func (a SalesAction) String() string {
	return string(a)
}

// IsValid reports whether the value is known.
func (a SalesAction) IsValid() bool {
	for _, candidate := range validSalesActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseSalesAction converts raw input into a SalesAction.
func ParseSalesAction(value string) (SalesAction, error) {
	for _, candidate := range validSalesActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sales action %q", value)
}
