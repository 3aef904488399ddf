package types

import (
	"errors"

	"github.com/angelmondragon/smart-inventory/pkg/enums"
	"github.com/shopspring/decimal"
)

// ViewedDetails describes a product page view.
type ViewedDetails struct {
	Source string `json:"source,omitempty"`
}

// AddedToCartDetails describes a cart add.
type AddedToCartDetails struct {
	CartID    string          `json:"cart_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PurchasedDetails describes a completed purchase line.
type PurchasedDetails struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

// SalesLogDetails carries exactly one variant matching the log action.
type SalesLogDetails struct {
	Viewed      *ViewedDetails      `json:"viewed,omitempty"`
	AddedToCart *AddedToCartDetails `json:"added_to_cart,omitempty"`
	Purchased   *PurchasedDetails   `json:"purchased,omitempty"`
}

var (
	errDetailsVariantCount  = errors.New("sales log details must carry exactly one variant")
	errDetailsVariantAction = errors.New("sales log details variant does not match action")
)

// Validate checks that one variant is set and that it matches action.
// Empty details are accepted for any action.
func (d SalesLogDetails) Validate(action enums.SalesAction) error {
	set := 0
	var kind enums.SalesAction
	if d.Viewed != nil {
		set++
		kind = enums.SalesActionViewed
	}
	if d.AddedToCart != nil {
		set++
		kind = enums.SalesActionAddedToCart
	}
	if d.Purchased != nil {
		set++
		kind = enums.SalesActionPurchased
	}
	switch {
	case set == 0:
		return nil
	case set > 1:
		return errDetailsVariantCount
	case kind != action:
		return errDetailsVariantAction
	}
	return nil
}
