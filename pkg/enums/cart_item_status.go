package enums

import "fmt"

// CartItemStatus tracks whether a cart line still holds reserved stock.
// Only active lines count toward a product's reserved quantity; removed
// lines released their hold and converted lines became sales.
type CartItemStatus string

const (
	CartItemStatusActive    CartItemStatus = "active"
	CartItemStatusRemoved   CartItemStatus = "removed"
	CartItemStatusConverted CartItemStatus = "converted"
)

func (c CartItemStatus) String() string {
	return string(c)
}

// HoldsStock reports whether a line in this status keeps units reserved.
func (c CartItemStatus) HoldsStock() bool {
	return c == CartItemStatusActive
}

// Terminal reports whether the line can no longer change status.
func (c CartItemStatus) Terminal() bool {
	return c == CartItemStatusRemoved || c == CartItemStatusConverted
}

func (c CartItemStatus) IsValid() bool {
	switch c {
	case CartItemStatusActive, CartItemStatusRemoved, CartItemStatusConverted:
		return true
	}
	return false
}

// ParseCartItemStatus converts raw input into a CartItemStatus.
func ParseCartItemStatus(value string) (CartItemStatus, error) {
	status := CartItemStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid cart item status %q", value)
	}
	return status, nil
}

// StockHoldingCartStatuses lists the statuses counted as reserved stock.
func StockHoldingCartStatuses() []CartItemStatus {
	return []CartItemStatus{CartItemStatusActive}
}
