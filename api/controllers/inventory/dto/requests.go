package inventorydto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/smart-inventory/pkg/types"
)

// UpdateStockRequest is a manual admin count or threshold change.
type UpdateStockRequest struct {
	CurrentStock *int `json:"current_stock" validate:"omitempty,min=0"`
	Threshold    *int `json:"threshold" validate:"omitempty,min=0"`
}

// QuantityRequest drives reserve, release and confirm.
type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// AutoReorderRequest toggles the per-product opt-in flag.
type AutoReorderRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ReorderParametersRequest overrides the planner outputs.
type ReorderParametersRequest struct {
	ReorderPoint         *int `json:"reorder_point" validate:"required,min=0"`
	OptimalOrderQuantity *int `json:"optimal_order_quantity" validate:"required,min=0"`
	LeadTimeDays         *int `json:"lead_time_days" validate:"omitempty,min=1"`
}

// SalesLogRequest is one activity event reported by the cart and order flows.
// Details carries at most one variant, matching Action.
type SalesLogRequest struct {
	UserID     string                `json:"user_id" validate:"required,uuid"`
	OrderID    string                `json:"order_id" validate:"omitempty,uuid"`
	Action     string                `json:"action" validate:"required,oneof=viewed added_to_cart purchased"`
	Quantity   int                   `json:"quantity" validate:"min=0"`
	TotalPrice decimal.Decimal       `json:"total_price"`
	Details    types.SalesLogDetails `json:"details"`
	At         *time.Time            `json:"at"`
}
