package inventorydto

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/smart-inventory/internal/forecast"
	"github.com/angelmondragon/smart-inventory/internal/reorder"
	"github.com/angelmondragon/smart-inventory/pkg/types"
)

// Record is one ledger row as exposed through the API.
type Record struct {
	ProductID            uuid.UUID          `json:"product_id"`
	CurrentStock         int                `json:"current_stock"`
	ReservedStock        int                `json:"reserved_stock"`
	AvailableStock       int                `json:"available_stock"`
	Threshold            int                `json:"threshold"`
	ReorderPoint         int                `json:"reorder_point"`
	OptimalOrderQuantity int                `json:"optimal_order_quantity"`
	LeadTimeDays         int                `json:"lead_time_days"`
	AutoReorderEnabled   bool               `json:"auto_reorder_enabled"`
	LastReorderAt        *time.Time         `json:"last_reorder_at,omitempty"`
	SalesVelocity        float64            `json:"sales_velocity"`
	ForecastedDemand     int                `json:"forecasted_demand"`
	Seasonality          *types.Seasonality `json:"seasonality,omitempty"`
	LowStock             bool               `json:"low_stock"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// RecordPage is one page of the stock-ordered listing.
type RecordPage struct {
	Records    []Record `json:"records"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// Overview summarizes stock health.
type Overview struct {
	Total             int64    `json:"total"`
	OutOfStock        int64    `json:"out_of_stock"`
	LowStock          int64    `json:"low_stock"`
	InStock           int64    `json:"in_stock"`
	InStockPercentage float64  `json:"in_stock_percentage"`
	Critical          []Record `json:"critical"`
}

// ReservationResponse reports the record after a reserve, release or confirm.
type ReservationResponse struct {
	Quantity int    `json:"quantity"`
	Record   Record `json:"record"`
}

// ForecastResponse is an on-demand forecast plus the reorder plan derived from it.
type ForecastResponse struct {
	Forecast *forecast.Result   `json:"forecast"`
	Plan     reorder.Parameters `json:"reorder_parameters"`
}

// AutoReorderResponse reports the per-product opt-in flag.
type AutoReorderResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Enabled   bool      `json:"auto_reorder_enabled"`
}

// TriggerResponse counts the products restocked by a manual trigger.
type TriggerResponse struct {
	Reordered int `json:"reordered"`
}

// SalesLog is one stored activity event.
type SalesLog struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Action    string    `json:"action"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}
