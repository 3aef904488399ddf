package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/smart-inventory/pkg/types"
)

// InventoryRecord is the authoritative stock ledger row for one product.
// AvailableStock always equals CurrentStock - ReservedStock at rest.
type InventoryRecord struct {
	ProductID            uuid.UUID          `gorm:"column:product_id;type:uuid;primaryKey"`
	CurrentStock         int                `gorm:"column:current_stock;not null;default:0"`
	ReservedStock        int                `gorm:"column:reserved_stock;not null;default:0"`
	AvailableStock       int                `gorm:"column:available_stock;not null;default:0;index:idx_inventory_available_threshold,priority:1;index:idx_inventory_available_reorder,priority:1"`
	Threshold            int                `gorm:"column:threshold;not null;default:0;index:idx_inventory_available_threshold,priority:2"`
	ReorderPoint         int                `gorm:"column:reorder_point;not null;default:0;index:idx_inventory_available_reorder,priority:2"`
	OptimalOrderQuantity int                `gorm:"column:optimal_order_quantity;not null;default:0"`
	LeadTimeDays         int                `gorm:"column:lead_time_days;not null;default:7"`
	AutoReorderEnabled   bool               `gorm:"column:auto_reorder_enabled;not null;default:false"`
	LastReorderAt        *time.Time         `gorm:"column:last_reorder_at"`
	SalesVelocity        float64            `gorm:"column:sales_velocity;not null;default:0"`
	ForecastedDemand     int                `gorm:"column:forecasted_demand;not null;default:0"`
	Seasonality          *types.Seasonality `gorm:"column:seasonality;type:jsonb"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryRecord) TableName() string { return "inventory_records" }

// Balanced reports whether the derived available count matches the ledger.
func (r InventoryRecord) Balanced() bool {
	return r.AvailableStock == r.CurrentStock-r.ReservedStock
}
