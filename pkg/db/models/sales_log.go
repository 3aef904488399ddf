package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/smart-inventory/pkg/enums"
	"github.com/angelmondragon/smart-inventory/pkg/types"
)

// SalesLog is an append-only product activity record written by order flows.
type SalesLog struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	ProductID  uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index:idx_sales_logs_product_action_created,priority:1"`
	OrderID    *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	Action     enums.SalesAction     `gorm:"column:action;type:sales_action;not null;index:idx_sales_logs_product_action_created,priority:2"`
	Quantity   int                   `gorm:"column:quantity;not null;default:0"`
	TotalPrice decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	Details    types.SalesLogDetails `gorm:"column:details;type:jsonb;serializer:json"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime;index:idx_sales_logs_product_action_created,priority:3"`
}
