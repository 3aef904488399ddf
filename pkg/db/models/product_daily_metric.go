package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDailyMetric is the per-day rollup of sales log activity.
type ProductDailyMetric struct {
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;primaryKey"`
	Day        time.Time       `gorm:"column:day;type:date;primaryKey"`
	TotalSold  int             `gorm:"column:total_sold;not null;default:0"`
	Views      int             `gorm:"column:views;not null;default:0"`
	AddToCarts int             `gorm:"column:add_to_carts;not null;default:0"`
	Revenue    decimal.Decimal `gorm:"column:revenue;type:numeric(14,2);not null;default:0"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
