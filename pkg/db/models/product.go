package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is the read-only catalog snapshot used for cost assumptions and labels.
type Product struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Title        string           `gorm:"column:title;not null"`
	Price        decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	Discount     decimal.Decimal  `gorm:"column:discount;type:numeric(5,2);not null;default:0"`
	Categories   pq.StringArray   `gorm:"column:categories;type:text[]"`
	CurrentStock int              `gorm:"column:current_stock;not null;default:0"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	Inventory    *InventoryRecord `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
