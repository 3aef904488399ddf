package models

import (
	"time"

	"github.com/google/uuid"
)

// SalesHistoryEntry is one recorded sale on the inventory ledger, kept for
// a trailing retention window.
type SalesHistoryEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:idx_sales_history_product_sold,priority:1"`
	SoldAt    time.Time `gorm:"column:sold_at;not null;index:idx_sales_history_product_sold,priority:2"`
	Quantity  int       `gorm:"column:quantity;not null"`
}

func (SalesHistoryEntry) TableName() string { return "inventory_sales_history" }
