package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/smart-inventory/pkg/enums"
)

// CartItem is the cart line owned by the cart flow. Active lines hold
// reserved stock and are the ground truth for reconciliation.
type CartItem struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID            `gorm:"column:cart_id;type:uuid;not null"`
	ProductID uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity  int                  `gorm:"column:quantity;not null"`
	Status    enums.CartItemStatus `gorm:"column:status;type:cart_item_status;not null;default:'active'"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
