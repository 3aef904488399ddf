package models

// Inventory lists the models owned by the smart inventory schema, in
// dependency order, for databases that are migrated with AutoMigrate.
func Inventory() []any {
	return []any{
		&Product{},
		&InventoryRecord{},
		&SalesHistoryEntry{},
		&SalesLog{},
		&ProductDailyMetric{},
		&CartItem{},
	}
}
