// Package dbtest opens throwaway in-memory SQLite databases carrying the inventory schema.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/smart-inventory/pkg/db/models"
)

// products uses a plain text column for categories; pq.StringArray round-trips through it.
const productsDDL = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	price NUMERIC NOT NULL,
	discount NUMERIC NOT NULL DEFAULT 0,
	categories TEXT,
	current_stock INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at DATETIME,
	updated_at DATETIME
)`

// Open returns an isolated database with every inventory table migrated.
func Open(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := "file:" + name + "_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(productsDDL).Error; err != nil {
		t.Fatalf("create products: %v", err)
	}
	if err := db.AutoMigrate(
		&models.InventoryRecord{},
		&models.SalesHistoryEntry{},
		&models.SalesLog{},
		&models.ProductDailyMetric{},
		&models.CartItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Shared-cache memory databases vanish with their last connection.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
