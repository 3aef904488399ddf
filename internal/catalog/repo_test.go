package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/smart-inventory/pkg/db/dbtest"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
)

func mustCreateProduct(t *testing.T, db *gorm.DB, title string, categories ...string) models.Product {
	t.Helper()
	p := models.Product{
		ID:           uuid.New(),
		Title:        title,
		Price:        decimal.NewFromInt(20),
		Discount:     decimal.Zero,
		Categories:   pq.StringArray(categories),
		CurrentStock: 12,
		IsActive:     true,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestGetReturnsNotFound(t *testing.T) {
	db := dbtest.Open(t, "catalog_get")
	repo := NewRepository(db)
	ctx := context.Background()

	created := mustCreateProduct(t, db, "Blue Dream", "flower")
	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Blue Dream" || !got.Price.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected product %+v", got)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "flower" {
		t.Fatalf("expected categories to round-trip, got %v", got.Categories)
	}

	_, err = repo.Get(ctx, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListWithoutInventory(t *testing.T) {
	db := dbtest.Open(t, "catalog_missing")
	repo := NewRepository(db)

	seeded := mustCreateProduct(t, db, "Seeded", "flower")
	missing := mustCreateProduct(t, db, "Missing", "edible")
	if err := db.Create(&models.InventoryRecord{ProductID: seeded.ID, CurrentStock: 1, AvailableStock: 1}).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	products, err := repo.ListWithoutInventory(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 1 || products[0].ID != missing.ID {
		t.Fatalf("expected only the product lacking inventory, got %+v", products)
	}
}

func TestListByCategoryExcludesSelfAndLimits(t *testing.T) {
	db := dbtest.Open(t, "catalog_category")
	repo := NewRepository(db)

	self := mustCreateProduct(t, db, "Self", "flower")
	mustCreateProduct(t, db, "A", "flower", "indica")
	mustCreateProduct(t, db, "B", "edible")
	mustCreateProduct(t, db, "C", "indica", "flower")
	mustCreateProduct(t, db, "D", "flower")

	products, err := repo.ListByCategory(context.Background(), "flower", self.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 comparables, got %d", len(products))
	}
	for _, p := range products {
		if p.ID == self.ID || !HasCategory(p, "flower") {
			t.Fatalf("unexpected comparable %+v", p)
		}
	}

	none, err := repo.ListByCategory(context.Background(), "", self.ID, 5)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty category to return nothing, got %v %v", none, err)
	}
}

func TestGetManyAndActiveIDs(t *testing.T) {
	db := dbtest.Open(t, "catalog_many")
	repo := NewRepository(db)
	ctx := context.Background()

	a := mustCreateProduct(t, db, "A", "flower")
	b := mustCreateProduct(t, db, "B", "flower")
	if err := db.Model(&models.Product{}).Where("id = ?", b.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	byID, err := repo.GetMany(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(byID) != 2 || byID[a.ID].Title != "A" {
		t.Fatalf("unexpected products %+v", byID)
	}

	ids, err := repo.ListActiveIDs(ctx)
	if err != nil {
		t.Fatalf("active ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != a.ID {
		t.Fatalf("expected only the active product, got %v", ids)
	}
}

func TestPrimaryCategory(t *testing.T) {
	if PrimaryCategory(models.Product{}) != "" {
		t.Fatalf("expected empty primary category")
	}
	if PrimaryCategory(models.Product{Categories: pq.StringArray{"flower", "indica"}}) != "flower" {
		t.Fatalf("expected first category")
	}
}
