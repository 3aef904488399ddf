package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
)

// Repository reads the product catalog owned by the storefront.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	ListWithoutInventory(ctx context.Context) ([]models.Product, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	ListByCategory(ctx context.Context, category string, exclude uuid.UUID, limit int) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

func (r *repository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *repository) ListWithoutInventory(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM inventory_records ir WHERE ir.product_id = products.id)").
		Order("created_at ASC, id ASC").
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products without inventory")
	}
	return products, nil
}

func (r *repository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active products")
	}
	return ids, nil
}

// ListByCategory returns up to limit active products sharing category, excluding one id.
// Postgres filters on the array column; other drivers filter the candidates in Go.
func (r *repository) ListByCategory(ctx context.Context, category string, exclude uuid.UUID, limit int) ([]models.Product, error) {
	if category == "" || limit <= 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Where("is_active = ? AND id <> ?", true, exclude).
		Order("created_at ASC, id ASC")
	if r.db.Dialector.Name() == "postgres" {
		query = query.Where("? = ANY(categories)", category).Limit(limit)
	}

	var candidates []models.Product
	if err := query.Find(&candidates).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list category products")
	}

	out := make([]models.Product, 0, limit)
	for _, p := range candidates {
		if HasCategory(p, category) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// HasCategory reports whether the product is tagged with category.
func HasCategory(p models.Product, category string) bool {
	for _, c := range p.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// PrimaryCategory returns the first category tag, or "".
func PrimaryCategory(p models.Product) string {
	if len(p.Categories) == 0 {
		return ""
	}
	return p.Categories[0]
}
