package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/pagination"
)

// Repository persists inventory records and their sales history. Every write that
// touches current or reserved stock recomputes available stock in the same statement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
	Create(ctx context.Context, record *models.InventoryRecord) error
	List(ctx context.Context, params listParams) ([]models.InventoryRecord, *pagination.Cursor, error)
	ListLowStock(ctx context.Context, limit int) ([]models.InventoryRecord, error)
	ListBatch(ctx context.Context, after *uuid.UUID, limit int) ([]models.InventoryRecord, error)
	ListReorderCandidates(ctx context.Context, cooldownCutoff time.Time) ([]models.InventoryRecord, error)
	ListInStock(ctx context.Context) ([]models.InventoryRecord, error)
	Counts(ctx context.Context) (overviewCounts, error)

	Reserve(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	Release(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	Confirm(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	SetStock(ctx context.Context, productID uuid.UUID, currentStock int) (bool, error)
	SetReserved(ctx context.Context, productID uuid.UUID, reserved int) error
	Update(ctx context.Context, productID uuid.UUID, fields map[string]any) (bool, error)

	AppendSale(ctx context.Context, entry *models.SalesHistoryEntry) error
	ListSales(ctx context.Context, productID uuid.UUID, since time.Time) ([]models.SalesHistoryEntry, error)
	PruneSales(ctx context.Context, productID *uuid.UUID, before time.Time) (int64, error)
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

type overviewCounts struct {
	Total      int64
	OutOfStock int64
	LowStock   int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) Create(ctx context.Context, record *models.InventoryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.InventoryRecord, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.InventoryRecord{})
	if params.Cursor != nil {
		query = query.Where(
			"(available_stock > ?) OR (available_stock = ? AND product_id > ?)",
			params.Cursor.Available, params.Cursor.Available, params.Cursor.ProductID,
		)
	}

	var records []models.InventoryRecord
	if err := query.Order("available_stock ASC").Order("product_id ASC").Limit(limit).Find(&records).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(records) > normalized {
		last := records[normalized-1]
		next = &pagination.Cursor{Available: last.AvailableStock, ProductID: last.ProductID}
		records = records[:normalized]
	}
	return records, next, nil
}

func (r *repository) ListLowStock(ctx context.Context, limit int) ([]models.InventoryRecord, error) {
	query := r.db.WithContext(ctx).
		Where("available_stock <= threshold").
		Order("available_stock ASC").
		Order("product_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []models.InventoryRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListBatch pages through every record by product id for sweeps.
func (r *repository) ListBatch(ctx context.Context, after *uuid.UUID, limit int) ([]models.InventoryRecord, error) {
	query := r.db.WithContext(ctx).Order("product_id ASC").Limit(limit)
	if after != nil {
		query = query.Where("product_id > ?", *after)
	}
	var records []models.InventoryRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListReorderCandidates(ctx context.Context, cooldownCutoff time.Time) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("auto_reorder_enabled = ?", true).
		Where("available_stock <= reorder_point").
		Where("last_reorder_at IS NULL OR last_reorder_at < ?", cooldownCutoff).
		Order("available_stock ASC").
		Order("product_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListInStock(ctx context.Context) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	if err := r.db.WithContext(ctx).Where("current_stock > 0").Order("product_id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) Counts(ctx context.Context) (overviewCounts, error) {
	var counts overviewCounts
	err := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN available_stock <= 0 THEN 1 ELSE 0 END), 0) AS out_of_stock,
			COALESCE(SUM(CASE WHEN available_stock > 0 AND available_stock <= threshold THEN 1 ELSE 0 END), 0) AS low_stock`).
		Scan(&counts).Error
	return counts, err
}

// Reserve claims qty units only while current - reserved still covers them.
func (r *repository) Reserve(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET reserved_stock = reserved_stock + ?,
			available_stock = current_stock - (reserved_stock + ?),
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND current_stock - reserved_stock >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Release returns qty units, flooring reserved stock at zero.
func (r *repository) Release(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET reserved_stock = CASE WHEN reserved_stock >= ? THEN reserved_stock - ? ELSE 0 END,
			available_stock = current_stock - (CASE WHEN reserved_stock >= ? THEN reserved_stock - ? ELSE 0 END),
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, qty, qty, qty, qty, productID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Confirm deducts qty from both current and reserved stock, each floored at zero.
func (r *repository) Confirm(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET current_stock = CASE WHEN current_stock >= ? THEN current_stock - ? ELSE 0 END,
			reserved_stock = CASE WHEN reserved_stock >= ? THEN reserved_stock - ? ELSE 0 END,
			available_stock = (CASE WHEN current_stock >= ? THEN current_stock - ? ELSE 0 END)
				- (CASE WHEN reserved_stock >= ? THEN reserved_stock - ? ELSE 0 END),
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, qty, qty, qty, qty, qty, qty, qty, qty, productID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetStock overwrites on-hand stock unless it would drop below what is reserved.
func (r *repository) SetStock(ctx context.Context, productID uuid.UUID, currentStock int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET current_stock = ?,
			available_stock = ? - reserved_stock,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND reserved_stock <= ?
	`, currentStock, currentStock, productID, currentStock)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetReserved overwrites reserved stock from a recomputed ground truth.
func (r *repository) SetReserved(ctx context.Context, productID uuid.UUID, reserved int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET reserved_stock = ?,
			available_stock = current_stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, reserved, reserved, productID).Error
}

// Update writes fields that do not participate in the stock invariant.
func (r *repository) Update(ctx context.Context, productID uuid.UUID, fields map[string]any) (bool, error) {
	for _, col := range []string{"current_stock", "reserved_stock", "available_stock"} {
		if _, ok := fields[col]; ok {
			return false, errors.New("stock columns must be written through the ledger primitives")
		}
	}
	res := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ?", productID).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendSale(ctx context.Context, entry *models.SalesHistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListSales(ctx context.Context, productID uuid.UUID, since time.Time) ([]models.SalesHistoryEntry, error) {
	var entries []models.SalesHistoryEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND sold_at >= ?", productID, since).
		Order("sold_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) PruneSales(ctx context.Context, productID *uuid.UUID, before time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Where("sold_at < ?", before)
	if productID != nil {
		query = query.Where("product_id = ?", *productID)
	}
	res := query.Delete(&models.SalesHistoryEntry{})
	return res.RowsAffected, res.Error
}
