package inventory

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/smart-inventory/internal/guard"
	"github.com/angelmondragon/smart-inventory/internal/notifications"
	"github.com/angelmondragon/smart-inventory/pkg/db"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
	"github.com/angelmondragon/smart-inventory/pkg/pagination"
)

const (
	defaultThreshold        = 2
	defaultSalesHistoryDays = 90
	defaultLeadTimeDays     = 7
	criticalListSize        = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListWithoutInventory(ctx context.Context) ([]models.Product, error)
}

// ServiceParams wires the ledger service.
type ServiceParams struct {
	Repo             Repository
	DB               txRunner
	Guard            *guard.Guard
	Catalog          productReader
	Notifier         notifications.Notifier
	Metrics          *metrics.InventoryMetrics
	Logger           *logger.Logger
	AdminEmail       string
	DefaultThreshold int
	SalesHistoryDays int
	Now              func() time.Time
}

// Service owns the inventory ledger: point reads, listings, admin updates,
// reservations and the per-product sales history.
type Service struct {
	repo             Repository
	db               txRunner
	guard            *guard.Guard
	catalog          productReader
	notifier         notifications.Notifier
	metrics          *metrics.InventoryMetrics
	logg             *logger.Logger
	adminEmail       string
	defaultThreshold int
	salesHistoryDays int
	now              func() time.Time
}

// NewService validates dependencies and applies defaults.
func NewService(p ServiceParams) (*Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if p.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Guard == nil {
		return nil, fmt.Errorf("guard required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if p.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	threshold := p.DefaultThreshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	historyDays := p.SalesHistoryDays
	if historyDays <= 0 {
		historyDays = defaultSalesHistoryDays
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:             p.Repo,
		db:               p.DB,
		guard:            p.Guard,
		catalog:          p.Catalog,
		notifier:         p.Notifier,
		metrics:          p.Metrics,
		logg:             p.Logger,
		adminEmail:       p.AdminEmail,
		defaultThreshold: threshold,
		salesHistoryDays: historyDays,
		now:              now,
	}, nil
}

// Get returns the ledger record or a NOT_FOUND error.
func (s *Service) Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error) {
	record, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	if record == nil {
		return nil, notFound(productID)
	}
	return record, nil
}

// CreateInput seeds a new ledger record.
type CreateInput struct {
	ProductID    uuid.UUID
	InitialStock int
	Threshold    int
}

// Create inserts a record with nothing reserved.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.InventoryRecord, error) {
	if input.ProductID == uuid.Nil {
		return nil, validation("product id required")
	}
	if input.InitialStock < 0 {
		return nil, validation("initial stock must be >= 0")
	}
	if input.Threshold < 0 {
		return nil, validation("threshold must be >= 0")
	}

	record := &models.InventoryRecord{
		ProductID:      input.ProductID,
		CurrentStock:   input.InitialStock,
		ReservedStock:  0,
		AvailableStock: input.InitialStock,
		Threshold:      input.Threshold,
		LeadTimeDays:   defaultLeadTimeDays,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("inventory record for product %s already exists", input.ProductID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory record")
	}
	return record, nil
}

// EnsureForProduct returns the product's record, creating it from the catalog
// snapshot when missing.
func (s *Service) EnsureForProduct(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, bool, error) {
	record, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	if record != nil {
		return record, false, nil
	}

	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	record, err = s.Create(ctx, CreateInput{
		ProductID:    product.ID,
		InitialStock: max(product.CurrentStock, 0),
		Threshold:    s.defaultThreshold,
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			existing, getErr := s.Get(ctx, productID)
			return existing, false, getErr
		}
		return nil, false, err
	}
	return record, true, nil
}

// ListParams configures the stock-ordered listing.
type ListParams struct {
	Limit  int
	Cursor string
}

// ListResult is one page of records.
type ListResult struct {
	Records    []models.InventoryRecord `json:"records"`
	NextCursor string                   `json:"next_cursor,omitempty"`
}

// List pages through records ordered by available stock, scarcest first.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	records, next, err := s.repo.List(ctx, listParams{Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	result := &ListResult{Records: records}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// ListLowStock returns records at or below their threshold.
func (s *Service) ListLowStock(ctx context.Context, limit int) ([]models.InventoryRecord, error) {
	records, err := s.repo.ListLowStock(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return records, nil
}

// Overview summarizes stock health across the catalog.
type Overview struct {
	Total             int64                    `json:"total"`
	OutOfStock        int64                    `json:"out_of_stock"`
	LowStock          int64                    `json:"low_stock"`
	InStock           int64                    `json:"in_stock"`
	InStockPercentage float64                  `json:"in_stock_percentage"`
	Critical          []models.InventoryRecord `json:"critical"`
}

// Overview returns counts by stock state plus the five scarcest low-stock records.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count inventory")
	}
	critical, err := s.repo.ListLowStock(ctx, criticalListSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list critical inventory")
	}

	overview := &Overview{
		Total:      counts.Total,
		OutOfStock: counts.OutOfStock,
		LowStock:   counts.LowStock,
		InStock:    counts.Total - counts.OutOfStock,
		Critical:   critical,
	}
	if counts.Total > 0 {
		pct := float64(overview.InStock) / float64(counts.Total) * 100
		overview.InStockPercentage = float64(int(pct*100+0.5)) / 100
	}
	return overview, nil
}

// UpdateStockInput is a manual admin adjustment; nil fields are left alone.
type UpdateStockInput struct {
	CurrentStock *int
	Threshold    *int
}

// UpdateStock applies a manual count or threshold change.
func (s *Service) UpdateStock(ctx context.Context, productID uuid.UUID, input UpdateStockInput) (*models.InventoryRecord, error) {
	if input.CurrentStock == nil && input.Threshold == nil {
		return nil, validation("current stock or threshold required")
	}
	if input.CurrentStock != nil && *input.CurrentStock < 0 {
		return nil, validation("current stock must be >= 0")
	}
	if input.Threshold != nil && *input.Threshold < 0 {
		return nil, validation("threshold must be >= 0")
	}

	record, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if input.CurrentStock != nil {
		ok, err := s.repo.SetStock(ctx, productID, *input.CurrentStock)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "current stock cannot drop below reserved stock").
				WithDetails(map[string]any{"reserved_stock": record.ReservedStock})
		}
	}
	if input.Threshold != nil {
		if _, err := s.repo.Update(ctx, productID, map[string]any{"threshold": *input.Threshold}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update threshold")
		}
	}
	return s.Get(ctx, productID)
}

// ReorderSettings is a manual override of the planner outputs.
type ReorderSettings struct {
	ReorderPoint         int
	OptimalOrderQuantity int
	LeadTimeDays         *int
}

// UpdateReorderSettings persists reorder point, order quantity and optionally lead time.
func (s *Service) UpdateReorderSettings(ctx context.Context, productID uuid.UUID, settings ReorderSettings) (*models.InventoryRecord, error) {
	if settings.ReorderPoint < 0 || settings.OptimalOrderQuantity < 0 {
		return nil, validation("reorder point and order quantity must be >= 0")
	}
	fields := map[string]any{
		"reorder_point":          settings.ReorderPoint,
		"optimal_order_quantity": settings.OptimalOrderQuantity,
	}
	if settings.LeadTimeDays != nil {
		if *settings.LeadTimeDays <= 0 {
			return nil, validation("lead time must be > 0")
		}
		fields["lead_time_days"] = *settings.LeadTimeDays
	}
	if err := s.update(ctx, productID, fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, productID)
}

// SetAutoReorder flips the per-product opt-in flag.
func (s *Service) SetAutoReorder(ctx context.Context, productID uuid.UUID, enabled bool) error {
	return s.update(ctx, productID, map[string]any{"auto_reorder_enabled": enabled})
}

func (s *Service) update(ctx context.Context, productID uuid.UUID, fields map[string]any) error {
	ok, err := s.repo.Update(ctx, productID, fields)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory record")
	}
	if !ok {
		return notFound(productID)
	}
	return nil
}

// RecordSale appends a sale to the product's history and prunes entries older
// than the retention window, under the product lock.
func (s *Service) RecordSale(ctx context.Context, productID uuid.UUID, qty int, at time.Time) error {
	if qty <= 0 {
		return validation("quantity must be > 0")
	}
	if at.IsZero() {
		at = s.now()
	}
	cutoff := s.now().UTC().AddDate(0, 0, -s.salesHistoryDays)

	return s.guard.WithLock(ctx, productID.String(), func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			record, err := repo.Get(ctx, productID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
			}
			if record == nil {
				return notFound(productID)
			}
			if err := repo.AppendSale(ctx, &models.SalesHistoryEntry{ProductID: productID, SoldAt: at.UTC(), Quantity: qty}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append sale")
			}
			if _, err := repo.PruneSales(ctx, &productID, cutoff); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune sales history")
			}
			return nil
		})
	})
}

// SalesHistory returns the retained sales since the given time.
func (s *Service) SalesHistory(ctx context.Context, productID uuid.UUID, since time.Time) ([]models.SalesHistoryEntry, error) {
	entries, err := s.repo.ListSales(ctx, productID, since.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales history")
	}
	return entries, nil
}

// PruneSalesHistory drops every history entry older than before. A zero before
// uses the retention window.
func (s *Service) PruneSalesHistory(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UTC()
	if before.IsZero() {
		cutoff = s.now().UTC().AddDate(0, 0, -s.salesHistoryDays)
	}
	removed, err := s.repo.PruneSales(ctx, nil, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune sales history")
	}
	return removed, nil
}

// CheckLowStock emails one alert listing every record at or below its threshold.
func (s *Service) CheckLowStock(ctx context.Context) (int, error) {
	records, err := s.ListLowStock(ctx, 0)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	titles := s.titles(ctx, records)
	var body strings.Builder
	body.WriteString("<h2>Low Stock Alert</h2><ul>")
	for _, r := range records {
		fmt.Fprintf(&body, "<li><strong>%s</strong>: %d available (threshold %d)</li>",
			html.EscapeString(titles[r.ProductID]), r.AvailableStock, r.Threshold)
	}
	body.WriteString("</ul>")

	s.notifier.Send(ctx, notifications.Email{
		Kind:      enums.NotificationKindLowStock,
		Recipient: s.adminEmail,
		Subject:   fmt.Sprintf("Low Stock Alert: %d Products", len(records)),
		HTMLBody:  body.String(),
	})
	return len(records), nil
}

func (s *Service) titles(ctx context.Context, records []models.InventoryRecord) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(records))
	for _, r := range records {
		out[r.ProductID] = r.ProductID.String()
		product, err := s.catalog.Get(ctx, r.ProductID)
		if err == nil && product != nil && product.Title != "" {
			out[r.ProductID] = product.Title
		}
	}
	return out
}

// SeedResult reports a catalog seed run.
type SeedResult struct {
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

// SeedFromCatalog creates a record for every catalog product that lacks one.
func (s *Service) SeedFromCatalog(ctx context.Context) (SeedResult, error) {
	products, err := s.catalog.ListWithoutInventory(ctx)
	if err != nil {
		return SeedResult{}, err
	}

	var result SeedResult
	for _, product := range products {
		_, err := s.Create(ctx, CreateInput{
			ProductID:    product.ID,
			InitialStock: max(product.CurrentStock, 0),
			Threshold:    s.defaultThreshold,
		})
		if err != nil {
			result.Failed++
			s.logg.Error(s.logg.WithProductID(ctx, product.ID.String()), "inventory.seed_failed", err)
			continue
		}
		result.Created++
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"created": result.Created, "failed": result.Failed}), "inventory.seed_complete")
	return result, nil
}
