package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/smart-inventory/internal/autoreorder"
	"github.com/angelmondragon/smart-inventory/internal/forecast"
	inventorysvc "github.com/angelmondragon/smart-inventory/internal/inventory"
	"github.com/angelmondragon/smart-inventory/internal/reconcile"
	"github.com/angelmondragon/smart-inventory/internal/reorder"
	"github.com/angelmondragon/smart-inventory/internal/saleslog"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
)

// Ledger is the read, update and reservation surface of the inventory service.
type Ledger interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
	List(ctx context.Context, params inventorysvc.ListParams) (*inventorysvc.ListResult, error)
	ListLowStock(ctx context.Context, limit int) ([]models.InventoryRecord, error)
	Overview(ctx context.Context) (*inventorysvc.Overview, error)
	UpdateStock(ctx context.Context, productID uuid.UUID, input inventorysvc.UpdateStockInput) (*models.InventoryRecord, error)
	ReserveStrict(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryRecord, error)
	Release(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryRecord, error)
	ConfirmDeduction(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryRecord, error)
}

// Reorders is the auto-reorder surface.
type Reorders interface {
	PendingReorders(ctx context.Context) ([]autoreorder.Request, error)
	TriggerManual(ctx context.Context) (int, error)
	ToggleAutoReorder(ctx context.Context, productID uuid.UUID, enabled bool) error
	UpdateReorderParameters(ctx context.Context, productID uuid.UUID, settings inventorysvc.ReorderSettings) (*models.InventoryRecord, error)
}

// Forecaster projects demand for one product.
type Forecaster interface {
	Forecast(ctx context.Context, productID uuid.UUID) (*forecast.Result, error)
}

// Planner recomputes reorder parameters for one product.
type Planner interface {
	Plan(ctx context.Context, productID uuid.UUID) reorder.Parameters
}

// SalesLog appends collaborator activity events.
type SalesLog interface {
	Append(ctx context.Context, input saleslog.AppendInput) (*models.SalesLog, error)
}

// Reconciler repairs ledger drift and reports sellout risk.
type Reconciler interface {
	Reconcile(ctx context.Context, productID uuid.UUID) (*reconcile.Snapshot, error)
	ValidateAll(ctx context.Context) (reconcile.SweepResult, error)
	CheckStockoutRisks(ctx context.Context, lookAheadDays int) ([]reconcile.Risk, error)
}

var (
	_ Ledger     = (*inventorysvc.Service)(nil)
	_ Reorders   = (*autoreorder.Engine)(nil)
	_ Forecaster = (*forecast.Service)(nil)
	_ Planner    = (*reorder.Planner)(nil)
	_ Reconciler = (*reconcile.Sweeper)(nil)
	_ SalesLog   = (*saleslog.Service)(nil)
)
