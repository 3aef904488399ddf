// Package autoreorder raises restock requests for opted-in products that fall
// to their reorder point.
package autoreorder

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/smart-inventory/internal/inventory"
	"github.com/angelmondragon/smart-inventory/internal/notifications"
	"github.com/angelmondragon/smart-inventory/internal/reorder"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
)

type ledger interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
	ReorderCandidates(ctx context.Context, cutoff time.Time) ([]models.InventoryRecord, error)
	MarkReordered(ctx context.Context, productID uuid.UUID, at time.Time) error
	SetAutoReorder(ctx context.Context, productID uuid.UUID, enabled bool) error
	UpdateReorderSettings(ctx context.Context, productID uuid.UUID, settings inventory.ReorderSettings) (*models.InventoryRecord, error)
}

type productReader interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type planner interface {
	Plan(ctx context.Context, productID uuid.UUID) reorder.Parameters
}

// Request is one product due for restock.
type Request struct {
	ProductID    uuid.UUID             `json:"product_id"`
	Title        string                `json:"title"`
	CurrentStock int                   `json:"current_stock"`
	Available    int                   `json:"available_stock"`
	ReorderPoint int                   `json:"reorder_point"`
	Quantity     int                   `json:"order_quantity"`
	Priority     enums.ReorderPriority `json:"priority"`
}

// Params wires the engine.
type Params struct {
	Ledger     ledger
	Catalog    productReader
	Planner    planner
	Notifier   notifications.Notifier
	Metrics    *metrics.InventoryMetrics
	Logger     *logger.Logger
	Config     config.ReorderConfig
	AdminEmail string
}

// Engine selects, stamps and reports auto-reorders.
type Engine struct {
	ledger     ledger
	catalog    productReader
	planner    planner
	notifier   notifications.Notifier
	metrics    *metrics.InventoryMetrics
	logg       *logger.Logger
	cooldown   time.Duration
	highRatio  float64
	medRatio   float64
	adminEmail string
	now        func() time.Time
}

// NewEngine validates dependencies and applies the cooldown and priority defaults.
func NewEngine(p Params) (*Engine, error) {
	if p.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if p.Planner == nil {
		return nil, fmt.Errorf("planner required")
	}
	if p.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(p.AdminEmail) == "" {
		return nil, fmt.Errorf("admin email required")
	}

	e := &Engine{
		ledger:     p.Ledger,
		catalog:    p.Catalog,
		planner:    p.Planner,
		notifier:   p.Notifier,
		metrics:    p.Metrics,
		logg:       p.Logger,
		cooldown:   p.Config.Cooldown,
		highRatio:  p.Config.HighPriorityRatio,
		medRatio:   p.Config.MediumPriorityRatio,
		adminEmail: p.AdminEmail,
		now:        time.Now,
	}
	if e.cooldown <= 0 {
		e.cooldown = 72 * time.Hour
	}
	if e.highRatio <= 0 {
		e.highRatio = 0.5
	}
	if e.medRatio <= 0 {
		e.medRatio = 0.75
	}
	return e, nil
}

// Priority grades available stock against the reorder point.
func (e *Engine) Priority(available, reorderPoint int) enums.ReorderPriority {
	switch {
	case available <= 0, float64(available) <= float64(reorderPoint)*e.highRatio:
		return enums.ReorderPriorityHigh
	case float64(available) <= float64(reorderPoint)*e.medRatio:
		return enums.ReorderPriorityMedium
	default:
		return enums.ReorderPriorityLow
	}
}

// CheckReorderNeeds lists opted-in records at or below their reorder point and
// outside the cooldown, high priority first. Records whose product is gone are skipped.
func (e *Engine) CheckReorderNeeds(ctx context.Context) ([]Request, error) {
	records, err := e.ledger.ReorderCandidates(ctx, e.now().Add(-e.cooldown))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ProductID)
	}
	products, err := e.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	requests := make([]Request, 0, len(records))
	for _, r := range records {
		product, ok := products[r.ProductID]
		if !ok {
			continue
		}
		requests = append(requests, Request{
			ProductID:    r.ProductID,
			Title:        product.Title,
			CurrentStock: r.CurrentStock,
			Available:    r.AvailableStock,
			ReorderPoint: r.ReorderPoint,
			Quantity:     r.OptimalOrderQuantity,
			Priority:     e.Priority(r.AvailableStock, r.ReorderPoint),
		})
	}
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].Priority.Rank() > requests[j].Priority.Rank()
	})
	return requests, nil
}

// PendingReorders is CheckReorderNeeds for read-only listings.
func (e *Engine) PendingReorders(ctx context.Context) ([]Request, error) {
	return e.CheckReorderNeeds(ctx)
}

// ProcessAutoReorders stamps every due record and sends one summary email.
// A record that cannot be stamped is logged and left out of the summary.
func (e *Engine) ProcessAutoReorders(ctx context.Context) (int, error) {
	requests, err := e.CheckReorderNeeds(ctx)
	if err != nil {
		return 0, err
	}
	if len(requests) == 0 {
		return 0, nil
	}

	stampedAt := e.now().UTC()
	processed := make([]Request, 0, len(requests))
	for _, req := range requests {
		if err := e.ledger.MarkReordered(ctx, req.ProductID, stampedAt); err != nil {
			e.logg.Error(e.logg.WithProductID(ctx, req.ProductID.String()), "autoreorder.stamp_failed", err)
			continue
		}
		e.metrics.IncReorder(req.Priority.String())
		processed = append(processed, req)
	}
	if len(processed) == 0 {
		return 0, nil
	}

	e.notifier.Send(ctx, notifications.Email{
		Kind:      enums.NotificationKindAutoReorder,
		Recipient: e.adminEmail,
		Subject:   fmt.Sprintf("Smart Inventory: %d Products Auto-Reordered", len(processed)),
		HTMLBody:  renderReorderEmail(processed),
	})

	e.logg.Info(e.logg.WithField(ctx, "count", len(processed)), "autoreorder.processed")
	return len(processed), nil
}

// TriggerManual runs a sweep now.
func (e *Engine) TriggerManual(ctx context.Context) (int, error) {
	return e.ProcessAutoReorders(ctx)
}

// ToggleAutoReorder flips the opt-in flag. Enabling a record without reorder
// parameters plans them first.
func (e *Engine) ToggleAutoReorder(ctx context.Context, productID uuid.UUID, enabled bool) error {
	record, err := e.ledger.Get(ctx, productID)
	if err != nil {
		return err
	}
	if enabled && (record.ReorderPoint == 0 || record.OptimalOrderQuantity == 0) {
		e.planner.Plan(ctx, productID)
	}
	return e.ledger.SetAutoReorder(ctx, productID, enabled)
}

// UpdateReorderParameters overrides the planner for one product.
func (e *Engine) UpdateReorderParameters(ctx context.Context, productID uuid.UUID, settings inventory.ReorderSettings) (*models.InventoryRecord, error) {
	return e.ledger.UpdateReorderSettings(ctx, productID, settings)
}

func renderReorderEmail(requests []Request) string {
	var b strings.Builder
	b.WriteString("<h2>Automatic Reorder Notification</h2>")
	b.WriteString("<p>The following products reached their reorder point and were queued for restock:</p>")
	for _, priority := range []enums.ReorderPriority{
		enums.ReorderPriorityHigh,
		enums.ReorderPriorityMedium,
		enums.ReorderPriorityLow,
	} {
		writeReorderTable(&b, priority, requests)
	}
	fmt.Fprintf(&b, "<p><strong>Total products to reorder: %d</strong></p>", len(requests))
	return b.String()
}

func writeReorderTable(b *strings.Builder, priority enums.ReorderPriority, requests []Request) {
	var rows []Request
	for _, r := range requests {
		if r.Priority == priority {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return
	}

	label := strings.ToUpper(priority.String()[:1]) + priority.String()[1:]
	fmt.Fprintf(b, "<h3>%s Priority Reorders</h3>", label)
	b.WriteString(`<table border="1" cellpadding="5" cellspacing="0"><thead><tr>`)
	b.WriteString("<th>Product</th><th>Current Stock</th><th>Available Stock</th><th>Reorder Point</th><th>Order Quantity</th>")
	b.WriteString("</tr></thead><tbody>")
	for _, r := range rows {
		fmt.Fprintf(b, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr>",
			html.EscapeString(r.Title), r.CurrentStock, r.Available, r.ReorderPoint, r.Quantity)
	}
	b.WriteString("</tbody></table>")
}
