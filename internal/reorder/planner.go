package reorder

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/smart-inventory/internal/inventory"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

const daysPerYear = 365

var errNonPositivePrice = errors.New("product price must be positive")

// Settings are the planner constants.
type Settings struct {
	ServiceLevelZ        float64
	DemandStdDevRatio    float64
	OrderingCostRatio    float64
	HoldingCostRatio     float64
	DefaultLeadTimeDays  int
	MinDailyDemand       float64
	MinCoverDays         int
	FallbackReorderPoint int
	FallbackOrderQty     int
}

// DefaultSettings returns the 95% service level planner constants.
func DefaultSettings() Settings {
	return Settings{
		ServiceLevelZ:        1.65,
		DemandStdDevRatio:    0.3,
		OrderingCostRatio:    0.05,
		HoldingCostRatio:     0.2,
		DefaultLeadTimeDays:  7,
		MinDailyDemand:       0.1,
		MinCoverDays:         7,
		FallbackReorderPoint: 5,
		FallbackOrderQty:     10,
	}
}

// SettingsFromConfig maps the reorder config section onto planner settings.
func SettingsFromConfig(cfg config.ReorderConfig) Settings {
	return Settings{
		ServiceLevelZ:        cfg.ServiceLevelZ,
		DemandStdDevRatio:    cfg.DemandStdDevRatio,
		OrderingCostRatio:    cfg.OrderingCostRatio,
		HoldingCostRatio:     cfg.HoldingCostRatio,
		DefaultLeadTimeDays:  cfg.DefaultLeadTimeDays,
		MinDailyDemand:       cfg.MinDailyDemand,
		MinCoverDays:         cfg.MinCoverDays,
		FallbackReorderPoint: cfg.FallbackReorderPoint,
		FallbackOrderQty:     cfg.FallbackOrderQty,
	}
}

// Parameters is a computed reorder point and order size.
type Parameters struct {
	ReorderPoint         int     `json:"reorder_point"`
	OptimalOrderQuantity int     `json:"optimal_order_quantity"`
	SafetyStock          int     `json:"safety_stock"`
	DailyDemand          float64 `json:"daily_demand"`
	Fallback             bool    `json:"fallback"`
}

// Compute derives safety stock, reorder point and an EOQ order size floored at
// MinCoverDays of demand.
func (s Settings) Compute(velocity float64, leadTimeDays int, price decimal.Decimal) (Parameters, error) {
	if !price.IsPositive() {
		return Parameters{}, errNonPositivePrice
	}
	daily := math.Max(velocity, s.MinDailyDemand)
	lead := leadTimeDays
	if lead <= 0 {
		lead = s.DefaultLeadTimeDays
	}

	safety := int(math.Ceil(s.ServiceLevelZ * s.DemandStdDevRatio * daily * math.Sqrt(float64(lead))))
	reorderPoint := int(math.Ceil(daily*float64(lead) + float64(safety)))

	annualDemand := decimal.NewFromFloat(daily * daysPerYear)
	orderingCost := price.Mul(decimal.NewFromFloat(s.OrderingCostRatio))
	holdingCost := price.Mul(decimal.NewFromFloat(s.HoldingCostRatio))
	if !holdingCost.IsPositive() {
		return Parameters{}, fmt.Errorf("holding cost must be positive, got %s", holdingCost)
	}
	eoqSquared := decimal.NewFromInt(2).Mul(annualDemand).Mul(orderingCost).Div(holdingCost)
	eoq := int(math.Ceil(math.Sqrt(eoqSquared.InexactFloat64())))

	minOrder := int(math.Ceil(daily * float64(s.MinCoverDays)))
	return Parameters{
		ReorderPoint:         reorderPoint,
		OptimalOrderQuantity: max(eoq, minOrder),
		SafetyStock:          safety,
		DailyDemand:          daily,
	}, nil
}

// Fallback returns the conservative defaults used when planning fails.
func (s Settings) Fallback() Parameters {
	return Parameters{
		ReorderPoint:         s.FallbackReorderPoint,
		OptimalOrderQuantity: s.FallbackOrderQty,
		Fallback:             true,
	}
}

type ledger interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
	UpdateReorderSettings(ctx context.Context, productID uuid.UUID, settings inventory.ReorderSettings) (*models.InventoryRecord, error)
}

type productReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Planner computes and persists reorder parameters from the ledger's sales velocity.
type Planner struct {
	ledger   ledger
	catalog  productReader
	settings Settings
	logg     *logger.Logger
}

// NewPlanner validates dependencies.
func NewPlanner(l ledger, catalog productReader, settings Settings, logg *logger.Logger) (*Planner, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Planner{ledger: l, catalog: catalog, settings: settings, logg: logg}, nil
}

// Plan computes and stores the product's reorder parameters. Any failure is
// logged and answered with the fallback parameters, which are not persisted.
func (p *Planner) Plan(ctx context.Context, productID uuid.UUID) Parameters {
	params, err := p.plan(ctx, productID)
	if err != nil {
		p.logg.Error(p.logg.WithProductID(ctx, productID.String()), "reorder.plan_failed", err)
		return p.settings.Fallback()
	}
	return params
}

func (p *Planner) plan(ctx context.Context, productID uuid.UUID) (Parameters, error) {
	record, err := p.ledger.Get(ctx, productID)
	if err != nil {
		return Parameters{}, err
	}
	product, err := p.catalog.Get(ctx, productID)
	if err != nil {
		return Parameters{}, err
	}

	params, err := p.settings.Compute(record.SalesVelocity, record.LeadTimeDays, product.Price)
	if err != nil {
		return Parameters{}, err
	}
	if _, err := p.ledger.UpdateReorderSettings(ctx, productID, inventory.ReorderSettings{
		ReorderPoint:         params.ReorderPoint,
		OptimalOrderQuantity: params.OptimalOrderQuantity,
	}); err != nil {
		return Parameters{}, err
	}
	return params, nil
}
