package reorder

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/smart-inventory/internal/inventory"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

type fakeLedger struct {
	record  *models.InventoryRecord
	getErr  error
	saveErr error
	saved   *inventory.ReorderSettings
}

func (f *fakeLedger) Get(context.Context, uuid.UUID) (*models.InventoryRecord, error) {
	return f.record, f.getErr
}

func (f *fakeLedger) UpdateReorderSettings(_ context.Context, _ uuid.UUID, s inventory.ReorderSettings) (*models.InventoryRecord, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = &s
	return f.record, nil
}

type fakeCatalog struct {
	product *models.Product
	err     error
}

func (f fakeCatalog) Get(context.Context, uuid.UUID) (*models.Product, error) {
	return f.product, f.err
}

func newTestPlanner(t *testing.T, l *fakeLedger, c fakeCatalog) *Planner {
	t.Helper()
	p, err := NewPlanner(l, c, DefaultSettings(), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	return p
}

func TestComputeMatchesWorkedExample(t *testing.T) {
	params, err := DefaultSettings().Compute(10, 7, decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if params.SafetyStock != 14 {
		t.Fatalf("expected safety stock 14, got %d", params.SafetyStock)
	}
	if params.ReorderPoint != 84 {
		t.Fatalf("expected reorder point 84, got %d", params.ReorderPoint)
	}
	// sqrt(2*3650*0.25) = 42.72 loses to a week of cover
	if params.OptimalOrderQuantity != 70 {
		t.Fatalf("expected order quantity 70, got %d", params.OptimalOrderQuantity)
	}

	params, err = DefaultSettings().Compute(1, 7, decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// sqrt(2*365*0.25) = 13.51
	if params.OptimalOrderQuantity != 14 {
		t.Fatalf("expected eoq 14, got %d", params.OptimalOrderQuantity)
	}
}

func TestComputeFloorsDemandAndOrderSize(t *testing.T) {
	params, err := DefaultSettings().Compute(0, 0, decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if params.DailyDemand != 0.1 {
		t.Fatalf("expected demand floor 0.1, got %v", params.DailyDemand)
	}
	// 0.1*7 + ceil(1.65*0.03*sqrt(7)) = 0.7 + 1
	if params.ReorderPoint != 2 {
		t.Fatalf("expected reorder point 2, got %d", params.ReorderPoint)
	}
	if params.OptimalOrderQuantity != 5 {
		t.Fatalf("expected eoq 5, got %d", params.OptimalOrderQuantity)
	}

	settings := DefaultSettings()
	settings.MinCoverDays = 90
	params, err = settings.Compute(2, 7, decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if params.OptimalOrderQuantity != 180 {
		t.Fatalf("expected min cover to win, got %d", params.OptimalOrderQuantity)
	}
}

func TestComputeRejectsNonPositivePrice(t *testing.T) {
	if _, err := DefaultSettings().Compute(3, 7, decimal.Zero); !errors.Is(err, errNonPositivePrice) {
		t.Fatalf("expected price error, got %v", err)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.ReorderConfig{ServiceLevelZ: 2.05, FallbackReorderPoint: 8, FallbackOrderQty: 12})
	if s.ServiceLevelZ != 2.05 || s.Fallback().ReorderPoint != 8 || s.Fallback().OptimalOrderQuantity != 12 {
		t.Fatalf("unexpected settings %+v", s)
	}
}

func TestPlanPersistsParameters(t *testing.T) {
	l := &fakeLedger{record: &models.InventoryRecord{SalesVelocity: 10, LeadTimeDays: 7}}
	p := newTestPlanner(t, l, fakeCatalog{product: &models.Product{Price: decimal.NewFromInt(40)}})

	params := p.Plan(context.Background(), uuid.New())
	if params.Fallback || params.ReorderPoint != 84 {
		t.Fatalf("unexpected params %+v", params)
	}
	if l.saved == nil || l.saved.ReorderPoint != 84 || l.saved.OptimalOrderQuantity != 70 {
		t.Fatalf("expected parameters persisted, got %+v", l.saved)
	}
}

func TestPlanFallsBackOnFailure(t *testing.T) {
	cases := map[string]struct {
		ledger  *fakeLedger
		catalog fakeCatalog
	}{
		"missing record": {
			ledger:  &fakeLedger{getErr: inventory.ErrNotFound},
			catalog: fakeCatalog{product: &models.Product{Price: decimal.NewFromInt(40)}},
		},
		"missing product": {
			ledger:  &fakeLedger{record: &models.InventoryRecord{SalesVelocity: 1}},
			catalog: fakeCatalog{err: errors.New("not found")},
		},
		"save fails": {
			ledger:  &fakeLedger{record: &models.InventoryRecord{SalesVelocity: 1}, saveErr: errors.New("db down")},
			catalog: fakeCatalog{product: &models.Product{Price: decimal.NewFromInt(40)}},
		},
		"free product": {
			ledger:  &fakeLedger{record: &models.InventoryRecord{SalesVelocity: 1}},
			catalog: fakeCatalog{product: &models.Product{Price: decimal.Zero}},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestPlanner(t, tc.ledger, tc.catalog)
			params := p.Plan(context.Background(), uuid.New())
			if !params.Fallback || params.ReorderPoint != 5 || params.OptimalOrderQuantity != 10 {
				t.Fatalf("expected fallback {5,10}, got %+v", params)
			}
		})
	}
}
