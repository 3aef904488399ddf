package autoreorder

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/smart-inventory/internal/catalog"
	"github.com/angelmondragon/smart-inventory/internal/guard"
	"github.com/angelmondragon/smart-inventory/internal/inventory"
	"github.com/angelmondragon/smart-inventory/internal/notifications"
	"github.com/angelmondragon/smart-inventory/internal/reorder"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db/dbtest"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
)

type gormRunner struct {
	db *gorm.DB
}

func (r gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingNotifier struct {
	sent []notifications.Email
}

func (n *recordingNotifier) Send(_ context.Context, email notifications.Email) {
	n.sent = append(n.sent, email)
}

type engineEnv struct {
	db       *gorm.DB
	ledger   *inventory.Service
	engine   *Engine
	notifier *recordingNotifier
	now      time.Time
}

func newEngineEnv(t *testing.T, name string) *engineEnv {
	t.Helper()
	db := dbtest.Open(t, name)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	env := &engineEnv{
		db:       db,
		notifier: &recordingNotifier{},
		now:      time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	g, err := guard.New(guard.Params{Locker: guard.NewMemoryLocker(), Logger: logg})
	require.NoError(t, err)
	products := catalog.NewRepository(db)

	ledger, err := inventory.NewService(inventory.ServiceParams{
		Repo:       inventory.NewRepository(db),
		DB:         gormRunner{db: db},
		Guard:      g,
		Catalog:    products,
		Notifier:   env.notifier,
		Logger:     logg,
		AdminEmail: "ops@example.com",
		Now:        clock,
	})
	require.NoError(t, err)

	planner, err := reorder.NewPlanner(ledger, products, reorder.DefaultSettings(), logg)
	require.NoError(t, err)

	engine, err := NewEngine(Params{
		Ledger:     ledger,
		Catalog:    products,
		Planner:    planner,
		Notifier:   env.notifier,
		Metrics:    metrics.NewInventoryMetrics(prometheus.NewRegistry()),
		Logger:     logg,
		Config:     config.ReorderConfig{Cooldown: 72 * time.Hour},
		AdminEmail: "ops@example.com",
	})
	require.NoError(t, err)
	engine.now = clock

	env.ledger = ledger
	env.engine = engine
	return env
}

// seed creates a product with a ledger record. reorderPoint 0 leaves the
// record unplanned.
func (e *engineEnv) seed(t *testing.T, title string, stock, reorderPoint int, enabled bool) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	p := models.Product{
		ID:           uuid.New(),
		Title:        title,
		Price:        decimal.NewFromInt(40),
		Discount:     decimal.Zero,
		Categories:   pq.StringArray{"flower"},
		CurrentStock: stock,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(&p).Error)
	_, err := e.ledger.Create(ctx, inventory.CreateInput{ProductID: p.ID, InitialStock: stock})
	require.NoError(t, err)
	if reorderPoint > 0 {
		_, err = e.ledger.UpdateReorderSettings(ctx, p.ID, inventory.ReorderSettings{ReorderPoint: reorderPoint, OptimalOrderQuantity: 70})
		require.NoError(t, err)
	}
	if enabled {
		require.NoError(t, e.ledger.SetAutoReorder(ctx, p.ID, true))
	}
	return p.ID
}

func TestNewEngineRequiresDeps(t *testing.T) {
	_, err := NewEngine(Params{})
	require.Error(t, err)
}

func TestPriority(t *testing.T) {
	env := newEngineEnv(t, "autoreorder_priority")
	cases := []struct {
		available, rop int
		want           enums.ReorderPriority
	}{
		{available: 0, rop: 84, want: enums.ReorderPriorityHigh},
		{available: -1, rop: 0, want: enums.ReorderPriorityHigh},
		{available: 42, rop: 84, want: enums.ReorderPriorityHigh},
		{available: 63, rop: 84, want: enums.ReorderPriorityMedium},
		{available: 64, rop: 84, want: enums.ReorderPriorityLow},
		{available: 84, rop: 84, want: enums.ReorderPriorityLow},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, env.engine.Priority(tc.available, tc.rop), "%d/%d", tc.available, tc.rop)
	}
}

func TestCheckReorderNeedsSortsByPriority(t *testing.T) {
	env := newEngineEnv(t, "autoreorder_check")
	low := env.seed(t, "Low", 80, 84, true)
	high := env.seed(t, "High", 10, 84, true)
	medium := env.seed(t, "Medium", 60, 84, true)
	env.seed(t, "Healthy", 200, 84, true)
	env.seed(t, "Opted Out", 0, 84, false)

	requests, err := env.engine.CheckReorderNeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 3)
	require.Equal(t, high, requests[0].ProductID)
	require.Equal(t, medium, requests[1].ProductID)
	require.Equal(t, low, requests[2].ProductID)
	require.Equal(t, "High", requests[0].Title)
	require.Equal(t, 70, requests[0].Quantity)
}

func TestProcessAutoReordersHonoursCooldown(t *testing.T) {
	env := newEngineEnv(t, "autoreorder_process")
	ctx := context.Background()
	id := env.seed(t, "Blue Dream", 0, 84, true)

	requests, err := env.engine.CheckReorderNeeds(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, enums.ReorderPriorityHigh, requests[0].Priority)

	count, err := env.engine.ProcessAutoReorders(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	record, err := env.ledger.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, record.LastReorderAt)
	require.True(t, record.LastReorderAt.Equal(env.now))

	require.Len(t, env.notifier.sent, 1)
	email := env.notifier.sent[0]
	require.Equal(t, enums.NotificationKindAutoReorder, email.Kind)
	require.Equal(t, "Smart Inventory: 1 Products Auto-Reordered", email.Subject)
	require.Contains(t, email.HTMLBody, "High Priority Reorders")
	require.Contains(t, email.HTMLBody, "Blue Dream")
	require.NotContains(t, email.HTMLBody, "Low Priority Reorders")

	env.now = env.now.Add(48 * time.Hour)
	requests, err = env.engine.CheckReorderNeeds(ctx)
	require.NoError(t, err)
	require.Empty(t, requests)
	count, err = env.engine.ProcessAutoReorders(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Len(t, env.notifier.sent, 1)

	env.now = env.now.Add(25 * time.Hour)
	requests, err = env.engine.CheckReorderNeeds(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
}

func TestProcessAutoReordersGroupsPriorities(t *testing.T) {
	env := newEngineEnv(t, "autoreorder_groups")
	env.seed(t, "Gummies <10mg>", 0, 84, true)
	env.seed(t, "Vape", 80, 84, true)

	count, err := env.engine.TriggerManual(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	body := env.notifier.sent[0].HTMLBody
	require.Contains(t, body, "Gummies &lt;10mg&gt;")
	require.Less(t, strings.Index(body, "High Priority Reorders"), strings.Index(body, "Low Priority Reorders"))
	require.Contains(t, body, "Total products to reorder: 2")
}

func TestToggleAutoReorderPlansMissingParameters(t *testing.T) {
	env := newEngineEnv(t, "autoreorder_toggle")
	ctx := context.Background()
	id := env.seed(t, "Tincture", 30, 0, false)

	require.NoError(t, env.engine.ToggleAutoReorder(ctx, id, true))

	record, err := env.ledger.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, record.AutoReorderEnabled)
	// Zero velocity floors daily demand at 0.1.
	require.Equal(t, 2, record.ReorderPoint)
	require.Equal(t, 5, record.OptimalOrderQuantity)

	require.NoError(t, env.engine.ToggleAutoReorder(ctx, id, false))
	record, err = env.ledger.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, record.AutoReorderEnabled)
	require.Equal(t, 2, record.ReorderPoint)
}

func TestToggleAutoReorderMissingRecord(t *testing.T) {
	env := newEngineEnv(t, "autoreorder_toggle_missing")
	err := env.engine.ToggleAutoReorder(context.Background(), uuid.New(), true)
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestUpdateReorderParameters(t *testing.T) {
	env := newEngineEnv(t, "autoreorder_update")
	id := env.seed(t, "Pre-roll", 30, 0, false)
	lead := 10

	record, err := env.engine.UpdateReorderParameters(context.Background(), id, inventory.ReorderSettings{
		ReorderPoint: 12, OptimalOrderQuantity: 40, LeadTimeDays: &lead,
	})
	require.NoError(t, err)
	require.Equal(t, 12, record.ReorderPoint)
	require.Equal(t, 40, record.OptimalOrderQuantity)
	require.Equal(t, 10, record.LeadTimeDays)
}
