package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/smart-inventory/internal/forecast"
	"github.com/angelmondragon/smart-inventory/internal/reconcile"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

type fakeServices struct {
	calls      []string
	rollupDay  time.Time
	rollupErr  error
	rolled     []time.Time
	failOn     *time.Time
	last       *time.Time
	lastErr    error
	pruneAt    *time.Time
	exported   int
	lookAhead  int
	forecastOK forecast.BatchResult
}

func (f *fakeServices) RunAll(context.Context) (forecast.BatchResult, error) {
	f.calls = append(f.calls, "forecast")
	return f.forecastOK, nil
}

func (f *fakeServices) ProcessAutoReorders(context.Context) (int, error) {
	f.calls = append(f.calls, "reorder")
	return 2, nil
}

func (f *fakeServices) ValidateAll(context.Context) (reconcile.SweepResult, error) {
	f.calls = append(f.calls, "reconcile")
	return reconcile.SweepResult{Processed: 3}, nil
}

func (f *fakeServices) SendSelloutReport(_ context.Context, lookAhead int) (int, error) {
	f.calls = append(f.calls, "sellout")
	f.lookAhead = lookAhead
	return 1, nil
}

func (f *fakeServices) RollupDay(_ context.Context, day time.Time) ([]models.ProductDailyMetric, error) {
	f.calls = append(f.calls, "rollup")
	f.rollupDay = day
	f.rolled = append(f.rolled, day)
	if f.rollupErr != nil {
		return nil, f.rollupErr
	}
	if f.failOn != nil && f.failOn.Equal(day) {
		return nil, errors.New("rollup failed")
	}
	return []models.ProductDailyMetric{{ProductID: uuid.New(), Day: day, TotalSold: 4}}, nil
}

func (f *fakeServices) LastRollupDay(context.Context) (*time.Time, error) {
	return f.last, f.lastErr
}

func (f *fakeServices) PruneSalesHistory(_ context.Context, before time.Time) (int64, error) {
	f.calls = append(f.calls, "prune")
	f.pruneAt = &before
	return 0, nil
}

func (f *fakeServices) CheckLowStock(context.Context) (int, error) {
	f.calls = append(f.calls, "low-stock")
	return 0, nil
}

func (f *fakeServices) Export(_ context.Context, rows []models.ProductDailyMetric) error {
	f.calls = append(f.calls, "export")
	f.exported += len(rows)
	return nil
}

func newDefaultScheduler(t *testing.T, fake *fakeServices, withExporter bool) *Scheduler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	deps := JobDeps{
		Forecaster:  fake,
		AutoReorder: fake,
		Sweeper:     fake,
		SalesLog:    fake,
		Inventory:   fake,
		Logger:      logg,
		Now:         func() time.Time { return time.Date(2026, time.July, 2, 1, 0, 0, 0, time.UTC) },
	}
	if withExporter {
		deps.Exporter = fake
	}
	registry, err := DefaultRegistry(deps, config.SchedulerConfig{}, config.SweepConfig{StockoutLookAhead: 14})
	require.NoError(t, err)
	s, err := New(Params{Logger: logg, Registry: registry})
	require.NoError(t, err)
	return s
}

func TestDefaultRegistryNames(t *testing.T) {
	s := newDefaultScheduler(t, &fakeServices{}, false)
	var names []string
	for _, reg := range s.registry.Registrations() {
		names = append(names, reg.Job.Name())
	}
	require.Equal(t, []string{
		JobDemandForecasting,
		JobAutoReorder,
		JobDataMaintenance,
		JobInventoryReconciliation,
		JobSelloutReport,
	}, names)
}

func TestDefaultRegistryRequiresDeps(t *testing.T) {
	_, err := DefaultRegistry(JobDeps{}, config.SchedulerConfig{}, config.SweepConfig{})
	require.Error(t, err)
}

func TestMaintenanceJob(t *testing.T) {
	fake := &fakeServices{}
	s := newDefaultScheduler(t, fake, true)

	require.NoError(t, s.RunNow(context.Background(), JobDataMaintenance))
	require.Equal(t, []string{"rollup", "prune", "export", "low-stock"}, fake.calls)
	require.Equal(t, 1, fake.rollupDay.Day())
	require.NotNil(t, fake.pruneAt)
	require.True(t, fake.pruneAt.IsZero())
	require.Equal(t, 1, fake.exported)
}

func TestMaintenanceJobContinuesAfterFailure(t *testing.T) {
	fake := &fakeServices{rollupErr: errors.New("db down")}
	s := newDefaultScheduler(t, fake, true)

	err := s.RunNow(context.Background(), JobDataMaintenance)
	require.ErrorContains(t, err, "db down")
	require.Equal(t, []string{"rollup", "prune", "low-stock"}, fake.calls)
}

func utcDay(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 0, 0, 0, 0, time.UTC)
}

func TestMaintenanceJobCatchesUpMissedDays(t *testing.T) {
	last := utcDay(time.June, 28)
	fake := &fakeServices{last: &last}
	s := newDefaultScheduler(t, fake, true)

	require.NoError(t, s.RunNow(context.Background(), JobDataMaintenance))
	require.Equal(t, []time.Time{utcDay(time.June, 29), utcDay(time.June, 30), utcDay(time.July, 1)}, fake.rolled)
	require.Equal(t, []string{"rollup", "rollup", "rollup", "prune", "export", "low-stock"}, fake.calls)
	require.Equal(t, 3, fake.exported)
}

func TestMaintenanceJobRerollsYesterdayWhenCurrent(t *testing.T) {
	last := utcDay(time.July, 1)
	fake := &fakeServices{last: &last}
	s := newDefaultScheduler(t, fake, false)

	require.NoError(t, s.RunNow(context.Background(), JobDataMaintenance))
	require.Equal(t, []time.Time{utcDay(time.July, 1)}, fake.rolled)
}

func TestMaintenanceJobCapsCatchUp(t *testing.T) {
	last := utcDay(time.January, 1)
	fake := &fakeServices{last: &last}
	s := newDefaultScheduler(t, fake, false)

	require.NoError(t, s.RunNow(context.Background(), JobDataMaintenance))
	require.Len(t, fake.rolled, maxRollupCatchUp)
	require.Equal(t, utcDay(time.June, 1), fake.rolled[0])
	require.Equal(t, utcDay(time.July, 1), fake.rolled[len(fake.rolled)-1])
}

func TestMaintenanceJobStopsCatchUpAtFirstFailure(t *testing.T) {
	last := utcDay(time.June, 28)
	failOn := utcDay(time.June, 30)
	fake := &fakeServices{last: &last, failOn: &failOn}
	s := newDefaultScheduler(t, fake, true)

	err := s.RunNow(context.Background(), JobDataMaintenance)
	require.ErrorContains(t, err, "rollup failed")
	require.Equal(t, []time.Time{utcDay(time.June, 29), utcDay(time.June, 30)}, fake.rolled)
	require.Equal(t, []string{"rollup", "rollup", "prune", "export", "low-stock"}, fake.calls)
	require.Equal(t, 1, fake.exported)
}

func TestMaintenanceJobRollsUpYesterdayWhenLastDayUnknown(t *testing.T) {
	fake := &fakeServices{lastErr: errors.New("metrics table locked")}
	s := newDefaultScheduler(t, fake, false)

	err := s.RunNow(context.Background(), JobDataMaintenance)
	require.ErrorContains(t, err, "metrics table locked")
	require.Equal(t, []time.Time{utcDay(time.July, 1)}, fake.rolled)
}

func TestOtherJobsDelegate(t *testing.T) {
	fake := &fakeServices{}
	s := newDefaultScheduler(t, fake, false)
	ctx := context.Background()

	require.NoError(t, s.RunNow(ctx, JobDemandForecasting))
	require.NoError(t, s.RunNow(ctx, JobAutoReorder))
	require.NoError(t, s.RunNow(ctx, JobInventoryReconciliation))
	require.NoError(t, s.RunNow(ctx, JobSelloutReport))
	require.Equal(t, []string{"forecast", "reorder", "reconcile", "sellout"}, fake.calls)
	require.Equal(t, 14, fake.lookAhead)
}
