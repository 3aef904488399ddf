package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/smart-inventory/internal/autoreorder"
	"github.com/angelmondragon/smart-inventory/internal/forecast"
	"github.com/angelmondragon/smart-inventory/internal/reconcile"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

const (
	JobDemandForecasting       = "demand-forecasting"
	JobAutoReorder             = "auto-reorder"
	JobDataMaintenance         = "data-maintenance"
	JobInventoryReconciliation = "inventory-reconciliation"
	JobSelloutReport           = "sellout-report"
)

type forecaster interface {
	RunAll(ctx context.Context) (forecast.BatchResult, error)
}

type reorderer interface {
	ProcessAutoReorders(ctx context.Context) (int, error)
}

type sweeper interface {
	ValidateAll(ctx context.Context) (reconcile.SweepResult, error)
	SendSelloutReport(ctx context.Context, lookAheadDays int) (int, error)
}

type salesRollup interface {
	RollupDay(ctx context.Context, day time.Time) ([]models.ProductDailyMetric, error)
	LastRollupDay(ctx context.Context) (*time.Time, error)
}

// maxRollupCatchUp bounds how many missed days one maintenance run rolls up.
const maxRollupCatchUp = 31

type historyPruner interface {
	PruneSalesHistory(ctx context.Context, before time.Time) (int64, error)
	CheckLowStock(ctx context.Context) (int, error)
}

// MetricsExporter ships a day's rollup to the warehouse.
type MetricsExporter interface {
	Export(ctx context.Context, rows []models.ProductDailyMetric) error
}

// JobDeps are the services the default jobs drive. Exporter is optional.
type JobDeps struct {
	Forecaster  forecaster
	AutoReorder reorderer
	Sweeper     sweeper
	SalesLog    salesRollup
	Inventory   historyPruner
	Exporter    MetricsExporter
	Logger      *logger.Logger
	Now         func() time.Time
}

var (
	_ forecaster = (*forecast.Service)(nil)
	_ reorderer  = (*autoreorder.Engine)(nil)
	_ sweeper    = (*reconcile.Sweeper)(nil)
)

// DefaultRegistry registers the five inventory jobs on their configured schedules.
func DefaultRegistry(deps JobDeps, cfg config.SchedulerConfig, sweep config.SweepConfig) (*Registry, error) {
	if deps.Forecaster == nil || deps.AutoReorder == nil || deps.Sweeper == nil || deps.SalesLog == nil || deps.Inventory == nil {
		return nil, fmt.Errorf("scheduler job dependencies incomplete")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location()

	forecastEvery, err := Every(orDefault(cfg.ForecastInterval, 24*time.Hour))
	if err != nil {
		return nil, err
	}
	reorderEvery, err := Every(orDefault(cfg.AutoReorderInterval, 6*time.Hour))
	if err != nil {
		return nil, err
	}
	maintenanceAt, err := DailyAt(orDefaultClock(cfg.MaintenanceAt, "01:00"), loc)
	if err != nil {
		return nil, err
	}
	reconcileAt, err := DailyAt(orDefaultClock(cfg.ReconciliationAt, "03:00"), loc)
	if err != nil {
		return nil, err
	}
	reportAt, err := DailyAt(orDefaultClock(cfg.SelloutReportAt, "09:00"), loc)
	if err != nil {
		return nil, err
	}

	logg := deps.Logger
	return NewRegistry(
		Registration{Schedule: forecastEvery, Job: NewJobFunc(JobDemandForecasting, func(ctx context.Context) error {
			result, err := deps.Forecaster.RunAll(ctx)
			logg.Info(logg.WithFields(ctx, map[string]any{"processed": result.Processed, "failed": result.Failed}), "scheduler.forecast_done")
			return err
		})},
		Registration{Schedule: reorderEvery, Job: NewJobFunc(JobAutoReorder, func(ctx context.Context) error {
			count, err := deps.AutoReorder.ProcessAutoReorders(ctx)
			logg.Info(logg.WithField(ctx, "reordered", count), "scheduler.auto_reorder_done")
			return err
		})},
		Registration{Schedule: maintenanceAt, Job: NewJobFunc(JobDataMaintenance, func(ctx context.Context) error {
			return runMaintenance(ctx, deps, now)
		})},
		Registration{Schedule: reconcileAt, Job: NewJobFunc(JobInventoryReconciliation, func(ctx context.Context) error {
			result, err := deps.Sweeper.ValidateAll(ctx)
			logg.Info(logg.WithFields(ctx, map[string]any{"processed": result.Processed, "corrected": result.Corrected}), "scheduler.reconciliation_done")
			return err
		})},
		Registration{Schedule: reportAt, Job: NewJobFunc(JobSelloutReport, func(ctx context.Context) error {
			_, err := deps.Sweeper.SendSelloutReport(ctx, sweep.StockoutLookAhead)
			return err
		})},
	)
}

// runMaintenance rolls up every day since the last rollup through yesterday,
// prunes old history, exports the new rollups and sends the low-stock alert.
// Every step runs even if an earlier one fails.
func runMaintenance(ctx context.Context, deps JobDeps, now func() time.Time) error {
	var errs error
	yesterday := startOfDay(now()).AddDate(0, 0, -1)

	last, err := deps.SalesLog.LastRollupDay(ctx)
	errs = multierr.Append(errs, err)
	days := pendingRollupDays(last, yesterday)
	if len(days) > 1 && deps.Logger != nil {
		deps.Logger.Info(deps.Logger.WithFields(ctx, map[string]any{
			"from": days[0].Format(time.DateOnly),
			"days": len(days),
		}), "scheduler.rollup_catch_up")
	}

	var rows []models.ProductDailyMetric
	for _, day := range days {
		dayRows, err := deps.SalesLog.RollupDay(ctx, day)
		if err != nil {
			// Later days stay pending so the gap is retried next run.
			errs = multierr.Append(errs, err)
			break
		}
		rows = append(rows, dayRows...)
	}

	if _, err := deps.Inventory.PruneSalesHistory(ctx, time.Time{}); err != nil {
		errs = multierr.Append(errs, err)
	}

	if deps.Exporter != nil && len(rows) > 0 {
		errs = multierr.Append(errs, deps.Exporter.Export(ctx, rows))
	}

	if _, err := deps.Inventory.CheckLowStock(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// pendingRollupDays lists the days after last through yesterday, oldest first,
// capped at maxRollupCatchUp. Yesterday is always included.
func pendingRollupDays(last *time.Time, yesterday time.Time) []time.Time {
	from := yesterday
	if last != nil {
		from = startOfDay(*last).AddDate(0, 0, 1)
	}
	if earliest := yesterday.AddDate(0, 0, -(maxRollupCatchUp - 1)); from.Before(earliest) {
		from = earliest
	}
	if from.After(yesterday) {
		from = yesterday
	}

	var days []time.Time
	for day := from; !day.After(yesterday); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func orDefaultClock(clock, fallback string) string {
	if clock == "" {
		return fallback
	}
	return clock
}
