package forecast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/smart-inventory/internal/catalog"
	"github.com/angelmondragon/smart-inventory/internal/inventory"
	"github.com/angelmondragon/smart-inventory/internal/reorder"
	"github.com/angelmondragon/smart-inventory/internal/saleslog"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
	"github.com/angelmondragon/smart-inventory/pkg/types"
)

const comparableHistoryDays = 90

type ledger interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
	ApplyForecast(ctx context.Context, productID uuid.UUID, update inventory.ForecastUpdate) error
	Batch(ctx context.Context, after *uuid.UUID, limit int) ([]models.InventoryRecord, error)
}

type salesSource interface {
	PurchasedSince(ctx context.Context, productID uuid.UUID, since time.Time) (int, error)
	TotalSoldSince(ctx context.Context, productIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error)
}

// HistorySource returns a product's daily purchased units, oldest first.
type HistorySource interface {
	DailyTotals(ctx context.Context, productID uuid.UUID, since *time.Time) ([]saleslog.DailyTotal, error)
}

type productCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByCategory(ctx context.Context, category string, exclude uuid.UUID, limit int) ([]models.Product, error)
}

type planner interface {
	Plan(ctx context.Context, productID uuid.UUID) reorder.Parameters
}

// Params wires the forecaster.
type Params struct {
	Ledger    ledger
	Sales     salesSource
	History   HistorySource
	Catalog   productCatalog
	Planner   planner
	Estimator Estimator
	Metrics   *metrics.InventoryMetrics
	Logger    *logger.Logger
	Config    config.ForecastConfig
}

// Service derives velocity, seasonality, trend and projected demand from the
// sales log and persists them on the ledger.
type Service struct {
	ledger    ledger
	sales     salesSource
	history   HistorySource
	catalog   productCatalog
	planner   planner
	estimator Estimator
	metrics   *metrics.InventoryMetrics
	logg      *logger.Logger
	cfg       config.ForecastConfig
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewService validates dependencies and applies window defaults. Estimator may be nil.
func NewService(p Params) (*Service, error) {
	if p.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if p.Sales == nil {
		return nil, fmt.Errorf("sales source required")
	}
	if p.History == nil {
		return nil, fmt.Errorf("history source required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if p.Planner == nil {
		return nil, fmt.Errorf("planner required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	cfg := p.Config
	if cfg.VelocityWindowDays <= 0 {
		cfg.VelocityWindowDays = 30
	}
	if cfg.TrendWindowDays <= 0 {
		cfg.TrendWindowDays = 60
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 30
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.3
	}
	if cfg.Comparables <= 0 {
		cfg.Comparables = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}

	return &Service{
		ledger:    p.Ledger,
		sales:     p.Sales,
		history:   p.History,
		catalog:   p.Catalog,
		planner:   p.Planner,
		estimator: p.Estimator,
		metrics:   p.Metrics,
		logg:      p.Logger,
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepContext,
	}, nil
}

// SalesVelocity computes and persists units sold per day over the velocity window.
func (s *Service) SalesVelocity(ctx context.Context, productID uuid.UUID) (float64, error) {
	since := s.now().UTC().AddDate(0, 0, -s.cfg.VelocityWindowDays)
	total, err := s.sales.PurchasedSince(ctx, productID, since)
	if err != nil {
		return 0, err
	}
	velocity := Velocity(total, s.cfg.VelocityWindowDays)
	if err := s.ledger.ApplyForecast(ctx, productID, inventory.ForecastUpdate{SalesVelocity: &velocity}); err != nil {
		return 0, err
	}
	return velocity, nil
}

// Seasonality computes and persists monthly demand factors from the full
// daily history. No history means no factors and no write.
func (s *Service) Seasonality(ctx context.Context, productID uuid.UUID) (types.Seasonality, error) {
	totals, err := s.history.DailyTotals(ctx, productID, nil)
	if err != nil {
		return types.Seasonality{}, err
	}
	factors, ok := ComputeSeasonality(totals)
	if !ok {
		return types.Seasonality{}, nil
	}
	if err := s.ledger.ApplyForecast(ctx, productID, inventory.ForecastUpdate{Seasonality: &factors}); err != nil {
		return types.Seasonality{}, err
	}
	return factors, nil
}

// SalesTrend classifies daily sales across the trend window.
func (s *Service) SalesTrend(ctx context.Context, productID uuid.UUID) (Trend, error) {
	since := s.now().UTC().AddDate(0, 0, -s.cfg.TrendWindowDays)
	points, err := s.history.DailyTotals(ctx, productID, &since)
	if err != nil {
		return stableTrend(), err
	}
	return ComputeTrend(points), nil
}

// Result is one demand projection.
type Result struct {
	ProductID      uuid.UUID            `json:"product_id"`
	Velocity       float64              `json:"velocity"`
	Trend          Trend                `json:"trend"`
	SeasonalFactor float64              `json:"seasonal_factor"`
	Forecast       int                  `json:"forecasted_demand"`
	Source         enums.ForecastSource `json:"source"`
}

// Forecast projects demand over the horizon and persists it. Thin or noisy
// history escalates to the estimator, whose answer replaces the projection
// only when it parses to a positive number.
func (s *Service) Forecast(ctx context.Context, productID uuid.UUID) (*Result, error) {
	ctx = s.logg.WithProductID(ctx, productID.String())

	record, err := s.ledger.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	velocity, err := s.SalesVelocity(ctx, productID)
	if err != nil {
		return nil, err
	}
	seasonality, err := s.Seasonality(ctx, productID)
	if err != nil {
		return nil, err
	}
	trend, err := s.SalesTrend(ctx, productID)
	if err != nil {
		return nil, err
	}

	factor := seasonality.Factor(s.now().Month())
	demand := Demand(velocity, trend, factor, s.cfg.HorizonDays)
	if err := s.ledger.ApplyForecast(ctx, productID, inventory.ForecastUpdate{ForecastedDemand: &demand}); err != nil {
		return nil, err
	}

	result := &Result{
		ProductID:      productID,
		Velocity:       velocity,
		Trend:          trend,
		SeasonalFactor: factor,
		Forecast:       demand,
		Source:         enums.ForecastSourceData,
	}

	if s.estimator != nil && (velocity == 0 || trend.Confidence < s.cfg.MinConfidence) {
		if estimate, ok := s.estimate(ctx, product, record); ok {
			if err := s.ledger.ApplyForecast(ctx, productID, inventory.ForecastUpdate{ForecastedDemand: &estimate}); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "forecast.estimate_not_saved")
			} else {
				result.Forecast = estimate
				result.Source = enums.ForecastSourceEstimator
			}
		}
	}

	s.metrics.IncForecast(string(result.Source))
	return result, nil
}

func (s *Service) estimate(ctx context.Context, product *models.Product, record *models.InventoryRecord) (int, bool) {
	req := EstimateRequest{
		Title:        product.Title,
		Categories:   product.Categories,
		Price:        product.Price,
		Discount:     product.Discount,
		CurrentStock: record.CurrentStock,
		HorizonDays:  s.cfg.HorizonDays,
		Comparables:  s.comparables(ctx, product),
	}

	reply, err := s.estimator.Estimate(ctx, req)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", fmt.Errorf("%w: %v", ErrEstimation, err).Error()), "forecast.estimate_failed")
		return 0, false
	}
	value, ok := ParseEstimate(reply)
	if !ok {
		s.logg.Warn(s.logg.WithField(ctx, "reply", reply), "forecast.estimate_unparsable")
		return 0, false
	}
	return value, true
}

func (s *Service) comparables(ctx context.Context, product *models.Product) []Comparable {
	category := catalog.PrimaryCategory(*product)
	if category == "" {
		return nil
	}
	peers, err := s.catalog.ListByCategory(ctx, category, product.ID, s.cfg.Comparables)
	if err != nil || len(peers) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.ID)
	}
	sold, err := s.sales.TotalSoldSince(ctx, ids, s.now().UTC().AddDate(0, 0, -comparableHistoryDays))
	if err != nil {
		sold = map[uuid.UUID]int{}
	}

	out := make([]Comparable, 0, len(peers))
	for _, p := range peers {
		c := Comparable{Title: p.Title, Price: p.Price, TotalSold: sold[p.ID]}
		if rec, err := s.ledger.Get(ctx, p.ID); err == nil && rec != nil {
			c.SalesVelocity = rec.SalesVelocity
		}
		out = append(out, c)
	}
	return out
}

// BatchResult counts one forecasting sweep.
type BatchResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// RunAll forecasts and re-plans every ledger record in paced batches.
func (s *Service) RunAll(ctx context.Context) (BatchResult, error) {
	var (
		total  BatchResult
		errs   error
		cursor *uuid.UUID
	)
	for {
		records, err := s.ledger.Batch(ctx, cursor, s.cfg.BatchSize)
		if err != nil {
			return total, multierr.Append(errs, err)
		}
		if len(records) == 0 {
			break
		}
		if cursor != nil {
			if err := s.sleep(ctx, s.cfg.BatchPause); err != nil {
				return total, multierr.Append(errs, err)
			}
		}

		ids := make([]uuid.UUID, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ProductID)
		}
		result, err := s.runBatch(ctx, ids)
		total.Processed += result.Processed
		total.Failed += result.Failed
		errs = multierr.Append(errs, err)

		last := records[len(records)-1].ProductID
		cursor = &last
		if len(records) < s.cfg.BatchSize {
			break
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"processed": total.Processed,
		"failed":    total.Failed,
	}), "forecast.sweep_complete")
	return total, errs
}

// RunBatch forecasts and re-plans the given products, BatchSize at a time
// with BatchPause between groups. Per-product failures are aggregated.
func (s *Service) RunBatch(ctx context.Context, productIDs []uuid.UUID) (BatchResult, error) {
	var (
		total BatchResult
		errs  error
	)
	for start := 0; start < len(productIDs); start += s.cfg.BatchSize {
		if start > 0 {
			if err := s.sleep(ctx, s.cfg.BatchPause); err != nil {
				return total, multierr.Append(errs, err)
			}
		}
		end := min(start+s.cfg.BatchSize, len(productIDs))
		result, err := s.runBatch(ctx, productIDs[start:end])
		total.Processed += result.Processed
		total.Failed += result.Failed
		errs = multierr.Append(errs, err)
	}
	return total, errs
}

func (s *Service) runBatch(ctx context.Context, productIDs []uuid.UUID) (BatchResult, error) {
	var (
		mu     sync.Mutex
		result BatchResult
		errs   error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range productIDs {
		g.Go(func() error {
			err := s.forecastAndPlan(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				errs = multierr.Append(errs, fmt.Errorf("product %s: %w", id, err))
				s.logg.Error(s.logg.WithProductID(ctx, id.String()), "forecast.product_failed", err)
				return nil
			}
			result.Processed++
			return nil
		})
	}
	_ = g.Wait()
	return result, errs
}

func (s *Service) forecastAndPlan(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.Forecast(ctx, productID); err != nil {
		return err
	}
	s.planner.Plan(ctx, productID)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
