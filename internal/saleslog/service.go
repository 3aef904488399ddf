package saleslog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/types"
)

// DailyTotal is one day of purchased units for a product.
type DailyTotal struct {
	Day       time.Time
	TotalSold int
}

// AppendInput is one activity event reported by the cart and order flows.
type AppendInput struct {
	UserID     uuid.UUID
	ProductID  uuid.UUID
	OrderID    *uuid.UUID
	Action     enums.SalesAction
	Quantity   int
	TotalPrice decimal.Decimal
	Details    types.SalesLogDetails
	At         time.Time
}

// Service is the read/append surface over the sales log.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the sales log service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales log repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg, now: time.Now}, nil
}

// Append validates and stores one activity event.
func (s *Service) Append(ctx context.Context, input AppendInput) (*models.SalesLog, error) {
	if input.ProductID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sales action %q", input.Action))
	}
	if input.Quantity < 0 || (input.Action == enums.SalesActionPurchased && input.Quantity == 0) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity for sales action")
	}
	if err := input.Details.Validate(input.Action); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sales log details")
	}

	at := input.At
	if at.IsZero() {
		at = s.now()
	}
	log := &models.SalesLog{
		ID:         uuid.New(),
		UserID:     input.UserID,
		ProductID:  input.ProductID,
		OrderID:    input.OrderID,
		Action:     input.Action,
		Quantity:   input.Quantity,
		TotalPrice: input.TotalPrice,
		Details:    input.Details,
		CreatedAt:  at.UTC(),
	}
	if err := s.repo.Create(ctx, log); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append sales log")
	}
	return log, nil
}

// PurchasedSince sums purchased units for the product since the given time.
func (s *Service) PurchasedSince(ctx context.Context, productID uuid.UUID, since time.Time) (int, error) {
	total, err := s.repo.SumPurchased(ctx, productID, since.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum purchased units")
	}
	return total, nil
}

// RollupDay rebuilds the daily metrics for the UTC day containing day and
// returns the rows written.
func (s *Service) RollupDay(ctx context.Context, day time.Time) ([]models.ProductDailyMetric, error) {
	start := StartOfDay(day)
	if _, err := s.repo.UpsertDailyMetrics(ctx, start, start.AddDate(0, 0, 1)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "roll up daily metrics")
	}
	metrics, err := s.repo.ListMetricsForDay(ctx, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list daily metrics")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"day":      start.Format(time.DateOnly),
		"products": len(metrics),
	}), "saleslog.rollup_complete")
	return metrics, nil
}

// LastRollupDay returns the latest day present in the daily metrics, or nil
// when nothing has been rolled up yet.
func (s *Service) LastRollupDay(ctx context.Context) (*time.Time, error) {
	day, err := s.repo.LatestMetricDay(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "latest daily metric")
	}
	if day == nil {
		return nil, nil
	}
	start := StartOfDay(*day)
	return &start, nil
}

// DailyTotals returns the product's daily purchased units, oldest first. A nil
// since returns the full history.
func (s *Service) DailyTotals(ctx context.Context, productID uuid.UUID, since *time.Time) ([]DailyTotal, error) {
	var from *time.Time
	if since != nil {
		start := StartOfDay(*since)
		from = &start
	}
	metrics, err := s.repo.ListDailyMetrics(ctx, productID, from)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list daily metrics")
	}
	out := make([]DailyTotal, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, DailyTotal{Day: m.Day.UTC(), TotalSold: m.TotalSold})
	}
	return out, nil
}

// TotalSoldSince sums rolled-up purchased units per product.
func (s *Service) TotalSoldSince(ctx context.Context, productIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	totals, err := s.repo.SumTotalSold(ctx, productIDs, StartOfDay(since))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum total sold")
	}
	return totals, nil
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
