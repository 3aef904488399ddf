package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
	"github.com/angelmondragon/smart-inventory/pkg/types"
)

// ForecastUpdate carries forecaster outputs; nil fields are left alone.
type ForecastUpdate struct {
	SalesVelocity    *float64
	Seasonality      *types.Seasonality
	ForecastedDemand *int
}

// ApplyForecast persists forecaster outputs.
func (s *Service) ApplyForecast(ctx context.Context, productID uuid.UUID, update ForecastUpdate) error {
	fields := map[string]any{}
	if update.SalesVelocity != nil {
		fields["sales_velocity"] = *update.SalesVelocity
	}
	if update.Seasonality != nil {
		fields["seasonality"] = *update.Seasonality
	}
	if update.ForecastedDemand != nil {
		fields["forecasted_demand"] = *update.ForecastedDemand
	}
	if len(fields) == 0 {
		return nil
	}
	return s.update(ctx, productID, fields)
}

// MarkReordered stamps the reorder cooldown.
func (s *Service) MarkReordered(ctx context.Context, productID uuid.UUID, at time.Time) error {
	return s.update(ctx, productID, map[string]any{"last_reorder_at": at.UTC()})
}

// ReorderCandidates returns opted-in records at or below their reorder point
// whose last reorder is older than cutoff.
func (s *Service) ReorderCandidates(ctx context.Context, cutoff time.Time) ([]models.InventoryRecord, error) {
	records, err := s.repo.ListReorderCandidates(ctx, cutoff.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reorder candidates")
	}
	return records, nil
}

// Batch pages through every record by product id.
func (s *Service) Batch(ctx context.Context, after *uuid.UUID, limit int) ([]models.InventoryRecord, error) {
	records, err := s.repo.ListBatch(ctx, after, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory batch")
	}
	return records, nil
}

// InStock returns every record with stock on hand.
func (s *Service) InStock(ctx context.Context) ([]models.InventoryRecord, error) {
	records, err := s.repo.ListInStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list in-stock inventory")
	}
	return records, nil
}

// OverwriteReserved replaces reserved stock with a recomputed value. Callers
// must hold the product lock.
func (s *Service) OverwriteReserved(ctx context.Context, productID uuid.UUID, reserved int) error {
	if reserved < 0 {
		return validation("reserved stock must be >= 0")
	}
	if err := s.repo.SetReserved(ctx, productID, reserved); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "overwrite reserved stock")
	}
	return nil
}

// WithProductLock runs fn under the per-product guard.
func (s *Service) WithProductLock(ctx context.Context, productID uuid.UUID, fn func(ctx context.Context) error) error {
	return s.guard.WithLock(ctx, productID.String(), fn)
}
