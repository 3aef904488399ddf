package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
)

// Reserve holds qty units against the product. It returns false without an
// error when the record is missing or fewer than qty units are available; the
// record is left untouched in both cases.
func (s *Service) Reserve(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, validation("quantity must be > 0")
	}

	ok, err := s.repo.Reserve(ctx, productID, qty)
	if err != nil {
		return false, storeErr(err, "reserve stock")
	}
	if ok {
		s.metrics.IncReservation(metrics.OutcomeReserved)
		return true, nil
	}

	record, err := s.repo.Get(ctx, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	if record == nil {
		s.metrics.IncReservation(metrics.OutcomeNotFound)
	} else {
		s.metrics.IncReservation(metrics.OutcomeInsufficient)
	}
	return false, nil
}

// ReserveStrict behaves like Reserve but reports refusals as NOT_FOUND or
// INSUFFICIENT_STOCK errors.
func (s *Service) ReserveStrict(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, validation("quantity must be > 0")
	}

	ok, err := s.repo.Reserve(ctx, productID, qty)
	if err != nil {
		return nil, storeErr(err, "reserve stock")
	}

	record, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	switch {
	case ok:
		s.metrics.IncReservation(metrics.OutcomeReserved)
		return record, nil
	case record == nil:
		s.metrics.IncReservation(metrics.OutcomeNotFound)
		return nil, notFound(productID)
	default:
		s.metrics.IncReservation(metrics.OutcomeInsufficient)
		return nil, insufficient(productID, qty, record.AvailableStock)
	}
}

// Release returns qty reserved units to the available pool. Reserved stock is
// clamped at zero so a double release cannot push it negative.
func (s *Service) Release(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, validation("quantity must be > 0")
	}

	ok, err := s.repo.Release(ctx, productID, qty)
	if err != nil {
		return nil, storeErr(err, "release stock")
	}
	if !ok {
		s.metrics.IncReservation(metrics.OutcomeNotFound)
		return nil, notFound(productID)
	}
	s.metrics.IncReservation(metrics.OutcomeReleased)
	return s.Get(ctx, productID)
}

// ConfirmDeduction converts a reservation into a sale at order placement,
// removing qty from both current and reserved stock (each clamped at zero).
// The sale is appended to the product's sales history.
func (s *Service) ConfirmDeduction(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, validation("quantity must be > 0")
	}

	ok, err := s.repo.Confirm(ctx, productID, qty)
	if err != nil {
		return nil, storeErr(err, "confirm deduction")
	}
	if !ok {
		s.metrics.IncReservation(metrics.OutcomeNotFound)
		return nil, notFound(productID)
	}
	s.metrics.IncReservation(metrics.OutcomeConfirmed)

	// History is best effort once the deduction has committed.
	if err := s.RecordSale(ctx, productID, qty, s.now()); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"product_id": productID.String(),
			"quantity":   qty,
			"error":      err.Error(),
		}), "inventory.sale_history_failed")
	}
	return s.Get(ctx, productID)
}

// ReserveDelta maps a cart line quantity change onto the ledger: growth
// reserves the difference, shrinkage releases it. A refused growth returns
// INSUFFICIENT_STOCK or NOT_FOUND.
func (s *Service) ReserveDelta(ctx context.Context, productID uuid.UUID, oldQty, newQty int) error {
	if oldQty < 0 || newQty < 0 {
		return validation("quantities must be >= 0")
	}
	switch delta := newQty - oldQty; {
	case delta > 0:
		_, err := s.ReserveStrict(ctx, productID, delta)
		return err
	case delta < 0:
		_, err := s.Release(ctx, productID, -delta)
		return err
	default:
		return nil
	}
}
