// Package reconcile repairs ledger drift and reports products about to sell out.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/smart-inventory/internal/notifications"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
)

type ledger interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
	Batch(ctx context.Context, after *uuid.UUID, limit int) ([]models.InventoryRecord, error)
	InStock(ctx context.Context) ([]models.InventoryRecord, error)
	OverwriteReserved(ctx context.Context, productID uuid.UUID, reserved int) error
	WithProductLock(ctx context.Context, productID uuid.UUID, fn func(ctx context.Context) error) error
}

type productReader interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Params wires the sweeper.
type Params struct {
	Ledger       ledger
	Reservations ReservationSource
	Catalog      productReader
	Notifier     notifications.Notifier
	Metrics      *metrics.InventoryMetrics
	Logger       *logger.Logger
	Config       config.SweepConfig
	AdminEmail   string
}

// Sweeper reconciles ledger records against live reservations.
type Sweeper struct {
	ledger       ledger
	reservations ReservationSource
	catalog      productReader
	notifier     notifications.Notifier
	metrics      *metrics.InventoryMetrics
	logg         *logger.Logger
	cfg          config.SweepConfig
	adminEmail   string
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewSweeper validates dependencies and applies batch defaults.
func NewSweeper(p Params) (*Sweeper, error) {
	if p.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if p.Reservations == nil {
		return nil, fmt.Errorf("reservation source required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if p.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.AdminEmail == "" {
		return nil, fmt.Errorf("admin email required")
	}

	cfg := p.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.StockoutLookAhead <= 0 {
		cfg.StockoutLookAhead = 14
	}

	return &Sweeper{
		ledger:       p.Ledger,
		reservations: p.Reservations,
		catalog:      p.Catalog,
		notifier:     p.Notifier,
		metrics:      p.Metrics,
		logg:         p.Logger,
		cfg:          cfg,
		adminEmail:   p.AdminEmail,
		now:          time.Now,
		sleep:        sleepContext,
	}, nil
}

// Snapshot is a record before and after reconciliation.
type Snapshot struct {
	ProductID         uuid.UUID `json:"product_id"`
	PreviousStock     int       `json:"previous_stock"`
	PreviousReserved  int       `json:"previous_reserved"`
	PreviousAvailable int       `json:"previous_available"`
	CurrentStock      int       `json:"current_stock"`
	ReservedStock     int       `json:"reserved_stock"`
	AvailableStock    int       `json:"available_stock"`
	WasCorrected      bool      `json:"was_corrected"`
}

// Reconcile recomputes reserved and available stock under the product lock
// and writes only when either drifted. Reserved stock is capped at current stock.
func (s *Sweeper) Reconcile(ctx context.Context, productID uuid.UUID) (*Snapshot, error) {
	var snap *Snapshot
	err := s.ledger.WithProductLock(ctx, productID, func(ctx context.Context) error {
		record, err := s.ledger.Get(ctx, productID)
		if err != nil {
			return err
		}
		reserved, err := s.reservations.ActiveReserved(ctx, productID)
		if err != nil {
			return fmt.Errorf("active reservations for %s: %w", productID, err)
		}
		if reserved > record.CurrentStock {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"product_id":    productID.String(),
				"reserved":      reserved,
				"current_stock": record.CurrentStock,
			}), "reconcile.reserved_exceeds_stock")
			reserved = record.CurrentStock
		}
		available := record.CurrentStock - reserved

		snap = &Snapshot{
			ProductID:         productID,
			PreviousStock:     record.CurrentStock,
			PreviousReserved:  record.ReservedStock,
			PreviousAvailable: record.AvailableStock,
			CurrentStock:      record.CurrentStock,
			ReservedStock:     reserved,
			AvailableStock:    available,
		}
		if reserved == record.ReservedStock && available == record.AvailableStock {
			return nil
		}
		if err := s.ledger.OverwriteReserved(ctx, productID, reserved); err != nil {
			return err
		}
		snap.WasCorrected = true
		s.metrics.IncCorrection()
		s.logg.Info(s.logg.WithFields(s.logg.WithProductID(ctx, productID.String()), map[string]any{
			"previous_reserved":  record.ReservedStock,
			"previous_available": record.AvailableStock,
			"reserved":           reserved,
			"available":          available,
		}), "reconcile.corrected")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// SweepResult counts one reconciliation pass.
type SweepResult struct {
	Processed int `json:"processed"`
	Corrected int `json:"corrected"`
	Failed    int `json:"failed"`
}

// ValidateAll reconciles every record in batches, pausing between batches.
// Per-record failures are logged and counted, and returned together at the end.
func (s *Sweeper) ValidateAll(ctx context.Context) (SweepResult, error) {
	var (
		total  SweepResult
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

		result, err := s.reconcileBatch(ctx, records)
		total.Processed += result.Processed
		total.Corrected += result.Corrected
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
		"corrected": total.Corrected,
		"failed":    total.Failed,
	}), "reconcile.sweep_complete")
	return total, errs
}

func (s *Sweeper) reconcileBatch(ctx context.Context, records []models.InventoryRecord) (SweepResult, error) {
	var (
		mu     sync.Mutex
		result SweepResult
		errs   error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range records {
		g.Go(func() error {
			snap, err := s.Reconcile(gctx, r.ProductID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				errs = multierr.Append(errs, fmt.Errorf("product %s: %w", r.ProductID, err))
				s.logg.Error(s.logg.WithProductID(ctx, r.ProductID.String()), "reconcile.product_failed", err)
				return nil
			}
			result.Processed++
			if snap.WasCorrected {
				result.Corrected++
			}
			return nil
		})
	}
	_ = g.Wait()
	return result, errs
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
