package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
)

// Ground truth names accepted by NewReservationSource.
const (
	GroundTruthCartItems = "cart_items"
	GroundTruthLedger    = "ledger"
)

// ReservationSource reports how many units of a product are held by live reservations.
type ReservationSource interface {
	ActiveReserved(ctx context.Context, productID uuid.UUID) (int, error)
}

// CartReservationSource sums the quantities of active cart lines.
type CartReservationSource struct {
	db *gorm.DB
}

// NewCartReservationSource reads cart lines through db.
func NewCartReservationSource(db *gorm.DB) *CartReservationSource {
	return &CartReservationSource{db: db}
}

func (s *CartReservationSource) ActiveReserved(ctx context.Context, productID uuid.UUID) (int, error) {
	var total int
	err := s.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ? AND status IN ?", productID, enums.StockHoldingCartStatuses()).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

type recordReader interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error)
}

// LedgerReservationSource trusts the reserved count already on the record.
// Reconciliation then only repairs available stock.
type LedgerReservationSource struct {
	ledger recordReader
}

// NewLedgerReservationSource reads reserved counts from the ledger.
func NewLedgerReservationSource(ledger recordReader) *LedgerReservationSource {
	return &LedgerReservationSource{ledger: ledger}
}

func (s *LedgerReservationSource) ActiveReserved(ctx context.Context, productID uuid.UUID) (int, error) {
	record, err := s.ledger.Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	return record.ReservedStock, nil
}

// NewReservationSource picks the ground truth named in configuration. An empty
// kind means the ledger.
func NewReservationSource(kind string, db *gorm.DB, ledger recordReader) (ReservationSource, error) {
	switch kind {
	case "", GroundTruthLedger:
		if ledger == nil {
			return nil, fmt.Errorf("ledger required for %s ground truth", GroundTruthLedger)
		}
		return NewLedgerReservationSource(ledger), nil
	case GroundTruthCartItems:
		if db == nil {
			return nil, fmt.Errorf("database required for %s ground truth", GroundTruthCartItems)
		}
		return NewCartReservationSource(db), nil
	default:
		return nil, fmt.Errorf("unknown reservation ground truth %q", kind)
	}
}
