package inventory

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	inventorydto "github.com/angelmondragon/smart-inventory/api/controllers/inventory/dto"
	"github.com/angelmondragon/smart-inventory/api/responses"
	"github.com/angelmondragon/smart-inventory/api/validators"
	inventorysvc "github.com/angelmondragon/smart-inventory/internal/inventory"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

const (
	defaultPageSize     = 20
	maxPageSize         = 100
	defaultLowStockSize = 50
	maxLookAheadDays    = 365
)

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}

// List pages through the ledger, scarcest stock first.
func List(svc Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultPageSize, 1, maxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), inventorysvc.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRecordPage(result))
	}
}

// Overview returns stock-state counts plus the most critical records.
func Overview(svc Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}

		overview, err := svc.Overview(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOverview(overview))
	}
}

// LowStock lists records at or below their threshold.
func LowStock(svc Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultLowStockSize, 1, maxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListLowStock(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRecords(records))
	}
}

// Get returns one ledger record.
func Get(svc Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}

		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRecord(record))
	}
}

// Update applies a manual stock count or threshold change.
func Update(svc Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}

		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventorydto.UpdateStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithProductID(r.Context(), productID.String())
		record, err := svc.UpdateStock(ctx, productID, toUpdateStockInput(payload))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "inventory.stock_updated")
		responses.WriteSuccess(w, newRecord(record))
	}
}

type quantityOp func(ctx context.Context, productID uuid.UUID, qty int) (*models.InventoryRecord, error)

func quantityHandler(name string, op func(Ledger) quantityOp, svc Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}

		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventorydto.QuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"product_id": productID.String(),
			"quantity":   payload.Quantity,
		})
		record, err := op(svc)(ctx, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "inventory."+name)
		responses.WriteSuccess(w, inventorydto.ReservationResponse{
			Quantity: payload.Quantity,
			Record:   newRecord(record),
		})
	}
}

// Reserve holds units for a cart line. Refusals surface as NOT_FOUND or
// INSUFFICIENT_STOCK.
func Reserve(svc Ledger, logg *logger.Logger) http.HandlerFunc {
	return quantityHandler("reserved", func(l Ledger) quantityOp { return l.ReserveStrict }, svc, logg)
}

// Release returns held units to available stock.
func Release(svc Ledger, logg *logger.Logger) http.HandlerFunc {
	return quantityHandler("released", func(l Ledger) quantityOp { return l.Release }, svc, logg)
}

// Confirm converts held units into a sale.
func Confirm(svc Ledger, logg *logger.Logger) http.HandlerFunc {
	return quantityHandler("confirmed", func(l Ledger) quantityOp { return l.ConfirmDeduction }, svc, logg)
}
