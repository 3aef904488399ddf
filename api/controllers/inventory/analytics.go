package inventory

import (
	"net/http"

	inventorydto "github.com/angelmondragon/smart-inventory/api/controllers/inventory/dto"
	"github.com/angelmondragon/smart-inventory/api/responses"
	"github.com/angelmondragon/smart-inventory/api/validators"
	"github.com/angelmondragon/smart-inventory/internal/reconcile"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

// Forecast projects demand for one product and re-plans its reorder
// parameters from the fresh velocity.
func Forecast(forecaster Forecaster, planner Planner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if forecaster == nil || planner == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("forecaster"))
			return
		}

		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithProductID(r.Context(), productID.String())
		result, err := forecaster.Forecast(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventorydto.ForecastResponse{
			Forecast: result,
			Plan:     planner.Plan(ctx, productID),
		})
	}
}

// ReconcileProduct repairs reserved and available stock for one product.
func ReconcileProduct(svc Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reconciliation sweeper"))
			return
		}

		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Reconcile(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// ReconcileAll sweeps the whole ledger. Per-record failures are counted in
// the result rather than failing the request.
func ReconcileAll(svc Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reconciliation sweeper"))
			return
		}

		result, err := svc.ValidateAll(r.Context())
		if err != nil && result.Processed == 0 && result.Failed == 0 {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil {
			logg.Warn(logg.WithField(r.Context(), "failed", result.Failed), "reconcile.sweep_partial")
		}
		responses.WriteSuccess(w, result)
	}
}

// StockoutRisks lists products expected to sell out within the look-ahead window.
func StockoutRisks(svc Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reconciliation sweeper"))
			return
		}

		days, err := validators.ParseQueryInt(r, "days", 0, 0, maxLookAheadDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		risks, err := svc.CheckStockoutRisks(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if risks == nil {
			risks = []reconcile.Risk{}
		}
		responses.WriteSuccess(w, risks)
	}
}
