package inventory

import (
	"net/http"

	inventorydto "github.com/angelmondragon/smart-inventory/api/controllers/inventory/dto"
	"github.com/angelmondragon/smart-inventory/api/responses"
	"github.com/angelmondragon/smart-inventory/api/validators"
	"github.com/angelmondragon/smart-inventory/internal/autoreorder"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

// ToggleAutoReorder enables or disables automatic restocking for one product.
func ToggleAutoReorder(svc Reorders, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auto-reorder engine"))
			return
		}

		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventorydto.AutoReorderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"product_id": productID.String(),
			"enabled":    *payload.Enabled,
		})
		if err := svc.ToggleAutoReorder(ctx, productID, *payload.Enabled); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "autoreorder.toggled")
		responses.WriteSuccess(w, inventorydto.AutoReorderResponse{ProductID: productID, Enabled: *payload.Enabled})
	}
}

// UpdateReorderParameters overrides the planned reorder point and order size.
func UpdateReorderParameters(svc Reorders, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auto-reorder engine"))
			return
		}

		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventorydto.ReorderParametersRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithProductID(r.Context(), productID.String())
		record, err := svc.UpdateReorderParameters(ctx, productID, toReorderSettings(payload))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRecord(record))
	}
}

// PendingReorders lists opted-in products at or below their reorder point,
// most urgent first.
func PendingReorders(svc Reorders, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auto-reorder engine"))
			return
		}

		pending, err := svc.PendingReorders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if pending == nil {
			pending = []autoreorder.Request{}
		}
		responses.WriteSuccess(w, pending)
	}
}

// TriggerReorders runs the auto-reorder pass immediately.
func TriggerReorders(svc Reorders, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auto-reorder engine"))
			return
		}

		count, err := svc.TriggerManual(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventorydto.TriggerResponse{Reordered: count})
	}
}
