package inventory

import (
	"net/http"

	"github.com/google/uuid"

	inventorydto "github.com/angelmondragon/smart-inventory/api/controllers/inventory/dto"
	"github.com/angelmondragon/smart-inventory/api/responses"
	"github.com/angelmondragon/smart-inventory/api/validators"
	"github.com/angelmondragon/smart-inventory/internal/saleslog"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

// AppendSalesLog stores one viewed, added-to-cart or purchased event for the
// product. Purchased events feed velocity and trend.
func AppendSalesLog(svc SalesLog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("sales log"))
			return
		}

		productID, err := productIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventorydto.SalesLogRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := toAppendInput(productID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"product_id": productID.String(),
			"action":     payload.Action,
		})
		entry, err := svc.Append(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Debug(ctx, "saleslog.appended")
		responses.WriteSuccessStatus(w, http.StatusCreated, inventorydto.SalesLog{
			ID:        entry.ID,
			ProductID: entry.ProductID,
			Action:    entry.Action.String(),
			Quantity:  entry.Quantity,
			CreatedAt: entry.CreatedAt,
		})
	}
}

func toAppendInput(productID uuid.UUID, payload inventorydto.SalesLogRequest) (saleslog.AppendInput, error) {
	action, err := enums.ParseSalesAction(payload.Action)
	if err != nil {
		return saleslog.AppendInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action")
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return saleslog.AppendInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	input := saleslog.AppendInput{
		UserID:     userID,
		ProductID:  productID,
		Action:     action,
		Quantity:   payload.Quantity,
		TotalPrice: payload.TotalPrice,
		Details:    payload.Details,
	}
	if payload.OrderID != "" {
		orderID, err := uuid.Parse(payload.OrderID)
		if err != nil {
			return saleslog.AppendInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
		}
		input.OrderID = &orderID
	}
	if payload.At != nil {
		input.At = *payload.At
	}
	return input, nil
}
