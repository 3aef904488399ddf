package inventory

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	inventorydto "github.com/angelmondragon/smart-inventory/api/controllers/inventory/dto"
	inventorysvc "github.com/angelmondragon/smart-inventory/internal/inventory"
	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
)

const productIDParam = "productId"

func productIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, productIDParam))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id").
			WithDetails(map[string]any{"field": productIDParam})
	}
	return id, nil
}

func toUpdateStockInput(payload inventorydto.UpdateStockRequest) inventorysvc.UpdateStockInput {
	return inventorysvc.UpdateStockInput{
		CurrentStock: payload.CurrentStock,
		Threshold:    payload.Threshold,
	}
}

func toReorderSettings(payload inventorydto.ReorderParametersRequest) inventorysvc.ReorderSettings {
	settings := inventorysvc.ReorderSettings{LeadTimeDays: payload.LeadTimeDays}
	if payload.ReorderPoint != nil {
		settings.ReorderPoint = *payload.ReorderPoint
	}
	if payload.OptimalOrderQuantity != nil {
		settings.OptimalOrderQuantity = *payload.OptimalOrderQuantity
	}
	return settings
}
