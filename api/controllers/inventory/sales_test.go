package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/smart-inventory/internal/saleslog"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
)

type testSalesLog struct {
	appendFn func(ctx context.Context, input saleslog.AppendInput) (*models.SalesLog, error)
}

func (s *testSalesLog) Append(ctx context.Context, input saleslog.AppendInput) (*models.SalesLog, error) {
	return s.appendFn(ctx, input)
}

func TestAppendSalesLogStoresPurchase(t *testing.T) {
	productID := uuid.New()
	userID := uuid.New()
	orderID := uuid.New()
	at := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	svc := &testSalesLog{
		appendFn: func(_ context.Context, input saleslog.AppendInput) (*models.SalesLog, error) {
			require.Equal(t, productID, input.ProductID)
			require.Equal(t, userID, input.UserID)
			require.NotNil(t, input.OrderID)
			require.Equal(t, orderID, *input.OrderID)
			require.Equal(t, enums.SalesActionPurchased, input.Action)
			require.Equal(t, 2, input.Quantity)
			require.Equal(t, "70", input.TotalPrice.String())
			require.NotNil(t, input.Details.Purchased)
			require.True(t, at.Equal(input.At))
			return &models.SalesLog{ID: uuid.New(), ProductID: input.ProductID, Action: input.Action, Quantity: input.Quantity, CreatedAt: input.At}, nil
		},
	}

	body := `{"user_id":"` + userID.String() + `","order_id":"` + orderID.String() + `","action":"purchased",` +
		`"quantity":2,"total_price":"70","details":{"purchased":{"unit_price":"35","discount":"0"}},"at":"2026-03-14T18:30:00Z"}`
	req := withProductID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), productID.String())
	resp := httptest.NewRecorder()
	AppendSalesLog(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var envelope struct {
		Data struct {
			ProductID uuid.UUID `json:"product_id"`
			Action    string    `json:"action"`
			Quantity  int       `json:"quantity"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, productID, envelope.Data.ProductID)
	require.Equal(t, "purchased", envelope.Data.Action)
	require.Equal(t, 2, envelope.Data.Quantity)
}

func TestAppendSalesLogRejectsInvalidInput(t *testing.T) {
	svc := &testSalesLog{
		appendFn: func(context.Context, saleslog.AppendInput) (*models.SalesLog, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	userID := uuid.NewString()

	tests := []struct {
		name string
		body string
	}{
		{"missing user", `{"action":"viewed"}`},
		{"bad user id", `{"user_id":"nope","action":"viewed"}`},
		{"unknown action", `{"user_id":"` + userID + `","action":"returned"}`},
		{"negative quantity", `{"user_id":"` + userID + `","action":"purchased","quantity":-1}`},
		{"bad order id", `{"user_id":"` + userID + `","action":"purchased","quantity":1,"order_id":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withProductID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)), uuid.NewString())
			resp := httptest.NewRecorder()
			AppendSalesLog(svc, testLogger())(resp, req)
			require.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestAppendSalesLogUnavailableWithoutService(t *testing.T) {
	req := withProductID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), uuid.NewString())
	resp := httptest.NewRecorder()
	AppendSalesLog(nil, testLogger())(resp, req)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}
