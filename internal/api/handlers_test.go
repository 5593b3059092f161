package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inventoryledger/internal/api"
	"inventoryledger/internal/fulfillment"
	"inventoryledger/internal/inventory"
	"inventoryledger/internal/platform/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubApplier struct {
	got     fulfillment.Transition
	results []inventory.StockAdjustment
	err     error
}

func (a *stubApplier) ApplyTransition(_ context.Context, t fulfillment.Transition) ([]inventory.StockAdjustment, error) {
	a.got = t
	return a.results, a.err
}

func newServer(t *testing.T, applier fulfillment.Applier, ledger inventory.Ledger) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(applier, ledger, zaptest.NewLogger(t))))
	t.Cleanup(srv.Close)
	return srv
}

func postTransition(t *testing.T, srv *httptest.Server, orderID, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/orders/"+orderID+"/transitions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestApplyTransition(t *testing.T) {
	applier := &stubApplier{results: []inventory.StockAdjustment{
		{ProductID: "P", Before: 50, After: 70, Delta: 20, Kind: inventory.KindProductionCompleted},
	}}
	srv := newServer(t, applier, memstore.New())

	resp := postTransition(t, srv, "O-1", `{"from":"producing","to":"produced","production_quantity":20}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body api.TransitionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "O-1", body.OrderID)
	assert.Equal(t, applier.results, body.Adjustments)
	assert.Equal(t, fulfillment.Transition{
		OrderID: "O-1", From: fulfillment.StatusProducing, To: fulfillment.StatusProduced, ProductionQuantity: 20,
	}, applier.got)
}

func TestApplyTransitionErrors(t *testing.T) {
	partial := &fulfillment.PartialStockUpdateError{
		OrderID:   "O",
		ProductID: "P2",
		Applied:   []inventory.StockAdjustment{{ProductID: "P1", Before: 10, After: 12, Delta: 2, Kind: inventory.KindProductionCompleted}},
		Err:       errors.New("lock timeout"),
	}

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"bad json", `{`, nil, http.StatusBadRequest, "invalid_request"},
		{"negative quantity", `{"from":"producing","to":"produced","production_quantity":-1}`, nil, http.StatusBadRequest, "invalid_request"},
		{"unknown status", `{"from":"producing","to":"shipped"}`, nil, http.StatusBadRequest, "unknown_status"},
		{"partial", `{"from":"producing","to":"produced"}`, partial, http.StatusConflict, "partial_stock_update_failed"},
		{"order not found", `{"from":"producing","to":"produced"}`, fmt.Errorf("%w: O", fulfillment.ErrOrderNotFound), http.StatusNotFound, "order_not_found"},
		{"storage", `{"from":"ready","to":"cancelled"}`, fmt.Errorf("begin: %w", inventory.ErrStorageUnavailable), http.StatusServiceUnavailable, "storage_unavailable"},
		{"internal", `{"from":"ready","to":"cancelled"}`, errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, &stubApplier{err: tt.err}, memstore.New())

			resp := postTransition(t, srv, "O", tt.body)
			require.Equal(t, tt.wantCode, resp.StatusCode)

			var body api.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantErr, body.Error)
			if tt.err == partial {
				assert.Equal(t, partial.Applied, body.Applied)
			}
		})
	}
}

func TestGetInventory(t *testing.T) {
	store := memstore.New()
	store.Set("P", -3)
	srv := newServer(t, &stubApplier{}, store)

	resp, err := http.Get(srv.URL + "/inventory/P")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec inventory.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, "P", rec.ProductID)
	assert.Equal(t, int64(-3), rec.Quantity)

	missing, err := http.Get(srv.URL + "/inventory/unknown")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	assert.Equal(t, 1, store.Len())
}

func TestHealth(t *testing.T) {
	srv := newServer(t, &stubApplier{}, memstore.New())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
