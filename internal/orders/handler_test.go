package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

func newTestMux(t *testing.T) (*http.ServeMux, *Ledger) {
	t.Helper()
	ledger := newTestLedger(t, newRedisStore(t), newRedisStore(t), newSalesRecorder())
	handler := NewHandler(ledger, discardLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders", handler.HandleList)
	mux.HandleFunc("GET /orders/history", handler.HandleHistory)
	mux.HandleFunc("GET /orders/{id}", handler.HandleGet)
	mux.HandleFunc("POST /orders/{id}/cancel", handler.HandleCancel)
	mux.HandleFunc("PUT /orders/{id}/status", handler.HandleUpdateStatus)
	mux.HandleFunc("PUT /orders/{id}/supplier", handler.HandleSetSupplier)
	mux.HandleFunc("GET /customers/emails", handler.HandleCustomerEmails)
	return mux, ledger
}

func serve(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetAndHistory(t *testing.T) {
	mux, ledger := newTestMux(t)
	id, err := ledger.CreateOrder(context.Background(), sampleOrder())
	require.NoError(t, err)

	rec := serve(mux, http.MethodGet, "/orders/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var order domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.Equal(t, id, order.ID)

	rec = serve(mux, http.MethodGet, "/orders/ORDER-NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(mux, http.MethodGet, "/orders/history?ids="+id+",,ORDER-NOPE", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Len(t, history, 1)

	many := make([]string, maxLookupIDs+1)
	for i := range many {
		many[i] = fmt.Sprintf("ORDER-%d", i)
	}
	rec = serve(mux, http.MethodGet, "/orders/history?ids="+strings.Join(many, ","), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodGet, "/orders/history?ids="+strings.Repeat(id+",", maxLookupIDs+1), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Len(t, history, 1, "repeated ids are looked up once")
}

func TestHandler_UpdateStatus(t *testing.T) {
	mux, ledger := newTestMux(t)
	id, err := ledger.CreateOrder(context.Background(), sampleOrder())
	require.NoError(t, err)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"unknown status", `{"status":"lost"}`, http.StatusBadRequest},
		{"ship", `{"status":"shipped"}`, http.StatusOK},
		{"cancel after shipping", `{"status":"cancelled"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, http.MethodPut, "/orders/"+id+"/status", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestHandler_CancelAndSupplier(t *testing.T) {
	mux, ledger := newTestMux(t)
	id, err := ledger.CreateOrder(context.Background(), sampleOrder())
	require.NoError(t, err)

	rec := serve(mux, http.MethodPut, "/orders/"+id+"/supplier", `{"supplier_order_id":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodPut, "/orders/"+id+"/supplier", `{"supplier_order_id":"AE-9"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(mux, http.MethodPost, "/orders/"+id+"/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(mux, http.MethodPost, "/orders/"+id+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(mux, http.MethodGet, "/customers/emails", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var emails []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&emails))
	assert.Equal(t, []string{"ana@example.com"}, emails)
}
