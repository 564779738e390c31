package inventory

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

func newTestHandler(t *testing.T, primary *memorySalesStore) *Handler {
	t.Helper()
	return NewHandler(newTestReconciler(t, primary, newMemorySalesStore()), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandler_HandleGetSales(t *testing.T) {
	primary := newMemorySalesStore()
	primary.counts["p1"] = 320
	handler := newTestHandler(t, primary)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/{id}/sales", handler.HandleGetSales)

	t.Run("returns count", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/p1/sales", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var sc domain.SalesCount
		if err := json.NewDecoder(rec.Body).Decode(&sc); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if sc.Count != 320 {
			t.Errorf("expected 320, got %d", sc.Count)
		}
	})

	t.Run("returns 404 for unknown product", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/nope/sales", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleBestSellers(t *testing.T) {
	handler := newTestHandler(t, newMemorySalesStore())

	t.Run("rejects invalid limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.HandleBestSellers(rec, httptest.NewRequest(http.MethodGet, "/products/best-sellers?limit=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("lists counters", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.HandleBestSellers(rec, httptest.NewRequest(http.MethodGet, "/products/best-sellers", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})
}
