package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	handler := NewHandler(NewService(newRedisStore(t), newRedisStore(t), nil, discardLogger()), discardLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", handler.HandleList)
	mux.HandleFunc("GET /products/{id}", handler.HandleGet)
	mux.HandleFunc("POST /products/{id}/reviews", handler.HandleAddReview)
	mux.HandleFunc("POST /admin/products", handler.HandleCreate)
	mux.HandleFunc("PUT /admin/products/{id}", handler.HandleUpdate)
	mux.HandleFunc("DELETE /admin/products/{id}", handler.HandleDelete)
	return mux
}

func TestHandler_ProductLifecycle(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/products",
		strings.NewReader(`{"name":"Oak Stool","price":"49.50","category":"Furniture"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+created.ID, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/products/"+created.ID,
			strings.NewReader(`{"name":"Oak Stool","price":"39.50","discount":"10"}`)))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var updated domain.Product
		if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if updated.Price.String() != "39.5" {
			t.Errorf("expected price 39.5, got %s", updated.Price)
		}
	})

	t.Run("review with invalid rating", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/"+created.ID+"/reviews",
			strings.NewReader(`{"user_name":"Sari","rating":9,"comment":"wow"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/products/"+created.ID, nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+created.ID, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleCreate_InvalidBody(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(`{`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}
