package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
	"github.com/joao-fontenele/dropship-storefront/internal/pricing"
)

// SessionHeader carries the cart session ID chosen by the client.
const SessionHeader = "X-Cart-Session"

const maxSessionLen = 128

// ProductLookup returns nil, nil for unknown products.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Handler struct {
	store    *Store
	products ProductLookup
	logger   *slog.Logger
}

func NewHandler(store *Store, products ProductLookup, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		products: products,
		logger:   logger,
	}
}

type cartResponse struct {
	Items   []domain.CartItem `json:"items"`
	Pricing pricing.Breakdown `json:"pricing"`
}

// HandleGet returns the cart and its price; return_protection=true adds the
// return fee to the preview.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	wantsReturn, _ := strconv.ParseBool(r.URL.Query().Get("return_protection"))

	items, err := h.store.Items(r.Context(), session)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, cartResponse{Items: items, Pricing: pricing.Calculate(items, wantsReturn)})
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.ProductID == "" || req.Quantity < 1 {
		h.writeError(w, http.StatusBadRequest, "product_id and a positive quantity are required")
		return
	}

	product, err := h.products.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.logger.Error("failed to look up product", "error", err, "product_id", req.ProductID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.store.Add(r.Context(), session, *product, req.Quantity); err != nil {
		h.logger.Error("failed to add to cart", "error", err, "product_id", req.ProductID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("item added to cart", "product_id", product.ID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusCreated, map[string]any{"product_id": product.ID, "quantity": req.Quantity})
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	quantity, err := h.store.Adjust(r.Context(), session, id, req.Delta)
	if err != nil {
		h.handleError(w, err, "failed to adjust cart item")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"product_id": id, "quantity": quantity})
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.store.Remove(r.Context(), session, r.PathValue("id")); err != nil {
		h.handleError(w, err, "failed to remove cart item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.store.Clear(r.Context(), session); err != nil {
		h.handleError(w, err, "failed to clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := r.Header.Get(SessionHeader)
	if session == "" || len(session) > maxSessionLen {
		h.writeError(w, http.StatusBadRequest, "missing or invalid "+SessionHeader+" header")
		return "", false
	}
	return session, true
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, ErrItemNotInCart) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error(msg, "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
