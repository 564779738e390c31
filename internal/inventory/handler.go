package inventory

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

const defaultBestSellers = 8

type Handler struct {
	reconciler *Reconciler
	logger     *slog.Logger
}

func NewHandler(reconciler *Reconciler, logger *slog.Logger) *Handler {
	return &Handler{
		reconciler: reconciler,
		logger:     logger,
	}
}

func (h *Handler) HandleGetSales(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	sc, err := h.reconciler.GetSales(r.Context(), productID)
	if err != nil {
		h.logger.Error("failed to get sales count", "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if sc == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, sc)
}

func (h *Handler) HandleBestSellers(w http.ResponseWriter, r *http.Request) {
	limit := defaultBestSellers
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	counts, err := h.reconciler.BestSellers(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list best sellers", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("best sellers listed", "count", len(counts))
	h.writeJSON(w, http.StatusOK, counts)
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
