package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req ProductInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.service.CreateProduct(r.Context(), req)
	if err != nil {
		h.handleError(w, err, "failed to create product")
		return
	}

	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req ProductInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		h.handleError(w, err, "failed to update product")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.handleError(w, err, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAddReview serves customer reviews and replies.
func (h *Handler) HandleAddReview(w http.ResponseWriter, r *http.Request) {
	h.addReview(w, r, false)
}

// HandleAdminReply serves staff replies, which are flagged as admin posts.
func (h *Handler) HandleAdminReply(w http.ResponseWriter, r *http.Request) {
	h.addReview(w, r, true)
}

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	productID := r.PathValue("id")

	var req ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := h.service.AddReview(r.Context(), productID, req, isAdmin)
	if err != nil {
		h.handleError(w, err, "failed to add review")
		return
	}

	h.logger.Info("review added", "product_id", productID, "review_id", review.ID, "is_admin", isAdmin)
	h.writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrReviewNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNestedReply):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
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
