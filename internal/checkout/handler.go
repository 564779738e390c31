package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/dropship-storefront/internal/cart"
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

type beginRequest struct {
	Shipping         domain.ShippingDetails `json:"shipping"`
	ReturnProtection bool                   `json:"return_protection"`
}

func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	cartSession := r.Header.Get(cart.SessionHeader)
	if cartSession == "" {
		h.writeError(w, http.StatusBadRequest, "missing "+cart.SessionHeader+" header")
		return
	}

	var req beginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.service.Begin(r.Context(), cartSession, req.Shipping, req.ReturnProtection)
	if err != nil {
		h.handleError(w, err, "failed to start checkout")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"checkout_id":  sess.ID,
		"approval_url": sess.ApprovalURL,
		"pricing":      sess.Pricing,
	})
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.service.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, err, "failed to complete checkout")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"order_id": orderID})
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleError(w, h.service.Cancel(r.Context(), r.PathValue("id")), "failed to cancel checkout")
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrEmptyCart):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPaymentIncomplete):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrPaymentCancelled):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrPaymentFailed):
		h.logger.Warn(msg, "error", err)
		h.writeError(w, http.StatusBadGateway, ErrPaymentFailed.Error())
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
