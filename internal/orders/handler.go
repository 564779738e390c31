package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

type Handler struct {
	ledger *Ledger
	logger *slog.Logger
}

func NewHandler(ledger *Ledger, logger *slog.Logger) *Handler {
	return &Handler{
		ledger: ledger,
		logger: logger,
	}
}

// HandleHistory returns the orders named in the ids query parameter
// (comma separated), which customers keep on their side.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	orders, err := h.ledger.ListByIDs(r.Context(), ids)
	if err != nil {
		h.handleError(w, err, "failed to list order history")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.ledger.GetOrder(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "failed to get order")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	if err := h.ledger.CancelByCustomer(r.Context(), id); err != nil {
		h.handleError(w, err, "failed to cancel order")
		return
	}

	h.logger.Info("order cancelled by customer", "order_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(domain.OrderStatusCancelled)})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledger.ListOrders(r.Context())
	if err != nil {
		h.handleError(w, err, "failed to list orders")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	changed, err := h.ledger.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.handleError(w, err, "failed to update order status")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status, "changed": changed})
}

type supplierRequest struct {
	SupplierOrderID string `json:"supplier_order_id"`
}

func (h *Handler) HandleSetSupplier(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req supplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.ledger.UpdateSupplierOrderID(r.Context(), id, req.SupplierOrderID); err != nil {
		h.handleError(w, err, "failed to set supplier order id")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"id": id, "supplier_order_id": strings.TrimSpace(req.SupplierOrderID)})
}

func (h *Handler) HandleCustomerEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.ledger.CustomerEmails(r.Context())
	if err != nil {
		h.handleError(w, err, "failed to list customer emails")
		return
	}

	h.writeJSON(w, http.StatusOK, emails)
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrTooManyIDs):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrConcurrentUpdate),
		errors.Is(err, ErrNotCancellable),
		errors.Is(err, ErrCancellationWindowClosed):
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
