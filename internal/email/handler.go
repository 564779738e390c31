package email

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

const maxKept = 100

// Handler imitates the email provider's send endpoint and keeps the most
// recent messages so they can be inspected.
type Handler struct {
	logger *slog.Logger
	delay  func() time.Duration

	mu   sync.Mutex
	sent []Message
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		delay: func() time.Duration {
			return time.Duration(50+rand.Intn(151)) * time.Millisecond
		},
	}
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg.ServiceID == "" || msg.TemplateID == "" || msg.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "service_id, template_id and user_id are required")
		return
	}

	time.Sleep(h.delay())

	h.mu.Lock()
	h.sent = append(h.sent, msg)
	if len(h.sent) > maxKept {
		h.sent = h.sent[len(h.sent)-maxKept:]
	}
	h.mu.Unlock()

	h.logger.Info("email sent", "template_id", msg.TemplateID, "to", msg.TemplateParams["to_email"])

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandleList returns the kept messages, oldest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	sent := append([]Message{}, h.sent...)
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, sent)
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
