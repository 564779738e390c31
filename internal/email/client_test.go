package email

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

func newTestServer(t *testing.T) (*Client, *Handler) {
	t.Helper()
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler.delay = func() time.Duration { return 0 }

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+SendPath, handler.HandleSend)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:   srv.URL + "/",
		ServiceID: "service_1",
		PublicKey: "pk_1",
		Inbox:     "inbox@shop.test",
		Templates: Templates{
			OrderConfirmation: "tpl_order",
			OrderCancellation: "tpl_cancel",
			ContactRelay:      "tpl_contact",
			StaffInvitation:   "tpl_invite",
		},
	}, srv.Client())
	return client, handler
}

func lastSent(t *testing.T, h *Handler) Message {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.sent)
	return h.sent[len(h.sent)-1]
}

func TestClient_Templates(t *testing.T) {
	ctx := context.Background()
	client, handler := newTestServer(t)
	customer := domain.ShippingDetails{Name: "Ana", Email: "ana@example.com", Address: "12 Long Street"}

	t.Run("order confirmation", func(t *testing.T) {
		err := client.SendOrderConfirmation(ctx, domain.OrderCreatedEvent{
			OrderID:  "ORDER-1",
			Customer: customer,
			Items: []domain.CartItem{
				{Product: domain.Product{Name: "Linen Shirt"}, Quantity: 2},
				{Product: domain.Product{Name: "Apron"}, Quantity: 1},
			},
			TotalPrice:    decimal.RequireFromString("40.78"),
			PaymentMethod: domain.PaymentMethodPayPal,
			Timestamp:     time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		msg := lastSent(t, handler)
		assert.Equal(t, "service_1", msg.ServiceID)
		assert.Equal(t, "pk_1", msg.UserID)
		assert.Equal(t, "tpl_order", msg.TemplateID)
		assert.Equal(t, "Linen Shirt x2, Apron x1", msg.TemplateParams["products"])
		assert.Equal(t, "40.78", msg.TemplateParams["total_amount"])
		assert.Equal(t, "ana@example.com", msg.TemplateParams["to_email"])
	})

	t.Run("cancellation", func(t *testing.T) {
		require.NoError(t, client.SendOrderCancellation(ctx, domain.OrderCancelledEvent{OrderID: "ORDER-1", Customer: customer}))
		assert.Equal(t, "tpl_cancel", lastSent(t, handler).TemplateID)
	})

	t.Run("contact relay goes to inbox", func(t *testing.T) {
		require.NoError(t, client.RelayContactMessage(ctx, &domain.ContactMessage{Name: "Ana", Email: "ana@example.com", Subject: "Hi"}))
		msg := lastSent(t, handler)
		assert.Equal(t, "tpl_contact", msg.TemplateID)
		assert.Equal(t, "inbox@shop.test", msg.TemplateParams["to_email"])
		assert.Equal(t, "ana@example.com", msg.TemplateParams["from_email"])
	})

	t.Run("staff invitation", func(t *testing.T) {
		require.NoError(t, client.SendStaffInvitation(ctx, "budi@shop.test", "budi", "ABCD2345"))
		msg := lastSent(t, handler)
		assert.Equal(t, "ABCD2345", msg.TemplateParams["password"])
	})
}

func TestClient_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The Public Key is invalid", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL}, srv.Client())
	err := client.Send(context.Background(), "tpl", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Public Key")
}

func TestHandler_RejectsIncompleteMessages(t *testing.T) {
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler.delay = func() time.Duration { return 0 }

	rec := httptest.NewRecorder()
	handler.HandleSend(rec, httptest.NewRequest(http.MethodPost, SendPath, strings.NewReader(`{"template_id":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.HandleList(rec, httptest.NewRequest(http.MethodGet, "/sent", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sent []Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sent))
	assert.Empty(t, sent)
}
