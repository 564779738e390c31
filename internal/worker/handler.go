package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, event domain.OrderCreatedEvent) error
	SendOrderCancellation(ctx context.Context, event domain.OrderCancelledEvent) error
}

// NotificationHandler turns order events into customer emails.
type NotificationHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewNotificationHandler(notifier Notifier, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// HandleOrderCreated sends the order confirmation. Payloads that cannot be
// decoded are dropped; a failed send is returned so the consumer retries.
func (h *NotificationHandler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed order created event", "error", err)
		return nil
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "items", len(event.Items))

	if event.Customer.Email == "" {
		h.logger.Warn("order has no customer email, skipping confirmation", "order_id", event.OrderID)
		return nil
	}

	if err := h.notifier.SendOrderConfirmation(ctx, event); err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	h.logger.Info("confirmation email sent", "order_id", event.OrderID)
	return nil
}

func (h *NotificationHandler) HandleOrderCancelled(ctx context.Context, payload []byte) error {
	var event domain.OrderCancelledEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed order cancelled event", "error", err)
		return nil
	}

	h.logger.Info("processing order cancelled event", "order_id", event.OrderID)

	if event.Customer.Email == "" {
		h.logger.Warn("order has no customer email, skipping cancellation notice", "order_id", event.OrderID)
		return nil
	}

	if err := h.notifier.SendOrderCancellation(ctx, event); err != nil {
		h.logger.Error("failed to send cancellation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send cancellation email: %w", err)
	}

	h.logger.Info("cancellation email sent", "order_id", event.OrderID)
	return nil
}
