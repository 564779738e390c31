// Package checkout turns a cart into a paid order: it prices the cart,
// starts a payment with the provider and records the order once the
// provider reports the capture as completed.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
	"github.com/joao-fontenele/dropship-storefront/internal/orders"
	"github.com/joao-fontenele/dropship-storefront/internal/payment"
	"github.com/joao-fontenele/dropship-storefront/internal/pricing"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrSessionNotFound   = errors.New("checkout session not found or expired")
	ErrPaymentIncomplete = errors.New("payment was not completed")
	ErrPaymentCancelled  = errors.New("payment was cancelled by the customer")
	ErrPaymentFailed     = errors.New("payment provider error")
)

type PaymentProvider interface {
	Create(ctx context.Context, req payment.Request) (*payment.Intent, error)
	Capture(ctx context.Context, id string) (*payment.Capture, error)
}

type Cart interface {
	Items(ctx context.Context, session string) ([]domain.CartItem, error)
	Clear(ctx context.Context, session string) error
}

type OrderRecorder interface {
	CreateOrder(ctx context.Context, in orders.NewOrder) (string, error)
}

type SessionStore interface {
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Take(ctx context.Context, id string) (*Session, error)
}

type Service struct {
	cart     Cart
	provider PaymentProvider
	orders   OrderRecorder
	sessions SessionStore
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(cart Cart, provider PaymentProvider, orders OrderRecorder, sessions SessionStore, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		cart:     cart,
		provider: provider,
		orders:   orders,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Begin prices the cart and asks the provider for a payment the customer
// can approve.
func (s *Service) Begin(ctx context.Context, cartSession string, shipping domain.ShippingDetails, wantsReturn bool) (*Session, error) {
	if err := shipping.Validate(); err != nil {
		return nil, err
	}

	items, err := s.cart.Items(ctx, cartSession)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	sess := &Session{
		ID:          domain.NewCheckoutID(),
		CartSession: cartSession,
		Items:       items,
		Shipping:    shipping,
		Pricing:     pricing.Calculate(items, wantsReturn),
		CreatedAt:   s.now(),
	}

	intent, err := s.provider.Create(ctx, payment.Request{
		Amount:      sess.Pricing.Total,
		Description: "Order - " + shipping.Email,
		Reference:   sess.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	sess.PaymentID = intent.ID
	sess.ApprovalURL = intent.ApprovalURL

	if err := s.sessions.Save(ctx, sess, s.ttl); err != nil {
		return nil, err
	}

	s.logger.Info("checkout started", "checkout_id", sess.ID, "payment_id", sess.PaymentID,
		"total", sess.Pricing.Total.StringFixed(2))
	return sess, nil
}

// Complete captures the approved payment and records the order. Nothing is
// recorded unless the provider reports the capture as completed; on any
// other outcome the session is kept so the customer can retry.
func (s *Service) Complete(ctx context.Context, id string) (string, error) {
	sess, err := s.sessions.Take(ctx, id)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrSessionNotFound
	}

	capture, err := s.provider.Capture(ctx, sess.PaymentID)
	if err != nil {
		s.restore(ctx, sess)
		return "", fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	if !capture.Completed() {
		s.restore(ctx, sess)
		return "", fmt.Errorf("%w: status %s", ErrPaymentIncomplete, capture.Status)
	}

	orderID, err := s.orders.CreateOrder(ctx, orders.NewOrder{
		Items:         sess.Items,
		Customer:      sess.Shipping,
		PaymentMethod: domain.PaymentMethodPayPal,
		Pricing:       sess.Pricing,
	})
	if err != nil {
		s.logger.Error("payment captured but order not recorded", "error", err,
			"checkout_id", sess.ID, "payment_id", sess.PaymentID)
		return "", err
	}

	if err := s.cart.Clear(ctx, sess.CartSession); err != nil {
		s.logger.Warn("failed to clear cart", "error", err, "order_id", orderID)
	}

	s.logger.Info("checkout completed", "checkout_id", sess.ID, "order_id", orderID)
	return orderID, nil
}

// Cancel drops a checkout the customer abandoned at the provider.
func (s *Service) Cancel(ctx context.Context, id string) error {
	sess, err := s.sessions.Take(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}

	s.logger.Info("checkout cancelled", "checkout_id", sess.ID, "payment_id", sess.PaymentID)
	return ErrPaymentCancelled
}

func (s *Service) restore(ctx context.Context, sess *Session) {
	remaining := s.ttl - s.now().Sub(sess.CreatedAt)
	if remaining <= 0 {
		return
	}
	if err := s.sessions.Save(ctx, sess, remaining); err != nil {
		s.logger.Warn("failed to restore checkout session", "error", err, "checkout_id", sess.ID)
	}
}
