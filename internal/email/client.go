// Package email sends template emails through an EmailJS-compatible HTTP
// API and provides a local stand-in for that API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

const SendPath = "/api/v1.0/email/send"

type Templates struct {
	OrderConfirmation string
	OrderCancellation string
	ContactRelay      string
	StaffInvitation   string
}

type Config struct {
	BaseURL   string
	ServiceID string
	PublicKey string
	// Inbox receives relayed contact form messages.
	Inbox     string
	Templates Templates
}

// Message is the provider's send request body.
type Message struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
	}
}

func (c *Client) Send(ctx context.Context, templateID string, params map[string]string) error {
	data, err := json.Marshal(Message{
		ServiceID:      c.cfg.ServiceID,
		TemplateID:     templateID,
		UserID:         c.cfg.PublicKey,
		TemplateParams: params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+SendPath, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("email service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

func (c *Client) SendOrderConfirmation(ctx context.Context, event domain.OrderCreatedEvent) error {
	products := make([]string, 0, len(event.Items))
	for _, item := range event.Items {
		products = append(products, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}

	return c.Send(ctx, c.cfg.Templates.OrderConfirmation, map[string]string{
		"to_email":         event.Customer.Email,
		"customer_name":    event.Customer.Name,
		"customer_email":   event.Customer.Email,
		"order_id":         event.OrderID,
		"order_date":       event.Timestamp.Format("2006-01-02"),
		"products":         strings.Join(products, ", "),
		"total_amount":     event.TotalPrice.StringFixed(2),
		"payment_method":   string(event.PaymentMethod),
		"shipping_address": event.Customer.Address,
		"status":           "Order Confirmed",
	})
}

func (c *Client) SendOrderCancellation(ctx context.Context, event domain.OrderCancelledEvent) error {
	return c.Send(ctx, c.cfg.Templates.OrderCancellation, map[string]string{
		"to_email":      event.Customer.Email,
		"customer_name": event.Customer.Name,
		"order_id":      event.OrderID,
		"total_amount":  event.TotalPrice.StringFixed(2),
		"status":        "Order Cancelled",
	})
}

func (c *Client) RelayContactMessage(ctx context.Context, m *domain.ContactMessage) error {
	return c.Send(ctx, c.cfg.Templates.ContactRelay, map[string]string{
		"to_email":   c.cfg.Inbox,
		"name":       m.Name,
		"time":       m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"from_name":  m.Name,
		"from_email": m.Email,
		"subject":    m.Subject,
		"message":    m.Message,
	})
}

func (c *Client) SendStaffInvitation(ctx context.Context, to, username, password string) error {
	return c.Send(ctx, c.cfg.Templates.StaffInvitation, map[string]string{
		"to_email": to,
		"name":     username,
		"username": username,
		"password": password,
		"email":    to,
	})
}
