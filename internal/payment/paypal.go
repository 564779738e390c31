package payment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/plutov/paypal/v4"
)

type PayPalConfig struct {
	ClientID  string
	Secret    string
	APIBase   string
	Currency  string
	ReturnURL string
	CancelURL string
	Transport http.RoundTripper
}

// APIBase maps a mode name to the PayPal endpoint.
func APIBase(mode string) string {
	if mode == "live" {
		return paypal.APIBaseLive
	}
	return paypal.APIBaseSandBox
}

// PayPal creates and captures PayPal Orders v2 payments.
type PayPal struct {
	client    *paypal.Client
	currency  string
	returnURL string
	cancelURL string
}

// NewPayPal authenticates against the API before returning.
func NewPayPal(ctx context.Context, cfg PayPalConfig) (*PayPal, error) {
	client, err := paypal.NewClient(cfg.ClientID, cfg.Secret, cfg.APIBase)
	if err != nil {
		return nil, fmt.Errorf("create paypal client: %w", err)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client.SetHTTPClient(&http.Client{Transport: transport, Timeout: 15 * time.Second})

	if _, err := client.GetAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("authenticate with paypal: %w", err)
	}

	return &PayPal{
		client:    client,
		currency:  cfg.Currency,
		returnURL: cfg.ReturnURL,
		cancelURL: cfg.CancelURL,
	}, nil
}

func (p *PayPal) Create(ctx context.Context, req Request) (*Intent, error) {
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: req.Reference,
		Description: req.Description,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: p.currency,
			Value:    req.Amount.StringFixed(2),
		},
	}}
	appCtx := &paypal.ApplicationContext{
		ReturnURL: p.returnURL,
		CancelURL: p.cancelURL,
	}

	order, err := p.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return nil, fmt.Errorf("create paypal order: %w", err)
	}

	intent := &Intent{ID: order.ID}
	for _, link := range order.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			intent.ApprovalURL = link.Href
			break
		}
	}
	if intent.ApprovalURL == "" {
		return nil, fmt.Errorf("paypal order %s has no approval link", order.ID)
	}

	return intent, nil
}

func (p *PayPal) Capture(ctx context.Context, id string) (*Capture, error) {
	resp, err := p.client.CaptureOrder(ctx, id, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("capture paypal order %s: %w", id, err)
	}

	return &Capture{ID: resp.ID, Status: resp.Status}, nil
}
