package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// CustomerCancellationWindow is how long after creation a paid order can be
// cancelled by the customer.
const CustomerCancellationWindow = 5 * time.Minute

var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is permitted.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodEWallet      PaymentMethod = "e_wallet"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodQRIS         PaymentMethod = "qris"
	PaymentMethodPayPal       PaymentMethod = "paypal"
)

type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal is the stored unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type ShippingDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Validate checks the minimum completeness rules applied before a payment
// can be started.
func (d ShippingDetails) Validate() error {
	switch {
	case len(strings.TrimSpace(d.Name)) <= 2:
		return &ValidationError{Field: "name", Message: "name must be longer than 2 characters"}
	case !strings.Contains(d.Email, "@"):
		return &ValidationError{Field: "email", Message: "email must contain @"}
	case len(strings.TrimSpace(d.Phone)) <= 8:
		return &ValidationError{Field: "phone", Message: "phone must be longer than 8 characters"}
	case len(strings.TrimSpace(d.Address)) <= 10:
		return &ValidationError{Field: "address", Message: "address must be longer than 10 characters"}
	}
	return nil
}

// OrderSnapshot is captured once at checkout and never rewritten.
type OrderSnapshot struct {
	Products      []CartItem      `json:"products"`
	Customer      ShippingDetails `json:"customer"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

type Order struct {
	ID              string          `json:"id"`
	Items           OrderSnapshot   `json:"items"`
	Status          OrderStatus     `json:"status"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	PaymentFee      decimal.Decimal `json:"payment_fee"`
	ReturnFee       decimal.Decimal `json:"return_fee"`
	WantsReturn     bool            `json:"wants_return"`
	SupplierOrderID string          `json:"supplier_order_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CustomerCancellable reports whether the customer may still cancel the order at now.
func (o *Order) CustomerCancellable(now time.Time) bool {
	return o.Status == OrderStatusPaid && now.Sub(o.CreatedAt) <= CustomerCancellationWindow
}

func NewOrderID() string {
	return newID("ORDER")
}

func NewCheckoutID() string {
	return newID("CHK")
}

func newID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(raw[:12]))
}
