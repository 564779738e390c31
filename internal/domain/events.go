package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderCreatedEvent struct {
	OrderID       string          `json:"order_id"`
	Customer      ShippingDetails `json:"customer"`
	Items         []CartItem      `json:"items"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Timestamp     time.Time       `json:"timestamp"`
}

type OrderCancelledEvent struct {
	OrderID    string          `json:"order_id"`
	Customer   ShippingDetails `json:"customer"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:       o.ID,
		Customer:      o.Items.Customer,
		Items:         o.Items.Products,
		TotalPrice:    o.TotalPrice,
		PaymentMethod: o.Items.PaymentMethod,
		Timestamp:     o.CreatedAt,
	}
}

func NewOrderCancelledEvent(o *Order, at time.Time) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:    o.ID,
		Customer:   o.Items.Customer,
		TotalPrice: o.TotalPrice,
		Timestamp:  at,
	}
}
