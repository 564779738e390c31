// Package pricing computes cart totals. The same breakdown is shown to the
// customer, charged by the payment provider and stored on the order.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

var (
	PaymentFeeRate = decimal.RequireFromString("0.02")
	ReturnFeeRate  = decimal.RequireFromString("0.03")
)

type Breakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	PaymentFee  decimal.Decimal `json:"payment_fee"`
	ReturnFee   decimal.Decimal `json:"return_fee"`
	Total       decimal.Decimal `json:"total"`
	WantsReturn bool            `json:"wants_return"`
}

func (b Breakdown) Fees() decimal.Decimal {
	return b.PaymentFee.Add(b.ReturnFee)
}

// Calculate prices items using the unit price stored on each cart item.
// Fees are rounded half away from zero to cents and the total is the sum of
// the subtotal and the rounded fees.
func Calculate(items []domain.CartItem, wantsReturn bool) Breakdown {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	b := Breakdown{
		Subtotal:    subtotal,
		PaymentFee:  subtotal.Mul(PaymentFeeRate).Round(2),
		ReturnFee:   decimal.Zero,
		WantsReturn: wantsReturn,
	}
	if wantsReturn {
		b.ReturnFee = subtotal.Mul(ReturnFeeRate).Round(2)
	}
	b.Total = b.Subtotal.Add(b.PaymentFee).Add(b.ReturnFee)

	return b
}
