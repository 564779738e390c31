// Package payment talks to the external payment provider. A payment is
// created for an amount, approved by the customer on the provider's page,
// then captured.
package payment

import (
	"errors"

	"github.com/shopspring/decimal"
)

// StatusCompleted is the capture status meaning the money moved.
const StatusCompleted = "COMPLETED"

var ErrUnknownPayment = errors.New("unknown payment")

type Request struct {
	Amount      decimal.Decimal
	Description string
	Reference   string
}

type Intent struct {
	ID          string `json:"id"`
	ApprovalURL string `json:"approval_url"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Capture) Completed() bool {
	return c.Status == StatusCompleted
}
