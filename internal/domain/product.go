package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	SalesCount  int             `json:"sales_count"`
	CreatedAt   time.Time       `json:"created_at"`
	Reviews     []Review        `json:"reviews,omitempty"`
}

// EffectivePrice is the discounted unit price, rounded to cents.
func (p *Product) EffectivePrice() decimal.Decimal {
	if !p.Discount.IsPositive() {
		return p.Price
	}
	factor := hundred.Sub(p.Discount).Div(hundred)
	return p.Price.Mul(factor).Round(2)
}

func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return &ValidationError{Field: "name", Message: "name is required"}
	case p.Price.IsNegative():
		return &ValidationError{Field: "price", Message: "price must not be negative"}
	case p.Discount.IsNegative() || p.Discount.GreaterThan(hundred):
		return &ValidationError{Field: "discount", Message: "discount must be between 0 and 100"}
	}
	return nil
}

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserName  string    `json:"user_name"`
	Rating    *int      `json:"rating,omitempty"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	ParentID  *string   `json:"parent_id,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
}

func (r *Review) Validate() error {
	switch {
	case strings.TrimSpace(r.UserName) == "":
		return &ValidationError{Field: "user_name", Message: "user name is required"}
	case strings.TrimSpace(r.Comment) == "":
		return &ValidationError{Field: "comment", Message: "comment is required"}
	case r.ParentID == nil && r.Rating == nil:
		return &ValidationError{Field: "rating", Message: "rating is required"}
	case r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5):
		return &ValidationError{Field: "rating", Message: "rating must be between 1 and 5"}
	}
	return nil
}

func NewProductID() string {
	return newID("PROD")
}

func NewReviewID() string {
	return newID("REV")
}
