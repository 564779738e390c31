package domain

// SalesCount is the running number of units sold for a product.
type SalesCount struct {
	ProductID string `json:"product_id"`
	Count     int    `json:"sales_count"`
}
