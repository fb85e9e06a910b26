package domain

import "time"

// DefaultCurrency is applied when no cart line carries a product currency.
const DefaultCurrency = "EGP"

// Product is the catalog record as the core reads it. Prices are minor
// currency units (piastres for EGP). StockTracked=false means unlimited
// virtual stock: quantity checks and decrements are skipped entirely.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        int64     `json:"price"`
	Currency     string    `json:"currency"`
	Stock        int       `json:"stock"`
	StockTracked bool      `json:"stock_tracked"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasStock reports whether the product can satisfy the requested quantity.
// Non-tracked products always can.
func (p *Product) HasStock(quantity int) bool {
	if !p.StockTracked {
		return true
	}
	return p.Stock >= quantity
}
