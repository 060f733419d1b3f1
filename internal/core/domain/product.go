package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type Product struct {
	ProductID   string
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
	Image       string
}

// A ProductFilter is a moderation rule for a product name.
type ProductFilter struct {
	ProductName string
	Blocked     bool
}
