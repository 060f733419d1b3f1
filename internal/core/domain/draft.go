package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyField      = errors.New("field is empty")
	ErrNegativeValue   = errors.New("value is negative")
	ErrUnknownCategory = errors.New("unknown category")
	ErrPriceRange      = errors.New("price is out of range")
)

// Prices are stored as NUMERIC(12, 2).
const priceScale = 2

var priceLimit = decimal.New(1, 10)

// A ProductDraft is a product submitted by a farmer before
// it gets an identifier and an image.
type ProductDraft struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
}

func (d ProductDraft) Validate() error {
	const op = "ProductDraft.Validate"

	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%s: name: %w", op, ErrEmptyField)
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("%s: description: %w", op, ErrEmptyField)
	}
	if d.Category == "" {
		return fmt.Errorf("%s: category: %w", op, ErrEmptyField)
	}
	if !IsKnownCategory(d.Category) {
		return fmt.Errorf("%s: category %q: %w", op, d.Category, ErrUnknownCategory)
	}
	if d.Price.IsNegative() {
		return fmt.Errorf("%s: price: %w", op, ErrNegativeValue)
	}
	if d.Price.GreaterThanOrEqual(priceLimit) {
		return fmt.Errorf("%s: price %s: %w", op, d.Price, ErrPriceRange)
	}
	if !d.Price.Equal(d.Price.Truncate(priceScale)) {
		return fmt.Errorf(
			"%s: price %s has more than %d decimal places: %w",
			op, d.Price, priceScale, ErrPriceRange,
		)
	}
	if d.Quantity < 0 {
		return fmt.Errorf("%s: quantity: %w", op, ErrNegativeValue)
	}
	return nil
}

func (d ProductDraft) ToProduct(productID string) Product {
	return Product{
		ProductID:   productID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Quantity:    d.Quantity,
		Category:    d.Category,
		Image:       ResolveImage(d.Category, d.Name),
	}
}
