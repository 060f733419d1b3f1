package httphandler

import (
	"time"

	"github.com/niksmo/farm-bridge/internal/core/domain"
	"github.com/shopspring/decimal"
)

type (
	// ProductDraft accepts price as a JSON number or a numeric string.
	ProductDraft struct {
		Name        string           `json:"name" validate:"required"`
		Description string           `json:"description" validate:"required"`
		Price       *decimal.Decimal `json:"price" validate:"required"`
		Quantity    *int             `json:"quantity" validate:"required,gte=0"`
		Category    string           `json:"category" validate:"required,oneof=Fruits Vegetables Grains Dairy"`
	}

	Product struct {
		ProductID   string  `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Quantity    int     `json:"quantity"`
		Category    string  `json:"category"`
		Image       string  `json:"image"`
	}

	ProductsResponse struct {
		Products []Product `json:"products"`
	}
)

type (
	Category struct {
		Name  string `json:"name"`
		Image string `json:"image"`
	}

	CategoriesResponse struct {
		Categories []Category `json:"categories"`
	}
)

type (
	Order struct {
		OrderID   string    `json:"id"`
		Date      time.Time `json:"date"`
		Items     []string  `json:"items"`
		Total     float64   `json:"total"`
		Status    string    `json:"status"`
		Delivered bool      `json:"delivered"`
	}

	OrdersResponse struct {
		Orders []Order `json:"orders"`
	}
)

type FilterRule struct {
	Name    string `json:"name" validate:"required"`
	Blocked bool   `json:"blocked"`
}

func (d ProductDraft) toDomain() domain.ProductDraft {
	var (
		price    decimal.Decimal
		quantity int
	)
	if d.Price != nil {
		price = *d.Price
	}
	if d.Quantity != nil {
		quantity = *d.Quantity
	}
	return domain.ProductDraft{
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Quantity:    quantity,
		Category:    d.Category,
	}
}

func fromDomainProduct(p domain.Product) Product {
	return Product{
		ProductID:   p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Quantity:    p.Quantity,
		Category:    p.Category,
		Image:       p.Image,
	}
}

func fromDomainProducts(ps []domain.Product) []Product {
	out := make([]Product, len(ps))
	for i, p := range ps {
		out[i] = fromDomainProduct(p)
	}
	return out
}

func fromDomainCategories(cs []domain.Category) []Category {
	out := make([]Category, len(cs))
	for i, c := range cs {
		out[i] = Category{Name: c.Name, Image: c.Image}
	}
	return out
}

func fromDomainOrders(orders []domain.Order) []Order {
	out := make([]Order, len(orders))
	for i, o := range orders {
		items := o.Items
		if items == nil {
			items = []string{}
		}
		out[i] = Order{
			OrderID:   o.OrderID,
			Date:      o.PlacedAt,
			Items:     items,
			Total:     o.Total.InexactFloat64(),
			Status:    string(o.Status),
			Delivered: o.Delivered(),
		}
	}
	return out
}
