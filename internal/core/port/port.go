package port

import (
	"context"
	"sync"

	"github.com/niksmo/farm-bridge/internal/core/domain"
)

type (
	runnerContextWg interface {
		Run(context.Context, context.CancelFunc, *sync.WaitGroup)
	}

	closer interface {
		Close()
	}
)

// Inbound ports.

type ProductsAdder interface {
	AddProduct(context.Context, domain.ProductDraft) (domain.Product, error)
}

type ProductsLister interface {
	ListProducts(context.Context, domain.Query) ([]domain.Product, error)
}

type ProductGetter interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

type CategoriesLister interface {
	ListCategories(ctx context.Context, search string) []domain.Category
}

type OrdersLister interface {
	ListOrders(ctx context.Context, username string) ([]domain.Order, error)
}

type ProductFilterSetter interface {
	SetRule(context.Context, domain.ProductFilter) error
}

type ProductsSaver interface {
	SaveProducts(context.Context, []domain.Product) error
}

// Outbound ports.

type ProductsProducer interface {
	ProduceProducts(context.Context, []domain.Product) error
}

type ProductFilterProducer interface {
	ProduceFilter(context.Context, domain.ProductFilter) error
}

type ProductFilterProcessor interface {
	runnerContextWg
	closer
}

type ProductBlockerProcessor interface {
	runnerContextWg
	closer
}

type ProductsStorage interface {
	StoreProducts(context.Context, []domain.Product) error
	ReadProducts(context.Context) ([]domain.Product, error)
	ReadProduct(ctx context.Context, productID string) (domain.Product, error)
}

type OrdersStorage interface {
	ReadOrders(ctx context.Context, username string) ([]domain.Order, error)
}

type IDGenerator func() string
