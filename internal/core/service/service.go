package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/niksmo/farm-bridge/internal/core/domain"
	"github.com/niksmo/farm-bridge/internal/core/port"
)

var _ port.ProductsAdder = (*Service)(nil)
var _ port.ProductsLister = (*Service)(nil)
var _ port.ProductGetter = (*Service)(nil)
var _ port.CategoriesLister = (*Service)(nil)
var _ port.OrdersLister = (*Service)(nil)
var _ port.ProductFilterSetter = (*Service)(nil)
var _ port.ProductsSaver = (*Service)(nil)

type Service struct {
	productsProducer      port.ProductsProducer
	productFilterProducer port.ProductFilterProducer
	productsStorage       port.ProductsStorage
	ordersStorage         port.OrdersStorage
	productFilterProc     port.ProductFilterProcessor
	productBlockerProc    port.ProductBlockerProcessor
	newID                 port.IDGenerator
}

func New(
	productsProducer port.ProductsProducer,
	productFilterProducer port.ProductFilterProducer,
	productsStorage port.ProductsStorage,
	ordersStorage port.OrdersStorage,
	productFilterProc port.ProductFilterProcessor,
	productBlockerProc port.ProductBlockerProcessor,
) Service {
	return Service{
		productsProducer:      productsProducer,
		productFilterProducer: productFilterProducer,
		productsStorage:       productsStorage,
		ordersStorage:         ordersStorage,
		productFilterProc:     productFilterProc,
		productBlockerProc:    productBlockerProc,
		newID:                 uuid.NewString,
	}
}

// Run runs the moderation processors in separate goroutines.
//
// Blocks current goroutine while processors are preparing to ready state.
func (s Service) Run(ctx context.Context, stopFn context.CancelFunc) {
	var wg sync.WaitGroup
	wg.Add(2)
	go s.productFilterProc.Run(ctx, stopFn, &wg)
	go s.productBlockerProc.Run(ctx, stopFn, &wg)
	wg.Wait()
}

func (s Service) Close() {
	s.productFilterProc.Close()
	s.productBlockerProc.Close()
}

// AddProduct validates the draft and sends the new product
// to moderation. The product is not listed until it is saved.
func (s Service) AddProduct(
	ctx context.Context, d domain.ProductDraft,
) (domain.Product, error) {
	const op = "Service.AddProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := d.Validate(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p := d.ToProduct(s.newID())

	err := s.productsProducer.ProduceProducts(ctx, []domain.Product{p})
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("product added", "op", op, "productID", p.ProductID)
	return p, nil
}

func (s Service) ListProducts(
	ctx context.Context, q domain.Query,
) ([]domain.Product, error) {
	const op = "Service.ListProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ps, err := s.productsStorage.ReadProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return q.Apply(ps), nil
}

func (s Service) GetProduct(
	ctx context.Context, productID string,
) (domain.Product, error) {
	const op = "Service.GetProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.productsStorage.ReadProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s Service) ListCategories(
	_ context.Context, search string,
) []domain.Category {
	return domain.SearchCategories(search)
}

// ListOrders returns orders of the user, newest first.
func (s Service) ListOrders(
	ctx context.Context, username string,
) ([]domain.Order, error) {
	const op = "Service.ListOrders"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders, err := s.ordersStorage.ReadOrders(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slices.SortStableFunc(orders, func(a, b domain.Order) int {
		return b.PlacedAt.Compare(a.PlacedAt)
	})
	return orders, nil
}

func (s Service) SetRule(ctx context.Context, pf domain.ProductFilter) error {
	const op = "Service.SetRule"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.productFilterProducer.ProduceFilter(ctx, pf)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s Service) SaveProducts(ctx context.Context, ps []domain.Product) error {
	const op = "Service.SaveProducts"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.productsStorage.StoreProducts(ctx, ps)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
