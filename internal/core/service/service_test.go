package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/farm-bridge/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProductsProducer struct {
	mock.Mock
}

func (m *mockProductsProducer) ProduceProducts(
	ctx context.Context, ps []domain.Product,
) error {
	args := m.Called(ctx, ps)
	return args.Error(0)
}

type mockFilterProducer struct {
	mock.Mock
}

func (m *mockFilterProducer) ProduceFilter(
	ctx context.Context, pf domain.ProductFilter,
) error {
	args := m.Called(ctx, pf)
	return args.Error(0)
}

type mockProductsStorage struct {
	mock.Mock
}

func (m *mockProductsStorage) StoreProducts(
	ctx context.Context, ps []domain.Product,
) error {
	args := m.Called(ctx, ps)
	return args.Error(0)
}

func (m *mockProductsStorage) ReadProducts(
	ctx context.Context,
) ([]domain.Product, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]domain.Product)
	return ps, args.Error(1)
}

func (m *mockProductsStorage) ReadProduct(
	ctx context.Context, productID string,
) (domain.Product, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.Product), args.Error(1)
}

type mockOrdersStorage struct {
	mock.Mock
}

func (m *mockOrdersStorage) ReadOrders(
	ctx context.Context, username string,
) ([]domain.Order, error) {
	args := m.Called(ctx, username)
	os, _ := args.Get(0).([]domain.Order)
	return os, args.Error(1)
}

var errBroker = errors.New("broker is down")

func TestAddProduct(t *testing.T) {
	draft := domain.ProductDraft{
		Name:        "Wheat",
		Description: "Durum wheat",
		Price:       decimal.NewFromInt(12),
		Quantity:    100,
		Category:    "Grains",
	}

	t.Run("Regular", func(t *testing.T) {
		producer := new(mockProductsProducer)
		s := New(producer, nil, nil, nil, nil, nil)
		s.newID = func() string { return "testID" }

		expected := domain.Product{
			ProductID:   "testID",
			Name:        "Wheat",
			Description: "Durum wheat",
			Price:       decimal.NewFromInt(12),
			Quantity:    100,
			Category:    "Grains",
			Image:       "wheat.jpg",
		}
		producer.On(
			"ProduceProducts", t.Context(), []domain.Product{expected},
		).Return(nil)

		p, err := s.AddProduct(t.Context(), draft)
		require.NoError(t, err)
		assert.Equal(t, expected, p)
		producer.AssertExpectations(t)
	})

	t.Run("InvalidDraft", func(t *testing.T) {
		producer := new(mockProductsProducer)
		s := New(producer, nil, nil, nil, nil, nil)

		d := draft
		d.Category = "Meat"
		_, err := s.AddProduct(t.Context(), d)
		assert.ErrorIs(t, err, domain.ErrUnknownCategory)
		producer.AssertNotCalled(t, "ProduceProducts")
	})

	t.Run("ProducerFails", func(t *testing.T) {
		producer := new(mockProductsProducer)
		s := New(producer, nil, nil, nil, nil, nil)
		producer.On("ProduceProducts", mock.Anything, mock.Anything).
			Return(errBroker)

		_, err := s.AddProduct(t.Context(), draft)
		assert.ErrorIs(t, err, errBroker)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := New(nil, nil, nil, nil, nil, nil)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := s.AddProduct(ctx, draft)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestListProducts(t *testing.T) {
	stored := []domain.Product{
		{ProductID: "1", Name: "Apple", Price: decimal.NewFromInt(3), Category: "Fruits"},
		{ProductID: "2", Name: "Banana", Price: decimal.NewFromInt(1), Category: "Fruits"},
		{ProductID: "3", Name: "Rice", Price: decimal.NewFromInt(10), Category: "Grains"},
	}

	t.Run("AppliesQuery", func(t *testing.T) {
		storage := new(mockProductsStorage)
		storage.On("ReadProducts", t.Context()).Return(stored, nil)
		s := New(nil, nil, storage, nil, nil, nil)

		q := domain.Query{Category: "Fruits", Sort: domain.SortPriceAsc}
		ps, err := s.ListProducts(t.Context(), q)
		require.NoError(t, err)
		require.Len(t, ps, 2)
		assert.Equal(t, "Banana", ps[0].Name)
		assert.Equal(t, "Apple", ps[1].Name)
		assert.Equal(t, "Apple", stored[0].Name)
	})

	t.Run("StorageFails", func(t *testing.T) {
		errDB := errors.New("db is down")
		storage := new(mockProductsStorage)
		storage.On("ReadProducts", t.Context()).Return(nil, errDB)
		s := New(nil, nil, storage, nil, nil, nil)

		_, err := s.ListProducts(t.Context(), domain.Query{})
		assert.ErrorIs(t, err, errDB)
	})
}

func TestGetProduct(t *testing.T) {
	storage := new(mockProductsStorage)
	storage.On("ReadProduct", t.Context(), "missing").
		Return(domain.Product{}, domain.ErrNotFound)
	storage.On("ReadProduct", t.Context(), "1").
		Return(domain.Product{ProductID: "1", Name: "Milk"}, nil)
	s := New(nil, nil, storage, nil, nil, nil)

	_, err := s.GetProduct(t.Context(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, err := s.GetProduct(t.Context(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Milk", p.Name)
}

func TestListOrders(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stored := []domain.Order{
		{OrderID: "old", PlacedAt: now.Add(-48 * time.Hour)},
		{OrderID: "new", PlacedAt: now},
		{OrderID: "mid", PlacedAt: now.Add(-time.Hour)},
	}

	storage := new(mockOrdersStorage)
	storage.On("ReadOrders", t.Context(), "farmer").Return(stored, nil)
	s := New(nil, nil, nil, storage, nil, nil)

	os, err := s.ListOrders(t.Context(), "farmer")
	require.NoError(t, err)
	require.Len(t, os, 3)
	assert.Equal(t, "new", os[0].OrderID)
	assert.Equal(t, "mid", os[1].OrderID)
	assert.Equal(t, "old", os[2].OrderID)
}

func TestListCategories(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, nil)
	cs := s.ListCategories(t.Context(), "veg")
	require.Len(t, cs, 1)
	assert.Equal(t, "Vegetables", cs[0].Name)
}

func TestSetRule(t *testing.T) {
	rule := domain.ProductFilter{ProductName: "Potato", Blocked: true}

	producer := new(mockFilterProducer)
	producer.On("ProduceFilter", t.Context(), rule).Return(nil).Once()
	s := New(nil, producer, nil, nil, nil, nil)

	require.NoError(t, s.SetRule(t.Context(), rule))
	producer.AssertExpectations(t)
}

func TestSaveProducts(t *testing.T) {
	ps := []domain.Product{{ProductID: "1", Name: "Milk"}}

	storage := new(mockProductsStorage)
	storage.On("StoreProducts", t.Context(), ps).Return(errBroker)
	s := New(nil, nil, storage, nil, nil, nil)

	err := s.SaveProducts(t.Context(), ps)
	assert.ErrorIs(t, err, errBroker)
}
