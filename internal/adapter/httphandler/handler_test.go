package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/niksmo/farm-bridge/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) AddProduct(
	ctx context.Context, d domain.ProductDraft,
) (domain.Product, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *mockService) ListProducts(
	ctx context.Context, q domain.Query,
) ([]domain.Product, error) {
	args := m.Called(ctx, q)
	ps, _ := args.Get(0).([]domain.Product)
	return ps, args.Error(1)
}

func (m *mockService) GetProduct(
	ctx context.Context, productID string,
) (domain.Product, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *mockService) ListCategories(
	ctx context.Context, search string,
) []domain.Category {
	args := m.Called(ctx, search)
	return args.Get(0).([]domain.Category)
}

func (m *mockService) ListOrders(
	ctx context.Context, username string,
) ([]domain.Order, error) {
	args := m.Called(ctx, username)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *mockService) SetRule(
	ctx context.Context, pf domain.ProductFilter,
) error {
	args := m.Called(ctx, pf)
	return args.Error(0)
}

func newTestMux(s *mockService) http.Handler {
	mux := http.NewServeMux()
	RegisterProducts(mux, s, s, s)
	RegisterCategories(mux, s)
	RegisterOrders(mux, s)
	RegisterFilter(mux, s)
	return AllowJSON(mux)
}

func doRequest(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestPostProducts(t *testing.T) {
	body := `{
		"name": "Apple",
		"description": "Red apples",
		"price": "3.5",
		"quantity": 20,
		"category": "Fruits"
	}`

	t.Run("Accepted", func(t *testing.T) {
		s := new(mockService)
		s.On("AddProduct", mock.Anything, mock.MatchedBy(
			func(d domain.ProductDraft) bool {
				return d.Name == "Apple" &&
					d.Quantity == 20 &&
					d.Price.Equal(decimal.RequireFromString("3.5"))
			},
		)).Return(domain.Product{
			ProductID: "id-1",
			Name:      "Apple",
			Price:     decimal.RequireFromString("3.5"),
			Quantity:  20,
			Category:  "Fruits",
			Image:     "apple.jpg",
		}, nil)

		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/products", body))
		require.Equal(t, http.StatusAccepted, w.Code)

		var p Product
		require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
		assert.Equal(t, "id-1", p.ProductID)
		assert.Equal(t, 3.5, p.Price)
		assert.Equal(t, "apple.jpg", p.Image)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		s := new(mockService)
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/products", "{"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.AssertNotCalled(t, "AddProduct")
	})

	t.Run("MissingQuantity", func(t *testing.T) {
		s := new(mockService)
		b := `{"name":"Apple","description":"x","price":1,"category":"Fruits"}`
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/products", b))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.AssertNotCalled(t, "AddProduct")
	})

	t.Run("MissingPrice", func(t *testing.T) {
		s := new(mockService)
		b := `{"name":"Apple","description":"Red","quantity":3,"category":"Fruits"}`
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/products", b))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.AssertNotCalled(t, "AddProduct")
	})

	t.Run("NullPrice", func(t *testing.T) {
		s := new(mockService)
		b := `{"name":"Apple","description":"Red","price":null,"quantity":3,"category":"Fruits"}`
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/products", b))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.AssertNotCalled(t, "AddProduct")
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		s := new(mockService)
		b := `{"name":"Beef","description":"x","price":1,"quantity":1,"category":"Meat"}`
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/products", b))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DomainValidation", func(t *testing.T) {
		s := new(mockService)
		s.On("AddProduct", mock.Anything, mock.Anything).Return(
			domain.Product{},
			fmt.Errorf("Service.AddProduct: %w", domain.ErrNegativeValue),
		)
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/products", body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("PriceOutOfRange", func(t *testing.T) {
		s := new(mockService)
		s.On("AddProduct", mock.Anything, mock.Anything).Return(
			domain.Product{},
			fmt.Errorf("Service.AddProduct: %w", domain.ErrPriceRange),
		)
		b := `{"name":"Apple","description":"Red","price":1e15,"quantity":3,"category":"Fruits"}`
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/products", b))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("BrokerUnavailable", func(t *testing.T) {
		s := new(mockService)
		s.On("AddProduct", mock.Anything, mock.Anything).
			Return(domain.Product{}, errors.New("broker is down"))
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/products", body))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "broker")
	})
}

func TestGetProducts(t *testing.T) {
	t.Run("PassesQuery", func(t *testing.T) {
		s := new(mockService)
		q := domain.Query{Search: "an", Category: "Fruits", Sort: domain.SortPriceDesc}
		s.On("ListProducts", mock.Anything, q).Return([]domain.Product{
			{ProductID: "2", Name: "Banana", Price: decimal.NewFromInt(1), Category: "Fruits"},
		}, nil)

		r := httptest.NewRequest(
			http.MethodGet, "/v1/products?search=an&category=Fruits&sort=priceDesc", nil,
		)
		w := doRequest(newTestMux(s), r)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp ProductsResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Products, 1)
		assert.Equal(t, "Banana", resp.Products[0].Name)
		assert.Equal(t, 1.0, resp.Products[0].Price)
	})

	t.Run("EmptyIsArray", func(t *testing.T) {
		s := new(mockService)
		s.On("ListProducts", mock.Anything, domain.Query{}).Return(nil, nil)

		w := doRequest(newTestMux(s), httptest.NewRequest(http.MethodGet, "/v1/products", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"products":[]}`, w.Body.String())
	})

	t.Run("BadSortKey", func(t *testing.T) {
		s := new(mockService)
		r := httptest.NewRequest(http.MethodGet, "/v1/products?sort=name", nil)
		w := doRequest(newTestMux(s), r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.AssertNotCalled(t, "ListProducts")
	})

	t.Run("StorageUnavailable", func(t *testing.T) {
		s := new(mockService)
		s.On("ListProducts", mock.Anything, mock.Anything).
			Return(nil, errors.New("db is down"))
		w := doRequest(newTestMux(s), httptest.NewRequest(http.MethodGet, "/v1/products", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestGetProduct(t *testing.T) {
	s := new(mockService)
	s.On("GetProduct", mock.Anything, "p1").
		Return(domain.Product{ProductID: "p1", Name: "Rice"}, nil)
	s.On("GetProduct", mock.Anything, "nope").
		Return(domain.Product{}, fmt.Errorf("wrapped: %w", domain.ErrNotFound))
	h := newTestMux(s)

	w := doRequest(h, httptest.NewRequest(http.MethodGet, "/v1/products/p1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var p Product
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, "Rice", p.Name)

	w = doRequest(h, httptest.NewRequest(http.MethodGet, "/v1/products/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCategories(t *testing.T) {
	s := new(mockService)
	s.On("ListCategories", mock.Anything, "da").
		Return([]domain.Category{{Name: "Dairy", Image: "Dairy.jpeg"}})

	r := httptest.NewRequest(http.MethodGet, "/v1/categories?search=da", nil)
	w := doRequest(newTestMux(s), r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"categories":[{"name":"Dairy","image":"Dairy.jpeg"}]}`,
		w.Body.String(),
	)
}

func TestGetOrders(t *testing.T) {
	t.Run("Unauthorized", func(t *testing.T) {
		s := new(mockService)
		w := doRequest(newTestMux(s), httptest.NewRequest(http.MethodGet, "/v1/orders", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("Regular", func(t *testing.T) {
		placed := time.Date(2024, 3, 2, 15, 4, 5, 0, time.UTC)
		s := new(mockService)
		s.On("ListOrders", mock.Anything, "buyer").Return([]domain.Order{{
			OrderID:  "o1",
			Username: "buyer",
			PlacedAt: placed,
			Items:    []string{"Apple", "Milk"},
			Total:    decimal.RequireFromString("12.50"),
			Status:   domain.OrderDelivered,
		}}, nil)

		r := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
		r.SetBasicAuth("buyer", "secret")
		w := doRequest(newTestMux(s), r)
		require.Equal(t, http.StatusOK, w.Code)

		var resp OrdersResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Orders, 1)
		o := resp.Orders[0]
		assert.Equal(t, "o1", o.OrderID)
		assert.True(t, placed.Equal(o.Date))
		assert.Equal(t, []string{"Apple", "Milk"}, o.Items)
		assert.Equal(t, 12.5, o.Total)
		assert.True(t, o.Delivered)
	})

	t.Run("StorageUnavailable", func(t *testing.T) {
		s := new(mockService)
		s.On("ListOrders", mock.Anything, "buyer").Return(nil, errors.New("db"))
		r := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
		r.SetBasicAuth("buyer", "")
		w := doRequest(newTestMux(s), r)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestPostFilter(t *testing.T) {
	t.Run("Regular", func(t *testing.T) {
		s := new(mockService)
		rule := domain.ProductFilter{ProductName: "Potato", Blocked: true}
		s.On("SetRule", mock.Anything, rule).Return(nil).Once()

		b := `{"name":"Potato","blocked":true}`
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/filter", b))
		assert.Equal(t, http.StatusOK, w.Code)
		s.AssertExpectations(t)
	})

	t.Run("MissingName", func(t *testing.T) {
		s := new(mockService)
		w := doRequest(newTestMux(s), jsonRequest(http.MethodPost, "/v1/filter", `{"blocked":true}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.AssertNotCalled(t, "SetRule")
	})
}
