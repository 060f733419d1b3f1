package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/niksmo/farm-bridge/internal/core/domain"
	"github.com/niksmo/farm-bridge/internal/core/port"
)

// POST v1/products JSON draft (202 Accepted, 400 Bad request, 503)
// GET v1/products?search=&category=&sort=priceAsc|priceDesc (200 OK, 400)
// GET v1/products/{id} (200 OK, 404 Not found)
// GET v1/categories?search= (200 OK)
// GET v1/orders Authorization Basic (200 OK, 401 Unauthorized)
// POST v1/filter JSON {"name" string, "blocked" bool} (200 OK, 400 Bad request)

var validate = validator.New(validator.WithRequiredStructEnabled())

type ProductsHandler struct {
	adder  port.ProductsAdder
	lister port.ProductsLister
	getter port.ProductGetter
}

func RegisterProducts(
	mux *http.ServeMux,
	adder port.ProductsAdder,
	lister port.ProductsLister,
	getter port.ProductGetter,
) {
	h := ProductsHandler{adder, lister, getter}
	mux.HandleFunc("POST /v1/products", h.PostProducts)
	mux.HandleFunc("GET /v1/products", h.GetProducts)
	mux.HandleFunc("GET /v1/products/{id}", h.GetProduct)
}

func (h ProductsHandler) PostProducts(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PostProducts"
	log := slog.With("op", op)

	var draft ProductDraft
	if !decodeJSON(w, r, &draft, log) {
		return
	}

	p, err := h.adder.AddProduct(r.Context(), draft.toDomain())
	if err != nil {
		if isValidationErr(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			log.Warn("invalid product draft", "err", err)
			return
		}
		http.Error(
			w, "failed to accept product", http.StatusServiceUnavailable,
		)
		log.Error("failed to add product", "err", err)
		return
	}

	writeJSON(w, http.StatusAccepted, fromDomainProduct(p), log)
	log.Info("accepted", "productID", p.ProductID)
}

func (h ProductsHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetProducts"
	log := slog.With("op", op)

	params := r.URL.Query()
	sortKey, err := domain.ParseSortKey(params.Get("sort"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Warn("invalid query", "err", err)
		return
	}

	q := domain.Query{
		Search:   params.Get("search"),
		Category: params.Get("category"),
		Sort:     sortKey,
	}

	ps, err := h.lister.ListProducts(r.Context(), q)
	if err != nil {
		http.Error(w, "failed to load products", http.StatusServiceUnavailable)
		log.Error("failed to list products", "err", err)
		return
	}

	writeJSON(w, http.StatusOK, ProductsResponse{fromDomainProducts(ps)}, log)
}

func (h ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetProduct"
	log := slog.With("op", op)

	id := r.PathValue("id")
	p, err := h.getter.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load product", http.StatusServiceUnavailable)
		log.Error("failed to get product", "err", err, "productID", id)
		return
	}

	writeJSON(w, http.StatusOK, fromDomainProduct(p), log)
}

type CategoriesHandler struct {
	lister port.CategoriesLister
}

func RegisterCategories(mux *http.ServeMux, lister port.CategoriesLister) {
	h := CategoriesHandler{lister}
	mux.HandleFunc("GET /v1/categories", h.GetCategories)
}

func (h CategoriesHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	const op = "CategoriesHandler.GetCategories"
	log := slog.With("op", op)

	cs := h.lister.ListCategories(r.Context(), r.URL.Query().Get("search"))
	writeJSON(w, http.StatusOK, CategoriesResponse{fromDomainCategories(cs)}, log)
}

// OrdersHandler serves the order history of the Basic auth user.
//
// The password is not checked here: requests are expected to be
// authenticated upstream, by the gateway in front of the service.
type OrdersHandler struct {
	lister port.OrdersLister
}

func RegisterOrders(mux *http.ServeMux, lister port.OrdersLister) {
	h := OrdersHandler{lister}
	mux.HandleFunc("GET /v1/orders", h.GetOrders)
}

func (h OrdersHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersHandler.GetOrders"
	log := slog.With("op", op)

	username, _, ok := r.BasicAuth()
	if !ok || username == "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="orders"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := h.lister.ListOrders(r.Context(), username)
	if err != nil {
		http.Error(w, "failed to load orders", http.StatusServiceUnavailable)
		log.Error("failed to list orders", "err", err, "username", username)
		return
	}

	writeJSON(w, http.StatusOK, OrdersResponse{fromDomainOrders(orders)}, log)
}

type FilterHandler struct {
	setter port.ProductFilterSetter
}

func RegisterFilter(mux *http.ServeMux, setter port.ProductFilterSetter) {
	h := FilterHandler{setter}
	mux.HandleFunc("POST /v1/filter", h.PostFilter)
}

func (h FilterHandler) PostFilter(w http.ResponseWriter, r *http.Request) {
	const op = "FilterHandler.PostFilter"
	log := slog.With("op", op)

	var rule FilterRule
	if !decodeJSON(w, r, &rule, log) {
		return
	}

	pf := domain.ProductFilter{ProductName: rule.Name, Blocked: rule.Blocked}
	if err := h.setter.SetRule(r.Context(), pf); err != nil {
		http.Error(w, "failed to set rule", http.StatusServiceUnavailable)
		log.Error("failed to set rule", "err", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error("failed to write response body", "err", err)
		return
	}
	log.Info("rule is set", "productName", rule.Name, "blocked", rule.Blocked)
}

// decodeJSON decodes and validates the request body.
// It writes 400 and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, log *slog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return false
	}

	if err := validate.Struct(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Warn("failed to validate", "err", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}

func isValidationErr(err error) bool {
	return errors.Is(err, domain.ErrEmptyField) ||
		errors.Is(err, domain.ErrNegativeValue) ||
		errors.Is(err, domain.ErrPriceRange) ||
		errors.Is(err, domain.ErrUnknownCategory)
}
