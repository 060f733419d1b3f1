package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrInvalidSortKey = errors.New("invalid sort key")

type SortKey int

const (
	SortNone SortKey = iota
	SortPriceAsc
	SortPriceDesc
)

func (k SortKey) String() string {
	switch k {
	case SortPriceAsc:
		return "priceAsc"
	case SortPriceDesc:
		return "priceDesc"
	default:
		return ""
	}
}

// ParseSortKey maps the wire name of a sort key. Empty string is [SortNone].
func ParseSortKey(s string) (SortKey, error) {
	switch s {
	case "":
		return SortNone, nil
	case "priceAsc":
		return SortPriceAsc, nil
	case "priceDesc":
		return SortPriceDesc, nil
	}
	return SortNone, fmt.Errorf("%w: %q", ErrInvalidSortKey, s)
}

// A Query is a search text, an optional category and an optional sort key.
//
// Empty Search and empty Category mean "not set".
type Query struct {
	Search   string
	Category string
	Sort     SortKey
}

// Apply returns a new slice with the products matching q, in the order q asks for.
//
// The input slice is never modified. Products with equal prices keep
// their relative input order.
func (q Query) Apply(ps []Product) []Product {
	search := strings.ToLower(q.Search)

	out := make([]Product, 0, len(ps))
	for _, p := range ps {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b Product) int {
			return a.Price.Cmp(b.Price)
		})
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b Product) int {
			return b.Price.Cmp(a.Price)
		})
	}
	return out
}

// Categories returns distinct categories of ps in first-seen order.
func Categories(ps []Product) []string {
	seen := make(map[string]struct{}, len(ps))
	var cs []string
	for _, p := range ps {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		cs = append(cs, p.Category)
	}
	return cs
}
