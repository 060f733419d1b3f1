package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

type Order struct {
	OrderID  string
	Username string
	PlacedAt time.Time
	Items    []string
	Total    decimal.Decimal
	Status   OrderStatus
}

func (o Order) Delivered() bool {
	return o.Status == OrderDelivered
}
