package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCart      OrderStatus = "CART"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type Order struct {
	ID         string      `json:"id"`
	StoreID    string      `json:"store_id"`
	PosID      string      `json:"pos_id"`
	Status     OrderStatus `json:"status"`
	PaymentURL *string     `json:"payment_url"`
	Signature  *string     `json:"signature"`
	Lines      []OrderLine `json:"lines"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderLine holds the unit price captured when the product was first added.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

func (o Order) IsCart() bool {
	return o.Status == OrderStatusCart
}

// Total returns the order amount in cents. Every caller that needs the
// amount of an order must go through this method.
func (o Order) Total() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.Price * int64(l.Quantity)
	}

	return total
}

// TotalAmount is Total expressed in the payment token's unit.
func (o Order) TotalAmount() decimal.Decimal {
	return CentsToAmount(o.Total())
}

func (o Order) Line(productID string) (OrderLine, bool) {
	for _, l := range o.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}

	return OrderLine{}, false
}

func CentsToAmount(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

type OrderPage struct {
	Items []Order `json:"items"`
	Total int64   `json:"total"`
}
