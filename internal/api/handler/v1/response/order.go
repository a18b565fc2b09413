package response

import (
	"github.com/nightspite/sol-pos/internal/domain"
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Order is an order as the cashier screen shows it, with its total in
// both cents and token units.
type Order struct {
	domain.Order
	Total       int64  `json:"total"`
	TotalAmount string `json:"total_amount"`
}

func NewOrder(o domain.Order) Order {
	if o.Lines == nil {
		o.Lines = []domain.OrderLine{}
	}

	return Order{
		Order:       o,
		Total:       o.Total(),
		TotalAmount: o.TotalAmount().String(),
	}
}

type OrderPage struct {
	Items []Order `json:"items"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
}

func NewOrderPage(p domain.OrderPage, page int) OrderPage {
	items := make([]Order, 0, len(p.Items))
	for _, o := range p.Items {
		items = append(items, NewOrder(o))
	}

	return OrderPage{
		Items: items,
		Total: p.Total,
		Page:  page,
	}
}

type Terminal struct {
	domain.Terminal
	Stock []domain.StockEntry `json:"stock"`
}

type PaymentRequest struct {
	URL       string `json:"url"`
	Recipient string `json:"recipient"`
	SPLToken  string `json:"spl_token"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
	Label     string `json:"label"`
	Message   string `json:"message"`
	Memo      string `json:"memo"`
	Order     Order  `json:"order"`
}

func NewPaymentRequest(req domain.PaymentRequest, o domain.Order) PaymentRequest {
	var url string
	if o.PaymentURL != nil {
		url = *o.PaymentURL
	}

	return PaymentRequest{
		URL:       url,
		Recipient: req.Recipient,
		SPLToken:  req.SPLToken,
		Amount:    req.Amount.String(),
		Reference: req.Reference,
		Label:     req.Label,
		Message:   req.Message,
		Memo:      req.Memo,
		Order:     NewOrder(o),
	}
}

// Pending answers a verification whose transaction the ledger could not
// confirm yet.
type Pending struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Explorer struct {
	Signature string `json:"signature"`
	URL       string `json:"url"`
}
