package domain

import "github.com/shopspring/decimal"

// PaymentRequest describes a token transfer a wallet is asked to make.
type PaymentRequest struct {
	Recipient string          `json:"recipient"`
	SPLToken  string          `json:"spl_token"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Label     string          `json:"label"`
	Message   string          `json:"message"`
	Memo      string          `json:"memo"`
}
