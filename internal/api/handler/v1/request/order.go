package request

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/nightspite/sol-pos/internal/domain"
)

// Base58 transaction signatures encode 64 bytes.
var signatureExp = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{64,88}$`)

type AddLineRequest struct {
	ProductID string `json:"product_id"`
}

func (req *AddLineRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.ProductID, validation.Required, is.UUID),
	)
}

type VerifyRequest struct {
	Signature string `json:"signature"`
}

func (req *VerifyRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Signature, validation.Required, validation.Match(signatureExp)),
	)
}

type ListOrdersRequest struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

func (req *ListOrdersRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Status, validation.In(
			string(domain.OrderStatusCart),
			string(domain.OrderStatusCompleted),
			string(domain.OrderStatusCancelled),
		)),
		validation.Field(&req.Page, validation.Min(0)),
		validation.Field(&req.PageSize, validation.Min(0), validation.Max(100)),
	)
}

type SetStockRequest struct {
	Quantity *int `json:"quantity"`
}

func (req *SetStockRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Quantity, validation.NotNil, validation.Min(0)),
	)
}
