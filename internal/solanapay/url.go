// Package solanapay encodes payment requests as Solana Pay transfer URLs.
package solanapay

import (
	"errors"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/nightspite/sol-pos/internal/domain"
)

const scheme = "solana"

var ErrMissingRecipient = errors.New("payment request has no recipient")

// EncodeURL renders a transfer request URL such as
// solana:<recipient>?amount=1.5&spl-token=<mint>&reference=<ref>&label=..&message=..&memo=..
// Parameters keep that order and empty ones are left out.
func EncodeURL(req domain.PaymentRequest) (string, error) {
	if req.Recipient == "" {
		return "", ErrMissingRecipient
	}

	var params []string
	add := func(key, value string) {
		if value != "" {
			params = append(params, key+"="+url.QueryEscape(value))
		}
	}

	if req.Amount.IsPositive() {
		add("amount", req.Amount.String())
	}
	add("spl-token", req.SPLToken)
	add("reference", req.Reference)
	add("label", req.Label)
	add("message", req.Message)
	add("memo", req.Memo)

	u := scheme + ":" + url.PathEscape(req.Recipient)
	if len(params) > 0 {
		u += "?" + strings.Join(params, "&")
	}

	return u, nil
}

// QRCode renders a payment URL as a PNG image of size by size pixels.
func QRCode(paymentURL string, size int) ([]byte, error) {
	return qrcode.Encode(paymentURL, qrcode.Medium, size)
}

// ExplorerURL links a transaction on solscan. Mainnet needs no cluster
// parameter.
func ExplorerURL(signature, cluster string) string {
	u := "https://solscan.io/tx/" + url.PathEscape(signature)
	if cluster != "" && cluster != "mainnet-beta" {
		u += "?cluster=" + url.QueryEscape(cluster)
	}

	return u
}
