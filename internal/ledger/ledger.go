// Package ledger holds the contract the checkout engine uses to talk to the
// chain, plus decorators that add caching and circuit breaking to any
// implementation of it.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrReferenceNotFound means no finalized transaction carries the
	// reference yet.
	ErrReferenceNotFound = errors.New("reference not found on ledger")
	// ErrInvalidTransfer means the transaction exists but does not pay the
	// expected transfer.
	ErrInvalidTransfer = errors.New("transaction does not match the expected transfer")
	// ErrBadTransfer means the expected transfer itself cannot be checked,
	// usually a malformed recipient or token mint in the config.
	ErrBadTransfer = errors.New("expected transfer is malformed")
)

// Transfer is what a payment transaction must move to settle an order.
type Transfer struct {
	Recipient string
	SPLToken  string
	Amount    decimal.Decimal
	Reference string
}

type Finder interface {
	// FindReference returns the signature of a finalized transaction that
	// references the given key, or ErrReferenceNotFound.
	FindReference(ctx context.Context, reference string) (string, error)
}

type Validator interface {
	ValidateTransfer(ctx context.Context, signature string, transfer Transfer) error
}

type Client interface {
	Finder
	Validator
}

// IsPending reports whether err leaves a payment unconfirmed rather than
// rejected, so the caller should simply try again later.
func IsPending(err error) bool {
	return err != nil && !errors.Is(err, ErrInvalidTransfer) && !errors.Is(err, ErrBadTransfer)
}
