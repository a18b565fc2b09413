// Package reference derives the on-chain reference key of an order.
//
// A UUID only carries 16 bytes while a ledger account key needs 32, so the
// hex form of the id is repeated once before decoding. Wallets and the
// ledger match on the exact base58 string produced here.
package reference

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const keySize = 32

var ErrInvalidOrderID = errors.New("invalid order id")

// FromOrderID returns the base58 encoded reference key for an order id.
func FromOrderID(orderID string) (string, error) {
	key, err := Key(orderID)
	if err != nil {
		return "", err
	}

	return base58.Encode(key), nil
}

// Key returns the raw 32 byte reference key for an order id.
func Key(orderID string) ([]byte, error) {
	h := strings.ReplaceAll(orderID, "-", "")
	if len(h) != keySize {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrderID, orderID)
	}

	key, err := hex.DecodeString(h + h)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrderID, orderID)
	}

	return key, nil
}
