package service

import (
	"errors"

	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/ledger"
	"github.com/nightspite/sol-pos/internal/repository"
)

var (
	ErrOrderNotFound      = repository.ErrOrderNotFound
	ErrOrderNotInCart     = repository.ErrOrderNotInCart
	ErrOrderLineNotFound  = repository.ErrOrderLineNotFound
	ErrOutOfStock         = repository.ErrOutOfStock
	ErrSignatureUsed      = repository.ErrSignatureUsed
	ErrTerminalNotFound   = repository.ErrTerminalNotFound
	ErrStockEntryNotFound = repository.ErrStockEntryNotFound
	ErrTransferInvalid    = ledger.ErrInvalidTransfer

	ErrEmptyOrder      = errors.New("order total is zero")
	ErrTotalChanged    = errors.New("order changed while its payment was being verified")
	ErrPaymentPending  = errors.New("payment is not confirmed yet")
	ErrNotStoreMember  = errors.New("user is not a member of the store")
	ErrAdminOnly       = errors.New("operation requires the ADMIN role")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

func authorize(user domain.User, storeID string) error {
	if !user.CanOperate(storeID) {
		return ErrNotStoreMember
	}

	return nil
}
