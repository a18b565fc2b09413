package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/ledger"
)

const testSignature = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"

func paidOrder() domain.Order {
	return cartOrder(domain.OrderLine{ProductID: "p1", Quantity: 2, Price: 75})
}

func TestVerifier_VerifyAndComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a valid payment", func(t *testing.T) {
		orders := newFakeOrders(paidOrder())
		validator := &fakeValidator{}
		events := &fakeEvents{}
		v := NewVerifier(orders, validator, testPaymentConfig, time.Second, events, nil)

		order, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCompleted, order.Status)
		require.NotNil(t, order.Signature)
		assert.Equal(t, testSignature, *order.Signature)

		assert.Equal(t, "1.5", validator.transfer.Amount.String())
		assert.Equal(t, "29d2S7vB453rNYFdR5Ycwt7y9haRT5fwVwL9zTmBhfV2", validator.transfer.Reference)
		assert.Equal(t, testPaymentConfig.Recipient, validator.transfer.Recipient)
		require.Len(t, events.completed, 1)
		assert.Equal(t, testOrderID, events.completed[0].ID)
	})

	t.Run("second call finds the order closed", func(t *testing.T) {
		orders := newFakeOrders(paidOrder())
		validator := &fakeValidator{}
		v := NewVerifier(orders, validator, testPaymentConfig, time.Second, nil, nil)

		_, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		require.NoError(t, err)

		_, err = v.VerifyAndComplete(ctx, testOrderID, testSignature)
		assert.ErrorIs(t, err, ErrOrderNotInCart)
		assert.Equal(t, 1, validator.calls)
		assert.Equal(t, 1, orders.called("Complete"))
	})

	t.Run("invalid transfer leaves the cart open", func(t *testing.T) {
		orders := newFakeOrders(paidOrder())
		v := NewVerifier(orders, &fakeValidator{err: ledger.ErrInvalidTransfer}, testPaymentConfig, time.Second, nil, nil)

		_, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		assert.ErrorIs(t, err, ErrTransferInvalid)
		assert.NotErrorIs(t, err, ErrPaymentPending)
		assert.Zero(t, orders.called("Complete"))

		order, _ := orders.FindByID(ctx, testOrderID)
		assert.True(t, order.IsCart())
	})

	t.Run("ledger error is pending", func(t *testing.T) {
		orders := newFakeOrders(paidOrder())
		v := NewVerifier(orders, &fakeValidator{err: errors.New("connection refused")}, testPaymentConfig, time.Second, nil, nil)

		_, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		assert.ErrorIs(t, err, ErrPaymentPending)
		assert.Zero(t, orders.called("Complete"))
	})

	t.Run("malformed expected transfer is not pending", func(t *testing.T) {
		orders := newFakeOrders(paidOrder())
		bad := fmt.Errorf("%w: recipient: invalid key", ledger.ErrBadTransfer)
		v := NewVerifier(orders, &fakeValidator{err: bad}, testPaymentConfig, time.Second, nil, nil)

		_, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		assert.ErrorIs(t, err, ledger.ErrBadTransfer)
		assert.NotErrorIs(t, err, ErrPaymentPending)
		assert.NotErrorIs(t, err, ErrTransferInvalid)
		assert.Zero(t, orders.called("Complete"))
	})

	t.Run("slow ledger times out as pending", func(t *testing.T) {
		orders := newFakeOrders(paidOrder())
		validator := &fakeValidator{hook: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}
		v := NewVerifier(orders, validator, testPaymentConfig, 20*time.Millisecond, nil, nil)

		_, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		assert.ErrorIs(t, err, ErrPaymentPending)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("order changed during validation", func(t *testing.T) {
		orders := newFakeOrders(paidOrder())
		validator := &fakeValidator{hook: func(context.Context) error {
			orders.setLines(testOrderID, domain.OrderLine{ProductID: "p1", Quantity: 3, Price: 75})
			return nil
		}}
		v := NewVerifier(orders, validator, testPaymentConfig, time.Second, nil, nil)

		_, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		assert.ErrorIs(t, err, ErrTotalChanged)

		order, _ := orders.FindByID(ctx, testOrderID)
		assert.True(t, order.IsCart())
	})

	t.Run("empty order", func(t *testing.T) {
		orders := newFakeOrders(cartOrder())
		validator := &fakeValidator{}
		v := NewVerifier(orders, validator, testPaymentConfig, time.Second, nil, nil)

		_, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		assert.ErrorIs(t, err, ErrEmptyOrder)
		assert.Zero(t, validator.calls)
	})

	t.Run("unknown order", func(t *testing.T) {
		v := NewVerifier(newFakeOrders(), &fakeValidator{}, testPaymentConfig, time.Second, nil, nil)

		_, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("publish failure does not fail completion", func(t *testing.T) {
		orders := newFakeOrders(paidOrder())
		v := NewVerifier(orders, &fakeValidator{}, testPaymentConfig, time.Second, &fakeEvents{err: errors.New("broker down")}, nil)

		order, err := v.VerifyAndComplete(ctx, testOrderID, testSignature)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	})
}
