package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightspite/sol-pos/internal/config"
	"github.com/nightspite/sol-pos/internal/domain"
)

var testPaymentConfig = &config.PaymentConfig{
	Recipient: "Beedg7aJKXzyy1PMeBr4SFKPvkx8G8TiXTmy3TRLXhGS",
	SPLToken:  "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
	Label:     "Sol PoS",
}

func TestNewPaymentRequest(t *testing.T) {
	order := cartOrder(
		domain.OrderLine{ProductID: "p1", Quantity: 2, Price: 125},
		domain.OrderLine{ProductID: "p2", Quantity: 1, Price: 50},
	)

	req, err := NewPaymentRequest(testPaymentConfig, order)
	require.NoError(t, err)
	assert.Equal(t, "3", req.Amount.String())
	assert.Equal(t, "29d2S7vB453rNYFdR5Ycwt7y9haRT5fwVwL9zTmBhfV2", req.Reference)
	assert.Equal(t, testPaymentConfig.Recipient, req.Recipient)
	assert.Equal(t, testPaymentConfig.SPLToken, req.SPLToken)
	assert.Equal(t, "Order "+testOrderID, req.Message)
	assert.Equal(t, "order:"+testOrderID+" amount:3", req.Memo)

	_, err = NewPaymentRequest(testPaymentConfig, cartOrder())
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestPaymentService_BuildPaymentRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the payment url", func(t *testing.T) {
		orders := newFakeOrders(cartOrder(domain.OrderLine{ProductID: "p1", Quantity: 1, Price: 150}))
		svc := NewPaymentService(orders, testPaymentConfig, nil)

		req, order, err := svc.BuildPaymentRequest(ctx, cashier, testOrderID)
		require.NoError(t, err)
		assert.Equal(t, "1.5", req.Amount.String())
		require.NotNil(t, order.PaymentURL)
		assert.True(t, strings.HasPrefix(*order.PaymentURL, "solana:"+testPaymentConfig.Recipient+"?amount=1.5"))
		assert.Contains(t, *order.PaymentURL, "reference="+req.Reference)
		assert.True(t, order.IsCart())
	})

	t.Run("regenerating replaces the url", func(t *testing.T) {
		orders := newFakeOrders(cartOrder(domain.OrderLine{ProductID: "p1", Quantity: 1, Price: 150}))
		svc := NewPaymentService(orders, testPaymentConfig, nil)

		_, first, err := svc.BuildPaymentRequest(ctx, cashier, testOrderID)
		require.NoError(t, err)

		orders.setLines(testOrderID, domain.OrderLine{ProductID: "p1", Quantity: 2, Price: 150})
		_, second, err := svc.BuildPaymentRequest(ctx, cashier, testOrderID)
		require.NoError(t, err)

		assert.NotEqual(t, *first.PaymentURL, *second.PaymentURL)
		assert.Contains(t, *second.PaymentURL, "amount=3")
		assert.Equal(t, 2, orders.called("SetPaymentURL"))
	})

	t.Run("empty order", func(t *testing.T) {
		orders := newFakeOrders(cartOrder())
		svc := NewPaymentService(orders, testPaymentConfig, nil)

		_, _, err := svc.BuildPaymentRequest(ctx, cashier, testOrderID)
		assert.ErrorIs(t, err, ErrEmptyOrder)
		assert.Zero(t, orders.called("SetPaymentURL"))
	})

	t.Run("order not in cart", func(t *testing.T) {
		order := cartOrder(domain.OrderLine{ProductID: "p1", Quantity: 1, Price: 150})
		order.Status = domain.OrderStatusCompleted
		orders := newFakeOrders(order)
		svc := NewPaymentService(orders, testPaymentConfig, nil)

		_, _, err := svc.BuildPaymentRequest(ctx, cashier, testOrderID)
		assert.ErrorIs(t, err, ErrOrderNotInCart)
		assert.Zero(t, orders.called("SetPaymentURL"))
	})

	t.Run("user outside the store", func(t *testing.T) {
		orders := newFakeOrders(cartOrder(domain.OrderLine{ProductID: "p1", Quantity: 1, Price: 150}))
		svc := NewPaymentService(orders, testPaymentConfig, nil)

		_, _, err := svc.BuildPaymentRequest(ctx, domain.User{ID: "u2"}, testOrderID)
		assert.ErrorIs(t, err, ErrNotStoreMember)
	})
}
