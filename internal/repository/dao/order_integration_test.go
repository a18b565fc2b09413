//go:build integration

package dao

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderDAO_InsertCart_OnePerTerminal(t *testing.T) {
	f := newFixture(t, 1, 1)
	d := NewOrderDAO(testDB)
	ctx := context.Background()

	first, err := d.InsertCart(ctx, f.store.ID, f.terminals[0].ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCart, first.Status)

	_, err = d.InsertCart(ctx, f.store.ID, f.terminals[0].ID)
	assert.ErrorIs(t, err, ErrOpenCartExists)

	found, err := d.FindOpenCart(ctx, f.terminals[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestOrderDAO_SingleUnitScenario(t *testing.T) {
	f := newFixture(t, 1, 1)
	d := NewOrderDAO(testDB)
	ctx := context.Background()
	cart := f.openCart(t, 0)

	order, err := d.AddItem(ctx, cart.ID, f.product.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 1, order.Items[0].Quantity)
	assert.Equal(t, 0, f.stock(t))

	_, err = d.AddItem(ctx, cart.ID, f.product.ID)
	assert.ErrorIs(t, err, ErrOutOfStock)
	order, err = d.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, order.Items[0].Quantity)
	assert.Equal(t, 0, f.stock(t))

	_, err = d.RemoveItem(ctx, cart.ID, f.product.ID, false)
	assert.ErrorIs(t, err, ErrOrderLineNotFound)
	order, err = d.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, 0, f.stock(t))

	order, err = d.RemoveItem(ctx, cart.ID, f.product.ID, true)
	require.NoError(t, err)
	assert.Empty(t, order.Items)
	assert.Equal(t, 1, f.stock(t))
}

func TestOrderDAO_RemoveItem_Decrement(t *testing.T) {
	f := newFixture(t, 1, 5)
	d := NewOrderDAO(testDB)
	ctx := context.Background()
	cart := f.openCart(t, 0)

	for i := 0; i < 3; i++ {
		_, err := d.AddItem(ctx, cart.ID, f.product.ID)
		require.NoError(t, err)
	}

	order, err := d.RemoveItem(ctx, cart.ID, f.product.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 3, f.stock(t))

	_, err = d.RemoveItem(ctx, cart.ID, uuid.NewString(), true)
	assert.ErrorIs(t, err, ErrStockEntryNotFound)
}

func TestOrderDAO_AddItem_LastUnitRace(t *testing.T) {
	f := newFixture(t, 2, 1)
	d := NewOrderDAO(testDB)
	carts := []Order{f.openCart(t, 0), f.openCart(t, 1)}

	var wg sync.WaitGroup
	errs := make([]error, len(carts))
	start := make(chan struct{})
	for i, cart := range carts {
		wg.Add(1)
		go func(i int, orderID string) {
			defer wg.Done()
			<-start
			_, errs[i] = d.AddItem(context.Background(), orderID, f.product.ID)
		}(i, cart.ID)
	}
	close(start)
	wg.Wait()

	var succeeded, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, outOfStock)
	assert.Equal(t, 0, f.stock(t))
}

func TestOrderDAO_StockConservation(t *testing.T) {
	const initial = 20
	f := newFixture(t, 4, initial)
	d := NewOrderDAO(testDB)

	carts := make([]Order, len(f.terminals))
	for i := range f.terminals {
		carts[i] = f.openCart(t, i)
	}

	var wg sync.WaitGroup
	for i, cart := range carts {
		wg.Add(1)
		go func(seed int64, orderID string) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for n := 0; n < 25; n++ {
				ctx := context.Background()
				switch rnd.Intn(4) {
				case 0:
					_, _ = d.RemoveItem(ctx, orderID, f.product.ID, false)
				case 1:
					_, _ = d.RemoveItem(ctx, orderID, f.product.ID, rnd.Intn(3) == 0)
				default:
					_, _ = d.AddItem(ctx, orderID, f.product.ID)
				}
			}
		}(int64(i+1), cart.ID)
	}
	wg.Wait()

	var reserved int
	for _, cart := range carts {
		order, err := d.FindByID(context.Background(), cart.ID)
		require.NoError(t, err)
		for _, item := range order.Items {
			assert.GreaterOrEqual(t, item.Quantity, 1)
			reserved += item.Quantity
		}
	}

	stock := f.stock(t)
	assert.GreaterOrEqual(t, stock, 0)
	assert.Equal(t, initial-stock, reserved)
}

func TestOrderDAO_AddItem_PriceFrozen(t *testing.T) {
	f := newFixture(t, 1, 5)
	d := NewOrderDAO(testDB)
	ctx := context.Background()
	cart := f.openCart(t, 0)

	_, err := d.AddItem(ctx, cart.ID, f.product.ID)
	require.NoError(t, err)

	require.NoError(t, testDB.Model(&Product{ID: f.product.ID}).Update("price", 999).Error)

	order, err := d.AddItem(ctx, cart.ID, f.product.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, int64(250), order.Items[0].Price)
}

func TestOrderDAO_AddItem_Errors(t *testing.T) {
	f := newFixture(t, 1, 5)
	d := NewOrderDAO(testDB)
	ctx := context.Background()
	cart := f.openCart(t, 0)

	_, err := d.AddItem(ctx, uuid.NewString(), f.product.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = d.AddItem(ctx, cart.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrStockEntryNotFound)

	_, err = d.Complete(ctx, cart.ID, "sig-1", nil)
	require.NoError(t, err)

	_, err = d.AddItem(ctx, cart.ID, f.product.ID)
	assert.ErrorIs(t, err, ErrOrderNotInCart)
	assert.Equal(t, 5, f.stock(t))
}

func TestOrderDAO_Complete(t *testing.T) {
	f := newFixture(t, 2, 5)
	d := NewOrderDAO(testDB)
	ctx := context.Background()
	cart := f.openCart(t, 0)

	_, err := d.AddItem(ctx, cart.ID, f.product.ID)
	require.NoError(t, err)

	checkErr := errors.New("total changed")
	_, err = d.Complete(ctx, cart.ID, "sig-1", func(Order) error { return checkErr })
	assert.ErrorIs(t, err, checkErr)

	var seen Order
	order, err := d.Complete(ctx, cart.ID, "sig-1", func(o Order) error {
		seen = o
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen.Items, 1)
	assert.Equal(t, OrderStatusCompleted, order.Status)
	require.NotNil(t, order.Signature)
	assert.Equal(t, "sig-1", *order.Signature)

	_, err = d.Complete(ctx, cart.ID, "sig-1", nil)
	assert.ErrorIs(t, err, ErrOrderNotInCart)
	assert.Equal(t, 4, f.stock(t))

	other := f.openCart(t, 1)
	_, err = d.Complete(ctx, other.ID, "sig-1", nil)
	assert.ErrorIs(t, err, ErrSignatureUsed)

	// a completed order frees the terminal for a new cart
	_, err = d.InsertCart(ctx, f.store.ID, f.terminals[0].ID)
	assert.NoError(t, err)
}

func TestOrderDAO_Cancel(t *testing.T) {
	f := newFixture(t, 1, 5)
	d := NewOrderDAO(testDB)
	ctx := context.Background()
	cart := f.openCart(t, 0)

	for i := 0; i < 3; i++ {
		_, err := d.AddItem(ctx, cart.ID, f.product.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.stock(t))

	order, err := d.Cancel(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, order.Status)
	assert.Equal(t, 5, f.stock(t))

	_, err = d.Cancel(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrOrderNotInCart)
}

func TestOrderDAO_UpdatePaymentURL(t *testing.T) {
	f := newFixture(t, 1, 5)
	d := NewOrderDAO(testDB)
	ctx := context.Background()
	cart := f.openCart(t, 0)

	order, err := d.UpdatePaymentURL(ctx, cart.ID, "solana:a")
	require.NoError(t, err)
	require.NotNil(t, order.PaymentURL)
	assert.Equal(t, "solana:a", *order.PaymentURL)

	order, err = d.UpdatePaymentURL(ctx, cart.ID, "solana:b")
	require.NoError(t, err)
	assert.Equal(t, "solana:b", *order.PaymentURL)
	assert.Equal(t, 5, f.stock(t))
}

func TestOrderDAO_List(t *testing.T) {
	f := newFixture(t, 2, 5)
	d := NewOrderDAO(testDB)
	ctx := context.Background()

	first := f.openCart(t, 0)
	f.openCart(t, 1)
	_, err := d.Complete(ctx, first.ID, "sig-list", nil)
	require.NoError(t, err)

	orders, total, err := d.List(ctx, []string{f.store.ID}, "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)

	orders, total, err = d.List(ctx, []string{f.store.ID}, OrderStatusCompleted, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, first.ID, orders[0].ID)

	orders, total, err = d.List(ctx, []string{f.store.ID}, "", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 1)
}
