package service

import (
	"context"
	"sync"

	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/ledger"
)

const (
	testStoreID    = "store-1"
	testTerminalID = "pos-1"
	testOrderID    = "11111111-1111-1111-1111-111111111111"
)

var cashier = domain.User{ID: "u1", Username: "cashier", Role: domain.RoleCashier, StoreIDs: []string{testStoreID}}

// fakeOrders keeps orders in memory and records which mutations ran.
type fakeOrders struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	err       error
	calls     map[string]int
	removeAll bool
}

func newFakeOrders(orders ...domain.Order) *fakeOrders {
	f := &fakeOrders{orders: map[string]domain.Order{}, calls: map[string]int{}}
	for _, o := range orders {
		f.orders[o.ID] = o
	}

	return f
}

func (f *fakeOrders) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[name]
}

func (f *fakeOrders) get(id string) (domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}

	return o, nil
}

func (f *fakeOrders) FindByID(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["FindByID"]++

	return f.get(id)
}

func (f *fakeOrders) FindOrCreateCart(_ context.Context, storeID, posID string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["FindOrCreateCart"]++

	for _, o := range f.orders {
		if o.PosID == posID && o.IsCart() {
			return o, nil
		}
	}
	o := domain.Order{ID: testOrderID, StoreID: storeID, PosID: posID, Status: domain.OrderStatusCart}
	f.orders[o.ID] = o

	return o, nil
}

func (f *fakeOrders) AddLine(_ context.Context, orderID, productID string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AddLine"]++
	if f.err != nil {
		return domain.Order{}, f.err
	}

	o, err := f.get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	o.Lines = append(o.Lines, domain.OrderLine{ProductID: productID, Quantity: 1, Price: 100})
	f.orders[orderID] = o

	return o, nil
}

func (f *fakeOrders) RemoveLine(_ context.Context, orderID, _ string, removeAll bool) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["RemoveLine"]++
	f.removeAll = removeAll
	if f.err != nil {
		return domain.Order{}, f.err
	}

	return f.get(orderID)
}

func (f *fakeOrders) Cancel(_ context.Context, orderID string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Cancel"]++

	o, err := f.get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.IsCart() {
		return domain.Order{}, ErrOrderNotInCart
	}
	o.Status = domain.OrderStatusCancelled
	f.orders[orderID] = o

	return o, nil
}

func (f *fakeOrders) List(_ context.Context, storeIDs []string, status domain.OrderStatus, page, pageSize int) (domain.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["List"]++

	var items []domain.Order
	for _, o := range f.orders {
		if status == "" || o.Status == status {
			items = append(items, o)
		}
	}

	return domain.OrderPage{Items: items, Total: int64(len(items))}, nil
}

func (f *fakeOrders) SetPaymentURL(_ context.Context, orderID, url string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SetPaymentURL"]++

	o, err := f.get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.IsCart() {
		return domain.Order{}, ErrOrderNotInCart
	}
	o.PaymentURL = &url
	f.orders[orderID] = o

	return o, nil
}

func (f *fakeOrders) Complete(_ context.Context, orderID, signature string, check func(domain.Order) error) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Complete"]++

	o, err := f.get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.IsCart() {
		return domain.Order{}, ErrOrderNotInCart
	}
	if check != nil {
		if err = check(o); err != nil {
			return domain.Order{}, err
		}
	}
	o.Status = domain.OrderStatusCompleted
	o.Signature = &signature
	f.orders[orderID] = o

	return o, nil
}

func (f *fakeOrders) setLines(orderID string, lines ...domain.OrderLine) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o := f.orders[orderID]
	o.Lines = lines
	f.orders[orderID] = o
}

type fakeTerminals struct {
	terminals map[string]domain.Terminal
	stock     []domain.StockEntry
	set       int
}

func (f *fakeTerminals) FindTerminalByID(_ context.Context, id string) (domain.Terminal, error) {
	t, ok := f.terminals[id]
	if !ok {
		return domain.Terminal{}, ErrTerminalNotFound
	}

	return t, nil
}

func (f *fakeTerminals) FindStock(context.Context, string) ([]domain.StockEntry, error) {
	return f.stock, nil
}

func (f *fakeTerminals) SetQuantity(_ context.Context, storeID, productID string, quantity int) (domain.StockEntry, error) {
	f.set++

	return domain.StockEntry{StoreID: storeID, ProductID: productID, Quantity: quantity}, nil
}

func newFakeTerminals() *fakeTerminals {
	return &fakeTerminals{terminals: map[string]domain.Terminal{
		testTerminalID: {ID: testTerminalID, StoreID: testStoreID, Name: "POS #1"},
	}}
}

type fakeValidator struct {
	mu       sync.Mutex
	calls    int
	err      error
	transfer ledger.Transfer
	hook     func(ctx context.Context) error
}

func (f *fakeValidator) ValidateTransfer(ctx context.Context, _ string, transfer ledger.Transfer) error {
	f.mu.Lock()
	f.calls++
	f.transfer = transfer
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx)
	}

	return f.err
}

type fakeEvents struct {
	completed []domain.Order
	err       error
}

func (f *fakeEvents) OrderCompleted(_ context.Context, order domain.Order) error {
	f.completed = append(f.completed, order)

	return f.err
}

func cartOrder(lines ...domain.OrderLine) domain.Order {
	return domain.Order{
		ID:      testOrderID,
		StoreID: testStoreID,
		PosID:   testTerminalID,
		Status:  domain.OrderStatusCart,
		Lines:   lines,
	}
}
