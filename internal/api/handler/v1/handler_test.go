package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightspite/sol-pos/internal/api/middleware"
	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/poller"
	"github.com/nightspite/sol-pos/internal/service"
)

const (
	storeID    = "9b2b4c1e-1c1a-4f5e-8a51-2f0f6f1c7a10"
	terminalID = "0c6f7a52-4a8e-4d2b-9d68-5b3c1f7e2a11"
	orderID    = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	productID  = "6d1e8c3a-2b7f-4e9a-9c4d-8f0a1b2c3d4e"
	signature  = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
)

var (
	cashierUser = domain.User{ID: "cashier", Username: "cashier", Role: domain.RoleCashier, StoreIDs: []string{storeID}}
	adminUser   = domain.User{ID: "admin", Username: "admin", Role: domain.RoleAdmin, StoreIDs: []string{storeID}}
	outsider    = domain.User{ID: "outsider", Username: "outsider", Role: domain.RoleCashier}
)

type fakeUsers struct{}

func (fakeUsers) GetUser(_ context.Context, id string) (domain.User, error) {
	for _, u := range []domain.User{cashierUser, adminUser, outsider} {
		if u.ID == id {
			return u, nil
		}
	}

	return domain.User{}, service.ErrUserNotFound
}

// fakeCarts serves a single order and checks membership like the real
// service does.
type fakeCarts struct {
	order     domain.Order
	err       error
	removeAll bool
}

func (f *fakeCarts) authorize(user domain.User) error {
	if !user.CanOperate(f.order.StoreID) {
		return service.ErrNotStoreMember
	}

	return nil
}

func (f *fakeCarts) GetOrCreateCart(_ context.Context, user domain.User, id string) (domain.Order, error) {
	if id != terminalID {
		return domain.Order{}, service.ErrTerminalNotFound
	}

	return f.order, f.authorize(user)
}

func (f *fakeCarts) GetOrder(_ context.Context, user domain.User, id string) (domain.Order, error) {
	if id != f.order.ID {
		return domain.Order{}, service.ErrOrderNotFound
	}

	return f.order, f.authorize(user)
}

func (f *fakeCarts) ListOrders(context.Context, domain.User, domain.OrderStatus, int, int) (domain.OrderPage, error) {
	return domain.OrderPage{Items: []domain.Order{f.order}, Total: 1}, nil
}

func (f *fakeCarts) AddLine(ctx context.Context, user domain.User, id, product string) (domain.Order, error) {
	if _, err := f.GetOrder(ctx, user, id); err != nil {
		return domain.Order{}, err
	}
	if f.err != nil {
		return domain.Order{}, f.err
	}
	f.order.Lines = append(f.order.Lines, domain.OrderLine{ProductID: product, Quantity: 1, Price: 250})

	return f.order, nil
}

func (f *fakeCarts) RemoveLine(ctx context.Context, user domain.User, id, _ string, removeAll bool) (domain.Order, error) {
	f.removeAll = removeAll
	if f.err != nil {
		return domain.Order{}, f.err
	}

	return f.GetOrder(ctx, user, id)
}

func (f *fakeCarts) CancelOrder(ctx context.Context, user domain.User, id string) (domain.Order, error) {
	order, err := f.GetOrder(ctx, user, id)
	if err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatusCancelled

	return order, nil
}

type fakePayments struct {
	err error
}

func (f *fakePayments) BuildPaymentRequest(_ context.Context, _ domain.User, id string) (domain.PaymentRequest, domain.Order, error) {
	if f.err != nil {
		return domain.PaymentRequest{}, domain.Order{}, f.err
	}
	url := "solana:recipient?amount=2.5"

	return domain.PaymentRequest{Recipient: "recipient", Amount: domain.CentsToAmount(250)},
		domain.Order{ID: id, Status: domain.OrderStatusCart, PaymentURL: &url}, nil
}

type fakeVerifier struct {
	err   error
	calls int
}

func (f *fakeVerifier) VerifyAndComplete(_ context.Context, id, sig string) (domain.Order, error) {
	f.calls++
	if f.err != nil {
		return domain.Order{}, f.err
	}

	return domain.Order{ID: id, StoreID: storeID, Status: domain.OrderStatusCompleted, Signature: &sig}, nil
}

type fakeStores struct{}

func (fakeStores) GetTerminal(_ context.Context, user domain.User, id string) (domain.Terminal, []domain.StockEntry, error) {
	if id != terminalID {
		return domain.Terminal{}, nil, service.ErrTerminalNotFound
	}
	if !user.CanOperate(storeID) {
		return domain.Terminal{}, nil, service.ErrNotStoreMember
	}

	return domain.Terminal{ID: id, StoreID: storeID}, []domain.StockEntry{{StoreID: storeID, ProductID: productID, Quantity: 4}}, nil
}

func (fakeStores) SetStock(_ context.Context, user domain.User, store, product string, quantity int) (domain.StockEntry, error) {
	if user.Role != domain.RoleAdmin {
		return domain.StockEntry{}, service.ErrAdminOnly
	}

	return domain.StockEntry{StoreID: store, ProductID: product, Quantity: quantity}, nil
}

type fakeWatcher struct {
	events []poller.Event
	err    error
	// started, when set, is closed once the watch has sent its events and
	// then blocks until ctx ends
	started chan struct{}
}

func (f *fakeWatcher) Watch(ctx context.Context, _ string, notify func(poller.Event)) (domain.Order, error) {
	for _, e := range f.events {
		notify(e)
	}
	if f.started != nil {
		close(f.started)
		<-ctx.Done()
		return domain.Order{}, ctx.Err()
	}

	return domain.Order{}, f.err
}

type testDeps struct {
	carts    *fakeCarts
	payments *fakePayments
	verifier *fakeVerifier
	watcher  *fakeWatcher
	watch    *WatchHandler
}

func newTestDeps() *testDeps {
	return &testDeps{
		carts: &fakeCarts{order: domain.Order{
			ID:      orderID,
			StoreID: storeID,
			PosID:   terminalID,
			Status:  domain.OrderStatusCart,
			Lines:   []domain.OrderLine{{ProductID: productID, Quantity: 2, Price: 125}},
		}},
		payments: &fakePayments{},
		verifier: &fakeVerifier{},
		watcher:  &fakeWatcher{},
	}
}

// newTestRouter mounts the handlers behind a stub that authenticates every
// request as the given user id.
func newTestRouter(d *testDeps, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(ctx *gin.Context) {
		if userID != "" {
			ctx.Set(middleware.ContextUserIDKey, userID)
		}
		ctx.Next()
	})

	users := fakeUsers{}
	terminals := NewTerminalHandler(fakeStores{}, d.carts, users)
	orders := NewOrderHandler(d.carts, d.payments, d.verifier, users, "devnet")
	watch := NewWatchHandler(d.carts, d.watcher, users, nil)
	d.watch = watch
	admin := NewAdminHandler(fakeStores{}, users)

	r.GET("/terminals/:terminalID", terminals.HandleGetTerminal)
	r.GET("/terminals/:terminalID/cart", terminals.HandleGetCart)
	r.GET("/orders", orders.HandleListOrders)
	r.GET("/orders/:orderID", orders.HandleGetOrder)
	r.POST("/orders/:orderID/items", orders.HandleAddLine)
	r.DELETE("/orders/:orderID/items/:productID", orders.HandleRemoveLine)
	r.POST("/orders/:orderID/payment", orders.HandleCreatePayment)
	r.GET("/orders/:orderID/qr", orders.HandleGetQR)
	r.POST("/orders/:orderID/verify", orders.HandleVerify)
	r.POST("/orders/:orderID/cancel", orders.HandleCancelOrder)
	r.GET("/orders/:orderID/explorer", orders.HandleGetExplorer)
	r.GET("/orders/:orderID/watch", watch.HandleWatch)
	r.PUT("/admin/stores/:storeID/products/:productID/stock", admin.HandleSetStock)

	return r
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))

	return v
}

func TestUnauthenticated(t *testing.T) {
	r := newTestRouter(newTestDeps(), "")

	w := doRequest(r, http.MethodGet, "/orders/"+orderID, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = newTestRouter(newTestDeps(), "deleted-user")
	w = doRequest(r, http.MethodGet, "/orders/"+orderID, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
