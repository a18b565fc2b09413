package v1

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nightspite/sol-pos/internal/api/handler/v1/response"
	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/poller"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 512
)

var errShuttingDown = errors.New("server is shutting down")

type Watcher interface {
	Watch(ctx context.Context, orderID string, notify func(poller.Event)) (domain.Order, error)
}

// WatchHandler streams the payment progress of one order over a websocket.
// The poll loop lives as long as the connection, and no longer than the
// handler itself: Close ends every running watch.
type WatchHandler struct {
	carts    CartService
	watcher  Watcher
	uSvc     UserService
	upgrader websocket.Upgrader

	base   context.Context
	stop   context.CancelFunc
	mu     sync.Mutex
	closed bool
	active sync.WaitGroup
}

func NewWatchHandler(carts CartService, watcher Watcher, uSvc UserService, allowedOrigins []string) *WatchHandler {
	base, stop := context.WithCancel(context.Background())

	return &WatchHandler{
		carts:   carts,
		watcher: watcher,
		uSvc:    uSvc,
		base:    base,
		stop:    stop,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowedOrigins) == 0 || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleWatch godoc
// @Summary      Watch an order until it is paid
// @Description  Upgrades to a websocket that reports waiting, pending, found, completed, failed and closed events
// @Tags         payments
// @Param        orderID  path      string  true  "Order ID"
// @Success      101  {string}  string  "Switching Protocols to WebSocket"
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /orders/{orderID}/watch [get]
// @Security BearerAuth
func (h *WatchHandler) HandleWatch(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	orderID, ok := pathID(ctx, "order", "orderID")
	if !ok {
		return
	}

	if _, err := h.carts.GetOrder(ctx.Request.Context(), user, orderID); err != nil {
		renderServiceErr(ctx, "v1.HandleWatch -> h.carts.GetOrder", err)
		return
	}

	if !h.acquire() {
		response.RenderErr(ctx, response.ErrServiceUnavailable(errShuttingDown))
		return
	}
	defer h.active.Done()

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	defer conn.Close()

	watchCtx, cancel := context.WithCancel(h.base)
	defer cancel()
	go readUntilClosed(conn, cancel)

	var last poller.EventType
	write := func(e poller.Event) {
		last = e.Type
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(e); err != nil {
			cancel()
		}
	}

	_, err = h.watcher.Watch(watchCtx, orderID, write)
	if err != nil && watchCtx.Err() == nil && last != poller.EventFailed {
		write(poller.Event{Type: poller.EventFailed, Error: err.Error()})
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// Close cancels every running watch, refuses new ones and waits for the
// open connections to say goodbye, or for ctx to end.
func (h *WatchHandler) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.stop()
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WatchHandler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.active.Add(1)

	return true
}

// readUntilClosed drains client frames so control messages are processed,
// and cancels the watch once the peer goes away.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}
