package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/metrics"
)

const maxPageSize = 100

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (domain.Order, error)
	FindOrCreateCart(ctx context.Context, storeID, posID string) (domain.Order, error)
	AddLine(ctx context.Context, orderID, productID string) (domain.Order, error)
	RemoveLine(ctx context.Context, orderID, productID string, removeAll bool) (domain.Order, error)
	Cancel(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, storeIDs []string, status domain.OrderStatus, page, pageSize int) (domain.OrderPage, error)
}

type TerminalRepository interface {
	FindTerminalByID(ctx context.Context, id string) (domain.Terminal, error)
}

// CartService owns the life of CART orders: opening a terminal's cart and
// moving units between store stock and order lines.
type CartService struct {
	orders    OrderRepository
	terminals TerminalRepository
	metrics   *metrics.Metrics
}

func NewCartService(orders OrderRepository, terminals TerminalRepository, m *metrics.Metrics) *CartService {
	return &CartService{
		orders:    orders,
		terminals: terminals,
		metrics:   m,
	}
}

// GetOrCreateCart returns the open cart of a terminal, opening it on first use.
func (s *CartService) GetOrCreateCart(ctx context.Context, user domain.User, terminalID string) (order domain.Order, err error) {
	defer func(start time.Time) { s.metrics.ObserveUseCase("get_or_create_cart", start, err) }(time.Now())

	terminal, err := s.terminals.FindTerminalByID(ctx, terminalID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.terminals.FindTerminalByID -> %w", err)
	}
	if err = authorize(user, terminal.StoreID); err != nil {
		return domain.Order{}, err
	}

	order, err = s.orders.FindOrCreateCart(ctx, terminal.StoreID, terminal.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.orders.FindOrCreateCart -> %w", err)
	}

	return order, nil
}

func (s *CartService) GetOrder(ctx context.Context, user domain.User, orderID string) (domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.orders.FindByID -> %w", err)
	}
	if err = authorize(user, order.StoreID); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// ListOrders pages through the orders of every store the user belongs to,
// newest first. An empty status lists all statuses.
func (s *CartService) ListOrders(ctx context.Context, user domain.User, status domain.OrderStatus, page, pageSize int) (domain.OrderPage, error) {
	if len(user.StoreIDs) == 0 {
		return domain.OrderPage{Items: []domain.Order{}}, nil
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	result, err := s.orders.List(ctx, user.StoreIDs, status, page, pageSize)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("s.orders.List -> %w", err)
	}

	return result, nil
}

// AddLine puts one unit of a product in the cart, taking it from the stock of
// the order's store.
func (s *CartService) AddLine(ctx context.Context, user domain.User, orderID, productID string) (order domain.Order, err error) {
	defer func(start time.Time) { s.metrics.ObserveUseCase("add_line", start, err) }(time.Now())

	if _, err = s.GetOrder(ctx, user, orderID); err != nil {
		return domain.Order{}, err
	}

	order, err = s.orders.AddLine(ctx, orderID, productID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.orders.AddLine -> %w", err)
	}

	return order, nil
}

// RemoveLine gives units back to the store. Without removeAll exactly one
// unit is removed, and a line holding a single unit is reported as not found.
func (s *CartService) RemoveLine(ctx context.Context, user domain.User, orderID, productID string, removeAll bool) (order domain.Order, err error) {
	defer func(start time.Time) { s.metrics.ObserveUseCase("remove_line", start, err) }(time.Now())

	if _, err = s.GetOrder(ctx, user, orderID); err != nil {
		return domain.Order{}, err
	}

	order, err = s.orders.RemoveLine(ctx, orderID, productID, removeAll)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.orders.RemoveLine -> %w", err)
	}

	return order, nil
}

// CancelOrder abandons a cart and restocks all of its units.
func (s *CartService) CancelOrder(ctx context.Context, user domain.User, orderID string) (order domain.Order, err error) {
	defer func(start time.Time) { s.metrics.ObserveUseCase("cancel_order", start, err) }(time.Now())

	if _, err = s.GetOrder(ctx, user, orderID); err != nil {
		return domain.Order{}, err
	}

	order, err = s.orders.Cancel(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("s.orders.Cancel -> %w", err)
	}

	return order, nil
}
