package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/repository/dao"
)

var (
	ErrOrderNotFound     = dao.ErrOrderNotFound
	ErrOrderNotInCart    = dao.ErrOrderNotInCart
	ErrOrderLineNotFound = dao.ErrOrderLineNotFound
	ErrOpenCartExists    = dao.ErrOpenCartExists
	ErrSignatureUsed     = dao.ErrSignatureUsed
	ErrOutOfStock        = dao.ErrOutOfStock
)

type OrderDAO interface {
	FindByID(ctx context.Context, id string) (dao.Order, error)
	FindOpenCart(ctx context.Context, posID string) (dao.Order, error)
	InsertCart(ctx context.Context, storeID, posID string) (dao.Order, error)
	AddItem(ctx context.Context, orderID, productID string) (dao.Order, error)
	RemoveItem(ctx context.Context, orderID, productID string, removeAll bool) (dao.Order, error)
	UpdatePaymentURL(ctx context.Context, orderID, url string) (dao.Order, error)
	Complete(ctx context.Context, orderID, signature string, check func(dao.Order) error) (dao.Order, error)
	Cancel(ctx context.Context, orderID string) (dao.Order, error)
	List(ctx context.Context, storeIDs []string, status string, offset, limit int) ([]dao.Order, int64, error)
}

type OrderRepository struct {
	dao OrderDAO
}

func NewOrderRepository(dao OrderDAO) *OrderRepository {
	return &OrderRepository{
		dao: dao,
	}
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return orderDaoToDomain(found), nil
}

// FindOrCreateCart returns the open cart of a terminal, opening one when
// there is none. Losing a creation race to another request yields the
// winner's cart.
func (r *OrderRepository) FindOrCreateCart(ctx context.Context, storeID, posID string) (domain.Order, error) {
	found, err := r.dao.FindOpenCart(ctx, posID)
	if err == nil {
		return orderDaoToDomain(found), nil
	}
	if !errors.Is(err, dao.ErrOrderNotFound) {
		return domain.Order{}, fmt.Errorf("r.dao.FindOpenCart -> %w", err)
	}

	created, err := r.dao.InsertCart(ctx, storeID, posID)
	if errors.Is(err, dao.ErrOpenCartExists) {
		created, err = r.dao.FindOpenCart(ctx, posID)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.dao.InsertCart -> %w", err)
	}

	return orderDaoToDomain(created), nil
}

func (r *OrderRepository) AddLine(ctx context.Context, orderID, productID string) (domain.Order, error) {
	updated, err := r.dao.AddItem(ctx, orderID, productID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.dao.AddItem -> %w", err)
	}

	return orderDaoToDomain(updated), nil
}

func (r *OrderRepository) RemoveLine(ctx context.Context, orderID, productID string, removeAll bool) (domain.Order, error) {
	updated, err := r.dao.RemoveItem(ctx, orderID, productID, removeAll)
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.dao.RemoveItem -> %w", err)
	}

	return orderDaoToDomain(updated), nil
}

func (r *OrderRepository) SetPaymentURL(ctx context.Context, orderID, url string) (domain.Order, error) {
	updated, err := r.dao.UpdatePaymentURL(ctx, orderID, url)
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.dao.UpdatePaymentURL -> %w", err)
	}

	return orderDaoToDomain(updated), nil
}

// Complete settles a cart. check sees the order as it is locked for
// completion and can veto it.
func (r *OrderRepository) Complete(ctx context.Context, orderID, signature string, check func(domain.Order) error) (domain.Order, error) {
	var daoCheck func(dao.Order) error
	if check != nil {
		daoCheck = func(o dao.Order) error {
			return check(orderDaoToDomain(o))
		}
	}

	updated, err := r.dao.Complete(ctx, orderID, signature, daoCheck)
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.dao.Complete -> %w", err)
	}

	return orderDaoToDomain(updated), nil
}

func (r *OrderRepository) Cancel(ctx context.Context, orderID string) (domain.Order, error) {
	updated, err := r.dao.Cancel(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.dao.Cancel -> %w", err)
	}

	return orderDaoToDomain(updated), nil
}

func (r *OrderRepository) List(ctx context.Context, storeIDs []string, status domain.OrderStatus, page, pageSize int) (domain.OrderPage, error) {
	orders, total, err := r.dao.List(ctx, storeIDs, string(status), (page-1)*pageSize, pageSize)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("r.dao.List -> %w", err)
	}

	items := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		items = append(items, orderDaoToDomain(o))
	}

	return domain.OrderPage{Items: items, Total: total}, nil
}

func orderDaoToDomain(o dao.Order) domain.Order {
	lines := make([]domain.OrderLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, domain.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	return domain.Order{
		ID:         o.ID,
		StoreID:    o.StoreID,
		PosID:      o.PosID,
		Status:     domain.OrderStatus(o.Status),
		PaymentURL: o.PaymentURL,
		Signature:  o.Signature,
		Lines:      lines,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
