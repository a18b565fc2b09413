package repository

import (
	"context"
	"fmt"

	"github.com/nightspite/sol-pos/internal/domain"
	"github.com/nightspite/sol-pos/internal/repository/dao"
)

var (
	ErrTerminalNotFound   = dao.ErrTerminalNotFound
	ErrStockEntryNotFound = dao.ErrStockEntryNotFound
)

type StoreDAO interface {
	FindTerminalByID(ctx context.Context, id string) (dao.Terminal, error)
	FindStock(ctx context.Context, storeID string) ([]dao.StoreProduct, error)
	SetQuantity(ctx context.Context, storeID, productID string, quantity int) (dao.StoreProduct, error)
}

type StoreRepository struct {
	dao StoreDAO
}

func NewStoreRepository(dao StoreDAO) *StoreRepository {
	return &StoreRepository{
		dao: dao,
	}
}

func (r *StoreRepository) FindTerminalByID(ctx context.Context, id string) (domain.Terminal, error) {
	found, err := r.dao.FindTerminalByID(ctx, id)
	if err != nil {
		return domain.Terminal{}, fmt.Errorf("r.dao.FindTerminalByID -> %w", err)
	}

	return domain.Terminal{
		ID:      found.ID,
		Name:    found.Name,
		StoreID: found.StoreID,
		Store: domain.Store{
			ID:        found.Store.ID,
			Name:      found.Store.Name,
			CreatedAt: found.Store.CreatedAt,
			UpdatedAt: found.Store.UpdatedAt,
		},
		CreatedAt: found.CreatedAt,
		UpdatedAt: found.UpdatedAt,
	}, nil
}

func (r *StoreRepository) FindStock(ctx context.Context, storeID string) ([]domain.StockEntry, error) {
	found, err := r.dao.FindStock(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindStock -> %w", err)
	}

	stock := make([]domain.StockEntry, 0, len(found))
	for _, e := range found {
		stock = append(stock, stockDaoToDomain(e))
	}

	return stock, nil
}

func (r *StoreRepository) SetQuantity(ctx context.Context, storeID, productID string, quantity int) (domain.StockEntry, error) {
	updated, err := r.dao.SetQuantity(ctx, storeID, productID, quantity)
	if err != nil {
		return domain.StockEntry{}, fmt.Errorf("r.dao.SetQuantity -> %w", err)
	}

	return stockDaoToDomain(updated), nil
}

func stockDaoToDomain(e dao.StoreProduct) domain.StockEntry {
	return domain.StockEntry{
		StoreID:   e.StoreID,
		ProductID: e.ProductID,
		Quantity:  e.Quantity,
		Product: domain.Product{
			ID:        e.Product.ID,
			Name:      e.Product.Name,
			Price:     e.Product.Price,
			CreatedAt: e.Product.CreatedAt,
			UpdatedAt: e.Product.UpdatedAt,
		},
	}
}
