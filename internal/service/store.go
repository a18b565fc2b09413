package service

import (
	"context"
	"fmt"

	"github.com/nightspite/sol-pos/internal/domain"
)

type StoreRepository interface {
	FindTerminalByID(ctx context.Context, id string) (domain.Terminal, error)
	FindStock(ctx context.Context, storeID string) ([]domain.StockEntry, error)
	SetQuantity(ctx context.Context, storeID, productID string, quantity int) (domain.StockEntry, error)
}

type StoreService struct {
	repo StoreRepository
}

func NewStoreService(repo StoreRepository) *StoreService {
	return &StoreService{
		repo: repo,
	}
}

// GetTerminal returns a terminal along with what its store can sell.
func (s *StoreService) GetTerminal(ctx context.Context, user domain.User, terminalID string) (domain.Terminal, []domain.StockEntry, error) {
	terminal, err := s.repo.FindTerminalByID(ctx, terminalID)
	if err != nil {
		return domain.Terminal{}, nil, fmt.Errorf("s.repo.FindTerminalByID -> %w", err)
	}
	if err = authorize(user, terminal.StoreID); err != nil {
		return domain.Terminal{}, nil, err
	}

	stock, err := s.repo.FindStock(ctx, terminal.StoreID)
	if err != nil {
		return domain.Terminal{}, nil, fmt.Errorf("s.repo.FindStock -> %w", err)
	}

	return terminal, stock, nil
}

// SetStock overwrites the counted quantity of a product in a store.
func (s *StoreService) SetStock(ctx context.Context, user domain.User, storeID, productID string, quantity int) (domain.StockEntry, error) {
	if user.Role != domain.RoleAdmin {
		return domain.StockEntry{}, ErrAdminOnly
	}
	if quantity < 0 {
		return domain.StockEntry{}, ErrInvalidQuantity
	}

	entry, err := s.repo.SetQuantity(ctx, storeID, productID, quantity)
	if err != nil {
		return domain.StockEntry{}, fmt.Errorf("s.repo.SetQuantity -> %w", err)
	}

	return entry, nil
}
