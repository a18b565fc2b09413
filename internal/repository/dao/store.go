package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrTerminalNotFound   = errors.New("terminal not found")
	ErrStockEntryNotFound = errors.New("product is not stocked in this store")
	ErrOutOfStock         = errors.New("product out of stock")
)

type Store struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Terminal struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name      string `gorm:"not null"`
	StoreID   string `gorm:"type:uuid;not null"`
	Store     Store  `gorm:"foreignKey:StoreID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name      string `gorm:"not null"`
	Price     int64  `gorm:"not null"` // in cents
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoreProduct is the stock entry of a product in a store.
type StoreProduct struct {
	StoreID   string  `gorm:"primaryKey;type:uuid"`
	ProductID string  `gorm:"primaryKey;type:uuid"`
	Quantity  int     `gorm:"not null"`
	Product   Product `gorm:"foreignKey:ProductID"`
}

func (StoreProduct) TableName() string {
	return "store_products"
}

type StoreDAO struct {
	db *gorm.DB
}

func NewStoreDAO(db *gorm.DB) *StoreDAO {
	return &StoreDAO{
		db: db,
	}
}

func (d *StoreDAO) FindTerminalByID(ctx context.Context, id string) (Terminal, error) {
	var terminal Terminal

	result := d.db.WithContext(ctx).Preload("Store").First(&terminal, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Terminal{}, ErrTerminalNotFound
		}

		return Terminal{}, result.Error
	}

	return terminal, nil
}

func (d *StoreDAO) FindStock(ctx context.Context, storeID string) ([]StoreProduct, error) {
	var stock []StoreProduct

	result := d.db.WithContext(ctx).
		Preload("Product").
		Where("store_id = ?", storeID).
		Order("product_id").
		Find(&stock)
	if result.Error != nil {
		return nil, result.Error
	}

	return stock, nil
}

func (d *StoreDAO) FindStockEntry(ctx context.Context, storeID, productID string) (StoreProduct, error) {
	return findStockEntry(d.db.WithContext(ctx), storeID, productID)
}

// SetQuantity overwrites the stock of a product in a store. Used for
// inventory counts, not for sales.
func (d *StoreDAO) SetQuantity(ctx context.Context, storeID, productID string, quantity int) (StoreProduct, error) {
	var entry StoreProduct

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&StoreProduct{}).
			Where("store_id = ? AND product_id = ?", storeID, productID).
			Update("quantity", quantity)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStockEntryNotFound
		}

		var err error
		entry, err = findStockEntry(tx, storeID, productID)

		return err
	})
	if err != nil {
		return StoreProduct{}, err
	}

	return entry, nil
}

func findStockEntry(tx *gorm.DB, storeID, productID string) (StoreProduct, error) {
	var entry StoreProduct

	result := tx.Preload("Product").
		First(&entry, "store_id = ? AND product_id = ?", storeID, productID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return StoreProduct{}, ErrStockEntryNotFound
		}

		return StoreProduct{}, result.Error
	}

	return entry, nil
}

// reserve applies quantity += delta to a stock entry with a single guarded
// update. It never reads the current quantity, so two transactions racing
// for the last unit cannot both succeed.
func reserve(tx *gorm.DB, storeID, productID string, delta int) error {
	result := tx.Model(&StoreProduct{}).
		Where("store_id = ? AND product_id = ? AND quantity + ? >= 0", storeID, productID, delta).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOutOfStock
	}

	return nil
}
