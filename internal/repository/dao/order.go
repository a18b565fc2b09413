package dao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	OrderStatusCart      = "CART"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"

	openCartIndex      = "orders_open_cart_per_pos"
	signatureUniqueKey = "orders_signature_key"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotInCart    = errors.New("order is not in CART state")
	ErrOrderLineNotFound = errors.New("order line not found")
	ErrOpenCartExists    = errors.New("terminal already has an open cart")
	ErrSignatureUsed     = errors.New("signature already settled another order")
)

type Order struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	StoreID    string `gorm:"type:uuid;not null"`
	PosID      string `gorm:"type:uuid;not null"`
	Status     string `gorm:"not null"`
	PaymentURL *string
	Signature  *string
	Items      []OrderItem `gorm:"foreignKey:OrderID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderItem struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderID   string `gorm:"type:uuid;not null"`
	ProductID string `gorm:"type:uuid;not null"`
	Quantity  int    `gorm:"not null"`
	Price     int64  `gorm:"not null"` // unit price in cents when first added
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderDAO struct {
	db *gorm.DB
}

func NewOrderDAO(db *gorm.DB) *OrderDAO {
	return &OrderDAO{
		db: db,
	}
}

func (d *OrderDAO) FindByID(ctx context.Context, id string) (Order, error) {
	var order Order

	result := d.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&order, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Order{}, ErrOrderNotFound
		}

		return Order{}, result.Error
	}

	return order, nil
}

func (d *OrderDAO) FindOpenCart(ctx context.Context, posID string) (Order, error) {
	var order Order

	result := d.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&order, "pos_id = ? AND status = ?", posID, OrderStatusCart)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Order{}, ErrOrderNotFound
		}

		return Order{}, result.Error
	}

	return order, nil
}

// InsertCart opens a new cart for a terminal. It fails with ErrOpenCartExists
// when the terminal already has one.
func (d *OrderDAO) InsertCart(ctx context.Context, storeID, posID string) (Order, error) {
	order := Order{
		StoreID: storeID,
		PosID:   posID,
		Status:  OrderStatusCart,
	}

	result := d.db.WithContext(ctx).Create(&order)
	if result.Error != nil {
		if isUniqueViolation(result.Error, openCartIndex) {
			return Order{}, ErrOpenCartExists
		}

		return Order{}, result.Error
	}

	return order, nil
}

// AddItem takes one unit of the product from the store stock and puts it in
// the order. Stock and line changes commit together or not at all.
func (d *OrderDAO) AddItem(ctx context.Context, orderID, productID string) (Order, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockCart(tx, orderID)
		if err != nil {
			return err
		}

		entry, err := findStockEntry(tx, order.StoreID, productID)
		if err != nil {
			return err
		}

		if err = reserve(tx, order.StoreID, productID, -1); err != nil {
			return err
		}

		var item OrderItem
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND product_id = ?", orderID, productID).
			Limit(1).
			Find(&item)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			item = OrderItem{
				OrderID:   orderID,
				ProductID: productID,
				Quantity:  1,
				Price:     entry.Product.Price,
			}
			if err = tx.Create(&item).Error; err != nil {
				return err
			}
		} else {
			err = tx.Model(&item).Update("quantity", gorm.Expr("quantity + ?", 1)).Error
			if err != nil {
				return err
			}
		}

		return touch(tx, &order)
	})
	if err != nil {
		return Order{}, err
	}

	return d.FindByID(ctx, orderID)
}

// RemoveItem gives units of a line back to the store stock. Without
// removeAll it removes a single unit and refuses to empty the line.
func (d *OrderDAO) RemoveItem(ctx context.Context, orderID, productID string, removeAll bool) (Order, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockCart(tx, orderID)
		if err != nil {
			return err
		}

		if _, err = findStockEntry(tx, order.StoreID, productID); err != nil {
			return err
		}

		var item OrderItem
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND product_id = ? AND quantity > 0", orderID, productID).
			Limit(1).
			Find(&item)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOrderLineNotFound
		}

		switch {
		case removeAll:
			if err = tx.Delete(&item).Error; err != nil {
				return err
			}
			if err = reserve(tx, order.StoreID, productID, item.Quantity); err != nil {
				return err
			}
		case item.Quantity > 1:
			err = tx.Model(&item).Update("quantity", gorm.Expr("quantity - ?", 1)).Error
			if err != nil {
				return err
			}
			if err = reserve(tx, order.StoreID, productID, 1); err != nil {
				return err
			}
		default:
			// the last unit only goes away with removeAll
			return ErrOrderLineNotFound
		}

		return touch(tx, &order)
	})
	if err != nil {
		return Order{}, err
	}

	return d.FindByID(ctx, orderID)
}

func (d *OrderDAO) UpdatePaymentURL(ctx context.Context, orderID, url string) (Order, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockCart(tx, orderID)
		if err != nil {
			return err
		}

		return tx.Model(&order).Update("payment_url", url).Error
	})
	if err != nil {
		return Order{}, err
	}

	return d.FindByID(ctx, orderID)
}

// Complete marks a cart as paid by signature. check runs inside the
// transaction against the locked order and aborts the completion when it
// returns an error.
func (d *OrderDAO) Complete(ctx context.Context, orderID, signature string, check func(Order) error) (Order, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockCart(tx, orderID)
		if err != nil {
			return err
		}

		if err = tx.Where("order_id = ?", orderID).Find(&order.Items).Error; err != nil {
			return err
		}
		if check != nil {
			if err = check(order); err != nil {
				return err
			}
		}

		err = tx.Model(&Order{ID: order.ID}).Updates(map[string]any{
			"status":    OrderStatusCompleted,
			"signature": signature,
		}).Error
		if isUniqueViolation(err, signatureUniqueKey) {
			return ErrSignatureUsed
		}

		return err
	})
	if err != nil {
		return Order{}, err
	}

	return d.FindByID(ctx, orderID)
}

// Cancel closes a cart and returns every reserved unit to the store stock.
func (d *OrderDAO) Cancel(ctx context.Context, orderID string) (Order, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockCart(tx, orderID)
		if err != nil {
			return err
		}

		var items []OrderItem
		if err = tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return err
		}
		for _, item := range items {
			if err = reserve(tx, order.StoreID, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		return tx.Model(&order).Update("status", OrderStatusCancelled).Error
	})
	if err != nil {
		return Order{}, err
	}

	return d.FindByID(ctx, orderID)
}

func (d *OrderDAO) List(ctx context.Context, storeIDs []string, status string, offset, limit int) ([]Order, int64, error) {
	query := d.db.WithContext(ctx).Model(&Order{}).Where("store_id IN ?", storeIDs)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []Order
	result := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return orders, total, nil
}

// lockCart loads an order FOR UPDATE and requires it to be an open cart.
func lockCart(tx *gorm.DB, orderID string) (Order, error) {
	var order Order

	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Order{}, ErrOrderNotFound
		}

		return Order{}, result.Error
	}

	if order.Status != OrderStatusCart {
		return Order{}, ErrOrderNotInCart
	}

	return order, nil
}

func touch(tx *gorm.DB, order *Order) error {
	return tx.Model(order).Update("updated_at", time.Now().UTC()).Error
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == constraint
}
