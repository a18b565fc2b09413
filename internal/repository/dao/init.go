package dao

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// tables lists every application table, children first.
var tables = []string{
	"order_items",
	"orders",
	"store_products",
	"products",
	"terminals",
	"user_stores",
	"stores",
	"users",
}

// TruncateAll empties every application table. It keeps the schema and the
// migration history.
func TruncateAll(db *gorm.DB) error {
	for _, table := range tables {
		if err := db.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			return fmt.Errorf("truncate %s -> %w", table, err)
		}
	}

	return nil
}

type DemoData struct {
	Store    Store
	Terminal Terminal
	Admin    User
	Cashier  User
	Products []Product
}

// SeedDemo inserts one store with a terminal, an admin, a cashier and a few
// stocked products. Passwords are hashed with hash before insertion.
func SeedDemo(ctx context.Context, db *gorm.DB, hash func(string) (string, error)) (DemoData, error) {
	var data DemoData

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		data.Store = Store{Name: "Store #1"}
		if err := tx.Create(&data.Store).Error; err != nil {
			return err
		}

		data.Terminal = Terminal{Name: "POS #1", StoreID: data.Store.ID}
		if err := tx.Omit("Store").Create(&data.Terminal).Error; err != nil {
			return err
		}

		for _, u := range []struct {
			dst      *User
			name     string
			username string
			role     string
		}{
			{dst: &data.Admin, name: "Admin #1", username: "admin", role: "ADMIN"},
			{dst: &data.Cashier, name: "Cashier #1", username: "cashier", role: "CASHIER"},
		} {
			pw, err := hash(u.username)
			if err != nil {
				return err
			}
			*u.dst = User{Name: u.name, Username: u.username, Password: pw, Role: u.role}
			if err = tx.Omit("Stores").Create(u.dst).Error; err != nil {
				return err
			}
			err = tx.Table("user_stores").
				Create(map[string]any{"user_id": u.dst.ID, "store_id": data.Store.ID}).Error
			if err != nil {
				return err
			}
		}

		for i := 1; i <= 5; i++ {
			p := Product{Name: fmt.Sprintf("Product #%d", i), Price: int64(i) * 100}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			data.Products = append(data.Products, p)

			// the last product is listed in the catalog but not stocked
			if i == 5 {
				continue
			}
			entry := StoreProduct{StoreID: data.Store.ID, ProductID: p.ID, Quantity: i * 10}
			if err := tx.Omit("Product").Create(&entry).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return DemoData{}, err
	}

	return data, nil
}
