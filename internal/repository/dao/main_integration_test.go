//go:build integration

package dao

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nightspite/sol-pos/internal/db"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not construct pool: %s", err)
	}
	if err = pool.Client.Ping(); err != nil {
		log.Fatalf("could not connect to docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=pos",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=solpos",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("could not start resource: %s", err)
	}
	_ = resource.Expire(180)

	dsn := fmt.Sprintf("postgres://pos:secret@%s/solpos?sslmode=disable", resource.GetHostPort("5432/tcp"))

	pool.MaxWait = 2 * time.Minute
	if err = pool.Retry(func() error {
		testDB, err = db.OpenPostgresWithURL(dsn)
		return err
	}); err != nil {
		log.Fatalf("could not connect to postgres: %s", err)
	}

	if err = db.RunMigrations(testDB); err != nil {
		log.Fatalf("could not run migrations: %s", err)
	}

	code := m.Run()

	if err = pool.Purge(resource); err != nil {
		log.Fatalf("could not purge resource: %s", err)
	}

	os.Exit(code)
}

type fixture struct {
	store     Store
	terminals []Terminal
	product   Product
}

// newFixture creates a store with n terminals and one product stocked with
// quantity units.
func newFixture(t *testing.T, terminals, quantity int) fixture {
	t.Helper()
	require.NoError(t, TruncateAll(testDB))

	f := fixture{store: Store{Name: "Store"}}
	require.NoError(t, testDB.Create(&f.store).Error)

	for i := 0; i < terminals; i++ {
		term := Terminal{Name: fmt.Sprintf("POS #%d", i+1), StoreID: f.store.ID}
		require.NoError(t, testDB.Omit("Store").Create(&term).Error)
		f.terminals = append(f.terminals, term)
	}

	f.product = Product{Name: "Coffee", Price: 250}
	require.NoError(t, testDB.Create(&f.product).Error)

	entry := StoreProduct{StoreID: f.store.ID, ProductID: f.product.ID, Quantity: quantity}
	require.NoError(t, testDB.Omit("Product").Create(&entry).Error)

	return f
}

func (f fixture) stock(t *testing.T) int {
	t.Helper()

	entry, err := NewStoreDAO(testDB).FindStockEntry(context.Background(), f.store.ID, f.product.ID)
	require.NoError(t, err)

	return entry.Quantity
}

func (f fixture) openCart(t *testing.T, terminal int) Order {
	t.Helper()

	order, err := NewOrderDAO(testDB).InsertCart(context.Background(), f.store.ID, f.terminals[terminal].ID)
	require.NoError(t, err)

	return order
}
