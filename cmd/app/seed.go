package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nightspite/sol-pos/internal/db"
	"github.com/nightspite/sol-pos/internal/repository/dao"
	"github.com/nightspite/sol-pos/internal/service"
)

func newSeedCmd(configPath *string) *cobra.Command {
	var truncate bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a demo store, terminal, users and products",
		Long: "Insert a demo store with one terminal, an admin and a cashier " +
			"(password equal to the username) and five products, four of them stocked.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, postgresDB, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer closeDB(postgresDB)

			if err = db.RunMigrations(postgresDB); err != nil {
				return fmt.Errorf("failed to run migrations -> %w", err)
			}

			if truncate {
				if err = dao.TruncateAll(postgresDB); err != nil {
					return fmt.Errorf("failed to truncate tables -> %w", err)
				}
			}

			data, err := dao.SeedDemo(cmd.Context(), postgresDB, service.HashPassword)
			if err != nil {
				return fmt.Errorf("failed to seed demo data -> %w", err)
			}

			zap.L().Info("demo data seeded",
				zap.String("store_id", data.Store.ID),
				zap.String("terminal_id", data.Terminal.ID),
				zap.Int("products", len(data.Products)),
			)
			cmd.Printf("store %s\nterminal %s\nusers admin/admin, cashier/cashier\n", data.Store.ID, data.Terminal.ID)

			return nil
		},
	}
	cmd.Flags().BoolVar(&truncate, "truncate", false, "empty every table before seeding")

	return cmd
}
