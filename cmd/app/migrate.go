package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nightspite/sol-pos/internal/db"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, postgresDB, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer closeDB(postgresDB)

			if err = db.RollbackMigrations(postgresDB, steps); err != nil {
				return fmt.Errorf("failed to roll back migrations -> %w", err)
			}
			cmd.Printf("rolled back %d migration(s)\n", steps)

			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, postgresDB, err := bootstrap(*configPath)
				if err != nil {
					return err
				}
				defer closeDB(postgresDB)

				if err = db.RunMigrations(postgresDB); err != nil {
					return fmt.Errorf("failed to run migrations -> %w", err)
				}
				cmd.Println("migrations applied")

				return nil
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, postgresDB, err := bootstrap(*configPath)
				if err != nil {
					return err
				}
				defer closeDB(postgresDB)

				version, dirty, err := db.MigrationVersion(postgresDB)
				if err != nil {
					return fmt.Errorf("failed to read schema version -> %w", err)
				}
				cmd.Printf("version %d (dirty: %t)\n", version, dirty)

				return nil
			},
		},
	)

	return cmd
}
