package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mealmail/internal/config"
)

func main() {
	_ = godotenv.Load()
	if err := newMigrateCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newMigrateCmd() *cobra.Command {
	var source string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply the orders and nutrition_cache schema to Postgres",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&source, "path", envOr("MEALMAIL_MIGRATIONS_PATH", "file://db/migrations"),
		"Migration source URL")

	// withMigrate opens a migrate instance around fn.
	withMigrate := func(fn func(m *migrate.Migrate, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			m, err := migrate.New(source, cfg.DB.DSN())
			if err != nil {
				return fmt.Errorf("opening migrations at %s: %w", source, err)
			}
			defer m.Close()
			return fn(m, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrate(func(m *migrate.Migrate, _ []string) error {
				if err := ignoreNoChange(m.Up()); err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				log.Println("migrate: schema is up to date")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every applied migration",
			Args:  cobra.NoArgs,
			RunE: withMigrate(func(m *migrate.Migrate, _ []string) error {
				if err := ignoreNoChange(m.Down()); err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				log.Println("migrate: all migrations reverted")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations, or revert them when N is negative",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrate(func(m *migrate.Migrate, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q: %w", args[0], err)
				}
				if err := ignoreNoChange(m.Steps(n)); err != nil {
					return fmt.Errorf("migrate steps %d: %w", n, err)
				}
				log.Printf("migrate: moved %d step(s)", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrate(func(m *migrate.Migrate, _ []string) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("version: none")
					return nil
				}
				if err != nil {
					return fmt.Errorf("reading version: %w", err)
				}
				fmt.Printf("version: %d, dirty: %v\n", version, dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force V",
			Short: "Set the schema version without running migrations, clearing the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrate(func(m *migrate.Migrate, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				if err := m.Force(v); err != nil {
					return fmt.Errorf("migrate force %d: %w", v, err)
				}
				log.Printf("migrate: forced version %d", v)
				return nil
			}),
		},
	)
	return root
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
