package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mealmail/internal/app"
	"mealmail/internal/config"
)

// flagBindings maps config keys to persistent flags on the root command.
var flagBindings = map[string]string{
	"nutrition.primary.provider":   "primary-source",
	"nutrition.secondary.provider": "secondary-source",
	"nutrition.cache_backend":      "cache-backend",
	"nutrition.sqlite_path":        "cache-path",
	"nutrition.concurrency":        "concurrency",
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "mealmail",
		Short: "Parses food delivery confirmation emails into nutrition-annotated orders",
		Long: `mealmail reads DoorDash, Uber Eats and Grubhub order confirmation emails,
extracts the restaurant, line items and total, and looks up nutrition for each
item against the configured food databases.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("loading %s: %w", envFile, err)
				}
				return nil
			}
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using environment variables")
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&envFile, "env-file", "", "dotenv file to load before reading MEALMAIL_ variables (default .env)")
	pf.Bool("no-nutrition", false, "Skip nutrition lookups and only extract orders")
	pf.String("primary-source", "usda", "Primary nutrition source (usda, nutritionix, openfoodfacts)")
	pf.String("secondary-source", "openfoodfacts", "Secondary nutrition source")
	pf.String("cache-backend", "memory", "Nutrition cache backend (memory, sqlite, postgres, s3)")
	pf.String("cache-path", "nutrition_cache.db", "SQLite file for the sqlite cache backend")
	pf.Int("concurrency", 1, "Items resolved in parallel per order")

	root.AddCommand(newParseCmd(), newBatchCmd())
	return root
}

// loadApp reads configuration with flag overrides and wires an App for
// one-shot CLI use: nothing is persisted and no events or summaries go out.
func loadApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.LoadWithFlags(cmd.Flags(), flagBindings)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	skip, err := cmd.Flags().GetBool("no-nutrition")
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{
		DisableNutrition:   skip,
		DisablePersistence: true,
		DisableOutputs:     true,
	})
}
