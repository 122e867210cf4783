package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"mealmail/internal/domain"
	"mealmail/internal/export"
)

var emailExtensions = map[string]bool{
	".eml":  true,
	".html": true,
	".htm":  true,
	".txt":  true,
}

type batchResult struct {
	Orders  []domain.EnhancedOrder
	Ignored int
	Failed  int
}

func newBatchCmd() *cobra.Command {
	var (
		csvPath  string
		xlsxPath string
	)

	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Parse every saved email in a directory and export the orders",
		Long: `batch walks DIR for .eml, .html, .htm and .txt files, parses each one and
writes the resulting orders as CSV and/or XLSX. Without --csv or --xlsx the CSV
goes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := emailFiles(args[0])
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			bar := progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("parsing"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			var res batchResult
			for _, path := range files {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					log.Printf("batch: reading %s: %v", path, err)
					res.Failed++
					_ = bar.Add(1)
					continue
				}

				order, err := a.Orders.ProcessEmail(cmd.Context(), readRawEmail(data))
				switch {
				case err == nil:
					res.Orders = append(res.Orders, *order)
				case errors.Is(err, domain.ErrNotOrderConfirmation):
					res.Ignored++
				default:
					log.Printf("batch: %s: %v", path, err)
					res.Failed++
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			if err := writeExports(cmd, res.Orders, csvPath, xlsxPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d files: %d orders, %d ignored, %d failed\n",
				len(files), len(res.Orders), res.Ignored, res.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the item-level CSV export to this path")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write the two-sheet XLSX export to this path")
	return cmd
}

// emailFiles lists candidate email files under dir in lexical order.
func emailFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if emailExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func writeExports(cmd *cobra.Command, orders []domain.EnhancedOrder, csvPath, xlsxPath string) error {
	if csvPath == "" && xlsxPath == "" {
		return export.WriteCSV(cmd.OutOrStdout(), orders)
	}
	if csvPath != "" {
		if err := writeFile(csvPath, func(f *os.File) error { return export.WriteCSV(f, orders) }); err != nil {
			return err
		}
	}
	if xlsxPath != "" {
		if err := writeFile(xlsxPath, func(f *os.File) error { return export.WriteXLSX(f, orders) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
