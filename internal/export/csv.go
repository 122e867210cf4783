// Package export writes enhanced orders as CSV and XLSX spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mealmail/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// itemColumns is the header of the per-item export. One row per line item.
var itemColumns = []string{
	"Order ID",
	"Created At",
	"Service",
	"Restaurant",
	"Order Total",
	"Quantity",
	"Item",
	"Price",
	"Calories",
	"Protein (g)",
	"Carbs (g)",
	"Fat (g)",
	"Fiber (g)",
	"Sugar (g)",
	"Sodium (mg)",
	"Source",
	"Confidence",
	"Matched Description",
	"Warnings",
}

// orderColumns is the header of the per-order summary.
var orderColumns = []string{
	"Order ID",
	"Created At",
	"Service",
	"Restaurant",
	"Order Total",
	"Items",
	"Calories",
	"Protein (g)",
	"Carbs (g)",
	"Fat (g)",
	"Fiber (g)",
	"Sugar (g)",
	"Sodium (mg)",
	"Protein %",
	"Carbs %",
	"Fat %",
	"Success Rate %",
}

// ItemColumns returns a copy of the per-item header row.
func ItemColumns() []string {
	return append([]string(nil), itemColumns...)
}

// Writer wraps csv.Writer for exporting order line items.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the per-item header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(itemColumns)
}

// WriteOrders writes one row per line item. Orders without items still get
// one row so they show up in the export.
func (w *Writer) WriteOrders(orders []domain.EnhancedOrder) error {
	for i := range orders {
		for _, row := range itemRows(&orders[i]) {
			if err := w.csv.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes the BOM, header and all orders to out.
func WriteCSV(out io.Writer, orders []domain.EnhancedOrder) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteOrders(orders); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func itemRows(o *domain.EnhancedOrder) [][]string {
	prefix := []string{
		o.ID.String(),
		formatTime(o.CreatedAt),
		string(o.Service),
		o.Restaurant,
		formatMoney(o.Total),
	}
	if len(o.Items) == 0 {
		row := make([]string, len(itemColumns))
		copy(row, prefix)
		return [][]string{row}
	}

	rows := make([][]string, 0, len(o.Items))
	for _, it := range o.Items {
		row := make([]string, len(itemColumns))
		copy(row, prefix)
		row[5] = strconv.Itoa(it.Quantity)
		row[6] = it.Name
		row[7] = strconv.FormatFloat(it.Price, 'f', 2, 64)
		if n := it.Nutrition; n != nil {
			row[8] = formatAmount(n.Calories)
			row[9] = formatAmount(n.Protein)
			row[10] = formatAmount(n.Carbs)
			row[11] = formatAmount(n.Fat)
			row[12] = formatAmount(n.Fiber)
			row[13] = formatAmount(n.Sugar)
			row[14] = formatAmount(n.Sodium)
			row[15] = string(n.Source)
			row[16] = strconv.FormatFloat(n.Confidence, 'f', 2, 64)
			row[17] = n.MatchedDescription
			row[18] = strings.Join(n.Warnings, "; ")
		}
		rows = append(rows, row)
	}
	return rows
}

func orderRow(o *domain.EnhancedOrder) []string {
	t := o.MealTotals
	return []string{
		o.ID.String(),
		formatTime(o.CreatedAt),
		string(o.Service),
		o.Restaurant,
		formatMoney(o.Total),
		strconv.Itoa(len(o.Items)),
		formatAmount(t.TotalCalories),
		formatAmount(t.TotalProtein),
		formatAmount(t.TotalCarbs),
		formatAmount(t.TotalFat),
		formatAmount(t.TotalFiber),
		formatAmount(t.TotalSugar),
		formatAmount(t.TotalSodium),
		formatAmount(t.MacroPercentages.Protein),
		formatAmount(t.MacroPercentages.Carbs),
		formatAmount(t.MacroPercentages.Fat),
		formatAmount(o.SourceStatistics.SuccessRate),
	}
}

func formatMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "orders"
	}
	return s
}

// BuildFilename returns {sanitized_name}_{YYYY-MM-DD}.{ext}.
func BuildFilename(name, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), now.Format("2006-01-02"), ext)
}
