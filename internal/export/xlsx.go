package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"mealmail/internal/domain"
)

// Sheet names of the XLSX workbook.
const (
	SheetOrders = "Orders"
	SheetItems  = "Items"
)

// numericItemColumns are written as numbers rather than text.
var numericItemColumns = map[int]bool{4: true, 5: true, 7: true, 8: true, 9: true, 10: true, 11: true, 12: true, 13: true, 14: true, 16: true}

// WriteXLSX writes a workbook with an order summary sheet and a per-item sheet.
func WriteXLSX(out io.Writer, orders []domain.EnhancedOrder) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetOrders); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	summary := make([][]string, 0, len(orders))
	var items [][]string
	for i := range orders {
		summary = append(summary, orderRow(&orders[i]))
		items = append(items, itemRows(&orders[i])...)
	}

	if err := writeSheet(f, SheetOrders, orderColumns, summary, func(col int) bool { return col >= 4 }); err != nil {
		return err
	}
	if err := writeSheet(f, SheetItems, itemColumns, items, func(col int) bool { return numericItemColumns[col] }); err != nil {
		return err
	}
	return f.Write(out)
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, numeric func(int) bool) error {
	if err := writeRow(f, sheet, 1, header, func(int) bool { return false }); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeRow(f, sheet, i+2, row, numeric); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []string, numeric func(int) bool) error {
	values := make([]interface{}, len(cells))
	for i, cell := range cells {
		values[i] = cell
		if numeric(i) && cell != "" {
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				values[i] = v
			}
		}
	}
	axis, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, axis, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}
