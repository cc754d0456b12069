package excel

import (
	"fmt"

	"backend/internal/domain"

	"github.com/xuri/excelize/v2"
)

const salesSheet = "Sales"

var salesHeader = []string{
	"Sale ID",
	"Date",
	"Item",
	"Variant",
	"Platform",
	"Quantity",
	"Total Price",
	"Cost Snapshot",
	"Net Gain",
	"Sold By",
}

// BuildSalesReport renders the sales log into a workbook. Net gain per row
// uses the stored cost snapshot; rows without one show revenue as net.
func BuildSalesReport(entries []domain.SaleEntry) (*excelize.File, error) {
	file := excelize.NewFile()

	index, err := file.NewSheet(salesSheet)
	if err != nil {
		return nil, fmt.Errorf("create sales sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for col, title := range salesHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell %d: %w", col, err)
		}
		if err := file.SetCellValue(salesSheet, cell, title); err != nil {
			return nil, fmt.Errorf("write header %q: %w", title, err)
		}
	}

	totalQuantity := 0
	totalRevenue := 0.0
	totalNet := 0.0

	for i, entry := range entries {
		rowNumber := i + 2

		variantName := ""
		if entry.VariantName != nil {
			variantName = *entry.VariantName
		}
		costSnapshot := 0.0
		if entry.PurchasePriceSnapshot != nil {
			costSnapshot = *entry.PurchasePriceSnapshot
		}
		netGain := entry.TotalPrice - costSnapshot*float64(entry.QuantitySold)

		values := []any{
			entry.SaleID,
			entry.SaleDate.Format("2006-01-02"),
			entry.ItemName,
			variantName,
			entry.PlatformName,
			entry.QuantitySold,
			entry.TotalPrice,
			costSnapshot,
			netGain,
			entry.SoldByUser,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNumber)
			if err != nil {
				return nil, fmt.Errorf("cell %d,%d: %w", col, rowNumber, err)
			}
			if err := file.SetCellValue(salesSheet, cell, value); err != nil {
				return nil, fmt.Errorf("write sale %d: %w", entry.SaleID, err)
			}
		}

		totalQuantity += entry.QuantitySold
		totalRevenue += entry.TotalPrice
		totalNet += netGain
	}

	summaryRow := len(entries) + 2
	summary := map[string]any{
		"E": "Total",
		"F": totalQuantity,
		"G": totalRevenue,
		"I": totalNet,
	}
	for column, value := range summary {
		if err := file.SetCellValue(salesSheet, fmt.Sprintf("%s%d", column, summaryRow), value); err != nil {
			return nil, fmt.Errorf("write summary row: %w", err)
		}
	}

	return file, nil
}
