package excel

import (
	"bytes"
	"testing"
	"time"

	"backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func reopen(t *testing.T, file *excelize.File) *excelize.File {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))

	reopened, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	return reopened
}

func TestBuildSalesReport(t *testing.T) {
	snapshot := 5.0
	variant := "Blue / M"
	variantID := int64(7)

	entries := []domain.SaleEntry{
		{
			SaleID:                1,
			ItemName:              "Vintage Lamp",
			PlatformName:          "Vinted",
			SaleDate:              time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			QuantitySold:          3,
			TotalPrice:            60,
			SoldByUser:            "marta",
			PurchasePriceSnapshot: &snapshot,
		},
		{
			SaleID:       2,
			ItemName:     "Wool Sweater",
			VariantID:    &variantID,
			VariantName:  &variant,
			PlatformName: "eBay",
			SaleDate:     time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
			QuantitySold: 1,
			TotalPrice:   25,
			SoldByUser:   "gigi",
		},
	}

	file, err := BuildSalesReport(entries)
	require.NoError(t, err)

	workbook := reopen(t, file)
	assert.Equal(t, []string{"Sales"}, workbook.GetSheetList())

	header, err := workbook.GetCellValue("Sales", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Sale ID", header)

	itemName, err := workbook.GetCellValue("Sales", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Vintage Lamp", itemName)

	// 60 revenue minus 3 units at the 5.0 snapshot.
	netGain, err := workbook.GetCellValue("Sales", "I2")
	require.NoError(t, err)
	assert.Equal(t, "45", netGain)

	variantCell, err := workbook.GetCellValue("Sales", "D3")
	require.NoError(t, err)
	assert.Equal(t, "Blue / M", variantCell)

	// No snapshot on row 3: revenue counts as net.
	netGain, err = workbook.GetCellValue("Sales", "I3")
	require.NoError(t, err)
	assert.Equal(t, "25", netGain)
}

func TestBuildSalesReportSummaryRow(t *testing.T) {
	snapshot := 2.0
	entries := []domain.SaleEntry{
		{SaleID: 1, ItemName: "A", PlatformName: "P", SaleDate: time.Now(), QuantitySold: 2, TotalPrice: 10, PurchasePriceSnapshot: &snapshot},
		{SaleID: 2, ItemName: "B", PlatformName: "P", SaleDate: time.Now(), QuantitySold: 1, TotalPrice: 5, PurchasePriceSnapshot: &snapshot},
	}

	file, err := BuildSalesReport(entries)
	require.NoError(t, err)
	workbook := reopen(t, file)

	label, err := workbook.GetCellValue("Sales", "E4")
	require.NoError(t, err)
	assert.Equal(t, "Total", label)

	quantity, err := workbook.GetCellValue("Sales", "F4")
	require.NoError(t, err)
	assert.Equal(t, "3", quantity)

	revenue, err := workbook.GetCellValue("Sales", "G4")
	require.NoError(t, err)
	assert.Equal(t, "15", revenue)

	net, err := workbook.GetCellValue("Sales", "I4")
	require.NoError(t, err)
	assert.Equal(t, "9", net)
}

func TestBuildSalesReportEmpty(t *testing.T) {
	file, err := BuildSalesReport(nil)
	require.NoError(t, err)
	workbook := reopen(t, file)

	label, err := workbook.GetCellValue("Sales", "E2")
	require.NoError(t, err)
	assert.Equal(t, "Total", label)

	quantity, err := workbook.GetCellValue("Sales", "F2")
	require.NoError(t, err)
	assert.Equal(t, "0", quantity)
}
