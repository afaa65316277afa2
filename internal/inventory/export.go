package inventory

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

const exportSheet = "Products"

var exportHeader = []any{"ID", "Name", "SKU", "Stock", "Price", "Value", "Location", "Perishable", "Expiry", "Low stock"}

// ExportProducts renders products as an XLSX workbook.
func ExportProducts(products []wmsapi.Product) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("inventory: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("inventory: write header: %w", err)
	}
	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		expiry := ""
		if p.ExpiryDate != nil {
			expiry = p.ExpiryDate.String()
		}
		row := []any{
			p.ID,
			p.Name,
			p.SKU,
			p.StockQuantity,
			p.Price,
			float64(p.StockQuantity) * p.Price,
			p.LocationCode,
			yesNo(p.Perishable),
			expiry,
			yesNo(IsLowStock(p)),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("inventory: write row %d: %w", i+2, err)
		}
	}

	summary := Summarize(products)
	footer, err := excelize.CoordinatesToCellName(1, len(products)+3)
	if err != nil {
		return nil, err
	}
	totals := []any{"Total", "", "", summary.TotalStock, "", summary.TotalValue}
	if err := f.SetSheetRow(exportSheet, footer, &totals); err != nil {
		return nil, fmt.Errorf("inventory: write totals: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("inventory: encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
