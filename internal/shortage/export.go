package shortage

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Shortages"

var exportHeaders = []string{
	"BOM", "BOM Name", "Item", "UOM", "Total Required", "Available",
	"Shortage", "Original Shortage", "Current Stock", "Resolved", "Resolved At",
}

var exportWidths = []float64{12, 28, 28, 8, 15, 12, 12, 17, 14, 10, 20}

// ExportXLSX renders shortage rows into a single-sheet workbook.
func ExportXLSX(rows []Row) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, h)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	for i, r := range rows {
		resolvedAt := ""
		if r.ResolvedAt != nil {
			resolvedAt = r.ResolvedAt.Format("2006-01-02 15:04:05")
		}
		resolved := "No"
		if r.IsResolved {
			resolved = "Yes"
		}
		values := []any{
			r.BOMCode, r.BOMName, r.ItemName, r.UOM, r.TotalRequired, r.AvailableStock,
			r.ShortageQuantity, r.OriginalShortageQuantity, r.CurrentStock, resolved, resolvedAt,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	for i, w := range exportWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(exportSheet, col, col, w)
	}
	return f, nil
}
