package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"ndcscan/internal"
	"ndcscan/internal/util"
)

// ExportTranslationsToXLSX writes one row per translation, in batch order.
func ExportTranslationsToXLSX(rows []internal.Translation, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"position", "ndc", "rxcui", "drug_name", "matched"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, i+1)
		// Stored as text so leading zeros in NDCs survive.
		cell, _ := excelize.CoordinatesToCellName(2, r)
		_ = f.SetCellStr(sheet, cell, row.NDC)
		set(3, util.DerefString(row.RXCUI))
		set(4, util.DerefString(row.DrugName))
		set(5, row.RXCUI != nil)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
