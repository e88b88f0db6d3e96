// =============================================================================
// Webshop Sales Report - XLSX Parser Module
// =============================================================================
//
// This module reads an export that was opened and saved as a workbook. The
// cells are the same as in the delimited export, so the rows are cut into
// regions by csvparser.SplitExport with the same layout.
//
// DIFFERENCES FROM THE CSV EXPORT:
//   - No charset decoding; workbooks store text as UTF-8
//   - Trailing empty cells are not returned; the realigner pads short rows
//   - Blank rows are kept, so segment trailers line up with the CSV export
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/csvparser"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// IsWorkbook reports whether path looks like an .xlsx export.
func IsWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// Parse reads a workbook export and cuts it into its regions.
//
// PARAMETERS:
//   - filePath: The path to the .xlsx file.
//   - layout: The export layout; layout.Sheet picks the worksheet.
//
// RETURNS:
//   - The export, rows not yet repaired.
//   - An error if the workbook cannot be read or is too short for the layout.
func Parse(filePath string, layout config.ExportLayout) (*types.RawExport, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := layout.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", types.ErrMalformedExport, filePath)
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheet %q", types.ErrMalformedExport, filePath, sheetName)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return csvparser.SplitExport(rows, filePath, layout)
}
