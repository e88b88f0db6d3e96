// =============================================================================
// Webshop Sales Report - Report Writer
// =============================================================================
//
// This module writes merged reports to the report folder:
//
//   <output_dir>/<identifier>/
//     spreadsheet.csv   finest report, one row per bucket
//     report.xlsx       one sheet per granularity, each with a line chart
//                       of the Total column
//
// Amounts are written with two decimals in the CSV and as numbers with a
// two-decimal format in the workbook.
//
// =============================================================================

package reportwriter

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/webshop-sales-report/internal/aggregate"
	"github.com/ginjaninja78/webshop-sales-report/internal/report"
)

// File names inside a report folder.
const (
	SpreadsheetFile = "spreadsheet.csv"
	WorkbookFile    = "report.xlsx"
)

// AxisTitle labels the value axis of every chart.
const AxisTitle = "Sales Incl. vat [DKK]"

// SheetName returns the worksheet name of a granularity.
func SheetName(g aggregate.Granularity) string {
	switch g {
	case aggregate.Order:
		return "Orders"
	case aggregate.Day:
		return "Daily"
	case aggregate.Week:
		return "Weekly"
	case aggregate.Month:
		return "Monthly"
	case aggregate.Year:
		return "Yearly"
	}
	return string(g)
}

// =============================================================================
// CSV
// =============================================================================

// WriteCSV writes rep as a comma-separated spreadsheet.
func WriteCSV(path string, rep *report.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(rep.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rep.Rows {
		record := []string{row.Key.String()}
		for _, category := range rep.Columns {
			record = append(record, row.Value(category).StringFixed(2))
		}
		record = append(record, row.Total.StringFixed(2))
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.Key, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}

// =============================================================================
// WORKBOOK
// =============================================================================

// WriteWorkbook writes one sheet per report, each with a Total line chart.
// Reports without rows get a sheet with the header only and no chart.
func WriteWorkbook(path string, reports []*report.Report) error {
	if len(reports) == 0 {
		return fmt.Errorf("no reports to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, rep := range reports {
		sheet := SheetName(rep.Granularity)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, rep, headerStyle, amountStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rep *report.Report, headerStyle, amountStyle int) error {
	header := rep.Header()
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range rep.Rows {
		values := []interface{}{row.Key.String()}
		for _, category := range rep.Columns {
			values = append(values, row.Value(category).InexactFloat64())
		}
		values = append(values, row.Total.InexactFloat64())

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	if len(rep.Rows) == 0 {
		return nil
	}

	lastRow := len(rep.Rows) + 1
	if err := f.SetCellStyle(sheet, "B2", fmt.Sprintf("%s%d", lastCol, lastRow), amountStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return err
	}

	chartCol, err := excelize.ColumnNumberToName(len(header) + 2)
	if err != nil {
		return err
	}

	return f.AddChart(sheet, chartCol+"2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$%s$1", sheet, lastCol),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, lastRow),
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, lastCol, lastCol, lastRow),
		}},
		Title: []excelize.RichTextRun{{Text: sheet + " sales"}},
		YAxis: excelize.ChartAxis{
			Title: []excelize.RichTextRun{{Text: AxisTitle}},
		},
		Legend: excelize.ChartLegend{Position: "none"},
	})
}
