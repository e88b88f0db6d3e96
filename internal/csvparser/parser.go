// =============================================================================
// Webshop Sales Report - CSV Parser Module
// =============================================================================
//
// This module reads the webshop's "monthly report" export. The export is a
// delimited file written in a legacy single-byte charset with three regions:
//
//   row 0                  header
//   data rows 7..8         overview block; column 0 lists the payment methods
//   data rows 13..         order rows, grouped by payment method
//
// Offsets, delimiter and charset come from config.ExportLayout.
//
// FEATURES:
//   - Charset decoding (ISO-8859-x, Windows-1252) via golang.org/x/text
//   - Rows of any length; overflowing rows are repaired later by the realigner
//   - SplitExport is shared with the XLSX reader
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads an export file and cuts it into its regions.
//
// PARAMETERS:
//   - filePath: The path to the export file.
//   - layout: The export layout from the main configuration.
//
// RETURNS:
//   - The export, rows not yet repaired.
//   - An error if the file cannot be read or is too short for the layout.
func Parse(filePath string, layout config.ExportLayout) (*types.RawExport, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file, filePath, layout)
}

// ParseReader is Parse for an already opened export.
func ParseReader(r io.Reader, source string, layout config.ExportLayout) (*types.RawExport, error) {
	decoder, err := decoderFor(layout.Encoding)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = bufio.NewReader(r)
	if decoder != nil {
		reader = transform.NewReader(reader, decoder.NewDecoder())
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, layout)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return SplitExport(allRows, source, layout)
}

// configureReader configures the CSV reader for the export.
func configureReader(reader *csv.Reader, layout config.ExportLayout) {
	reader.Comma = layout.Comma()

	// Order rows overflow when a description holds the delimiter.
	reader.FieldsPerRecord = -1

	// Descriptions contain stray quotes.
	reader.LazyQuotes = true
}

// decoderFor returns the charset of the export, or nil for UTF-8.
func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "ISO-8859-10", "LATIN6", "LATIN-6":
		return charmap.ISO8859_10, nil
	case "ISO-8859-15", "LATIN9", "LATIN-9":
		return charmap.ISO8859_15, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// =============================================================================
// REGION EXTRACTION
// =============================================================================

// SplitExport cuts raw rows into header, overview labels and order rows.
//
// RETURNS:
//   - ErrMalformedExport when the file ends before the order rows begin
func SplitExport(allRows [][]string, source string, layout config.ExportLayout) (*types.RawExport, error) {
	if len(allRows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", types.ErrMalformedExport, source)
	}

	headerRows := layout.HeaderRows
	if headerRows < 1 {
		headerRows = 1
	}
	if len(allRows) < headerRows {
		return nil, fmt.Errorf("%w: %s has fewer rows than header_rows", types.ErrMalformedExport, source)
	}

	data := allRows[headerRows:]
	if len(data) < layout.DataStartRow {
		return nil, fmt.Errorf("%w: %s has %d rows, order rows start at row %d",
			types.ErrMalformedExport, source, len(data), layout.DataStartRow)
	}

	export := &types.RawExport{
		SourceFile: source,
		Header:     cleanHeaders(allRows[headerRows-1]),
		Labels:     extractLabels(data, layout),
		Rows:       data[layout.DataStartRow:],
	}

	return export, nil
}

// extractLabels returns the non-empty first cells of the overview block.
func extractLabels(data [][]string, layout config.ExportLayout) []string {
	var labels []string
	end := layout.OverviewEndRow
	if end > len(data) {
		end = len(data)
	}
	for i := layout.OverviewStartRow; i < end; i++ {
		if len(data[i]) == 0 {
			continue
		}
		if label := strings.TrimSpace(data[i][0]); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

// cleanHeaders trims header cells.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		cleaned[i] = strings.TrimSpace(header)
	}
	return cleaned
}
