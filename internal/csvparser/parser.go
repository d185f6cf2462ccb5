// =============================================================================
// ifirma client - CSV Line Item Parser
// =============================================================================
//
// This module reads invoice line items from a CSV file. The first row holds
// the domain item keys (vat_rate, quantity, price, name, ...); every later
// non-empty row becomes one item.
//
// EXAMPLE:
//
//   name,quantity,unit,price,vat_rate,vat_type
//   Consulting,10,h,150.00,23,percent
//   Book,1,szt,45,5,percent
//
// CELL CONVERSION:
//   - Empty cells are left out of the item.
//   - Cells of NumericColumns become int or float64; a decimal comma is
//     accepted ("23,5").
//   - Everything else stays a string, so codes like PKWiU "62.01.11.0" or
//     leading zeros survive.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ginjaninja78/ifirma-client/internal/config"
)

// NumericColumns are the item keys whose cells are converted to numbers.
var NumericColumns = []string{"vat_rate", "quantity", "price", "discount"}

// =============================================================================
// ITEMS DATA STRUCTURE
// =============================================================================

// ItemsData represents one parsed line item file.
type ItemsData struct {
	// Headers are the item keys from the header row.
	Headers []string

	// Rows are the items, ready to be used as the "items" attribute.
	Rows []map[string]any

	// SourceFile is the path to the source file.
	SourceFile string

	// RowCount is the number of items.
	RowCount int
}

// Items returns the rows as a list attribute value.
func (d *ItemsData) Items() []any {
	out := make([]any, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row
	}
	return out
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV line item file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The item reader settings from the configuration.
//
// RETURNS:
//   - The parsed items.
//   - An error if the file cannot be read or has no header row.
func Parse(filePath string, settings config.ItemsSettings) (*ItemsData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	csvReader := csv.NewReader(bufio.NewReader(file))
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers, err := extractHeaders(allRows[0])
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	rows := BuildRows(headers, allRows[1:])
	return &ItemsData{
		Headers:    headers,
		Rows:       rows,
		SourceFile: filePath,
		RowCount:   len(rows),
	}, nil
}

// configureReader applies the delimiter and relaxes quoting rules.
func configureReader(reader *csv.Reader, settings config.ItemsSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "":
		reader.Comma = ','
	default:
		reader.Comma = []rune(settings.Delimiter)[0]
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders normalizes the header row. Every column needs a unique,
// non-empty key.
func extractHeaders(row []string) ([]string, error) {
	headers := make([]string, len(row))
	seen := make(map[string]int, len(row))

	for i, header := range row {
		header = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
		if header == "" {
			return nil, fmt.Errorf("column %d has no header", i+1)
		}
		if prev, dup := seen[header]; dup {
			return nil, fmt.Errorf("columns %d and %d share the header %q", prev+1, i+1, header)
		}
		seen[header] = i
		headers[i] = header
	}
	return headers, nil
}

// BuildRows turns raw data rows into items keyed by headers. Empty rows are
// skipped.
func BuildRows(headers []string, rawRows [][]string) []map[string]any {
	rows := make([]map[string]any, 0, len(rawRows))

	for _, raw := range rawRows {
		if isRowEmpty(raw) {
			continue
		}

		row := make(map[string]any, len(headers))
		for i, header := range headers {
			if i >= len(raw) {
				break
			}
			if v, ok := ConvertCell(header, raw[i]); ok {
				row[header] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ConvertCell converts one cell of column header. ok is false for empty
// cells.
func ConvertCell(header, cell string) (any, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, false
	}
	if !isNumericColumn(header) {
		return cell, true
	}

	num := strings.Replace(strings.ReplaceAll(cell, " ", ""), ",", ".", 1)
	if i, err := strconv.Atoi(num); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(num, 64); err == nil {
		return f, true
	}
	return cell, true
}

func isNumericColumn(header string) bool {
	for _, c := range NumericColumns {
		if c == header {
			return true
		}
	}
	return false
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
