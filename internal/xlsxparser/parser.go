// =============================================================================
// ifirma client - XLSX Line Item Parser
// =============================================================================
//
// This module reads invoice line items from an XLSX workbook. It follows
// the same contract as the CSV reader: the first row of the sheet holds the
// domain item keys and every later non-empty row becomes one item.
//
// SHEET SELECTION:
//   ItemsSettings.Sheet names the sheet to read; when empty the first sheet
//   of the workbook is used.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ifirma-client/internal/config"
	"github.com/ginjaninja78/ifirma-client/internal/csvparser"
)

// Parse reads the line items of an XLSX workbook.
//
// PARAMETERS:
//   - filePath: The path to the workbook.
//   - settings: The item reader settings from the configuration.
//
// RETURNS:
//   - The parsed items.
//   - An error if the workbook, the sheet or the header row is unusable.
func Parse(filePath string, settings config.ItemsSettings) (*csvparser.ItemsData, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := selectSheet(f, settings.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	start := firstNonEmptyRow(rows)
	if start < 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	headers, err := extractHeaders(rows[start])
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	items := csvparser.BuildRows(headers, rows[start+1:])
	return &csvparser.ItemsData{
		Headers:    headers,
		Rows:       items,
		SourceFile: filePath,
		RowCount:   len(items),
	}, nil
}

// selectSheet returns the requested sheet, or the first one.
func selectSheet(f *excelize.File, name string) (string, error) {
	if name == "" {
		first := f.GetSheetName(0)
		if first == "" {
			return "", fmt.Errorf("workbook has no sheets")
		}
		return first, nil
	}

	idx, err := f.GetSheetIndex(name)
	if err != nil || idx < 0 {
		return "", fmt.Errorf("workbook has no sheet %q", name)
	}
	return name, nil
}

// extractHeaders normalizes the header row. Trailing empty header cells are
// dropped; any other empty or repeated header is an error.
func extractHeaders(row []string) ([]string, error) {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}

	headers := make([]string, 0, end)
	seen := make(map[string]bool, end)
	for i, cell := range row[:end] {
		header := strings.ToLower(strings.TrimSpace(cell))
		if header == "" {
			return nil, fmt.Errorf("column %s has no header", columnName(i))
		}
		if seen[header] {
			return nil, fmt.Errorf("header %q appears more than once", header)
		}
		seen[header] = true
		headers = append(headers, header)
	}
	return headers, nil
}

func firstNonEmptyRow(rows [][]string) int {
	for i, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return i
			}
		}
	}
	return -1
}

func columnName(i int) string {
	name, err := excelize.ColumnNumberToName(i + 1)
	if err != nil {
		return fmt.Sprintf("%d", i+1)
	}
	return name
}
