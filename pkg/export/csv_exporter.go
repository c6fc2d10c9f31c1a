package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Sheet defines tabular export content with a fixed column order.
type Sheet struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// CSVExporter renders a Sheet into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the sheet. Rows shorter than the
// column list are padded with empty cells.
func (e *CSVExporter) Render(sheet Sheet) ([]byte, error) {
	if len(sheet.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	// BOM so spreadsheet tools detect UTF-8 and render Arabic cells.
	buf.WriteString("\xef\xbb\xbf")
	writer := csv.NewWriter(buf)
	if err := writer.Write(sheet.Columns); err != nil {
		return nil, fmt.Errorf("write csv columns: %w", err)
	}
	for _, row := range sheet.Rows {
		record := make([]string, len(sheet.Columns))
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
