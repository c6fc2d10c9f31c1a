package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a Sheet into a basic tabular PDF attendance form.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with the sheet title, a bordered table body
// and a generation footer.
func (e *PDFExporter) Render(sheet Sheet) ([]byte, error) {
	if len(sheet.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if sheet.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(sheet.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	colWidth := 190.0 / float64(len(sheet.Columns))
	pdf.SetFont("Arial", "B", 10)
	for _, col := range sheet.Columns {
		pdf.CellFormat(colWidth, 8, tr(col), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range sheet.Rows {
		for i := range sheet.Columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(colWidth, 7, tr(value), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, "generated "+time.Now().UTC().Format(time.RFC3339), "", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
