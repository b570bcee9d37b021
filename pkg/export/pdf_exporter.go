package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 190.0

// Field is a labelled value printed above a document table.
type Field struct {
	Label string
	Value string
}

// Document describes a single-page style PDF such as a receipt or report card.
type Document struct {
	Title    string
	Subtitle string
	Fields   []Field
	Table    *Dataset
	Notes    []string
}

// PDFExporter renders datasets and documents with gofpdf.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	return e.RenderDocument(Document{Title: title, Table: &data})
}

// RenderDocument lays out header fields, an optional table and trailing notes.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	if doc.Table != nil && len(doc.Table.Headers) == 0 {
		return nil, fmt.Errorf("pdf table requires at least one header")
	}
	if doc.Table == nil && len(doc.Fields) == 0 {
		return nil, fmt.Errorf("pdf document is empty")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if len(doc.Fields) > 0 {
		for _, field := range doc.Fields {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(50, 7, field.Label, "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(pageWidth-50, 7, field.Value, "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	if doc.Table != nil {
		writeTable(pdf, *doc.Table)
	}

	if len(doc.Notes) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		for _, note := range doc.Notes {
			pdf.MultiCell(0, 5, note, "", "", false)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTable(pdf *gofpdf.Fpdf, data Dataset) {
	colWidth := pageWidth / float64(len(data.Headers))

	pdf.SetFont("Arial", "B", 10)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, value := range data.record(row) {
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(data.Footer) > 0 {
		pdf.SetFont("Arial", "B", 9)
		for _, value := range data.record(data.Footer) {
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
