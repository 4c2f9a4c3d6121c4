package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptLine is one label/value row of a receipt.
type ReceiptLine struct {
	Label string
	Value string
}

// Receipt is the printable summary of a booking.
type Receipt struct {
	Title  string
	Number string
	Lines  []ReceiptLine
	Total  string
	Footer string
}

// PDFExporter renders booking receipts as PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderReceipt creates a single page receipt with a two column body.
func (e *PDFExporter) RenderReceipt(receipt Receipt) ([]byte, error) {
	if len(receipt.Lines) == 0 {
		return nil, fmt.Errorf("receipt requires at least one line")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if receipt.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(receipt.Title)), "", 1, "C", false, 0, "")
	}
	if receipt.Number != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, tr("Receipt #"+receipt.Number), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	for _, line := range receipt.Lines {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 8, tr(line.Label), "B", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(120, 8, tr(line.Value), "B", 1, "", false, 0, "")
	}

	if receipt.Total != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(60, 10, "Total", "", 0, "", false, 0, "")
		pdf.CellFormat(120, 10, tr(receipt.Total), "", 1, "R", false, 0, "")
	}

	if receipt.Footer != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 5, tr(receipt.Footer), "", "C", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
