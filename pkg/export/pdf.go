package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

var pdfColumnWidths = []float64{24, 14, 14, 28, 70, 45, 50, 32}

// PDFRenderer lays events out as a landscape table.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Extension() string { return "pdf" }

// Render creates a PDF with a title, the covered range and the event table.
func (r *PDFRenderer) Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	title := doc.Title
	if title == "" {
		title = "Calendar"
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
	if !doc.From.IsZero() {
		pdf.SetFont("Arial", "", 9)
		rangeLabel := fmt.Sprintf("%s to %s", doc.From.Format("2006-01-02"), doc.To.AddDate(0, 0, -1).Format("2006-01-02"))
		pdf.CellFormat(0, 6, rangeLabel, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range Columns {
			pdf.CellFormat(pdfColumnWidths[i], 7, col, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	header()

	rows := doc.Rows()
	if len(rows) == 0 {
		pdf.CellFormat(0, 7, "No events in this range", "1", 1, "C", false, 0, "")
	}
	for _, row := range rows {
		for i, value := range row {
			pdf.CellFormat(pdfColumnWidths[i], 6, truncate(pdf, value, pdfColumnWidths[i]-2), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(pdf *gofpdf.Fpdf, value string, width float64) string {
	if pdf.GetStringWidth(value) <= width {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
