package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

type Document struct {
	Title    string
	Subtitle string
	Tables   []Table
	ChartPNG []byte // optional, drawn after the tables
}

func WritePDF(w io.Writer, d Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(d.Title, true)
	pdf.SetMargins(12, 15, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(d.Title), "", 1, "C", false, 0, "")
	if d.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(d.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageW - left - right

	for _, t := range d.Tables {
		writeTable(pdf, tr, t, usable)
		pdf.Ln(6)
	}

	if len(d.ChartPNG) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("chart", opts, bytes.NewReader(d.ChartPNG))
		if pdf.GetY()+usable*0.45 > 280 {
			pdf.AddPage()
		}
		pdf.ImageOptions("chart", left, pdf.GetY(), usable, 0, false, opts, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("export: build pdf: %w", err)
	}
	return pdf.Output(w)
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, t Table, width float64) {
	if t.Title != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(t.Title), "", 1, "L", false, 0, "")
	}
	if len(t.Headers) == 0 {
		return
	}
	colW := width / float64(len(t.Headers))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(221, 235, 247)
	for _, h := range t.Headers {
		pdf.CellFormat(colW, 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range t.Rows {
		for i := range t.Headers {
			var v string
			if i < len(row) {
				v = fmt.Sprint(row[i])
			}
			pdf.CellFormat(colW, 6, tr(v), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
