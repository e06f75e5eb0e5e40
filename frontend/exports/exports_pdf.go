package exports

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"

	"dailyreport/reporting"
)

type rgb struct{ r, g, b int }

var (
	fillHeader     = rgb{60, 60, 60}
	fillTotal      = rgb{225, 245, 254}
	fillProcess    = rgb{248, 249, 250}
	fillGroup      = rgb{232, 245, 233}
	fillProject    = rgb{249, 251, 231}
	fillCatchList  = rgb{227, 242, 253}
	fillPendName   = rgb{224, 242, 241}
	fillPendCount  = rgb{56, 142, 60}
	fillPendLeaf   = rgb{245, 245, 245}
	textPendLeaf   = rgb{220, 53, 69}
	textWhite      = rgb{255, 255, 255}
	textBlack      = rgb{0, 0, 0}
	pdfMargin      = 10.0
	pendingPerPage = 8
)

type pdfDoc struct {
	*gofpdf.Fpdf
	tr func(string) string
}

func (d pdfDoc) fill(c rgb) { d.SetFillColor(c.r, c.g, c.b) }
func (d pdfDoc) text(c rgb) { d.SetTextColor(c.r, c.g, c.b) }

func (d pdfDoc) cell(w, h float64, s, border, align string, fill bool) {
	d.CellFormat(w, h, d.tr(s), border, 0, align, fill, 0, "")
}

// RenderDocument renders the report as a PDF.
func RenderDocument(report Report) ([]byte, error) {
	orientation := "P"
	if report.Pending != nil {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetTitle(report.Meta.Title, true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 22)
	doc := pdfDoc{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	if err := registerFooter(doc, report.Meta.Reference); err != nil {
		return nil, err
	}

	pdf.AddPage()
	writeDocHeader(doc, report.Meta)
	if report.Pending != nil {
		writePendingTable(doc, *report.Pending, report.Meta)
	} else {
		writeRowTable(doc, report.Rows)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), nil
}

// registerFooter prints the page number and a Code128 barcode of the export
// reference on every page.
func registerFooter(doc pdfDoc, reference string) error {
	var opt gofpdf.ImageOptions
	hasBarcode := reference != ""
	if hasBarcode {
		barcodePNG, err := renderCode128PNG(reference, 1200, 200)
		if err != nil {
			return fmt.Errorf("render reference barcode: %w", err)
		}
		opt = gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		doc.RegisterImageOptionsReader("export-reference", opt, bytes.NewReader(barcodePNG))
	}
	doc.SetFooterFunc(func() {
		_, pageH := doc.GetPageSize()
		y := pageH - 18
		if hasBarcode {
			doc.ImageOptions("export-reference", pdfMargin, y, 60, 9, false, opt, 0, "")
			doc.SetXY(pdfMargin, y+9)
			doc.SetFont("Helvetica", "", 7)
			doc.text(textBlack)
			doc.cell(60, 4, reference, "", "C", false)
		}
		doc.SetXY(pdfMargin, y+4)
		doc.SetFont("Helvetica", "I", 8)
		doc.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", doc.PageNo()), "", 0, "R", false, 0, "")
	})
	doc.AliasNbPages("")
	return nil
}

func writeDocHeader(doc pdfDoc, meta Meta) {
	doc.text(textBlack)
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 9, doc.tr(meta.Title), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	for _, line := range meta.Info {
		doc.CellFormat(0, 6, doc.tr(line), "", 1, "L", false, 0, "")
	}
	if !meta.GeneratedAt.IsZero() {
		doc.CellFormat(0, 6, "Generated: "+meta.GeneratedAt.Format("02 Jan 2006 15:04"), "", 1, "L", false, 0, "")
	}
	doc.Ln(3)
}

func writeRowTable(doc pdfDoc, rows []reporting.Row) {
	pageW, _ := doc.GetPageSize()
	usable := pageW - 2*pdfMargin
	nameW := usable * 0.36
	numW := (usable - nameW) / 4

	doc.SetFont("Helvetica", "B", 10)
	doc.fill(fillHeader)
	doc.text(textWhite)
	doc.cell(nameW, 7, "", "LTR", "C", true)
	doc.cell(numW*2, 7, "Paper", "1", "C", true)
	doc.cell(numW*2, 7, "Booklet", "1", "C", true)
	doc.Ln(-1)
	doc.cell(nameW, 7, "Process", "LBR", "L", true)
	for range 2 {
		doc.cell(numW, 7, "Catch", "1", "C", true)
		doc.cell(numW, 7, "Quantity", "1", "C", true)
	}
	doc.Ln(-1)

	doc.text(textBlack)
	for _, row := range rows {
		if row.Level == reporting.LevelCatchList && row.CatchList != nil {
			doc.SetFont("Helvetica", "", 8)
			doc.fill(fillCatchList)
			doc.MultiCell(usable, 5, doc.tr(strings.Join(row.CatchList.Lines(), "\n")), "1", "L", true)
			continue
		}
		style := ""
		if row.IsTotal || row.Level == reporting.LevelProcess {
			style = "B"
		}
		doc.SetFont("Helvetica", style, 9)
		doc.fill(rowFill(row))
		cells := row.Cells()
		doc.cell(nameW, 6, indent(row)+cells[0], "1", "L", true)
		for _, v := range cells[1:] {
			doc.cell(numW, 6, v, "1", "C", true)
		}
		doc.Ln(-1)
	}
}

func rowFill(row reporting.Row) rgb {
	switch {
	case row.IsTotal:
		return fillTotal
	case row.Level == reporting.LevelGroup:
		return fillGroup
	case row.Level == reporting.LevelProject:
		return fillProject
	}
	return fillProcess
}

func indent(row reporting.Row) string {
	if row.IsTotal {
		return ""
	}
	return strings.Repeat("   ", int(row.Level))
}

// writePendingTable lays the matrix out column-major, one Catch/Quantity pair
// per process. Wide matrices are split into blocks of pendingPerPage
// processes, each with its own three header rows.
func writePendingTable(doc pdfDoc, m reporting.PendingMatrix, meta Meta) {
	pageW, _ := doc.GetPageSize()
	usable := pageW - 2*pdfMargin
	now := meta.GeneratedAt
	if now.IsZero() {
		now = time.Now()
	}
	if len(m.Columns) == 0 {
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, 8, "No pending processes.", "", 1, "L", false, 0, "")
		return
	}

	for start := 0; start < len(m.Columns); start += pendingPerPage {
		end := min(start+pendingPerPage, len(m.Columns))
		block := m.Columns[start:end]
		pairW := usable / float64(len(block))
		if start > 0 {
			doc.AddPage()
		}

		doc.fill(fillPendName)
		doc.text(textBlack)
		doc.SetFont("Helvetica", "B", 8)
		for _, c := range block {
			doc.cell(pairW, 6, c.Name, "LTR", "C", true)
		}
		doc.Ln(-1)
		doc.SetFont("Helvetica", "", 7)
		for _, c := range block {
			last := ""
			if c.LastActivityAt != nil {
				last = "Last Activity: " + reporting.TimeAgoAt(*c.LastActivityAt, now)
			}
			doc.cell(pairW, 5, last, "LBR", "C", true)
		}
		doc.Ln(-1)

		doc.fill(fillPendCount)
		doc.text(textWhite)
		doc.SetFont("Helvetica", "B", 10)
		for _, c := range block {
			doc.cell(pairW, 6, c.Summary(), "1", "C", true)
		}
		doc.Ln(-1)

		doc.fill(fillPendLeaf)
		doc.text(textPendLeaf)
		doc.SetFont("Helvetica", "B", 9)
		for range block {
			doc.cell(pairW/2, 6, "Catch", "1", "C", true)
			doc.cell(pairW/2, 6, "Quantity", "1", "C", true)
		}
		doc.Ln(-1)

		doc.text(textBlack)
		doc.SetFont("Helvetica", "", 9)
		for i := range m.RowCount {
			cells := m.Row(i)[start*2 : end*2]
			for _, v := range cells {
				doc.cell(pairW/2, 6, v, "1", "C", false)
			}
			doc.Ln(-1)
		}
		doc.Ln(4)
	}
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := png.Encode(&out, toNRGBA(scaled)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
