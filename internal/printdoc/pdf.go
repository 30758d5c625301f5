package printdoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	pdflib "github.com/ledongthuc/pdf"
)

// The core fonts only cover cp1252.
var glyphFallbacks = strings.NewReplacer(
	"☐", "[ ]",
	"☑", "[x]",
	"✓", "v",
	"→", "->",
	"≤", "<=",
	"≥", ">=",
)

type writer struct {
	pdf   *fpdf.Fpdf
	sheet Stylesheet
	tr    func(string) string
	lh    float64
	left  float64
	width float64
}

// WritePDF lays out elements on paginated pages and writes the document to w.
func WritePDF(w io.Writer, elems []Element, sheet Stylesheet, title string) error {
	pdf := fpdf.New("P", "pt", sheet.PageSize, "")
	pdf.SetMargins(sheet.Margin, sheet.Margin, sheet.Margin)
	pdf.SetAutoPageBreak(true, sheet.Margin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("mtlgen", false)

	pageW, _ := pdf.GetPageSize()
	wr := &writer{
		pdf:   pdf,
		sheet: sheet,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		lh:    sheet.FontSize * sheet.LineHeight,
		left:  sheet.Margin,
		width: pageW - 2*sheet.Margin,
	}
	pdf.AddPage()
	wr.body()

	for i, el := range elems {
		switch el.Kind {
		case Heading:
			wr.heading(el, i == 0)
		case Paragraph:
			wr.paragraph(el)
		case ListItem:
			wr.listItem(el)
		case Table:
			wr.table(el)
		case PageBreak:
			if pdf.GetY() > sheet.Margin+1 {
				pdf.AddPage()
			}
		case NoteLines:
			wr.noteLines(el.Lines)
		}
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("layout pdf: %w", err)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (wr *writer) text(s string) string {
	return wr.tr(glyphFallbacks.Replace(s))
}

func (wr *writer) body() {
	s := wr.sheet
	wr.pdf.SetFont(s.FontFamily, "", s.FontSize)
	wr.pdf.SetTextColor(s.Text.R, s.Text.G, s.Text.B)
	wr.pdf.SetDrawColor(s.Border.R, s.Border.G, s.Border.B)
}

func (wr *writer) heading(el Element, first bool) {
	s := wr.sheet
	size := s.SectionSize
	if el.Level <= 1 {
		size = s.TitleSize
	}
	if !first {
		wr.pdf.Ln(s.ParagraphGap)
	}
	wr.pdf.SetFont(s.FontFamily, "B", size)
	wr.pdf.MultiCell(wr.width, size*s.LineHeight, wr.text(el.Text), "", "L", false)
	wr.pdf.Ln(s.ParagraphGap / 2)
	wr.body()
}

func (wr *writer) paragraph(el Element) {
	s := wr.sheet
	styleStr, size := "", s.FontSize
	switch {
	case el.Italic:
		styleStr, size = "I", s.NoteSize
	case el.Bold:
		styleStr = "B"
	}
	wr.pdf.SetFont(s.FontFamily, styleStr, size)
	wr.pdf.MultiCell(wr.width, size*s.LineHeight, wr.text(el.Text), "", "L", false)
	wr.pdf.Ln(s.ParagraphGap)
	wr.body()
}

func (wr *writer) listItem(el Element) {
	indent := 2 * wr.sheet.FontSize
	wr.pdf.SetX(wr.left + indent/2)
	wr.pdf.CellFormat(indent/2, wr.lh, wr.text("•"), "", 0, "L", false, 0, "")
	wr.pdf.MultiCell(wr.width-indent, wr.lh, wr.text(el.Text), "", "L", false)
}

func (wr *writer) noteLines(n int) {
	gap := wr.sheet.NoteLineGap
	for i := 0; i < n; i++ {
		if wr.pdf.GetY()+gap > wr.bottom() {
			wr.pdf.AddPage()
		}
		wr.pdf.Ln(gap)
		y := wr.pdf.GetY()
		wr.pdf.Line(wr.left, y, wr.left+wr.width, y)
	}
	wr.pdf.Ln(wr.sheet.ParagraphGap)
}

func (wr *writer) bottom() float64 {
	_, pageH := wr.pdf.GetPageSize()
	return pageH - wr.sheet.Margin
}

// columnWidths weights each column by its widest word and line, then scales
// the result to the usable width.
func (wr *writer) columnWidths(rows [][]string) []float64 {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return nil
	}
	pad := 2 * wr.sheet.CellPadding
	minW := make([]float64, cols)
	want := make([]float64, cols)
	for _, r := range rows {
		for j, cell := range r {
			for _, line := range strings.Split(wr.text(cell), "\n") {
				want[j] = max(want[j], wr.pdf.GetStringWidth(line)+pad)
				for _, word := range strings.Fields(line) {
					minW[j] = max(minW[j], wr.pdf.GetStringWidth(word)+pad)
				}
			}
		}
	}
	out := make([]float64, cols)
	var total float64
	for j := range out {
		out[j] = max(want[j], minW[j], 2*wr.sheet.FontSize)
		total += out[j]
	}
	// Columns already narrower than their share keep their size; the rest
	// split what remains.
	share := wr.width / float64(cols)
	var fixed float64
	var flex []int
	for j, w := range out {
		if w <= share {
			fixed += w
		} else {
			flex = append(flex, j)
		}
	}
	if len(flex) == 0 {
		scale := wr.width / total
		for j := range out {
			out[j] *= scale
		}
		return out
	}
	var flexTotal float64
	for _, j := range flex {
		flexTotal += out[j]
	}
	for _, j := range flex {
		out[j] = out[j] / flexTotal * (wr.width - fixed)
	}
	return out
}

func (wr *writer) table(el Element) {
	widths := wr.columnWidths(el.Rows)
	if len(widths) == 0 {
		return
	}
	top := wr.sheet.Margin + 1
	for i, row := range el.Rows {
		header := i < el.HeaderRows
		h := wr.rowHeight(row, widths, header)
		if i == 0 && el.HeaderRows > 0 {
			// Keep the caption rows with the first body row.
			need := h
			if len(el.Rows) > el.HeaderRows {
				need += wr.rowHeight(el.Rows[el.HeaderRows], widths, false)
			}
			if wr.pdf.GetY()+need > wr.bottom() && wr.pdf.GetY() > top {
				wr.pdf.AddPage()
			}
		}
		if !header && wr.pdf.GetY()+h > wr.bottom() && wr.pdf.GetY() > top {
			wr.pdf.AddPage()
			for _, hr := range el.Rows[:el.HeaderRows] {
				wr.row(hr, widths, true, wr.rowHeight(hr, widths, true))
			}
		}
		wr.row(row, widths, header, h)
	}
	wr.pdf.Ln(wr.sheet.ParagraphGap)
}

func (wr *writer) cellLines(cell string, w float64) []string {
	var out []string
	for _, line := range strings.Split(wr.text(cell), "\n") {
		if line == "" {
			out = append(out, "")
			continue
		}
		out = append(out, wr.pdf.SplitText(line, w-2*wr.sheet.CellPadding)...)
	}
	return out
}

func (wr *writer) rowHeight(row []string, widths []float64, header bool) float64 {
	wr.setCellFont(header)
	lines := 1
	for j, cell := range row {
		if j < len(widths) {
			lines = max(lines, len(wr.cellLines(cell, widths[j])))
		}
	}
	return float64(lines)*wr.lh + 2*wr.sheet.CellPadding
}

func (wr *writer) setCellFont(header bool) {
	s := wr.sheet
	if header {
		wr.pdf.SetFont(s.FontFamily, "B", s.FontSize)
		return
	}
	wr.pdf.SetFont(s.FontFamily, "", s.FontSize)
}

func (wr *writer) row(row []string, widths []float64, header bool, h float64) {
	s := wr.sheet
	y := wr.pdf.GetY()
	x := wr.left
	wr.setCellFont(header)
	if header {
		wr.pdf.SetFillColor(s.Fill.R, s.Fill.G, s.Fill.B)
		wr.pdf.SetTextColor(s.HeaderText.R, s.HeaderText.G, s.HeaderText.B)
	}
	for j, w := range widths {
		styleStr := "D"
		if header {
			styleStr = "FD"
		}
		wr.pdf.Rect(x, y, w, h, styleStr)
		if j < len(row) {
			ly := y + s.CellPadding
			for _, line := range wr.cellLines(row[j], w) {
				wr.pdf.SetXY(x+s.CellPadding, ly)
				wr.pdf.CellFormat(w-2*s.CellPadding, wr.lh, line, "", 0, "L", false, 0, "")
				ly += wr.lh
			}
		}
		x += w
	}
	wr.pdf.SetXY(wr.left, y+h)
	wr.body()
}

// PageCount reads back a rendered document and reports its pages.
func PageCount(data []byte) (int, error) {
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return r.NumPage(), nil
}
