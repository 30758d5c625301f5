package style

import (
	"fmt"

	"github.com/dgallion1/mtlgen/internal/classify"
	"github.com/fumiama/go-docx"
)

// Skip records a classified row that could not be styled.
type Skip struct {
	Table  int    `json:"table"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Report summarizes one Apply call.
type Report struct {
	Shaded   int    `json:"shaded"`
	Unshaded int    `json:"unshaded"`
	Skipped  []Skip `json:"skipped"`
}

// Steps tables need at least number, step and one initials column.
const minStepsColumns = 3

// Apply sets page margins, clamps table widths and shades classified rows.
// Running it again on its own output changes nothing.
func Apply(doc *docx.Docx, rows []classify.Row, p Profile) Report {
	report := Report{Skipped: []Skip{}}
	applyPage(doc, p)

	tables := classify.DocxTables(doc)
	for _, t := range tables {
		fitTable(t, p.TableWidth())
	}

	for _, r := range rows {
		if r.Table < 0 || r.Table >= len(tables) {
			report.Skipped = append(report.Skipped, Skip{r.Table, r.Index, "table index out of range"})
			continue
		}
		t := tables[r.Table]
		if r.Index < 0 || r.Index >= len(t.TableRows) || t.TableRows[r.Index] == nil {
			report.Skipped = append(report.Skipped, Skip{r.Table, r.Index, "row index out of range"})
			continue
		}
		row := t.TableRows[r.Index]
		if len(row.TableCells) == 0 {
			report.Skipped = append(report.Skipped, Skip{r.Table, r.Index, "row has no cells"})
			continue
		}

		switch r.Role {
		case classify.Header, classify.TrailerHeader:
			shadeRow(row, p)
			report.Shaded++
		case classify.StepsHeader:
			if len(row.TableCells) < minStepsColumns {
				report.Skipped = append(report.Skipped, Skip{r.Table, r.Index,
					fmt.Sprintf("steps header has %d cells, need %d", len(row.TableCells), minStepsColumns)})
				continue
			}
			if p.ShadeStepsHeader {
				shadeRow(row, p)
				report.Shaded++
			} else {
				clearRow(row, p)
				report.Unshaded++
			}
		}
	}
	return report
}

// applyPage leaves exactly one section at the end of the body.
func applyPage(doc *docx.Docx, p Profile) {
	var sect *docx.SectPr
	items := doc.Document.Body.Items[:0]
	for _, item := range doc.Document.Body.Items {
		if s, ok := item.(*docx.SectPr); ok {
			sect = s
			continue
		}
		items = append(items, item)
	}
	if sect == nil {
		sect = &docx.SectPr{}
	}
	header, footer := p.Margin/2, p.Margin/2
	if sect.PgMar != nil {
		header, footer = sect.PgMar.Header, sect.PgMar.Footer
	}
	sect.PgSz = &docx.PgSz{W: p.PageWidth, H: p.PageHeight}
	sect.PgMar = &docx.PgMar{
		Top:    p.Margin,
		Left:   p.Margin,
		Bottom: p.Margin,
		Right:  p.Margin,
		Header: header,
		Footer: footer,
	}
	doc.Document.Body.Items = append(items, sect)
}

func fitTable(t *docx.Table, width int64) {
	if t.TableProperties == nil {
		t.TableProperties = &docx.WTableProperties{}
	}
	w := t.TableProperties.Width
	if w == nil || w.Type != "dxa" || w.W <= 0 || w.W > width {
		t.TableProperties.Width = &docx.WTableWidth{W: width, Type: "dxa"}
	}
	width = t.TableProperties.Width.W

	cols := 0
	for _, r := range t.TableRows {
		if r != nil && spanCount(r) > cols {
			cols = spanCount(r)
		}
	}
	if t.TableGrid == nil {
		t.TableGrid = &docx.WTableGrid{}
	}
	grid := t.TableGrid.GridCols
	var sum int64
	for _, g := range grid {
		if g != nil {
			sum += g.W
		}
	}
	switch {
	case cols > 0 && (len(grid) == 0 || sum <= 0):
		grid = evenGrid(cols, width)
	case sum > width:
		grid = scaleGrid(grid, sum, width)
	}
	t.TableGrid.GridCols = grid

	for _, r := range t.TableRows {
		if r == nil {
			continue
		}
		pos := 0
		for _, c := range r.TableCells {
			if c == nil {
				continue
			}
			span := cellSpan(c)
			var cw int64
			for i := pos; i < pos+span && i < len(grid); i++ {
				cw += grid[i].W
			}
			pos += span
			if cw == 0 {
				continue
			}
			if c.TableCellProperties == nil {
				c.TableCellProperties = &docx.WTableCellProperties{}
			}
			c.TableCellProperties.TableCellWidth = &docx.WTableCellWidth{W: cw, Type: "dxa"}
		}
	}
}

func evenGrid(cols int, width int64) []*docx.WGridCol {
	out := make([]*docx.WGridCol, cols)
	each := width / int64(cols)
	for i := range out {
		out[i] = &docx.WGridCol{W: each}
	}
	out[cols-1].W += width - each*int64(cols)
	return out
}

// scaleGrid shrinks columns proportionally so they sum to width exactly.
func scaleGrid(grid []*docx.WGridCol, sum, width int64) []*docx.WGridCol {
	out := make([]*docx.WGridCol, len(grid))
	var used int64
	for i, g := range grid {
		var w int64
		if g != nil {
			w = g.W * width / sum
		}
		out[i] = &docx.WGridCol{W: w}
		used += w
	}
	out[len(out)-1].W += width - used
	return out
}

func cellSpan(c *docx.WTableCell) int {
	if c.TableCellProperties != nil && c.TableCellProperties.GridSpan != nil && c.TableCellProperties.GridSpan.Val > 1 {
		return c.TableCellProperties.GridSpan.Val
	}
	return 1
}

func spanCount(r *docx.WTableRow) int {
	n := 0
	for _, c := range r.TableCells {
		if c != nil {
			n += cellSpan(c)
		}
	}
	return n
}

func shadeRow(row *docx.WTableRow, p Profile) {
	for _, c := range row.TableCells {
		if c == nil {
			continue
		}
		if c.TableCellProperties == nil {
			c.TableCellProperties = &docx.WTableCellProperties{}
		}
		c.Shade("clear", "auto", p.Fill)
		eachRun(c, func(rp *docx.RunProperties) {
			if p.HeaderTextColor != "" {
				rp.Color = &docx.Color{Val: p.HeaderTextColor}
			}
			if p.BoldHeaders {
				rp.Bold = &docx.Bold{}
			}
		})
	}
}

// clearRow removes fill and the header text color so the row reads as plain text.
func clearRow(row *docx.WTableRow, p Profile) {
	for _, c := range row.TableCells {
		if c == nil || c.TableCellProperties == nil {
			continue
		}
		c.TableCellProperties.Shade = nil
		eachRun(c, func(rp *docx.RunProperties) {
			if rp.Color != nil && rp.Color.Val == p.HeaderTextColor {
				rp.Color = nil
			}
		})
	}
}

func eachRun(c *docx.WTableCell, fn func(*docx.RunProperties)) {
	for _, para := range c.Paragraphs {
		if para == nil {
			continue
		}
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			if run.RunProperties == nil {
				run.RunProperties = &docx.RunProperties{}
			}
			fn(run.RunProperties)
		}
	}
}
