package classify

import (
	"strings"

	"github.com/fumiama/go-docx"
)

// DocxTables returns the body-level tables of doc in document order.
func DocxTables(doc *docx.Docx) []*docx.Table {
	var out []*docx.Table
	for _, item := range doc.Document.Body.Items {
		if t, ok := item.(*docx.Table); ok {
			out = append(out, t)
		}
	}
	return out
}

// FromDocx extracts the rendered cell text of every body-level table.
func FromDocx(doc *docx.Docx) []Table {
	tables := DocxTables(doc)
	out := make([]Table, len(tables))
	for i, t := range tables {
		rows := make([][]string, len(t.TableRows))
		for j, r := range t.TableRows {
			rows[j] = RowCells(r)
		}
		out[i] = Table{Index: i, Rows: rows}
	}
	return out
}

// RowCells returns the text of each cell in r.
func RowCells(r *docx.WTableRow) []string {
	if r == nil {
		return nil
	}
	cells := make([]string, len(r.TableCells))
	for i, c := range r.TableCells {
		cells[i] = CellText(c)
	}
	return cells
}

// CellText joins the paragraph text of a cell with single spaces.
func CellText(c *docx.WTableCell) string {
	if c == nil {
		return ""
	}
	var parts []string
	for _, p := range c.Paragraphs {
		if t := strings.TrimSpace(p.String()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
