package export

import (
	"fmt"

	"github.com/dgallion1/mtlgen/internal/compose"
	"github.com/fumiama/go-docx"
)

// Row heights in twips for write-in areas.
const (
	noteRowHeight    = 400
	signOffRowHeight = 600
	numberColWidth   = 600
	narrowColWidth   = 1400
	labelColWidth    = 3000
)

// docBuilder appends composed blocks to a document as tables and paragraphs.
// The same builder serves the fallback document and blocks a template lacks.
type docBuilder struct {
	doc   *docx.Docx
	width int64
}

func (b *docBuilder) writeAll(blocks []compose.Block) {
	for _, blk := range blocks {
		b.write(blk)
	}
}

func (b *docBuilder) write(blk compose.Block) {
	switch blk.Kind {
	case compose.KindHeader:
		rows := [][]string{{blk.Caption, blk.Label}}
		for _, f := range blk.Fields {
			rows = append(rows, []string{f.Label, f.Value})
		}
		b.table(rows, nil, []int64{labelColWidth, b.width - labelColWidth})
	case compose.KindStepTable:
		b.stepTable(blk)
	case compose.KindList, compose.KindChecklist:
		rows := [][]string{{blk.Title}}
		for _, item := range listItems(blk) {
			rows = append(rows, []string{item})
		}
		if len(blk.Items) == 0 {
			rows = append(rows, []string{""})
		}
		b.table(rows, nil, []int64{b.width})
	case compose.KindPairTable:
		b.doc.AddParagraph().AddText(blk.Title).Bold()
		rows := [][]string{blk.Columns}
		for _, p := range blk.Pairs {
			rows = append(rows, []string{p[0], p[1]})
		}
		b.table(rows, nil, evenWidths(len(blk.Columns), b.width))
	case compose.KindPageBreak:
		b.doc.AddParagraph().AddPageBreaks()
	case compose.KindNotes:
		rows := [][]string{{blk.Title}}
		heights := []int64{0}
		for i := 0; i < blk.Lines; i++ {
			rows = append(rows, []string{""})
			heights = append(heights, noteRowHeight)
		}
		b.table(rows, heights, []int64{b.width})
	case compose.KindSignOff:
		rows := [][]string{blk.Columns}
		heights := []int64{0}
		for _, s := range blk.Signers {
			rows = append(rows, []string{s})
			heights = append(heights, signOffRowHeight)
		}
		b.table(rows, heights, evenWidths(len(blk.Columns), b.width))
		if blk.Statement != "" {
			b.doc.AddParagraph().AddText(blk.Statement).Italic().Size("16")
		}
	}
}

func (b *docBuilder) stepTable(blk compose.Block) {
	rows := [][]string{blk.Columns}
	noteRow := -1
	if blk.Note != "" && len(blk.Columns) > 1 {
		noteRow = len(rows)
		note := make([]string, len(blk.Columns))
		note[1] = blk.Note
		rows = append(rows, note)
	}
	rows = append(rows, stepRows(blk)...)
	t := b.table(rows, nil, stepWidths(len(blk.Columns), b.width))
	if noteRow >= 0 {
		for _, p := range t.TableRows[noteRow].TableCells[1].Paragraphs {
			for _, child := range p.Children {
				if run, ok := child.(*docx.Run); ok {
					run.Italic().Size("16")
				}
			}
		}
	}
}

// table appends a bordered table with one paragraph per cell and a spacer
// paragraph after it so adjacent tables stay separate.
func (b *docBuilder) table(rows [][]string, heights, widths []int64) *docx.Table {
	if heights == nil {
		heights = make([]int64, len(rows))
	}
	t := b.doc.AddTableTwips(heights, widths, b.width, nil)
	for i, r := range t.TableRows {
		for j, c := range r.TableCells {
			text := ""
			if j < len(rows[i]) {
				text = rows[i][j]
			}
			setCellText(c, text)
		}
	}
	b.doc.AddParagraph()
	return t
}

// setCellText replaces a cell's content with one paragraph of text.
func setCellText(c *docx.WTableCell, text string) *docx.Run {
	c.Paragraphs = nil
	p := c.AddParagraph()
	if text == "" {
		return nil
	}
	return p.AddText(text)
}

func stepRows(blk compose.Block) [][]string {
	rows := make([][]string, len(blk.Items))
	for i, step := range blk.Items {
		row := make([]string, max(len(blk.Columns), 2))
		row[0] = fmt.Sprint(i + 1)
		row[1] = step
		rows[i] = row
	}
	return rows
}

func listItems(blk compose.Block) []string {
	if blk.Kind != compose.KindChecklist {
		return blk.Items
	}
	out := make([]string, len(blk.Items))
	for i, item := range blk.Items {
		out[i] = compose.CheckboxMark + " " + item
	}
	return out
}

func evenWidths(cols int, width int64) []int64 {
	if cols <= 0 {
		return nil
	}
	out := make([]int64, cols)
	each := width / int64(cols)
	for i := range out {
		out[i] = each
	}
	out[cols-1] += width - each*int64(cols)
	return out
}

// stepWidths keeps the number and initials columns narrow and gives the
// rest to the step text.
func stepWidths(cols int, width int64) []int64 {
	if cols < 3 {
		return evenWidths(cols, width)
	}
	step := width - numberColWidth - narrowColWidth*int64(cols-2)
	if step < 2*narrowColWidth {
		return evenWidths(cols, width)
	}
	out := make([]int64, cols)
	out[0], out[1] = numberColWidth, step
	for i := 2; i < cols; i++ {
		out[i] = narrowColWidth
	}
	return out
}
