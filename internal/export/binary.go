package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/mtlgen/internal/classify"
	"github.com/dgallion1/mtlgen/internal/compose"
	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/placeholder"
	"github.com/dgallion1/mtlgen/internal/style"
	"github.com/fumiama/go-docx"
)

// binaryJob carries what the binary path needs for one render.
type binaryJob struct {
	dt        definition.DocumentType
	def       *definition.TaskDefinition
	blocks    []compose.Block
	extras    map[string]string
	registry  *placeholder.Registry
	profile   style.Profile
	templates TemplateSource
}

// renderBinary fills the base template for the type, or builds the document
// from scratch when the template is unusable, then applies the style profile.
func renderBinary(job binaryJob) ([]byte, []Warning, error) {
	var warnings []Warning
	warn := func(kind WarningKind, format string, args ...any) {
		warnings = append(warnings, Warning{Kind: kind, Format: FormatBinary, Message: fmt.Sprintf(format, args...)})
	}

	var doc *docx.Docx
	if job.templates != nil {
		d, err := job.templates.Open(job.dt)
		if err != nil {
			warn(WarnTemplateLoad, "%v; building document from scratch", err)
		} else {
			doc = d
		}
	} else {
		warn(WarnTemplateLoad, "no template source configured; building document from scratch")
	}

	if doc != nil {
		for _, u := range resolveDocPlaceholders(doc, job) {
			warn(WarnUnresolvedPlaceholder, "template placeholder %s (%s) has no value", u.Token, u.Syntax)
		}
		rows := classify.Classify(classify.FromDocx(doc))
		if len(classify.ByRole(rows, classify.Header)) == 0 {
			warn(WarnNoHeaderRow, "template has no row containing %q; building document from scratch", classify.HeaderMarker)
			doc = nil
		} else {
			fillTemplate(doc, rows, job)
		}
	}

	if doc == nil {
		doc = docx.New().WithDefaultTheme()
		b := &docBuilder{doc: doc, width: job.profile.TableWidth()}
		b.writeAll(job.blocks)
	}

	rows := classify.Classify(classify.FromDocx(doc))
	report := style.Apply(doc, rows, job.profile)
	for _, s := range report.Skipped {
		warn(WarnStyleSkipped, "table %d row %d: %s", s.Table, s.Row, s.Reason)
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, warnings, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), warnings, nil
}

// resolveDocPlaceholders substitutes placeholders paragraph by paragraph.
// A token split across runs is handled by collapsing the paragraph's text
// into its first run.
func resolveDocPlaceholders(doc *docx.Docx, job binaryJob) []placeholder.Unresolved {
	var unresolved []placeholder.Unresolved
	seen := map[string]bool{}
	visit := func(p *docx.Paragraph) {
		text := runText(p)
		if len(job.registry.Scan(text)) == 0 {
			return
		}
		res := job.registry.Resolve(text, job.def, job.extras)
		for _, u := range res.Unresolved {
			if !seen[u.Token] {
				seen[u.Token] = true
				unresolved = append(unresolved, u)
			}
		}
		if res.Text != text {
			setParagraphText(p, res.Text)
		}
	}
	for _, item := range doc.Document.Body.Items {
		switch o := item.(type) {
		case *docx.Paragraph:
			visit(o)
		case *docx.Table:
			eachParagraph(o, visit)
		}
	}
	return unresolved
}

func eachParagraph(t *docx.Table, fn func(*docx.Paragraph)) {
	for _, r := range t.TableRows {
		if r == nil {
			continue
		}
		for _, c := range r.TableCells {
			if c == nil {
				continue
			}
			for _, p := range c.Paragraphs {
				if p != nil {
					fn(p)
				}
			}
			for _, nested := range c.Tables {
				if nested != nil {
					eachParagraph(nested, fn)
				}
			}
		}
	}
}

// runText is the paragraph's plain run text. Hyperlinks are left out so
// they survive substitution untouched.
func runText(p *docx.Paragraph) string {
	var b strings.Builder
	for _, child := range p.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, c := range run.Children {
			switch x := c.(type) {
			case *docx.Text:
				b.WriteString(x.Text)
			case *docx.Tab:
				b.WriteByte('\t')
			case *docx.BarterRabbet:
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// setParagraphText keeps the first run's formatting and drops the others.
func setParagraphText(p *docx.Paragraph, text string) {
	var first *docx.Run
	children := p.Children[:0]
	for _, child := range p.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			children = append(children, child)
			continue
		}
		if first == nil {
			first = run
			children = append(children, run)
		}
	}
	p.Children = children
	if first == nil {
		p.AddText(text)
		return
	}
	first.Children = nil
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			first.Children = append(first.Children, &docx.BarterRabbet{})
		}
		first.Children = append(first.Children, &docx.Text{Text: line, XMLSpace: "preserve"})
	}
}

// fillTemplate writes the composed content into a classified template: the
// caption, the step rows, and any blocks the template does not already carry.
func fillTemplate(doc *docx.Docx, rows []classify.Row, job binaryJob) {
	tables := classify.DocxTables(doc)
	header := classify.ByRole(rows, classify.Header)[0]
	stepsRows := classify.ByRole(rows, classify.StepsHeader)

	var rest []compose.Block
	for _, blk := range job.blocks {
		switch blk.Kind {
		case compose.KindHeader:
			setCaption(tables[header.Table].TableRows[header.Index], blk.Caption)
		case compose.KindStepTable:
			if len(stepsRows) > 0 {
				sr := stepsRows[0]
				fillRows(tables[sr.Table], sr.Index, stepRows(blk))
			} else {
				rest = append(rest, blk)
			}
		default:
			rest = append(rest, blk)
		}
	}

	present := map[string]classify.Row{}
	for _, r := range classify.ByRole(rows, classify.TrailerHeader) {
		if key := trailerKey(r.Text); key != "" {
			if _, dup := present[key]; !dup {
				present[key] = r
			}
		}
	}

	b := &docBuilder{doc: doc, width: job.profile.TableWidth()}
	pendingBreak := false
	for _, blk := range rest {
		if blk.Kind == compose.KindPageBreak {
			pendingBreak = true
			continue
		}
		if r, ok := present[blockKey(blk)]; ok {
			switch blk.Kind {
			case compose.KindList, compose.KindChecklist:
				fillRows(tables[r.Table], r.Index, singleColumn(listItems(blk)))
			case compose.KindPairTable:
				pairs := make([][]string, len(blk.Pairs))
				for i, p := range blk.Pairs {
					pairs[i] = []string{p[0], p[1]}
				}
				fillRows(tables[r.Table], r.Index, pairs)
			}
			continue
		}
		if pendingBreak {
			b.write(compose.Block{Kind: compose.KindPageBreak})
			pendingBreak = false
		}
		b.write(blk)
	}
}

// trailerKey names the section a classified trailer row opens.
func trailerKey(text string) string {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "TRAINER NOTES"):
		return string(compose.KindNotes)
	case strings.Contains(upper, "SIGNATURE"):
		return string(compose.KindSignOff)
	}
	if field, ok := compose.FieldForTitle(text); ok {
		return field
	}
	if strings.Contains(upper, "ISSUE") && strings.Contains(upper, "SOLUTION") {
		return definition.FieldTroubleshooting
	}
	return ""
}

func blockKey(blk compose.Block) string {
	switch blk.Kind {
	case compose.KindNotes, compose.KindSignOff:
		return string(blk.Kind)
	}
	return blk.Source
}

// setCaption writes caption into the cell carrying the header marker. A
// marker split over adjacent cells is replaced as a whole: the caption goes
// into the first of them and the rest are cleared.
func setCaption(row *docx.WTableRow, caption string) {
	var cells []*docx.WTableCell
	for _, c := range row.TableCells {
		if c != nil {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return
	}
	texts := make([]string, len(cells))
	for i, c := range cells {
		texts[i] = classify.CellText(c)
	}

	for width := 1; width <= len(cells); width++ {
		for i := 0; i+width <= len(cells); i++ {
			if !classify.IsHeader(strings.Join(texts[i:i+width], " ")) {
				continue
			}
			writeCaption(cells[i], caption)
			for _, c := range cells[i+1 : i+width] {
				setCellText(c, "")
			}
			return
		}
	}

	// The row was classified as a header, so this only happens for markers
	// that no cell span reproduces; keep the caption visible anyway.
	target := cells[0]
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			target = cells[i]
			break
		}
	}
	writeCaption(target, caption)
}

// writeCaption replaces the cell text and keeps its first run's formatting.
func writeCaption(c *docx.WTableCell, caption string) {
	var props *docx.RunProperties
	if run := firstRun(c); run != nil && run.RunProperties != nil {
		cp := *run.RunProperties
		props = &cp
	}
	if run := setCellText(c, caption); run != nil && props != nil {
		run.RunProperties = props
	}
}

func firstRun(c *docx.WTableCell) *docx.Run {
	for _, p := range c.Paragraphs {
		if p == nil {
			continue
		}
		for _, child := range p.Children {
			if run, ok := child.(*docx.Run); ok {
				return run
			}
		}
	}
	return nil
}

// fillRows replaces the rows after index head with one row per entry, shaped
// like the head row but without its fill.
func fillRows(t *docx.Table, head int, entries [][]string) {
	proto := t.TableRows[head]
	out := append([]*docx.WTableRow{}, t.TableRows[:head+1]...)
	for _, entry := range entries {
		row := &docx.WTableRow{TableRowProperties: &docx.WTableRowProperties{}}
		for j, hc := range proto.TableCells {
			props := &docx.WTableCellProperties{}
			if hc != nil && hc.TableCellProperties != nil {
				cp := *hc.TableCellProperties
				cp.Shade = nil
				props = &cp
			}
			cell := &docx.WTableCell{TableCellProperties: props}
			text := ""
			if j < len(entry) {
				text = entry[j]
			}
			setCellText(cell, text)
			row.TableCells = append(row.TableCells, cell)
		}
		out = append(out, row)
	}
	t.TableRows = out
}

func singleColumn(items []string) [][]string {
	out := make([][]string, len(items))
	for i, item := range items {
		out[i] = []string{item}
	}
	return out
}
