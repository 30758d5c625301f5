package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/mtlgen/internal/compose"
)

// NoneListed stands in for an empty list section.
const NoneListed = "None listed."

var markupEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"~", `\~`,
	"&", `\&`,
)

// leadingMarker matches text that would otherwise open a list or block.
var leadingMarker = regexp.MustCompile(`^(\d+)([.)])|^([-+=#])`)

// escapeCell makes text render literally inside a table cell. Line breaks
// become <br>.
func escapeCell(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = markupEscaper.Replace(strings.TrimSpace(line))
	}
	return strings.Join(lines, "<br>")
}

// escapeMarkup also neutralizes a leading list, heading or rule marker so
// the text stays one paragraph, heading or list item.
func escapeMarkup(s string) string {
	return leadingMarker.ReplaceAllString(escapeCell(s), `$1\$2$3`)
}

// RenderMarkup writes composed blocks as markdown with pipe tables. Page
// breaks and note areas are emitted as marker divs the print path recognizes.
func RenderMarkup(blocks []compose.Block) []byte {
	var b bytes.Buffer
	for _, blk := range blocks {
		switch blk.Kind {
		case compose.KindHeader:
			fmt.Fprintf(&b, "# %s\n\n", escapeMarkup(blk.Caption))
			if blk.Label != "" {
				fmt.Fprintf(&b, "**%s**\n\n", escapeMarkup(blk.Label))
			}
			rows := make([][]string, len(blk.Fields))
			for i, f := range blk.Fields {
				rows[i] = []string{f.Label, f.Value}
			}
			writeTable(&b, []string{"FIELD", "VALUE"}, rows)
		case compose.KindStepTable:
			fmt.Fprintf(&b, "## %s\n\n", escapeMarkup(blk.Title))
			if blk.Note != "" {
				fmt.Fprintf(&b, "*%s*\n\n", escapeMarkup(blk.Note))
			}
			rows := make([][]string, len(blk.Items))
			for i, step := range blk.Items {
				row := make([]string, len(blk.Columns))
				row[0] = fmt.Sprint(i + 1)
				if len(row) > 1 {
					row[1] = step
				}
				rows[i] = row
			}
			writeTable(&b, blk.Columns, rows)
		case compose.KindList, compose.KindChecklist:
			fmt.Fprintf(&b, "## %s\n\n", escapeMarkup(blk.Title))
			if len(blk.Items) == 0 {
				fmt.Fprintf(&b, "_%s_\n\n", NoneListed)
				continue
			}
			for _, item := range blk.Items {
				if blk.Kind == compose.KindChecklist {
					fmt.Fprintf(&b, "- %s %s\n", compose.CheckboxMark, escapeMarkup(item))
				} else {
					fmt.Fprintf(&b, "- %s\n", escapeMarkup(item))
				}
			}
			b.WriteString("\n")
		case compose.KindPairTable:
			fmt.Fprintf(&b, "## %s\n\n", escapeMarkup(blk.Title))
			rows := make([][]string, len(blk.Pairs))
			for i, p := range blk.Pairs {
				rows[i] = []string{p[0], p[1]}
			}
			writeTable(&b, blk.Columns, rows)
		case compose.KindPageBreak:
			b.WriteString("<div class=\"page-break\"></div>\n\n")
		case compose.KindNotes:
			fmt.Fprintf(&b, "## %s\n\n", escapeMarkup(blk.Title))
			fmt.Fprintf(&b, "<div class=\"notes\" data-lines=\"%d\"></div>\n\n", blk.Lines)
		case compose.KindSignOff:
			fmt.Fprintf(&b, "## %s\n\n", escapeMarkup(blk.Title))
			rows := make([][]string, len(blk.Signers))
			for i, s := range blk.Signers {
				row := make([]string, len(blk.Columns))
				row[0] = s
				rows[i] = row
			}
			writeTable(&b, blk.Columns, rows)
			if blk.Statement != "" {
				fmt.Fprintf(&b, "*%s*\n\n", escapeMarkup(blk.Statement))
			}
		}
	}
	return b.Bytes()
}

func writeTable(b *bytes.Buffer, columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	writeRow(b, columns)
	b.WriteString("|")
	for range columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range rows {
		cells := make([]string, len(columns))
		copy(cells, r)
		writeRow(b, cells)
	}
	b.WriteString("\n")
}

func writeRow(b *bytes.Buffer, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		if c == "" {
			b.WriteString("  |")
			continue
		}
		fmt.Fprintf(b, " %s |", escapeCell(c))
	}
	b.WriteString("\n")
}
