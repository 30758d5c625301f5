package parser

import (
	"strings"

	"github.com/dgallion1/mtlgen/internal/compose"
	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/doctree"
)

// Sequences recovers list-valued definition fields from a parsed artifact,
// keyed by canonical field name. Steps come from the step table's STEP
// column; other sections from their list items, blank ones included. The
// first section for a field wins.
func Sequences(tree *doctree.DocTree) map[string][]string {
	out := map[string][]string{}
	tree.Walk(func(n *doctree.DocNode, _ int) {
		field, ok := compose.FieldForTitle(n.Title)
		if !ok || field == definition.FieldTroubleshooting {
			return
		}
		if _, done := out[field]; done {
			return
		}
		if field == definition.FieldSteps {
			out[field] = stepColumn(n.Rows)
			return
		}
		// Empty items are kept: a blank sequence element is still an element.
		items := make([]string, 0, len(n.Items))
		for _, item := range n.Items {
			items = append(items, strings.TrimSpace(strings.TrimPrefix(item, compose.CheckboxMark)))
		}
		out[field] = items
	})
	return out
}

// Troubleshooting recovers problem/resolution pairs from the troubleshooting
// table, in table order.
func Troubleshooting(tree *doctree.DocTree) []definition.Troubleshoot {
	out := []definition.Troubleshoot{}
	n := tree.Find(compose.TitleTroubleshooting)
	if n == nil {
		return out
	}
	for i, row := range n.Rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		out = append(out, definition.Troubleshoot{Problem: row[0], Resolution: row[1]})
	}
	return out
}

// stepColumn reads column 1 of a step table, skipping the caption row and
// the guidance note row (which has no step number).
func stepColumn(rows [][]string) []string {
	steps := []string{}
	for i, row := range rows {
		if i == 0 || len(row) < 2 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		steps = append(steps, row[1])
	}
	return steps
}
