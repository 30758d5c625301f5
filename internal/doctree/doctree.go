package doctree

import (
	"fmt"
	"io"
	"strings"
)

// DocTree is the root of a parsed artifact.
type DocTree struct {
	Title    string     // Document title (from metadata, first heading or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Paragraph text of this node
	Page     int        // Source page (0 if N/A)
	Items    []string   // List items, in order
	Rows     [][]string // Table rows, in order, header rows included
	Children []*DocNode // Subsections
}

// Walk visits every node depth-first in document order.
func (t *DocTree) Walk(fn func(n *DocNode, depth int)) {
	var visit func([]*DocNode, int)
	visit = func(nodes []*DocNode, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(t.Children, 0)
}

// Find returns the first node whose title matches, ignoring case.
func (t *DocTree) Find(title string) *DocNode {
	var found *DocNode
	t.Walk(func(n *DocNode, _ int) {
		if found == nil && strings.EqualFold(strings.TrimSpace(n.Title), strings.TrimSpace(title)) {
			found = n
		}
	})
	return found
}

// Outline writes an indented summary of the tree.
func (t *DocTree) Outline(w io.Writer) error {
	var err error
	write := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	write("%s\n", t.Title)
	t.Walk(func(n *DocNode, depth int) {
		indent := strings.Repeat("  ", depth+1)
		title := n.Title
		if title == "" {
			title = "(untitled)"
		}
		if n.Page > 0 {
			write("%s%s [page %d]\n", indent, title, n.Page)
		} else {
			write("%s%s\n", indent, title)
		}
		for _, item := range n.Items {
			write("%s  - %s\n", indent, item)
		}
		for _, row := range n.Rows {
			write("%s  | %s |\n", indent, strings.Join(row, " | "))
		}
	})
	return err
}
