package parser

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/mtlgen/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// MarkdownParser handles markup artifacts using goldmark with pipe tables.
type MarkdownParser struct{}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

var lineBreakTag = regexp.MustCompile(`(?i)^<br\s*/?>$`)

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := markdown.Parser().Parse(text.NewReader(src))

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown"),
	}

	// Walk the AST and build a tree based on heading levels.
	// We use a stack to track the current nesting.
	type stackEntry struct {
		node  *doctree.DocNode
		level int
	}

	// Root is level 0; all h1+ nest under it.
	root := &doctree.DocNode{Title: tree.Title}
	stack := []stackEntry{{node: root, level: 0}}
	top := func() *doctree.DocNode { return stack[len(stack)-1].node }

	var currentText bytes.Buffer

	flushText := func() {
		t := strings.TrimSpace(currentText.String())
		if t != "" {
			n := top()
			if n.Text != "" {
				n.Text += "\n\n" + t
			} else {
				n.Text = t
			}
		}
		currentText.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			flushText()
			level := node.Level
			newNode := &doctree.DocNode{Title: inlineText(node, src)}

			// Pop stack until we find a parent with lower level.
			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}

			parent := top()
			parent.Children = append(parent.Children, newNode)
			stack = append(stack, stackEntry{node: newNode, level: level})

		case *ast.List:
			for li := node.FirstChild(); li != nil; li = li.NextSibling() {
				var parts []string
				for c := li.FirstChild(); c != nil; c = c.NextSibling() {
					if t := inlineText(c, src); t != "" {
						parts = append(parts, t)
					}
				}
				top().Items = append(top().Items, strings.Join(parts, "\n"))
			}

		case *extast.Table:
			for row := node.FirstChild(); row != nil; row = row.NextSibling() {
				var cells []string
				for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
					cells = append(cells, inlineText(cell, src))
				}
				top().Rows = append(top().Rows, cells)
			}

		case *ast.HTMLBlock:
			// Layout markers only.

		default:
			// Collect text content from other blocks.
			t := inlineText(n, src)
			if t == "" {
				t = linesText(n, src)
			}
			if t != "" {
				if currentText.Len() > 0 {
					currentText.WriteString("\n\n")
				}
				currentText.WriteString(t)
			}
		}
	}
	flushText()

	if len(root.Children) > 0 && tree.Title == "" {
		tree.Title = root.Children[0].Title
	}
	tree.Children = root.Children
	// If there were no headings, put all content in a single child.
	if len(tree.Children) == 0 && (root.Text != "" || len(root.Items) > 0 || len(root.Rows) > 0) {
		tree.Children = []*doctree.DocNode{{Text: root.Text, Items: root.Items, Rows: root.Rows}}
	}

	return tree, nil
}

// linesText returns the raw lines of a literal block such as fenced code.
func linesText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimSpace(buf.String())
}

// inlineText flattens a node's inline content with backslash escapes
// resolved. <br> reads as a line break. Entities stay as written.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var visit func(ast.Node)
	visit = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				buf.Write(node.Value(src))
				if node.HardLineBreak() {
					buf.WriteByte('\n')
				} else if node.SoftLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(node.Value)
			case *ast.RawHTML:
				var raw bytes.Buffer
				for i := 0; i < node.Segments.Len(); i++ {
					seg := node.Segments.At(i)
					raw.Write(seg.Value(src))
				}
				if lineBreakTag.Match(bytes.TrimSpace(raw.Bytes())) {
					buf.WriteByte('\n')
				}
			default:
				visit(c)
			}
		}
	}
	visit(n)
	return strings.TrimSpace(string(util.UnescapePunctuations(buf.Bytes())))
}
