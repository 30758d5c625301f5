package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/mtlgen/internal/classify"
	"github.com/dgallion1/mtlgen/internal/compose"
	"github.com/dgallion1/mtlgen/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles binary document artifacts and templates.
//
// Styled headings nest like markup headings. A table whose first row is a
// single known section caption becomes that section with the remaining rows
// as items; a step table becomes a STEPS section; a bold caption paragraph
// directly before a table titles it.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".docx"),
	}

	type stackEntry struct {
		node  *doctree.DocNode
		level int
	}
	root := &doctree.DocNode{Title: tree.Title}
	stack := []stackEntry{{node: root, level: 0}}
	top := func() *doctree.DocNode { return stack[len(stack)-1].node }
	var currentText strings.Builder
	pendingTitle := ""

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

	for _, item := range doc.Document.Body.Items {
		switch o := item.(type) {
		case *docx.Paragraph:
			level := docxHeadingLevel(o)
			text := docxParagraphText(o)
			if text == "" {
				continue
			}
			if level > 0 {
				flushText()
				pendingTitle = ""
				newNode := &doctree.DocNode{Title: text}
				for len(stack) > 1 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				parent := top()
				parent.Children = append(parent.Children, newNode)
				stack = append(stack, stackEntry{node: newNode, level: level})
				continue
			}
			if _, ok := compose.FieldForTitle(text); ok {
				pendingTitle = text
				continue
			}
			if currentText.Len() > 0 {
				currentText.WriteString("\n\n")
			}
			currentText.WriteString(text)

		case *docx.Table:
			flushText()
			top().Children = append(top().Children, tableNode(o, pendingTitle))
			pendingTitle = ""
		}
	}
	flushText()

	tree.Children = root.Children
	if len(tree.Children) == 0 && root.Text != "" {
		tree.Children = []*doctree.DocNode{{Text: root.Text}}
	}

	return tree, nil
}

func tableNode(t *docx.Table, title string) *doctree.DocNode {
	var rows [][]string
	for _, r := range t.TableRows {
		rows = append(rows, classify.RowCells(r))
	}
	node := &doctree.DocNode{Title: title}
	if len(rows) == 0 {
		return node
	}

	first := strings.TrimSpace(strings.Join(rows[0], " "))
	switch {
	case title == "" && len(rows[0]) == 1 && isSectionCaption(first):
		node.Title = first
		// A lone blank row marks an empty section.
		if len(rows) == 2 && (len(rows[1]) == 0 || strings.TrimSpace(rows[1][0]) == "") {
			break
		}
		for _, r := range rows[1:] {
			item := ""
			if len(r) > 0 {
				item = r[0]
			}
			node.Items = append(node.Items, item)
		}
	case title == "" && classify.IsStepsHeader(first):
		node.Title = compose.TitleSteps
		node.Rows = rows
	default:
		node.Rows = rows
	}
	return node
}

func isSectionCaption(s string) bool {
	_, ok := compose.FieldForTitle(s)
	return ok || strings.EqualFold(strings.TrimSpace(s), compose.TitleTrainerNotes)
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	for level := 1; level <= 6; level++ {
		if strings.EqualFold(style, fmt.Sprintf("Heading%d", level)) ||
			strings.EqualFold(style, fmt.Sprintf("heading %d", level)) {
			return level
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.BarterRabbet:
				buf.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
