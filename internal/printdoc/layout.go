package printdoc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ElementKind is the layout primitive an HTML element maps onto.
type ElementKind int

const (
	Heading ElementKind = iota + 1
	Paragraph
	ListItem
	Table
	PageBreak
	NoteLines
)

// Element is one laid-out block of the print document.
type Element struct {
	Kind   ElementKind
	Level  int
	Text   string
	Italic bool
	Bold   bool
	// Rows holds table cell text; the first HeaderRows rows repeat on each page.
	Rows       [][]string
	HeaderRows int
	Lines      int
}

// Layout reads rendered HTML and returns the body's blocks in order.
func Layout(r io.Reader) ([]Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}
	var out []Element
	walk(root, &out)
	return out, nil
}

func walk(n *html.Node, out *[]Element) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level, _ := strconv.Atoi(c.Data[1:])
			*out = append(*out, Element{Kind: Heading, Level: level, Text: textOf(c)})
		case "p":
			t := textOf(c)
			if t == "" {
				continue
			}
			el := Element{Kind: Paragraph, Text: t}
			if only := soleElement(c); only != nil {
				el.Italic = only.Data == "em"
				el.Bold = only.Data == "strong"
			}
			*out = append(*out, el)
		case "ul", "ol":
			i := 0
			for li := c.FirstChild; li != nil; li = li.NextSibling {
				if li.Type != html.ElementNode || li.Data != "li" {
					continue
				}
				i++
				t := textOf(li)
				if c.Data == "ol" {
					t = strconv.Itoa(i) + ". " + t
				}
				*out = append(*out, Element{Kind: ListItem, Text: t})
			}
		case "table":
			*out = append(*out, tableOf(c))
		case "div":
			switch {
			case hasClass(c, "page-break"):
				*out = append(*out, Element{Kind: PageBreak})
			case hasClass(c, "notes"):
				lines, err := strconv.Atoi(attr(c, "data-lines"))
				if err != nil || lines <= 0 {
					lines = 4
				}
				*out = append(*out, Element{Kind: NoteLines, Lines: lines})
			default:
				walk(c, out)
			}
		case "style", "script", "head", "title":
		default:
			walk(c, out)
		}
	}
}

func tableOf(n *html.Node) Element {
	el := Element{Kind: Table}
	var visit func(*html.Node, bool)
	visit = func(n *html.Node, inHead bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "thead":
				visit(c, true)
			case "tbody", "tfoot":
				visit(c, false)
			case "tr":
				var row []string
				header := inHead
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
						row = append(row, textOf(cell))
					}
				}
				el.Rows = append(el.Rows, row)
				if header && el.HeaderRows == len(el.Rows)-1 {
					el.HeaderRows++
				}
			}
		}
	}
	visit(n, false)
	return el
}

// textOf flattens an element's text, reading <br> as a line break.
func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			// Newlines in source text are soft breaks, not line breaks.
			b.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	lines := strings.Split(b.String(), "\n")
	for i := range lines {
		lines[i] = strings.Join(strings.Fields(lines[i]), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func soleElement(n *html.Node) *html.Node {
	var only *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if only != nil {
				return nil
			}
			only = c
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil
			}
		}
	}
	return only
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
