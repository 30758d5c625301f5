package parser

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/export"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"a.md", "*parser.MarkdownParser", false},
		{"a.MARKDOWN", "*parser.MarkdownParser", false},
		{"a.htm", "*parser.HTMLParser", false},
		{"a.pdf", "*parser.PDFParser", false},
		{"a.docx", "*parser.DOCXParser", false},
		{"a.yaml", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ForFile(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.name)
				}
				if IsSupportedExtension(tt.name) {
					t.Errorf("expected %q unsupported", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(p); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *MarkdownParser:
		return "*parser.MarkdownParser"
	case *HTMLParser:
		return "*parser.HTMLParser"
	case *PDFParser:
		return "*parser.PDFParser"
	case *DOCXParser:
		return "*parser.DOCXParser"
	}
	return "?"
}

func simpleDefinition(t *testing.T) *definition.TaskDefinition {
	t.Helper()
	def, report := definition.Load(map[string]any{
		"title":              "Printer Reset",
		"number":             "42",
		"version":            "1",
		"revision":           "A",
		"createdBy":          "J. Doe",
		"steps":              []any{"Power off the printer", "Wait 30 seconds", "Power on"},
		"equipmentList":      []any{"Printer"},
		"completionCriteria": []any{"Test page printed"},
		"troubleshooting":    map[string]any{"No power": "Check the outlet"},
	})
	if err := report.Err(); err != nil {
		t.Fatalf("load: %v", err)
	}
	return def
}

func TestHTMLParser_PreviewRoundTrip(t *testing.T) {
	def := simpleDefinition(t)
	page, _, err := export.New(export.MemTemplates{}, export.Options{}, nil).Preview(def, definition.DetailedWalkthrough)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	tree, err := (&HTMLParser{}).Parse(bytes.NewReader(page), "preview.html")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tree.Title != "Printer Reset MTL 2" {
		t.Errorf("expected title from <title>, got %q", tree.Title)
	}
	seqs := Sequences(tree)
	if got := strings.Join(seqs[definition.FieldSteps], "|"); got != "Power off the printer|Wait 30 seconds|Power on" {
		t.Errorf("unexpected steps %q", got)
	}
	if got := seqs[definition.FieldCompletionCriteria]; len(got) != 1 || got[0] != "Test page printed" {
		t.Errorf("unexpected completion criteria %q", got)
	}
	pairs := Troubleshooting(tree)
	if len(pairs) != 1 || pairs[0].Resolution != "Check the outlet" {
		t.Errorf("unexpected troubleshooting %+v", pairs)
	}
}

func TestPDFParser_PrintArtifact(t *testing.T) {
	def := simpleDefinition(t)
	arts, _, err := export.New(export.MemTemplates{}, export.Options{}, nil).Render(context.Background(), def, definition.Teachback)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var pdf []byte
	for _, a := range arts {
		if a.Format == export.FormatPrint {
			pdf = a.Data
		}
	}
	if pdf == nil {
		t.Fatal("no print artifact")
	}

	tree, err := (&PDFParser{}).Parse(bytes.NewReader(pdf), "mtl.pdf")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(tree.Children))
	}
	if tree.Children[0].Page != 1 || tree.Children[1].Page != 2 {
		t.Errorf("expected pages numbered 1 and 2, got %d and %d", tree.Children[0].Page, tree.Children[1].Page)
	}
	if !strings.Contains(tree.Children[0].Text, "Printer Reset") {
		t.Errorf("expected title on first page, got %q", tree.Children[0].Text)
	}
}

func TestPDFParser_RejectsGarbage(t *testing.T) {
	if _, err := (&PDFParser{}).Parse(strings.NewReader("not a pdf"), "x.pdf"); err == nil {
		t.Error("expected error for non-pdf input")
	}
}
