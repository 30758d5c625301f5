package export

import (
	"bytes"
	"fmt"

	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/printdoc"
)

// renderPrint lays out the markup with the fixed stylesheet as a paginated PDF.
func renderPrint(markup []byte, sheet printdoc.Stylesheet, title string) ([]byte, error) {
	page, err := printdoc.RenderHTML(markup, sheet, title)
	if err != nil {
		return nil, err
	}
	elems, err := printdoc.Layout(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := printdoc.WritePDF(&buf, elems, sheet, title); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("print document is empty")
	}
	return buf.Bytes(), nil
}

// Preview renders the HTML page the print document would be laid out from,
// without producing a PDF. Placeholder warnings are returned as for Render.
func (e *Exporter) Preview(def *definition.TaskDefinition, dt definition.DocumentType) ([]byte, []Warning, error) {
	if def == nil {
		return nil, nil, fmt.Errorf("preview: nil definition")
	}
	if !dt.Valid() {
		return nil, nil, fmt.Errorf("preview: unknown document type %d", int(dt))
	}
	p := e.prepare(def, dt)
	page, err := printdoc.RenderHTML(RenderMarkup(p.blocks), e.sheet, p.title)
	if err != nil {
		return nil, p.warnings, err
	}
	return page, p.warnings, nil
}
