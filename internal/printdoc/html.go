package printdoc

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// markup renders tables and passes the page-break and notes markers through.
var markup = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// RenderHTML converts markup into a standalone HTML page carrying the stylesheet.
func RenderHTML(src []byte, sheet Stylesheet, title string) ([]byte, error) {
	var body bytes.Buffer
	if err := markup.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("render markup: %w", err)
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(&out, "<style>\n%s</style>\n</head>\n<body>\n", sheet.CSS())
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}
