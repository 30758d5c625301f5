package export

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/fumiama/go-docx"
)

// TemplateSource opens a fresh copy of the base document for a type. The
// returned document is owned by the caller.
type TemplateSource interface {
	Open(dt definition.DocumentType) (*docx.Docx, error)
}

// TemplateLoadError reports a base document that could not be read. The
// exporter recovers from it by building the document from scratch.
type TemplateLoadError struct {
	Path string
	Err  error
}

func (e *TemplateLoadError) Error() string {
	return fmt.Sprintf("load template %s: %v", e.Path, e.Err)
}

func (e *TemplateLoadError) Unwrap() error {
	return e.Err
}

// templateNames are tried in order for each document type number.
var templateNames = []string{"MTL%d Template.docx", "MTL%d_Template.docx", "mtl-%d.docx"}

// DirTemplates finds base documents by name in one directory.
type DirTemplates struct {
	Dir string
}

// Path returns the first existing template file for dt.
func (t DirTemplates) Path(dt definition.DocumentType) (string, error) {
	for _, pattern := range templateNames {
		p := filepath.Join(t.Dir, fmt.Sprintf(pattern, int(dt)))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no template for %s in %q: %w", dt.Label(), t.Dir, fs.ErrNotExist)
}

func (t DirTemplates) Open(dt definition.DocumentType) (*docx.Docx, error) {
	path, err := t.Path(dt)
	if err != nil {
		return nil, &TemplateLoadError{Path: t.Dir, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TemplateLoadError{Path: path, Err: err}
	}
	doc, err := parseDocx(data)
	if err != nil {
		return nil, &TemplateLoadError{Path: path, Err: err}
	}
	return doc, nil
}

// MemTemplates serves base documents held in memory.
type MemTemplates map[definition.DocumentType][]byte

func (t MemTemplates) Open(dt definition.DocumentType) (*docx.Docx, error) {
	name := "memory:" + dt.Label()
	data, ok := t[dt]
	if !ok {
		return nil, &TemplateLoadError{Path: name, Err: fs.ErrNotExist}
	}
	doc, err := parseDocx(data)
	if err != nil {
		return nil, &TemplateLoadError{Path: name, Err: err}
	}
	return doc, nil
}

func parseDocx(data []byte) (doc *docx.Docx, err error) {
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("corrupt document: %v", r)
		}
	}()
	return docx.Parse(bytes.NewReader(data), int64(len(data)))
}
