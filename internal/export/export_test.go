package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/mtlgen/internal/classify"
	"github.com/dgallion1/mtlgen/internal/compose"
	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/printdoc"
	"github.com/fumiama/go-docx"
)

func printerReset(t *testing.T) *definition.TaskDefinition {
	t.Helper()
	def, report := definition.Load(map[string]any{
		"title":     "Printer Reset",
		"number":    42,
		"version":   "1",
		"revision":  "A",
		"createdBy": "J. Doe",
		"steps": []any{
			"Power off the printer",
			"Wait 30 seconds",
			"Power on and print a test page",
		},
		"equipmentList":      []any{"Printer", "Test paper"},
		"completionCriteria": []any{"Test page printed"},
		"troubleshooting":    map[string]any{"No power": "Check the outlet"},
	})
	if err := report.Err(); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return def
}

func newExporter(templates TemplateSource) *Exporter {
	return New(templates, Options{Retries: 1, RetryBase: time.Millisecond}, nil)
}

func artifact(t *testing.T, arts []Artifact, f Format) Artifact {
	t.Helper()
	for _, a := range arts {
		if a.Format == f {
			return a
		}
	}
	t.Fatalf("no %s artifact in %+v", f, arts)
	return Artifact{}
}

func parseDoc(t *testing.T, data []byte) *docx.Docx {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parse docx: %v", err)
	}
	return doc
}

func hasWarning(ws []Warning, kind WarningKind) bool {
	for _, w := range ws {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

func countTablesStartingWith(tables []classify.Table, caption string) int {
	n := 0
	for _, tbl := range tables {
		if len(tbl.Rows) > 0 && len(tbl.Rows[0]) > 0 && tbl.Rows[0][0] == caption {
			n++
		}
	}
	return n
}

func TestRender_TeachbackBinary(t *testing.T) {
	e := newExporter(MemTemplates{})
	arts, warnings, err := e.Render(context.Background(), printerReset(t), definition.Teachback)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !hasWarning(warnings, WarnTemplateLoad) {
		t.Errorf("expected template_load warning, got %+v", warnings)
	}

	doc := parseDoc(t, artifact(t, arts, FormatBinary).Data)
	tables := classify.FromDocx(doc)
	rows := classify.Classify(tables)
	headers := classify.ByRole(rows, classify.Header)
	if len(headers) != 1 {
		t.Fatalf("expected 1 header row, got %d", len(headers))
	}
	if !strings.Contains(headers[0].Text, compose.CaptionTeachback) {
		t.Errorf("expected teachback caption in %q", headers[0].Text)
	}
	if n := countTablesStartingWith(tables, compose.TitleTrainerNotes); n != 1 {
		t.Errorf("expected 1 trainer notes block, got %d", n)
	}
	if n := countTablesStartingWith(tables, "ROLE"); n != 1 {
		t.Errorf("expected 1 sign-off block, got %d", n)
	}

	pages, err := printdoc.PageCount(artifact(t, arts, FormatPrint).Data)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if pages != 2 {
		t.Errorf("expected trailer on its own page, got %d pages", pages)
	}
}

func TestRender_TemplateWithoutMarkerFallsBack(t *testing.T) {
	tmpl := docx.New().WithDefaultTheme()
	tbl := tmpl.AddTable(1, 2, 0, nil)
	tbl.TableRows[0].TableCells[0].AddParagraph().AddText("Hello")
	tbl.TableRows[0].TableCells[1].AddParagraph().AddText("World")
	var buf bytes.Buffer
	if _, err := tmpl.WriteTo(&buf); err != nil {
		t.Fatalf("write template: %v", err)
	}

	e := newExporter(MemTemplates{definition.QuickReference: buf.Bytes()})
	arts, warnings, err := e.Render(context.Background(), printerReset(t), definition.QuickReference)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !hasWarning(warnings, WarnNoHeaderRow) {
		t.Errorf("expected no_header_row warning, got %+v", warnings)
	}
	doc := parseDoc(t, artifact(t, arts, FormatBinary).Data)
	rows := classify.Classify(classify.FromDocx(doc))
	if len(classify.ByRole(rows, classify.Header)) != 1 {
		t.Error("expected fallback document with a header row")
	}
	if len(classify.ByRole(rows, classify.StepsHeader)) != 1 {
		t.Error("expected fallback document with a steps table")
	}
}

func TestRender_FillsTemplate(t *testing.T) {
	tmpl := docx.New().WithDefaultTheme()
	tmpl.AddParagraph().AddText("Reference {{bogus_field}}")
	h := tmpl.AddTable(2, 2, 0, nil)
	for i, text := range []string{"MASTER TASK LIST", "{{document_type}}", "TITLE", "{TITLE}"} {
		h.TableRows[i/2].TableCells[i%2].AddParagraph().AddText(text)
	}
	s := tmpl.AddTable(2, 3, 0, nil)
	for i, text := range []string{"#", "STEP", "TECH. INITIALS", "1", "placeholder step", ""} {
		s.TableRows[i/3].TableCells[i%3].AddParagraph().AddText(text)
	}
	var buf bytes.Buffer
	if _, err := tmpl.WriteTo(&buf); err != nil {
		t.Fatalf("write template: %v", err)
	}

	def := printerReset(t)
	e := newExporter(MemTemplates{definition.QuickReference: buf.Bytes()})
	arts, warnings, err := e.Render(context.Background(), def, definition.QuickReference)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if hasWarning(warnings, WarnNoHeaderRow) || hasWarning(warnings, WarnTemplateLoad) {
		t.Errorf("expected template to be used, got %+v", warnings)
	}
	var unresolved []Warning
	for _, w := range warnings {
		if w.Kind == WarnUnresolvedPlaceholder {
			unresolved = append(unresolved, w)
		}
	}
	if len(unresolved) != 1 || !strings.Contains(unresolved[0].Message, "{{bogus_field}}") {
		t.Errorf("expected one unresolved warning for {{bogus_field}}, got %+v", unresolved)
	}

	tables := classify.FromDocx(parseDoc(t, artifact(t, arts, FormatBinary).Data))
	if len(tables) != 2 {
		t.Fatalf("expected template tables only, got %d", len(tables))
	}
	if got := tables[0].Rows[0][1]; got != "MTL 1" {
		t.Errorf("expected document type label, got %q", got)
	}
	if got := tables[0].Rows[1][1]; got != "Printer Reset" {
		t.Errorf("expected title, got %q", got)
	}
	steps := tables[1].Rows
	if len(steps) != 1+len(def.Steps) {
		t.Fatalf("expected %d step rows, got %d", 1+len(def.Steps), len(steps))
	}
	for i, step := range def.Steps {
		if steps[i+1][0] != fmt.Sprint(i+1) || steps[i+1][1] != step {
			t.Errorf("row %d: expected %d/%q, got %v", i+1, i+1, step, steps[i+1])
		}
	}
}

func TestRender_TeachbackCaptionSplitAcrossCells(t *testing.T) {
	tmpl := docx.New().WithDefaultTheme()
	h := tmpl.AddTable(1, 3, 0, nil)
	for i, text := range []string{"MASTER", "TASK LIST", "MTL 3"} {
		h.TableRows[0].TableCells[i].AddParagraph().AddText(text)
	}
	var buf bytes.Buffer
	if _, err := tmpl.WriteTo(&buf); err != nil {
		t.Fatalf("write template: %v", err)
	}

	e := newExporter(MemTemplates{definition.Teachback: buf.Bytes()})
	arts, warnings, err := e.Render(context.Background(), printerReset(t), definition.Teachback)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if hasWarning(warnings, WarnNoHeaderRow) || hasWarning(warnings, WarnTemplateLoad) {
		t.Errorf("expected template to be used, got %+v", warnings)
	}

	tables := classify.FromDocx(parseDoc(t, artifact(t, arts, FormatBinary).Data))
	got := tables[0].Rows[0]
	want := []string{compose.CaptionTeachback, "", "MTL 3"}
	if len(got) != len(want) {
		t.Fatalf("expected header cells %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

var artifactName = regexp.MustCompile(`^MTL2-DetailedWalkthrough_\d{8}T\d{6}-[0-9A-Z]{10}\.(md|docx|pdf)$`)

func TestBuild_WritesThreeArtifacts(t *testing.T) {
	dir := t.TempDir()
	e := newExporter(DirTemplates{Dir: filepath.Join(dir, "missing")})
	res, err := e.Build(context.Background(), printerReset(t), definition.DetailedWalkthrough, dir)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(res.Artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(res.Artifacts))
	}
	for i, a := range res.Artifacts {
		if a.Format != Formats[i] {
			t.Errorf("artifact %d: expected %s, got %s", i, Formats[i], a.Format)
		}
		if !artifactName.MatchString(a.Name) {
			t.Errorf("unexpected artifact name %q", a.Name)
		}
		if a.Identity != "42 v1 rev A" {
			t.Errorf("%s: expected identity %q, got %q", a.Name, "42 v1 rev A", a.Identity)
		}
		info, err := os.Stat(a.Path)
		if err != nil {
			t.Fatalf("stat %s: %v", a.Path, err)
		}
		if info.Size() == 0 || info.Size() != a.Size {
			t.Errorf("%s: expected %d bytes on disk, got %d", a.Name, a.Size, info.Size())
		}
	}

	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestBuild_ConcurrentRunsDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	e := newExporter(MemTemplates{})
	def := printerReset(t)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Build(context.Background(), def, definition.QuickReference, dir); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("build: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 12 {
		t.Errorf("expected 12 distinct artifacts, got %d", len(entries))
	}
}

func TestBuildRaw_RejectsInvalidDefinition(t *testing.T) {
	dir := t.TempDir()
	e := newExporter(MemTemplates{})
	res, report, err := e.BuildRaw(context.Background(), map[string]any{"title": "No steps"}, definition.QuickReference, dir)
	var verr *definition.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if res != nil || report.Valid() {
		t.Error("expected no result and an invalid report")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no artifacts, got %d", len(entries))
	}
}

func TestRender_UnresolvedStepPlaceholderWarns(t *testing.T) {
	def, report := definition.Load(map[string]any{
		"title": "Reset", "number": "1", "version": "1", "revision": "A", "createdBy": "x",
		"steps": []any{"Check {{serial_number}} on the label", "Record the {TITLE} run"},
	})
	if err := report.Err(); err != nil {
		t.Fatal(err)
	}
	arts, warnings, err := newExporter(MemTemplates{}).Render(context.Background(), def, definition.QuickReference)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var found bool
	for _, w := range warnings {
		if w.Kind == WarnUnresolvedPlaceholder && strings.Contains(w.Message, "{{serial_number}}") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unresolved placeholder warning, got %+v", warnings)
	}
	md := string(artifact(t, arts, FormatMarkup).Data)
	if !strings.Contains(md, "Record the Reset run") {
		t.Error("expected resolved title in markup")
	}
	if !strings.Contains(md, `\{\{serial\_number\}\}`) && !strings.Contains(md, `{{serial\_number}}`) {
		t.Errorf("expected unresolved token kept verbatim, got:\n%s", md)
	}
}

func TestPreview(t *testing.T) {
	page, warnings, err := newExporter(MemTemplates{}).Preview(printerReset(t), definition.DetailedWalkthrough)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %+v", warnings)
	}
	html := string(page)
	for _, want := range []string{"<title>Printer Reset MTL 2</title>", "Wait 30 seconds", `class="page-break"`} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in preview", want)
		}
	}
	if _, _, err := newExporter(MemTemplates{}).Preview(printerReset(t), definition.DocumentType(9)); err == nil {
		t.Error("expected error for unknown document type")
	}
}

func TestRender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := newExporter(MemTemplates{}).Render(ctx, printerReset(t), definition.QuickReference)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWithRetry(t *testing.T) {
	transient := &RetryableError{Op: "write", Err: errors.New("disk busy")}

	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("expected success on third call, got %v after %d calls", err, calls)
	}

	calls = 0
	err = withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("bad input")
	})
	if err == nil || calls != 1 {
		t.Errorf("expected one call for permanent error, got %d", calls)
	}

	calls = 0
	err = withRetry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return transient
	})
	if !IsRetryable(err) || calls != 3 {
		t.Errorf("expected 3 calls then retryable error, got %v after %d", err, calls)
	}
}

func TestBackoff(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := Backoff(time.Second, attempt)
		if d < time.Second || d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
	if Backoff(0, 3) != 0 {
		t.Error("expected zero backoff for zero base")
	}
}

func TestRunIDs_Monotonic(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ids := NewRunIDs(func() time.Time { return fixed })
	prev := ""
	for i := 0; i < 100; i++ {
		id := ids.Next()
		if len(id) != 26 {
			t.Fatalf("expected 26 chars, got %q", id)
		}
		if id <= prev {
			t.Fatalf("expected %q > %q", id, prev)
		}
		prev = id
	}
}

func TestEncodeULID(t *testing.T) {
	var b [16]byte
	if got := encodeULID(b); got != strings.Repeat("0", 26) {
		t.Errorf("expected zeros, got %q", got)
	}
	for i := range b {
		b[i] = 0xff
	}
	if got := encodeULID(b); got != "7"+strings.Repeat("Z", 25) {
		t.Errorf("expected max ULID, got %q", got)
	}
}
