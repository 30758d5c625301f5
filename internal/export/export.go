package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/mtlgen/internal/compose"
	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/placeholder"
	"github.com/dgallion1/mtlgen/internal/printdoc"
	"github.com/dgallion1/mtlgen/internal/style"
)

// Format names one output path.
type Format string

const (
	FormatMarkup Format = "markup"
	FormatBinary Format = "binary"
	FormatPrint  Format = "print"
)

// Formats lists the output paths in result order.
var Formats = []Format{FormatMarkup, FormatBinary, FormatPrint}

// Ext is the file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatMarkup:
		return "md"
	case FormatBinary:
		return "docx"
	case FormatPrint:
		return "pdf"
	}
	return "bin"
}

// WarningKind classifies a non-fatal condition.
type WarningKind string

const (
	WarnUnresolvedPlaceholder WarningKind = "unresolved_placeholder"
	WarnTemplateLoad          WarningKind = "template_load"
	WarnStyleSkipped          WarningKind = "style_skipped"
	WarnNoHeaderRow           WarningKind = "no_header_row"
	WarnExportFailed          WarningKind = "export_failed"
)

// Warning is a degraded-output notice attached to a result.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Format  Format      `json:"format,omitempty"`
	Message string      `json:"message"`
}

// Artifact is one complete output document. Identity traces it back to the
// source definition. Path is set once it has been written to disk.
type Artifact struct {
	Format   Format `json:"format"`
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
	Path     string `json:"path,omitempty"`
	Size     int64  `json:"size"`
	Data     []byte `json:"-"`
}

// Result is the outcome of one build.
type Result struct {
	RunID     string     `json:"runId"`
	Artifacts []Artifact `json:"artifacts"`
	Warnings  []Warning  `json:"warnings"`
}

// Options configures an Exporter. Zero values take defaults.
type Options struct {
	Profile    style.Profile
	Stylesheet *printdoc.Stylesheet
	Retries    int
	RetryBase  time.Duration
	Now        func() time.Time
	Registry   *placeholder.Registry
}

// Exporter renders a definition through the markup, binary and print paths.
type Exporter struct {
	templates TemplateSource
	profile   style.Profile
	sheet     printdoc.Stylesheet
	retries   int
	retryBase time.Duration
	now       func() time.Time
	registry  *placeholder.Registry
	ids       *RunIDs
	log       *slog.Logger
}

func New(templates TemplateSource, opts Options, log *slog.Logger) *Exporter {
	if opts.Profile == (style.Profile{}) {
		opts.Profile = style.DefaultProfile()
	}
	sheet := printdoc.FromProfile(opts.Profile)
	if opts.Stylesheet != nil {
		sheet = *opts.Stylesheet
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Registry == nil {
		opts.Registry = placeholder.Default()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Exporter{
		templates: templates,
		profile:   opts.Profile,
		sheet:     sheet,
		retries:   opts.Retries,
		retryBase: opts.RetryBase,
		now:       opts.Now,
		registry:  opts.Registry,
		ids:       NewRunIDs(opts.Now),
		log:       log,
	}
}

// prepared is the shared input of the three paths.
type prepared struct {
	dt       definition.DocumentType
	def      *definition.TaskDefinition
	blocks   []compose.Block
	extras   map[string]string
	title    string
	warnings []Warning
}

func (e *Exporter) prepare(def *definition.TaskDefinition, dt definition.DocumentType) prepared {
	p := prepared{
		dt:  dt,
		def: def,
		extras: map[string]string{
			placeholder.KeyDocumentType: dt.Label(),
			"documentTypeName":          dt.String(),
		},
		title: def.Title + " " + dt.Label(),
	}
	var unresolved []placeholder.Unresolved
	p.blocks = resolveBlocks(compose.Compose(dt, def), func(s string) string {
		res := e.registry.Resolve(s, def, p.extras)
		unresolved = append(unresolved, res.Unresolved...)
		return res.Text
	})
	seen := map[string]bool{}
	for _, u := range unresolved {
		if seen[u.Token] {
			continue
		}
		seen[u.Token] = true
		p.warnings = append(p.warnings, Warning{
			Kind:    WarnUnresolvedPlaceholder,
			Message: fmt.Sprintf("placeholder %s (%s) has no value", u.Token, u.Syntax),
		})
	}
	return p
}

// resolveBlocks applies fn to every text value the blocks carry.
func resolveBlocks(blocks []compose.Block, fn func(string) string) []compose.Block {
	out := compose.Clone(blocks)
	for i := range out {
		b := &out[i]
		b.Title = fn(b.Title)
		b.Caption = fn(b.Caption)
		b.Label = fn(b.Label)
		b.Note = fn(b.Note)
		b.Statement = fn(b.Statement)
		for j := range b.Fields {
			b.Fields[j].Value = fn(b.Fields[j].Value)
		}
		for j := range b.Items {
			b.Items[j] = fn(b.Items[j])
		}
		for j := range b.Pairs {
			b.Pairs[j] = [2]string{fn(b.Pairs[j][0]), fn(b.Pairs[j][1])}
		}
	}
	return out
}

type pathOutcome struct {
	data     []byte
	path     string
	warnings []Warning
	err      error
}

// Render produces the three artifacts in memory. Paths run in parallel on
// private copies of the composed blocks; one failing path does not stop the
// others. The error is non-nil only when every path failed or ctx ended.
func (e *Exporter) Render(ctx context.Context, def *definition.TaskDefinition, dt definition.DocumentType) ([]Artifact, []Warning, error) {
	if def == nil {
		return nil, nil, errors.New("render: nil definition")
	}
	if !dt.Valid() {
		return nil, nil, fmt.Errorf("render: unknown document type %d", int(dt))
	}
	p := e.prepare(def, dt)
	outcomes := e.runPaths(ctx, p, nil)
	return e.collect(ctx, p, outcomes, nil)
}

// Build renders def and writes each artifact to outDir atomically, named
// <TypeTag>_<timestamp>-<run>.<ext>. The definition must already be valid.
func (e *Exporter) Build(ctx context.Context, def *definition.TaskDefinition, dt definition.DocumentType, outDir string) (*Result, error) {
	if def == nil {
		return nil, errors.New("build: nil definition")
	}
	if !dt.Valid() {
		return nil, fmt.Errorf("build: unknown document type %d", int(dt))
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	runID := e.ids.Next()
	stamp := e.now().UTC().Format("20060102T150405")
	names := map[Format]string{}
	for _, f := range Formats {
		names[f] = ArtifactName(dt, stamp, runID, f)
	}

	p := e.prepare(def, dt)
	outcomes := e.runPaths(ctx, p, func(f Format, data []byte) (string, error) {
		return writeAtomic(outDir, names[f], data)
	})
	artifacts, warnings, err := e.collect(ctx, p, outcomes, names)
	if err != nil {
		return nil, err
	}
	return &Result{RunID: runID, Artifacts: artifacts, Warnings: warnings}, nil
}

// ArtifactName builds <TypeTag>_<stamp>-<last 10 of run ID>.<ext>.
func ArtifactName(dt definition.DocumentType, stamp, runID string, f Format) string {
	if len(runID) > 10 {
		runID = runID[len(runID)-10:]
	}
	return fmt.Sprintf("%s_%s-%s.%s", dt.FileTag(), stamp, runID, f.Ext())
}

// BuildRaw validates a raw definition before building. Validation failures
// return a *definition.ValidationError and no artifacts.
func (e *Exporter) BuildRaw(ctx context.Context, raw map[string]any, dt definition.DocumentType, outDir string) (*Result, *definition.Report, error) {
	def, report := definition.Load(raw)
	if err := report.Err(); err != nil {
		e.log.Warn("definition rejected", "violations", len(report.Violations))
		return nil, report, err
	}
	res, err := e.Build(ctx, def, dt, outDir)
	return res, report, err
}

// runPaths renders all three formats concurrently. save, when set, runs
// inside each path's retry loop.
func (e *Exporter) runPaths(ctx context.Context, p prepared, save func(Format, []byte) (string, error)) map[Format]*pathOutcome {
	render := map[Format]func() ([]byte, []Warning, error){
		FormatMarkup: func() ([]byte, []Warning, error) {
			return RenderMarkup(compose.Clone(p.blocks)), nil, nil
		},
		FormatBinary: func() ([]byte, []Warning, error) {
			return renderBinary(binaryJob{
				dt:        p.dt,
				def:       p.def,
				blocks:    compose.Clone(p.blocks),
				extras:    p.extras,
				registry:  e.registry,
				profile:   e.profile,
				templates: e.templates,
			})
		},
		// The print path renders its own markup instead of waiting on the
		// markup path.
		FormatPrint: func() ([]byte, []Warning, error) {
			data, err := renderPrint(RenderMarkup(compose.Clone(p.blocks)), e.sheet, p.title)
			return data, nil, err
		},
	}

	outcomes := map[Format]*pathOutcome{}
	var g errgroup.Group
	for _, f := range Formats {
		out := &pathOutcome{}
		outcomes[f] = out
		g.Go(func() error {
			out.err = withRetry(ctx, e.retries, e.retryBase, func() error {
				data, warnings, err := render[f]()
				out.warnings = warnings
				if err != nil {
					return err
				}
				out.data = data
				if save == nil {
					return nil
				}
				path, err := save(f, data)
				out.path = path
				return err
			})
			return nil
		})
	}
	g.Wait()
	return outcomes
}

// collect merges outcomes in format order and logs every warning. The build
// fails only when ctx ended or no path produced an artifact.
func (e *Exporter) collect(ctx context.Context, p prepared, outcomes map[Format]*pathOutcome, names map[Format]string) ([]Artifact, []Warning, error) {
	identity := p.def.Identity()
	log := e.log.With("document_type", p.dt.String(), "title", p.def.Title, "identity", identity)
	warnings := append([]Warning{}, p.warnings...)
	artifacts := []Artifact{}
	var errs []error
	for _, f := range Formats {
		o := outcomes[f]
		warnings = append(warnings, o.warnings...)
		if o.err != nil {
			log.Error("export path failed", "format", f, "error", o.err)
			errs = append(errs, fmt.Errorf("%s: %w", f, o.err))
			warnings = append(warnings, Warning{Kind: WarnExportFailed, Format: f, Message: o.err.Error()})
			continue
		}
		artifacts = append(artifacts, Artifact{
			Format:   f,
			Identity: identity,
			Name:     names[f],
			Path:     o.path,
			Size:     int64(len(o.data)),
			Data:     o.data,
		})
	}
	for _, w := range warnings {
		log.Warn("export warning", "kind", w.Kind, "format", w.Format, "message", w.Message)
	}
	if err := ctx.Err(); err != nil {
		return nil, warnings, err
	}
	if len(artifacts) == 0 {
		return nil, warnings, fmt.Errorf("all export paths failed: %w", errors.Join(errs...))
	}
	log.Info("export complete", "artifacts", len(artifacts), "warnings", len(warnings))
	return artifacts, warnings, nil
}
