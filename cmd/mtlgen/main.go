// Command mtlgen validates task definitions and generates MTL documents from
// them: markup, binary document and print document per document type.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mtlgen/internal/config"
	"github.com/dgallion1/mtlgen/internal/definition"
	"github.com/dgallion1/mtlgen/internal/export"
)

// app carries the global flags and shared dependencies of every command.
type app struct {
	verbose     bool
	templateDir string
	stylePath   string
	cfg         config.Config
	log         *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "mtlgen",
		Short:         "Generate Master Task List documents from task definitions",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVar(&a.templateDir, "templates", "", "Template directory (default: TEMPLATE_DIR or ./templates)")
	root.PersistentFlags().StringVar(&a.stylePath, "style", "", "YAML style profile (default: STYLE_PROFILE)")

	root.AddCommand(
		newValidateCmd(a),
		newBuildCmd(a),
		newPreviewCmd(a),
		newInspectCmd(a),
		newQuizCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	a.cfg = config.Load()
	if a.templateDir != "" {
		a.cfg.TemplateDir = a.templateDir
	}
	if a.stylePath != "" {
		a.cfg.StyleProfilePath = a.stylePath
	}
	return nil
}

// exporter builds an Exporter from the loaded configuration.
func (a *app) exporter() (*export.Exporter, error) {
	profile, err := a.cfg.StyleProfile()
	if err != nil {
		return nil, err
	}
	return export.New(export.DirTemplates{Dir: a.cfg.TemplateDir}, export.Options{
		Profile: profile,
		Retries: a.cfg.ExportRetries,
	}, a.log), nil
}

// loadDefinition reads and validates a definition file, printing every
// violation before failing.
func (a *app) loadDefinition(w io.Writer, path string) (*definition.TaskDefinition, error) {
	def, report, err := definition.LoadFile(path)
	if report != nil {
		for _, rw := range report.Rewrites {
			a.log.Debug("legacy key rewritten", "from", rw.From, "to", rw.To)
		}
		for _, n := range report.Notices {
			a.log.Warn("definition notice", "notice", n)
		}
		if !report.Valid() {
			printViolations(w, path, report.Violations)
		}
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

func printViolations(w io.Writer, path string, vs []definition.Violation) {
	fmt.Fprintf(w, "%s: %d violation(s)\n", path, len(vs))
	for _, v := range vs {
		fmt.Fprintf(w, "  - %s [%s]: %s\n", v.Field, v.Rule, v.Message)
	}
}

// parseTypes accepts a comma-separated list; empty means all types.
func parseTypes(values []string) ([]definition.DocumentType, error) {
	var out []definition.DocumentType
	seen := map[definition.DocumentType]bool{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			dt, err := definition.ParseDocumentType(part)
			if err != nil {
				return nil, err
			}
			if !seen[dt] {
				seen[dt] = true
				out = append(out, dt)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, definition.DocumentTypes...)
	}
	return out, nil
}
