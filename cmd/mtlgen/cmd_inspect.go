package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/spf13/cobra"

	"github.com/dgallion1/mtlgen/internal/classify"
	"github.com/dgallion1/mtlgen/internal/parser"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		roles     bool
		sequences bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <artifact-or-template>",
		Short: "Show the structure of a generated artifact or a template",
		Long: `Reads a markup, binary, print or HTML document back into an outline.
With --roles, classifies the table rows of a .docx template the way generation
does. With --sequences, prints the field sequences recovered from the document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()
			if !parser.IsSupportedExtension(path) {
				return fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			if roles {
				if !strings.EqualFold(filepath.Ext(path), ".docx") {
					return fmt.Errorf("--roles needs a .docx file")
				}
				return printRoles(out, data)
			}

			p, err := parser.ForFile(path)
			if err != nil {
				return err
			}
			tree, err := p.Parse(bytes.NewReader(data), filepath.Base(path))
			if err != nil {
				return err
			}
			a.log.Debug("parsed artifact", "path", path, "sections", len(tree.Children))
			if sequences {
				seqs := parser.Sequences(tree)
				fields := make([]string, 0, len(seqs))
				for f := range seqs {
					fields = append(fields, f)
				}
				sort.Strings(fields)
				for _, f := range fields {
					fmt.Fprintf(out, "%s:\n", f)
					for _, v := range seqs[f] {
						fmt.Fprintf(out, "  - %s\n", strings.ReplaceAll(v, "\n", " / "))
					}
				}
				for _, t := range parser.Troubleshooting(tree) {
					fmt.Fprintf(out, "troubleshooting: %s => %s\n", t.Problem, t.Resolution)
				}
				return nil
			}
			return tree.Outline(out)
		},
	}
	cmd.Flags().BoolVar(&roles, "roles", false, "Classify template table rows")
	cmd.Flags().BoolVar(&sequences, "sequences", false, "Print recovered field sequences")
	return cmd
}

func printRoles(w io.Writer, data []byte) error {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("parse docx: %w", err)
	}
	rows := classify.Classify(classify.FromDocx(doc))
	if len(classify.ByRole(rows, classify.Header)) == 0 {
		fmt.Fprintln(w, "no header row: generation falls back to the built-in layout")
	}
	for _, r := range rows {
		role := string(r.Role)
		if role == "" {
			role = "-"
		}
		fmt.Fprintf(w, "table %d row %d [%s] %s\n", r.Table, r.Index, role, r.Text)
	}
	return nil
}
