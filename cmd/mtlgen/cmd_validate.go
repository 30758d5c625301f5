package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mtlgen/internal/definition"
)

func newValidateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <definition>...",
		Short: "Check task definitions without generating documents",
		Long: `Validates JSON, YAML or XLSX task definitions. Every violated rule is
reported; the command fails if any definition is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				raw, err := definition.ReadFile(path)
				if err != nil {
					return err
				}
				def, report := definition.Load(raw)
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(map[string]any{"file": path, "report": report, "definition": def}); err != nil {
						return err
					}
				} else if report.Valid() {
					fmt.Fprintf(out, "%s: ok (%s, %d steps)\n", path, def.Identity(), len(def.Steps))
					for _, rw := range report.Rewrites {
						fmt.Fprintf(out, "  renamed %s -> %s\n", rw.From, rw.To)
					}
					for _, n := range report.Notices {
						fmt.Fprintf(out, "  note: %s\n", n)
					}
				} else {
					printViolations(out, path, report.Violations)
				}
				if !report.Valid() {
					invalid++
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d definitions invalid", invalid, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	return cmd
}
