package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mtlgen/internal/export"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		types  []string
		outDir string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "build <definition>",
		Short: "Generate markup, binary and print documents",
		Long: `Generates every requested document type from one definition. Each type
produces a markup (.md), binary (.docx) and print (.pdf) artifact; a path that
fails is reported as a warning while the others are still written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dts, err := parseTypes(types)
			if err != nil {
				return err
			}
			def, err := a.loadDefinition(cmd.ErrOrStderr(), args[0])
			if err != nil {
				return err
			}
			exp, err := a.exporter()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = a.cfg.OutputDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var results []*export.Result
			failed := 0
			for _, dt := range dts {
				res, err := exp.Build(ctx, def, dt, outDir)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", dt, err)
					failed++
					continue
				}
				results = append(results, res)
				if asJSON {
					continue
				}
				fmt.Fprintf(out, "%s (run %s)\n", dt, res.RunID)
				for _, art := range res.Artifacts {
					fmt.Fprintf(out, "  %-6s %s (%d bytes)\n", art.Format, art.Path, art.Size)
				}
				for _, w := range res.Warnings {
					fmt.Fprintf(out, "  warning %s %s: %s\n", w.Kind, w.Format, w.Message)
				}
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d document types failed", failed, len(dts))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Document types, e.g. quick-reference,MTL2,3 (default: all)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: OUTPUT_DIR or ./output)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
