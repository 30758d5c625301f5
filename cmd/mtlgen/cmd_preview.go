package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mtlgen/internal/definition"
)

func newPreviewCmd(a *app) *cobra.Command {
	var (
		docType string
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "preview <definition>",
		Short: "Render the print layout as HTML without producing a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := definition.ParseDocumentType(docType)
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
			page, warnings, err := exp.Preview(def, dt)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning %s: %s\n", w.Kind, w.Message)
			}
			if outFile == "" {
				_, err = cmd.OutOrStdout().Write(page)
				return err
			}
			if err := os.WriteFile(outFile, page, 0o644); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), outFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", "quick-reference", "Document type")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write HTML to this file instead of stdout")
	return cmd
}
