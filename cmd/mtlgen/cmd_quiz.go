package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/mtlgen/internal/quiz"
)

func newQuizCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "quiz <definition>",
		Short: "Derive teachback quiz questions from a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.loadDefinition(cmd.ErrOrStderr(), args[0])
			if err != nil {
				return err
			}
			items := quiz.Generate(def)
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			case "yaml":
				enc := yaml.NewEncoder(out)
				defer enc.Close()
				return enc.Encode(items)
			default:
				return quiz.Write(out, items)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	return cmd
}
