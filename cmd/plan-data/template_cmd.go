package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/modules/planning/services"
)

type templateOptions struct {
	format string
	output string
}

func newTemplateCmd() *cobra.Command {
	var opts templateOptions

	cmd := &cobra.Command{
		Use:   "template <entity_type>",
		Short: "Generate an import template locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", importing.FormatCSV, "Template format: csv or excel")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: <entity_type>_import_template.<ext>)")
	return cmd
}

func runTemplate(cmd *cobra.Command, rawType string, opts templateOptions) error {
	format := strings.ToLower(strings.TrimSpace(opts.format))
	if format != importing.FormatCSV && format != importing.FormatExcel {
		return withCode(exitUsage, fmt.Errorf("invalid --format: %q (want csv or excel)", opts.format))
	}
	entityType, ok := importing.ParseEntityType(rawType)
	if !ok {
		return unknownEntityType(rawType)
	}

	templates, err := services.NewTemplateService()
	if err != nil {
		return err
	}
	payload, _, fileName, err := templates.Template(cmd.Context(), rawType, format)
	if err != nil {
		return err
	}

	path := strings.TrimSpace(opts.output)
	if path == "" {
		path = fileName
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return writeJSONLine(map[string]any{
		"entity_type": string(entityType),
		"format":      format,
		"path":        path,
		"bytes":       len(payload),
	})
}

func unknownEntityType(rawType string) error {
	if suggestion := importing.SuggestEntityType(rawType); suggestion != "" {
		return withCode(exitUsage, fmt.Errorf("unknown entity type: %q (did you mean %q?)", rawType, suggestion))
	}
	return withCode(exitUsage, fmt.Errorf("unknown entity type: %q", rawType))
}
