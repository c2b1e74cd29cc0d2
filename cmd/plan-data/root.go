package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan-data",
		Short:         "Planning data import tool: templates, bulk upload, job tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
