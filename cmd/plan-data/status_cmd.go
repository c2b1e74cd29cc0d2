package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type statusOptions struct {
	apiURL string
	tenant string
	actor  string
}

func newStatusCmd() *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status <job_id>",
		Short: "Show import job progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "Server base URL")
	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "Tenant UUID")
	cmd.Flags().StringVar(&opts.actor, "actor", "", "Actor UUID")
	return cmd
}

func runStatus(ctx context.Context, rawID string, opts statusOptions) error {
	jobID, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("invalid job id: %q", rawID))
	}
	client, err := newClientFromFlags(opts.apiURL, opts.tenant, opts.actor)
	if err != nil {
		return err
	}
	status, apiErr, err := client.getStatus(ctx, jobID)
	if err != nil {
		return err
	}
	if apiErr != nil {
		return apiFailure("status", apiErr)
	}
	return writeJSONLine(status)
}
