package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/planventa/planventa/modules/planning/domain/entities/importjob"
	"github.com/planventa/planventa/modules/planning/importing"
)

type importOptions struct {
	entityType     string
	updateExisting bool
	apiURL         string
	tenant         string
	actor          string
	wait           bool
	timeout        time.Duration
	pollInterval   time.Duration
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Upload a file for bulk import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.entityType, "entity-type", "", "Entity type to import (required)")
	cmd.Flags().BoolVar(&opts.updateExisting, "update-existing", false, "Update rows matching an existing natural key")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "Server base URL")
	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "Tenant UUID")
	cmd.Flags().StringVar(&opts.actor, "actor", "", "Actor UUID recorded on created jobs")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Poll until the job settles, then print the result")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Overall --wait deadline")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", 2*time.Second, "Status poll interval for --wait")

	_ = cmd.MarkFlagRequired("entity-type")
	return cmd
}

func runImport(ctx context.Context, filePath string, opts importOptions) error {
	if _, ok := importing.ParseEntityType(opts.entityType); !ok {
		return unknownEntityType(opts.entityType)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("read %s: %w", filePath, err))
	}

	client, err := newClientFromFlags(opts.apiURL, opts.tenant, opts.actor)
	if err != nil {
		return err
	}

	outcome, apiErr, err := client.upload(ctx, uploadRequest{
		EntityType:     opts.entityType,
		FileName:       filepath.Base(filePath),
		Data:           data,
		UpdateExisting: opts.updateExisting,
	})
	if err != nil {
		return err
	}
	if apiErr != nil {
		return apiFailure("upload", apiErr)
	}

	if outcome.Result != nil {
		return printResult(outcome.Result)
	}

	if err := writeJSONLine(outcome.Queued); err != nil {
		return err
	}
	if !opts.wait {
		return nil
	}
	jobID, err := uuid.Parse(outcome.Queued.JobID)
	if err != nil {
		return withCode(exitAPI, fmt.Errorf("server returned invalid job id: %q", outcome.Queued.JobID))
	}
	return waitForResult(ctx, client, jobID, opts.timeout, opts.pollInterval)
}

func waitForResult(ctx context.Context, client *planAPIClient, jobID uuid.UUID, timeout, pollInterval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		status, apiErr, err := client.getStatus(ctx, jobID)
		if err != nil {
			return err
		}
		if apiErr != nil {
			return apiFailure("status", apiErr)
		}
		if importjob.Status(status.Status).IsTerminal() {
			break
		}
		select {
		case <-ctx.Done():
			return withCode(exitAPI, fmt.Errorf("timed out waiting for job %s (last status %s)", jobID, status.Status))
		case <-ticker.C:
		}
	}

	result, apiErr, err := client.getResult(ctx, jobID)
	if err != nil {
		return err
	}
	if apiErr != nil {
		return apiFailure("result", apiErr)
	}
	return printResult(result)
}

func printResult(result *importing.Result) error {
	if err := writeJSONLine(result); err != nil {
		return err
	}
	if result.Status == string(importjob.StatusFailed) {
		return withCode(exitValidation, fmt.Errorf("import %s failed", result.JobID))
	}
	return nil
}

func apiFailure(op string, apiErr *apiError) error {
	return withCode(exitAPI, fmt.Errorf("%s failed: %s (%s)", op, apiErr.Message, apiErr.Code))
}

func newClientFromFlags(apiURL, tenant, actor string) (*planAPIClient, error) {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return nil, err
	}
	return newPlanAPIClient(
		firstNonEmpty(apiURL, fileCfg.APIURL),
		firstNonEmpty(tenant, fileCfg.Tenant),
		firstNonEmpty(actor, fileCfg.Actor),
	)
}
