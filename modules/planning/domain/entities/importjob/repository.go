package importjob

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/importing"
)

// CounterDelta increments job progress counters. Deltas are applied with
// additive updates so counters stay monotonic under chunked commits.
type CounterDelta struct {
	Processed int
	Success   int
	Errors    int
	Skipped   int
	Warnings  int
}

// Repository persists jobs and their items. GetByID is tenant-scoped (the
// status API); GetForRun and Claim are worker-side and unscoped because the
// worker pool serves every tenant.
type Repository interface {
	Create(ctx context.Context, job *Job) (*Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	GetForRun(ctx context.Context, id uuid.UUID) (*Job, error)

	// Claim leases the oldest runnable job (file persisted, not terminal,
	// lease free or expired) for the given worker. Exactly one worker can
	// hold a job at a time.
	Claim(ctx context.Context, workerID string, leaseTTL time.Duration) (*Job, error)
	Heartbeat(ctx context.Context, jobID uuid.UUID, workerID string) error
	ReleaseLease(ctx context.Context, jobID uuid.UUID) error

	MarkProcessing(ctx context.Context, jobID uuid.UUID) error
	SetFileKey(ctx context.Context, jobID uuid.UUID, key string) error
	SetTotalRows(ctx context.Context, jobID uuid.UUID, total int) error
	SetFileWarnings(ctx context.Context, jobID uuid.UUID, warnings []importing.FieldOutcome) error
	AddCounters(ctx context.Context, jobID uuid.UUID, delta CounterDelta) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, code string, params map[string]string) error
	Finalize(ctx context.Context, jobID uuid.UUID, status Status, processingTimeMS int64) error

	RequestCancel(ctx context.Context, jobID uuid.UUID) error
	IsCancelRequested(ctx context.Context, jobID uuid.UUID) (bool, error)

	CreateItems(ctx context.Context, items []Item) error
	ListItems(ctx context.Context, jobID uuid.UUID) ([]Item, error)
	// MaxSettledRow returns the highest row number with a settled item, 0
	// when none. Rows settle strictly in source order, so a resumed run
	// continues at the next row.
	MaxSettledRow(ctx context.Context, jobID uuid.UUID) (int, error)
}
