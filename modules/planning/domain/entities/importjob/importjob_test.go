package importjob

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planventa/planventa/modules/planning/importing"
)

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusPartial.IsTerminal())
}

func TestStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusPartial, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPartial, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusPending, false},
		{StatusPartial, StatusCompleted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestFinalize(t *testing.T) {
	assert.Equal(t, StatusCompleted, Finalize(0, false))
	assert.Equal(t, StatusPartial, Finalize(3, false))
	assert.Equal(t, StatusPartial, Finalize(0, true))
	assert.Equal(t, StatusPartial, Finalize(2, true))
}

func TestNewDefaults(t *testing.T) {
	tenantID := uuid.New()
	job := New(tenantID, importing.EntityObjective)

	assert.NotEqual(t, uuid.Nil, job.ID())
	assert.Equal(t, tenantID, job.TenantID())
	assert.Equal(t, importing.EntityObjective, job.EntityType())
	assert.Equal(t, StatusPending, job.Status())
	assert.False(t, job.CreatedAt().IsZero())
	assert.Zero(t, job.TotalRows())
	assert.Zero(t, job.Percentage())
}

func TestNewAppliesOptions(t *testing.T) {
	id := uuid.New()
	actor := uuid.New()
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)
	completed := created.Add(time.Minute)
	leased := created.Add(2 * time.Second)
	warnings := []importing.FieldOutcome{
		importing.WarningOutcome("Team", "", importing.CodeUnknownColumn, nil),
	}

	job := New(uuid.New(), importing.EntityUserProfile,
		WithID(id),
		WithStatus(StatusPartial),
		WithUpdateExisting(true),
		WithTotalRows(500),
		WithCounters(100, 80, 15, 5, 7),
		WithFileKey("imports/acme/users.csv"),
		WithFileName("users.csv"),
		WithFailure(importing.CodeRowLimitExceeded, map[string]string{"max": "10000"}),
		WithFileWarnings(warnings),
		WithCreatedBy(actor),
		WithCancelRequested(true),
		WithLease(leased, "worker-1"),
		WithAttempts(2),
		WithTimestamps(created, started, completed),
		WithProcessingTime(61000),
	)

	assert.Equal(t, id, job.ID())
	assert.Equal(t, StatusPartial, job.Status())
	assert.True(t, job.UpdateExisting())
	assert.Equal(t, 500, job.TotalRows())
	assert.Equal(t, 100, job.ProcessedRows())
	assert.Equal(t, 80, job.SuccessRows())
	assert.Equal(t, 15, job.ErrorRows())
	assert.Equal(t, 5, job.SkippedRows())
	assert.Equal(t, 7, job.WarningRows())
	assert.Equal(t, "imports/acme/users.csv", job.FileKey())
	assert.Equal(t, "users.csv", job.FileName())
	assert.Equal(t, importing.CodeRowLimitExceeded, job.ErrorCode())
	assert.Equal(t, map[string]string{"max": "10000"}, job.ErrorParams())
	assert.Equal(t, warnings, job.FileWarnings())
	assert.Equal(t, actor, job.CreatedBy())
	assert.True(t, job.CancelRequested())
	assert.Equal(t, leased, job.LockedAt())
	assert.Equal(t, "worker-1", job.LockedBy())
	assert.Equal(t, 2, job.Attempts())
	assert.Equal(t, created, job.CreatedAt())
	assert.Equal(t, started, job.StartedAt())
	assert.Equal(t, completed, job.CompletedAt())
	assert.Equal(t, int64(61000), job.ProcessingTimeMS())
	assert.InDelta(t, 20.0, job.Percentage(), 0.001)
}

func TestPercentage(t *testing.T) {
	assert.Zero(t, New(uuid.New(), importing.EntityArea).Percentage())

	job := New(uuid.New(), importing.EntityArea, WithTotalRows(8), WithCounters(2, 2, 0, 0, 0))
	assert.InDelta(t, 25.0, job.Percentage(), 0.001)
}

func TestItemConstructors(t *testing.T) {
	jobID := uuid.New()
	entityID := uuid.New()

	success := NewSuccess(jobID, 4, entityID, nil)
	require.NotEqual(t, uuid.Nil, success.ID())
	assert.Equal(t, jobID, success.JobID())
	assert.Equal(t, 4, success.RowNumber())
	assert.Equal(t, ItemSuccess, success.Status())
	assert.Equal(t, entityID, success.CreatedEntityID())
	assert.Empty(t, success.ErrorCode())

	failed := NewError(jobID, 5, importing.CodeInvalidEmail, map[string]string{"value": "nope"}, []importing.FieldOutcome{
		importing.ErrorOutcome("email", "nope", importing.CodeInvalidEmail, nil),
	})
	assert.Equal(t, ItemError, failed.Status())
	assert.Equal(t, importing.CodeInvalidEmail, failed.ErrorCode())
	assert.Equal(t, "nope", failed.ErrorParams()["value"])
	assert.Len(t, failed.Outcomes(), 1)

	skipped := NewSkipped(jobID, 6, importing.CodeDuplicateSkipped, nil, nil)
	assert.Equal(t, ItemSkipped, skipped.Status())

	assert.NotEqual(t, success.ID(), failed.ID())
}

func TestItemRowOutcome(t *testing.T) {
	jobID := uuid.New()

	created := NewSuccess(jobID, 1, uuid.New(), nil).RowOutcome()
	assert.True(t, created.Created)
	assert.Equal(t, 1, created.Row)
	assert.Equal(t, "success", created.Status)

	// An updated duplicate succeeds without creating anything new.
	updated := NewSuccess(jobID, 2, uuid.New(), []importing.FieldOutcome{
		importing.WarningOutcome("email", "a@b.c", importing.CodeDuplicateUpdated, nil),
	}).RowOutcome()
	assert.False(t, updated.Created)
	assert.Equal(t, "success", updated.Status)

	failed := NewError(jobID, 3, importing.CodeInvalidDate, nil, nil).RowOutcome()
	assert.False(t, failed.Created)
	assert.Equal(t, "error", failed.Status)

	noEntity := NewSuccess(jobID, 4, uuid.Nil, nil).RowOutcome()
	assert.False(t, noEntity.Created)
}
