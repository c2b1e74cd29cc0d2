package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planventa/planventa/modules/planning/domain/entities/importjob"
	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence"
	"github.com/planventa/planventa/modules/planning/testhelpers"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/configuration"
	"github.com/planventa/planventa/pkg/eventbus"
	"github.com/planventa/planventa/pkg/filestore"
	"github.com/planventa/planventa/pkg/itf"
)

func testImportOptions() configuration.ImportOptions {
	return configuration.ImportOptions{
		SyncRowThreshold:  2,
		SyncBudget:        3 * time.Second,
		ChunkSize:         100,
		Workers:           1,
		PollInterval:      time.Second,
		LeaseTTL:          30 * time.Second,
		CommitRetries:     3,
		MaxFileSize:       1 << 20,
		MaxRows:           50,
		RowsPerSecond:     50,
		ResolverCacheSize: 64,
	}
}

func newTestImportService(t *testing.T) (*ImportService, *testhelpers.FakeJobRepo, *testhelpers.FakeEntityStore, *filestore.MemoryStore, eventbus.EventBus) {
	t.Helper()
	return newImportServiceWith(t, testImportOptions())
}

func newImportServiceWith(t *testing.T, opts configuration.ImportOptions) (*ImportService, *testhelpers.FakeJobRepo, *testhelpers.FakeEntityStore, *filestore.MemoryStore, eventbus.EventBus) {
	t.Helper()
	jobs := testhelpers.NewFakeJobRepo()
	store := testhelpers.NewFakeEntityStore()
	files := filestore.NewMemoryStore()
	bus := eventbus.NewEventPublisher(itf.QuietLogger())
	svc := NewImportService(opts, jobs, store, files, bus)
	return svc, jobs, store, files, bus
}

// fakeTx satisfies the transaction surface the sync path touches: savepoints
// open on the same fake, commits and rollbacks are no-ops. Anything else
// panics through the embedded nil Tx.
type fakeTx struct {
	pgx.Tx
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(context.Context) error          { return nil }
func (t *fakeTx) Rollback(context.Context) error        { return nil }

// syncCtx builds a tenant context carrying a fake transaction, so the
// single-transaction upload path runs without a database pool.
func syncCtx(tenantID uuid.UUID) context.Context {
	ctx := itf.NewTestContext().WithTenant(tenantID).Build()
	return composables.WithTx(ctx, &fakeTx{})
}

// cancelAfterFirstChunk reports a cancellation request once the first chunk
// is underway: the pre-start check and the first chunk boundary see none,
// every later boundary does.
type cancelAfterFirstChunk struct {
	*testhelpers.FakeJobRepo
	checks int
}

func (c *cancelAfterFirstChunk) IsCancelRequested(context.Context, uuid.UUID) (bool, error) {
	c.checks++
	return c.checks > 2, nil
}

func testEngine(t *testing.T, entityType importing.EntityType, update bool, store importing.EntityStore) (*rowEngine, *importing.ResolverSet) {
	t.Helper()
	job := importjob.New(uuid.New(), entityType, importjob.WithUpdateExisting(update))
	engine := newRowEngine(job, store)
	set, err := engine.resolvers(nil, 64)
	require.NoError(t, err)
	return engine, set
}

func userRow(number int, email, name string) importing.Row {
	return importing.Row{Number: number, Cells: map[string]string{
		"email":     email,
		"full_name": name,
		"role":      "member",
	}}
}

func usersCSV(n int) []byte {
	var b bytes.Buffer
	b.WriteString("email,full_name,role\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "user%d@example.com,User %d,member\n", i, i)
	}
	return b.Bytes()
}

func objectivesCSV(rows, badRow int) []byte {
	var b bytes.Buffer
	b.WriteString("title,target_date\n")
	for i := 1; i <= rows; i++ {
		date := "2031-04-01"
		if i == badRow {
			date = "not-a-date"
		}
		fmt.Fprintf(&b, "Objective %d,%s\n", i, date)
	}
	return b.Bytes()
}

func activitiesCSV(rows int, badRows map[int]bool) []byte {
	var b bytes.Buffer
	b.WriteString("title,initiative\n")
	for i := 1; i <= rows; i++ {
		ref := "Initiative X"
		if badRows[i] {
			ref = "Initiative Z"
		}
		fmt.Fprintf(&b, "Activity %d,%s\n", i, ref)
	}
	return b.Bytes()
}

func TestRowEngine_ProcessRow_ValidationError(t *testing.T) {
	store := testhelpers.NewFakeEntityStore()
	engine, set := testEngine(t, importing.EntityUserProfile, false, store)

	row := importing.Row{Number: 2, Cells: map[string]string{"full_name": "Jane Doe"}}
	item, err := engine.processRow(context.Background(), set, row)
	require.NoError(t, err)

	assert.Equal(t, importjob.ItemError, item.Status())
	assert.Equal(t, importing.CodeRequiredField, item.ErrorCode())
	assert.Equal(t, 2, item.RowNumber())
	assert.Empty(t, store.Created)
}

func TestRowEngine_ProcessRow_CreateThenIntraFileDuplicate(t *testing.T) {
	store := testhelpers.NewFakeEntityStore()
	engine, set := testEngine(t, importing.EntityUserProfile, false, store)
	ctx := context.Background()

	first, err := engine.processRow(ctx, set, userRow(1, "jane@example.com", "Jane Doe"))
	require.NoError(t, err)
	assert.Equal(t, importjob.ItemSuccess, first.Status())
	assert.NotEqual(t, uuid.Nil, first.CreatedEntityID())
	require.Len(t, store.Created, 1)

	// Same key in a different case hits the resolver cache, not the store.
	second, err := engine.processRow(ctx, set, userRow(2, "JANE@example.com", "Jane D"))
	require.NoError(t, err)
	assert.Equal(t, importjob.ItemSkipped, second.Status())
	assert.Equal(t, importing.CodeDuplicateSkipped, second.ErrorCode())
	assert.Len(t, store.Created, 1)
}

func TestRowEngine_ProcessRow_ResolvesRefs(t *testing.T) {
	store := testhelpers.NewFakeEntityStore()
	areaID := uuid.New()
	store.Existing["areas/growth"] = areaID
	engine, set := testEngine(t, importing.EntityObjective, false, store)

	row := importing.Row{Number: 1, Cells: map[string]string{"title": "Grow revenue", "area": "Growth"}}
	item, err := engine.processRow(context.Background(), set, row)
	require.NoError(t, err)

	assert.Equal(t, importjob.ItemSuccess, item.Status())
	require.Len(t, store.Created, 1)
	assert.Equal(t, areaID, store.Created[0].ResolvedRefs["area"])
}

func TestRowEngine_ProcessRow_ForeignKeyNotFound(t *testing.T) {
	store := testhelpers.NewFakeEntityStore()
	engine, set := testEngine(t, importing.EntityObjective, false, store)

	row := importing.Row{Number: 3, Cells: map[string]string{"title": "Grow revenue", "area": "Nowhere"}}
	item, err := engine.processRow(context.Background(), set, row)
	require.NoError(t, err)

	assert.Equal(t, importjob.ItemError, item.Status())
	assert.Equal(t, importing.CodeForeignKeyNotFound, item.ErrorCode())
	assert.Equal(t, "Nowhere", item.ErrorParams()["value"])
	assert.Empty(t, store.Created)
}

func TestRowEngine_ProcessRow_Duplicates(t *testing.T) {
	existingID := uuid.New()
	seed := func() *testhelpers.FakeEntityStore {
		store := testhelpers.NewFakeEntityStore()
		store.Existing["users/jane@example.com"] = existingID
		return store
	}
	ctx := context.Background()

	t.Run("skips when updates are disabled", func(t *testing.T) {
		store := seed()
		engine, set := testEngine(t, importing.EntityUserProfile, false, store)

		item, err := engine.processRow(ctx, set, userRow(1, "jane@example.com", "Jane Doe"))
		require.NoError(t, err)
		assert.Equal(t, importjob.ItemSkipped, item.Status())
		assert.Equal(t, importing.CodeDuplicateSkipped, item.ErrorCode())
		assert.Empty(t, store.Updated)
	})

	t.Run("updates changed fields when enabled", func(t *testing.T) {
		store := seed()
		store.Changed = []string{"full_name"}
		engine, set := testEngine(t, importing.EntityUserProfile, true, store)

		item, err := engine.processRow(ctx, set, userRow(1, "jane@example.com", "Janet Doe"))
		require.NoError(t, err)
		assert.Equal(t, importjob.ItemSuccess, item.Status())
		assert.Equal(t, existingID, item.CreatedEntityID())
		require.Len(t, store.Updated, 1)

		outcomes := item.Outcomes()
		var updated *importing.FieldOutcome
		for i := range outcomes {
			if outcomes[i].Code == importing.CodeDuplicateUpdated {
				updated = &outcomes[i]
			}
		}
		require.NotNil(t, updated)
		assert.Equal(t, "full_name", updated.Params["fields"])
	})

	t.Run("settles as skipped when nothing changed", func(t *testing.T) {
		store := seed()
		store.Changed = nil
		engine, set := testEngine(t, importing.EntityUserProfile, true, store)

		item, err := engine.processRow(ctx, set, userRow(1, "jane@example.com", "Jane Doe"))
		require.NoError(t, err)
		assert.Equal(t, importjob.ItemSkipped, item.Status())
		assert.Equal(t, importing.CodeDuplicateSkipped, item.ErrorCode())
	})
}

func TestRowEngine_ProcessRow_StorageOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("unique violation settles as duplicate skip", func(t *testing.T) {
		store := testhelpers.NewFakeEntityStore()
		store.CreateErr = &pgconn.PgError{Code: "23505"}
		engine, set := testEngine(t, importing.EntityUserProfile, false, store)

		item, err := engine.processRow(ctx, set, userRow(1, "jane@example.com", "Jane Doe"))
		require.NoError(t, err)
		assert.Equal(t, importjob.ItemSkipped, item.Status())
		assert.Equal(t, importing.CodeDuplicateSkipped, item.ErrorCode())
	})

	t.Run("permanent failure settles as storage error", func(t *testing.T) {
		store := testhelpers.NewFakeEntityStore()
		store.CreateErr = &pgconn.PgError{Code: "23503"}
		engine, set := testEngine(t, importing.EntityUserProfile, false, store)

		item, err := engine.processRow(ctx, set, userRow(1, "jane@example.com", "Jane Doe"))
		require.NoError(t, err)
		assert.Equal(t, importjob.ItemError, item.Status())
		assert.Equal(t, importing.CodeStorageFailure, item.ErrorCode())
	})

	t.Run("transient failure aborts the attempt", func(t *testing.T) {
		store := testhelpers.NewFakeEntityStore()
		store.CreateErr = &pgconn.PgError{Code: "08006"}
		engine, set := testEngine(t, importing.EntityUserProfile, false, store)

		_, err := engine.processRow(ctx, set, userRow(1, "jane@example.com", "Jane Doe"))
		require.Error(t, err)
	})
}

func TestDeltaFor(t *testing.T) {
	jobID := uuid.New()
	items := []importjob.Item{
		importjob.NewSuccess(jobID, 1, uuid.New(), nil),
		importjob.NewSuccess(jobID, 2, uuid.New(), []importing.FieldOutcome{
			importing.WarningOutcome("due_date", "2020-01-01", importing.CodePastDueDate, nil),
		}),
		importjob.NewError(jobID, 3, importing.CodeInvalidDate, nil, nil),
		importjob.NewSkipped(jobID, 4, importing.CodeDuplicateSkipped, nil, []importing.FieldOutcome{
			importing.WarningOutcome("email", "", importing.CodeDuplicateSkipped, nil),
		}),
	}

	delta := deltaFor(items)
	assert.Equal(t, importjob.CounterDelta{Processed: 4, Success: 2, Errors: 1, Skipped: 1, Warnings: 2}, delta)
}

func TestTransientClassification(t *testing.T) {
	assert.True(t, isTransientPG(&pgconn.PgError{Code: "08006"}))
	assert.True(t, isTransientPG(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isTransientPG(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isTransientPG(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isTransientPG(fmt.Errorf("boom")))

	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "40001"}))
}

func TestImportService_Upload_RejectsBeforeCreatingJob(t *testing.T) {
	tests := []struct {
		name     string
		cmd      UploadCommand
		wantCode string
	}{
		{
			name:     "unknown entity type",
			cmd:      UploadCommand{EntityType: "widgets", FileName: "w.csv", Data: []byte("a,b\n1,2\n")},
			wantCode: importing.CodeUnknownEntityType,
		},
		{
			name:     "file too large",
			cmd:      UploadCommand{EntityType: "users", FileName: "u.csv", Data: bytes.Repeat([]byte("a"), (1<<20)+1)},
			wantCode: importing.CodeFileTooLarge,
		},
		{
			name:     "empty payload",
			cmd:      UploadCommand{EntityType: "users", FileName: "u.csv"},
			wantCode: importing.CodeEmptyFile,
		},
		{
			name:     "header only",
			cmd:      UploadCommand{EntityType: "users", FileName: "u.csv", Data: []byte("email,full_name\n")},
			wantCode: importing.CodeEmptyFile,
		},
		{
			name:     "row limit exceeded",
			cmd:      UploadCommand{EntityType: "users", FileName: "u.csv", Data: usersCSV(60)},
			wantCode: importing.CodeRowLimitExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, jobs, _, _, _ := newTestImportService(t)
			ctx := itf.NewTestContext().WithTenant(uuid.New()).Build()

			outcome, err := svc.Upload(ctx, tt.cmd)
			require.Error(t, err)
			crit, ok := importing.AsCritical(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, crit.Code)
			assert.Nil(t, outcome)
			assert.Empty(t, jobs.Records)
		})
	}
}

func TestImportService_Upload_RequiresTenant(t *testing.T) {
	svc, jobs, _, _, _ := newTestImportService(t)

	outcome, err := svc.Upload(context.Background(), UploadCommand{
		EntityType: "users",
		FileName:   "u.csv",
		Data:       usersCSV(3),
	})
	require.Error(t, err)
	crit, ok := importing.AsCritical(err)
	require.True(t, ok)
	assert.Equal(t, importing.CodeMissingTenant, crit.Code)
	assert.Nil(t, outcome)
	assert.Empty(t, jobs.Records)
}

func TestImportService_Upload_MissingHeaderFailsJob(t *testing.T) {
	svc, jobs, store, _, bus := newTestImportService(t)
	ctx := itf.NewTestContext().WithTenant(uuid.New()).Build()

	var completed *importjob.CompletedEvent
	bus.Subscribe(func(e *importjob.CompletedEvent) { completed = e })

	outcome, err := svc.Upload(ctx, UploadCommand{
		EntityType: "users",
		FileName:   "u.csv",
		Data:       []byte("full_name\nJane Doe\n"),
	})
	require.Error(t, err)
	crit, ok := importing.AsCritical(err)
	require.True(t, ok)
	assert.Equal(t, importing.CodeMissingHeader, crit.Code)

	require.NotNil(t, outcome)
	require.NotNil(t, outcome.Job)
	assert.Equal(t, importjob.StatusFailed, outcome.Job.Status())
	assert.Equal(t, importing.CodeMissingHeader, outcome.Job.ErrorCode())
	assert.Empty(t, store.Created)
	assert.Empty(t, jobs.Items[outcome.Job.ID()])

	// Upload-time failures settle the job, so they complete like any other run.
	require.NotNil(t, completed)
	assert.Equal(t, importjob.StatusFailed, completed.Job.Status())
	require.NotNil(t, completed.Result)
	require.NotEmpty(t, completed.Result.Errors)
	assert.Equal(t, 0, completed.Result.Errors[0].Row)
	assert.Equal(t, importing.CodeMissingHeader, completed.Result.Errors[0].Code)
}

func TestImportService_Upload_SyncInline(t *testing.T) {
	svc, jobs, store, _, bus := newTestImportService(t)

	var completed *importjob.CompletedEvent
	bus.Subscribe(func(e *importjob.CompletedEvent) { completed = e })

	outcome, err := svc.Upload(syncCtx(uuid.New()), UploadCommand{
		EntityType: "users",
		FileName:   "users.csv",
		Data:       usersCSV(2),
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, ModeSync, outcome.Mode)
	require.NotNil(t, outcome.Job)
	assert.Equal(t, importjob.StatusCompleted, outcome.Job.Status())
	assert.Empty(t, outcome.Job.FileKey())

	require.NotNil(t, outcome.Result)
	assert.Equal(t, "completed", outcome.Result.Status)
	assert.Equal(t, 2, outcome.Result.Summary.Total)
	assert.Equal(t, 2, outcome.Result.Summary.Success)
	assert.Equal(t, 0, outcome.Result.Summary.Errors)
	assert.Equal(t, 2, outcome.Result.Created["users"])
	assert.Empty(t, outcome.Result.Errors)

	assert.Len(t, store.Created, 2)
	assert.Len(t, jobs.Items[outcome.Job.ID()], 2)
	require.NotNil(t, completed)
	assert.Equal(t, outcome.Job.ID(), completed.Job.ID())
}

func TestImportService_Upload_SyncSkipsExistingRows(t *testing.T) {
	svc, _, store, _, _ := newTestImportService(t)
	store.Existing["users/user0@example.com"] = uuid.New()
	store.Existing["users/user1@example.com"] = uuid.New()

	outcome, err := svc.Upload(syncCtx(uuid.New()), UploadCommand{
		EntityType: "users",
		FileName:   "users.csv",
		Data:       usersCSV(2),
	})
	require.NoError(t, err)

	// Re-importing an already loaded file creates nothing and settles every
	// row as a duplicate skip.
	assert.Equal(t, ModeSync, outcome.Mode)
	assert.Equal(t, importjob.StatusCompleted, outcome.Job.Status())
	assert.Equal(t, 0, outcome.Result.Summary.Success)
	assert.Equal(t, 2, outcome.Result.Summary.Skipped)
	assert.Equal(t, 2, outcome.Result.Summary.Warnings)
	assert.Equal(t, 0, outcome.Result.Created["users"])
	assert.Empty(t, store.Created)
	assert.Empty(t, store.Updated)
	require.Len(t, outcome.Result.Warnings, 2)
	assert.Equal(t, importing.CodeDuplicateSkipped, outcome.Result.Warnings[0].Code)
}

func TestImportService_Upload_SyncPartialOnRowErrors(t *testing.T) {
	opts := testImportOptions()
	opts.SyncRowThreshold = 10
	svc, _, store, _, _ := newImportServiceWith(t, opts)

	outcome, err := svc.Upload(syncCtx(uuid.New()), UploadCommand{
		EntityType: "objectives",
		FileName:   "objectives.csv",
		Data:       objectivesCSV(10, 5),
	})
	require.NoError(t, err)

	assert.Equal(t, ModeSync, outcome.Mode)
	assert.Equal(t, importjob.StatusPartial, outcome.Job.Status())
	assert.Equal(t, 10, outcome.Result.Summary.Total)
	assert.Equal(t, 9, outcome.Result.Summary.Success)
	assert.Equal(t, 1, outcome.Result.Summary.Errors)
	require.Len(t, outcome.Result.Errors, 1)
	assert.Equal(t, 5, outcome.Result.Errors[0].Row)
	assert.Equal(t, importing.CodeInvalidDate, outcome.Result.Errors[0].Code)
	assert.Len(t, store.Created, 9)
}

func TestImportService_Upload_SyncDowngradesOnBudget(t *testing.T) {
	opts := testImportOptions()
	opts.SyncRowThreshold = 10
	opts.SyncBudget = -time.Millisecond
	svc, jobs, store, files, bus := newImportServiceWith(t, opts)

	var queued *importjob.QueuedEvent
	bus.Subscribe(func(e *importjob.QueuedEvent) { queued = e })

	ctx := syncCtx(uuid.New())
	outcome, err := svc.Upload(ctx, UploadCommand{
		EntityType: "users",
		FileName:   "users.csv",
		Data:       usersCSV(5),
	})
	require.NoError(t, err)

	// An exhausted budget stores the file and hands the rest to the worker
	// pool instead of truncating the import.
	assert.Equal(t, ModeAsync, outcome.Mode)
	assert.Equal(t, 1, outcome.EstimatedTimeSeconds)
	assert.Nil(t, outcome.Result)
	require.NotNil(t, outcome.Job)
	assert.Equal(t, importjob.StatusProcessing, outcome.Job.Status())
	assert.NotEmpty(t, outcome.Job.FileKey())

	stored, err := files.Get(ctx, outcome.Job.FileKey())
	require.NoError(t, err)
	assert.Equal(t, usersCSV(5), stored)

	assert.Empty(t, store.Created)
	assert.Empty(t, jobs.Items[outcome.Job.ID()])
	require.NotNil(t, queued)
	assert.Equal(t, outcome.Job.ID(), queued.Job.ID())
}

func TestImportService_Upload_QueuesLargeFiles(t *testing.T) {
	svc, jobs, _, files, bus := newTestImportService(t)

	var queued *importjob.QueuedEvent
	bus.Subscribe(func(e *importjob.QueuedEvent) { queued = e })

	tenantID := uuid.New()
	actorID := uuid.New()
	ctx := itf.NewTestContext().WithTenant(tenantID).WithActor(actorID).Build()

	outcome, err := svc.Upload(ctx, UploadCommand{
		EntityType: "users",
		FileName:   "users.csv",
		Data:       usersCSV(5),
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, ModeAsync, outcome.Mode)
	assert.Equal(t, 1, outcome.EstimatedTimeSeconds)
	require.NotNil(t, outcome.Job)
	assert.Equal(t, importjob.StatusPending, outcome.Job.Status())
	assert.Equal(t, 5, outcome.Job.TotalRows())
	assert.Equal(t, actorID, outcome.Job.CreatedBy())

	key := outcome.Job.FileKey()
	assert.True(t, strings.HasPrefix(key, fmt.Sprintf("imports/%s/", tenantID)))
	assert.True(t, strings.HasSuffix(key, ".csv"))
	stored, err := files.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, usersCSV(5), stored)

	require.NotNil(t, queued)
	assert.Equal(t, outcome.Job.ID(), queued.Job.ID())
	require.Len(t, jobs.Records, 1)
}

func TestImportService_Result(t *testing.T) {
	svc, jobs, _, _, _ := newTestImportService(t)
	tenantID := uuid.New()
	ctx := itf.NewTestContext().WithTenant(tenantID).Build()

	jobID := uuid.New()
	jobs.Seed(&testhelpers.JobRecord{
		ID:         jobID,
		TenantID:   tenantID,
		EntityType: importing.EntityUserProfile,
		Status:     importjob.StatusPartial,
		Total:      3,
		Processed:  3,
		Success:    1,
		ErrorRows:  1,
		Skipped:    1,
		Warnings:   1,
		FileWarnings: []importing.FieldOutcome{
			importing.WarningOutcome("nickname", "", importing.CodeUnknownColumn, nil),
		},
		ProcessingMS: 120,
		CompletedAt:  time.Now(),
	})
	jobs.Items[jobID] = []importjob.Item{
		importjob.NewSuccess(jobID, 1, uuid.New(), nil),
		importjob.NewError(jobID, 2, importing.CodeInvalidEmail, map[string]string{"value": "bad"}, []importing.FieldOutcome{
			importing.ErrorOutcome("email", "bad", importing.CodeInvalidEmail, map[string]string{"value": "bad"}),
		}),
		importjob.NewSkipped(jobID, 3, importing.CodeDuplicateSkipped, map[string]string{"key": "jane@example.com"}, []importing.FieldOutcome{
			importing.WarningOutcome("email", "jane@example.com", importing.CodeDuplicateSkipped, map[string]string{"key": "jane@example.com"}),
		}),
	}

	result, err := svc.Result(ctx, jobID)
	require.NoError(t, err)

	assert.Equal(t, jobID, result.JobID)
	assert.Equal(t, "partial", result.Status)
	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Success)
	assert.Equal(t, 1, result.Summary.Errors)
	assert.Equal(t, 1, result.Summary.Skipped)
	assert.Equal(t, 1, result.Summary.Warnings)
	assert.Equal(t, int64(120), result.Summary.ProcessingTimeMS)
	assert.Equal(t, 1, result.Created["users"])

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, importing.CodeInvalidEmail, result.Errors[0].Code)

	// File-level warning reports as row 0 ahead of the row findings.
	require.Len(t, result.Warnings, 2)
	assert.Equal(t, 0, result.Warnings[0].Row)
	assert.Equal(t, importing.CodeUnknownColumn, result.Warnings[0].Code)
	assert.Equal(t, 3, result.Warnings[1].Row)
}

func TestImportService_Result_NotFinished(t *testing.T) {
	svc, jobs, _, _, _ := newTestImportService(t)
	tenantID := uuid.New()
	ctx := itf.NewTestContext().WithTenant(tenantID).Build()

	jobID := uuid.New()
	jobs.Seed(&testhelpers.JobRecord{
		ID:         jobID,
		TenantID:   tenantID,
		EntityType: importing.EntityUserProfile,
		Status:     importjob.StatusProcessing,
	})

	_, err := svc.Result(ctx, jobID)
	require.ErrorIs(t, err, ErrJobNotFinished)
}

func TestImportService_Cancel(t *testing.T) {
	svc, jobs, _, _, _ := newTestImportService(t)
	tenantID := uuid.New()
	ctx := itf.NewTestContext().WithTenant(tenantID).Build()

	t.Run("pending job records the request", func(t *testing.T) {
		jobID := uuid.New()
		jobs.Seed(&testhelpers.JobRecord{
			ID:         jobID,
			TenantID:   tenantID,
			EntityType: importing.EntityUserProfile,
			Status:     importjob.StatusPending,
		})

		job, err := svc.Cancel(ctx, jobID)
		require.NoError(t, err)
		assert.True(t, job.CancelRequested())
	})

	t.Run("terminal job cannot be cancelled", func(t *testing.T) {
		jobID := uuid.New()
		jobs.Seed(&testhelpers.JobRecord{
			ID:         jobID,
			TenantID:   tenantID,
			EntityType: importing.EntityUserProfile,
			Status:     importjob.StatusCompleted,
		})

		_, err := svc.Cancel(ctx, jobID)
		require.ErrorIs(t, err, persistence.ErrJobTerminal)
	})

	t.Run("unknown job reports not found", func(t *testing.T) {
		_, err := svc.Cancel(ctx, uuid.New())
		require.ErrorIs(t, err, persistence.ErrImportJobNotFound)
	})
}

func TestImportService_RunJob_CancelledBeforeStart(t *testing.T) {
	svc, jobs, _, _, bus := newTestImportService(t)

	var completed *importjob.CompletedEvent
	bus.Subscribe(func(e *importjob.CompletedEvent) { completed = e })

	jobID := uuid.New()
	rec := jobs.Seed(&testhelpers.JobRecord{
		ID:         jobID,
		TenantID:   uuid.New(),
		EntityType: importing.EntityUserProfile,
		Status:     importjob.StatusPending,
		Total:      40,
		FileKey:    "imports/x/y.csv",
		Cancel:     true,
	})

	ctx := itf.NewTestContext().Build()
	require.NoError(t, svc.RunJob(ctx, rec.ToJob(), "worker-1"))

	assert.Equal(t, importjob.StatusPartial, rec.Status)
	require.NotNil(t, completed)
	assert.Equal(t, jobID, completed.Job.ID())
	assert.Equal(t, importjob.StatusPartial, completed.Job.Status())
	require.NotNil(t, completed.Result)
	assert.Equal(t, "partial", completed.Result.Status)
}

func TestImportService_RunJob_UnknownRefsSettlePartial(t *testing.T) {
	svc, jobs, store, files, bus := newTestImportService(t)
	store.Existing["initiatives/initiative x"] = uuid.New()

	var completed *importjob.CompletedEvent
	bus.Subscribe(func(e *importjob.CompletedEvent) { completed = e })

	tenantID := uuid.New()
	jobID := uuid.New()
	fileKey := fmt.Sprintf("imports/%s/%s.csv", tenantID, jobID)
	rec := jobs.Seed(&testhelpers.JobRecord{
		ID:         jobID,
		TenantID:   tenantID,
		EntityType: importing.EntityActivity,
		Status:     importjob.StatusPending,
		Total:      30,
		FileKey:    fileKey,
		LockedBy:   "worker-1",
		LockedAt:   time.Now(),
	})

	ctx := composables.WithTx(itf.NewTestContext().Build(), &fakeTx{})
	require.NoError(t, files.Put(ctx, fileKey, activitiesCSV(30, map[int]bool{7: true, 19: true}), "text/csv"))

	require.NoError(t, svc.RunJob(ctx, rec.ToJob(), "worker-1"))

	// Two rows reference an initiative nobody created; the other 28 land.
	assert.Equal(t, importjob.StatusPartial, rec.Status)
	assert.Equal(t, 30, rec.Processed)
	assert.Equal(t, 28, rec.Success)
	assert.Equal(t, 2, rec.ErrorRows)
	assert.Len(t, store.Created, 28)

	require.NotNil(t, completed)
	result := completed.Result
	require.NotNil(t, result)
	assert.Equal(t, "partial", result.Status)
	assert.Equal(t, 30, result.Summary.Total)
	assert.Equal(t, 28, result.Summary.Success)
	assert.Equal(t, 2, result.Summary.Errors)
	assert.Equal(t, 28, result.Created["activities"])
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 7, result.Errors[0].Row)
	assert.Equal(t, importing.CodeForeignKeyNotFound, result.Errors[0].Code)
	assert.Equal(t, "Initiative Z", result.Errors[0].Params["value"])
	assert.Equal(t, 19, result.Errors[1].Row)
	assert.Equal(t, "Initiative Z", result.Errors[1].Params["value"])
}

func TestImportService_RunJob_ResumesAfterSettledRows(t *testing.T) {
	svc, jobs, store, files, _ := newTestImportService(t)

	tenantID := uuid.New()
	jobID := uuid.New()
	fileKey := fmt.Sprintf("imports/%s/%s.csv", tenantID, jobID)
	rec := jobs.Seed(&testhelpers.JobRecord{
		ID:         jobID,
		TenantID:   tenantID,
		EntityType: importing.EntityUserProfile,
		Status:     importjob.StatusProcessing,
		Total:      4,
		Processed:  2,
		Success:    2,
		FileKey:    fileKey,
		LockedBy:   "worker-2",
		LockedAt:   time.Now(),
		StartedAt:  time.Now().Add(-time.Minute),
	})
	jobs.Items[jobID] = []importjob.Item{
		importjob.NewSuccess(jobID, 1, uuid.New(), nil),
		importjob.NewSuccess(jobID, 2, uuid.New(), nil),
	}

	ctx := composables.WithTx(itf.NewTestContext().Build(), &fakeTx{})
	require.NoError(t, files.Put(ctx, fileKey, usersCSV(4), "text/csv"))

	require.NoError(t, svc.RunJob(ctx, rec.ToJob(), "worker-2"))

	// Rows 1 and 2 settled before the previous worker died; only 3 and 4
	// are written now.
	require.Len(t, store.Created, 2)
	assert.Equal(t, "user2@example.com", store.Created[0].Key)
	assert.Equal(t, "user3@example.com", store.Created[1].Key)
	assert.Equal(t, importjob.StatusCompleted, rec.Status)
	assert.Equal(t, 4, rec.Processed)
	assert.Equal(t, 4, rec.Success)
	assert.Len(t, jobs.Items[jobID], 4)
}

func TestImportService_RunJob_ChunkFailureSettlesRowsAsErrors(t *testing.T) {
	opts := testImportOptions()
	opts.CommitRetries = 1
	svc, jobs, store, files, _ := newImportServiceWith(t, opts)
	store.CreateErr = &pgconn.PgError{Code: "08006"}

	tenantID := uuid.New()
	jobID := uuid.New()
	fileKey := fmt.Sprintf("imports/%s/%s.csv", tenantID, jobID)
	rec := jobs.Seed(&testhelpers.JobRecord{
		ID:         jobID,
		TenantID:   tenantID,
		EntityType: importing.EntityUserProfile,
		Status:     importjob.StatusPending,
		Total:      3,
		FileKey:    fileKey,
		LockedBy:   "worker-1",
		LockedAt:   time.Now(),
	})

	ctx := composables.WithTx(itf.NewTestContext().Build(), &fakeTx{})
	require.NoError(t, files.Put(ctx, fileKey, usersCSV(3), "text/csv"))

	require.NoError(t, svc.RunJob(ctx, rec.ToJob(), "worker-1"))

	// The chunk commit never went through, so its rows settle as storage
	// errors instead of dropping the job.
	assert.Equal(t, importjob.StatusPartial, rec.Status)
	assert.Equal(t, 3, rec.Processed)
	assert.Equal(t, 3, rec.ErrorRows)
	assert.Empty(t, store.Created)

	items, err := jobs.ListItems(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.Equal(t, importjob.ItemError, item.Status())
		assert.Equal(t, importing.CodeStorageFailure, item.ErrorCode())
	}
}

func TestImportService_RunJob_CancelBetweenChunks(t *testing.T) {
	opts := testImportOptions()
	opts.ChunkSize = 2
	jobs := testhelpers.NewFakeJobRepo()
	store := testhelpers.NewFakeEntityStore()
	files := filestore.NewMemoryStore()
	bus := eventbus.NewEventPublisher(itf.QuietLogger())
	svc := NewImportService(opts, &cancelAfterFirstChunk{FakeJobRepo: jobs}, store, files, bus)

	tenantID := uuid.New()
	jobID := uuid.New()
	fileKey := fmt.Sprintf("imports/%s/%s.csv", tenantID, jobID)
	rec := jobs.Seed(&testhelpers.JobRecord{
		ID:         jobID,
		TenantID:   tenantID,
		EntityType: importing.EntityUserProfile,
		Status:     importjob.StatusPending,
		Total:      5,
		FileKey:    fileKey,
		LockedBy:   "worker-1",
		LockedAt:   time.Now(),
	})

	ctx := composables.WithTx(itf.NewTestContext().Build(), &fakeTx{})
	require.NoError(t, files.Put(ctx, fileKey, usersCSV(5), "text/csv"))

	require.NoError(t, svc.RunJob(ctx, rec.ToJob(), "worker-1"))

	// The first chunk landed before the cancellation was seen; rows 3-5
	// settle as skipped so the job still accounts for every row.
	assert.Equal(t, importjob.StatusPartial, rec.Status)
	assert.Equal(t, 5, rec.Processed)
	assert.Equal(t, 2, rec.Success)
	assert.Equal(t, 3, rec.Skipped)
	assert.Len(t, store.Created, 2)

	items, err := jobs.ListItems(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, importing.CodeJobCancelled, items[4].ErrorCode())
}
