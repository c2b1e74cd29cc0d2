package services

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/domain/entities/importjob"
	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/configuration"
	"github.com/planventa/planventa/pkg/eventbus"
	"github.com/planventa/planventa/pkg/filestore"
)

// ErrJobNotFinished is returned when a result or report is requested for a
// job that has not reached a terminal status yet.
var ErrJobNotFinished = fmt.Errorf("import job not finished")

const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// UploadCommand carries one uploaded import file.
type UploadCommand struct {
	EntityType     string
	FileName       string
	Data           []byte
	UpdateExisting bool
}

// UploadOutcome is what an upload produced: a finished result for small
// files handled inline, or a queued job for everything else. Job is set
// whenever a job row exists, including upload-time failures.
type UploadOutcome struct {
	Mode                 string
	Job                  *importjob.Job
	Result               *importing.Result
	EstimatedTimeSeconds int
}

// ImportService owns the bulk import pipeline: upload validation, the
// sync/async execution split, job execution and result assembly. The worker
// pool drives RunJob for queued jobs.
type ImportService struct {
	opts      configuration.ImportOptions
	jobs      importjob.Repository
	store     importing.EntityStore
	files     filestore.Store
	publisher eventbus.EventBus
}

func NewImportService(
	opts configuration.ImportOptions,
	jobs importjob.Repository,
	store importing.EntityStore,
	files filestore.Store,
	publisher eventbus.EventBus,
) *ImportService {
	return &ImportService{
		opts:      opts,
		jobs:      jobs,
		store:     store,
		files:     files,
		publisher: publisher,
	}
}

// Upload validates the file, creates a job and either processes it inline
// (small files, within a time budget) or stores the file and queues the job
// for a worker. Validation failures before a job exists return a bare
// CriticalError; failures after return it alongside the failed job.
func (s *ImportService) Upload(ctx context.Context, cmd UploadCommand) (*UploadOutcome, error) {
	entityType, ok := importing.ParseEntityType(cmd.EntityType)
	if !ok {
		return nil, importing.NewCriticalError(importing.CodeUnknownEntityType, map[string]string{
			"value": cmd.EntityType,
		})
	}
	if int64(len(cmd.Data)) > s.opts.MaxFileSize {
		return nil, importing.NewCriticalError(importing.CodeFileTooLarge, map[string]string{
			"max_bytes": strconv.FormatInt(s.opts.MaxFileSize, 10),
			"size":      strconv.Itoa(len(cmd.Data)),
		})
	}
	if len(cmd.Data) == 0 {
		return nil, importing.NewCriticalError(importing.CodeEmptyFile, nil)
	}
	if err := importing.CheckEncoding(cmd.Data); err != nil {
		return nil, err
	}

	// The cheap row count enforces limits before any job state exists.
	// Formats it cannot count defer to the full parse below.
	counted, countKnown := importing.CountDataRows(cmd.Data, entityType)
	if countKnown {
		if counted > s.opts.MaxRows {
			return nil, importing.NewCriticalError(importing.CodeRowLimitExceeded, map[string]string{
				"max_rows": strconv.Itoa(s.opts.MaxRows),
				"rows":     strconv.Itoa(counted),
			})
		}
		if counted == 0 {
			return nil, importing.NewCriticalError(importing.CodeEmptyFile, nil)
		}
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, importing.NewCriticalError(importing.CodeMissingTenant, nil)
	}

	jobOpts := []importjob.Option{
		importjob.WithFileName(cmd.FileName),
		importjob.WithUpdateExisting(cmd.UpdateExisting),
	}
	if countKnown {
		jobOpts = append(jobOpts, importjob.WithTotalRows(counted))
	}
	if actor, aErr := composables.UseActorID(ctx); aErr == nil {
		jobOpts = append(jobOpts, importjob.WithCreatedBy(actor))
	}
	job, err := s.jobs.Create(ctx, importjob.New(tenantID, entityType, jobOpts...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create import job")
	}

	reader, fileWarnings, err := importing.Open(cmd.Data, entityType)
	if err != nil {
		return s.failUpload(ctx, job, ModeSync, err)
	}
	rows, overflow, err := importing.Drain(reader, s.opts.MaxRows)
	if cErr := reader.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return s.failUpload(ctx, job, ModeSync, err)
	}
	if overflow {
		return s.failUpload(ctx, job, ModeSync, importing.NewCriticalError(importing.CodeRowLimitExceeded, map[string]string{
			"max_rows": strconv.Itoa(s.opts.MaxRows),
		}))
	}
	if len(rows) == 0 {
		return s.failUpload(ctx, job, ModeSync, importing.NewCriticalError(importing.CodeEmptyFile, nil))
	}

	if err := s.jobs.SetTotalRows(ctx, job.ID(), len(rows)); err != nil {
		return nil, errors.Wrap(err, "failed to record import row count")
	}
	if len(fileWarnings) > 0 {
		if err := s.jobs.SetFileWarnings(ctx, job.ID(), fileWarnings); err != nil {
			return nil, errors.Wrap(err, "failed to record import file warnings")
		}
	}

	if len(rows) <= s.opts.SyncRowThreshold {
		return s.runSync(ctx, cmd, job, rows)
	}
	return s.enqueue(ctx, cmd, job, len(rows))
}

// runSync processes every row in a single transaction under the sync time
// budget. If the budget runs out mid-file the settled prefix commits and
// the job downgrades to async for the rest.
func (s *ImportService) runSync(ctx context.Context, cmd UploadCommand, job *importjob.Job, rows []importing.Row) (*UploadOutcome, error) {
	if err := s.jobs.MarkProcessing(ctx, job.ID()); err != nil {
		return nil, err
	}
	started := time.Now()
	deadline := started.Add(s.opts.SyncBudget)

	engine := newRowEngine(job, s.store)
	resolvers, err := engine.resolvers(nil, s.opts.ResolverCacheSize)
	if err != nil {
		return nil, err
	}

	tx, err := composables.BeginTx(ctx)
	if err != nil {
		return s.failUpload(ctx, job, ModeSync, errors.Wrap(err, "failed to begin import transaction"))
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := composables.ApplyTenantRLS(ctx, tx); err != nil {
		return s.failUpload(ctx, job, ModeSync, err)
	}
	txCtx := composables.WithTx(ctx, tx)

	items := make([]importjob.Item, 0, len(rows))
	remaining := []importing.Row(nil)
	for i, row := range rows {
		if time.Now().After(deadline) {
			remaining = rows[i:]
			break
		}
		item, err := engine.settleRow(txCtx, tx, resolvers, row)
		if err != nil {
			return s.failUpload(ctx, job, ModeSync, errors.Wrap(err, "import transaction failed"))
		}
		items = append(items, item)
	}

	if err := s.jobs.CreateItems(txCtx, items); err != nil {
		return s.failUpload(ctx, job, ModeSync, errors.Wrap(err, "failed to persist import items"))
	}
	if err := s.jobs.AddCounters(txCtx, job.ID(), deltaFor(items)); err != nil {
		return s.failUpload(ctx, job, ModeSync, errors.Wrap(err, "failed to update import counters"))
	}
	if err := tx.Commit(ctx); err != nil {
		return s.failUpload(ctx, job, ModeSync, errors.Wrap(err, "failed to commit import transaction"))
	}
	observeRowMetrics(items)

	if len(remaining) > 0 {
		return s.enqueue(ctx, cmd, job, len(remaining))
	}

	final, result, err := s.finalizeRun(ctx, job.ID(), ModeSync, started, false)
	if err != nil {
		return nil, err
	}
	return &UploadOutcome{Mode: ModeSync, Job: final, Result: result}, nil
}

// enqueue persists the uploaded file and hands the job to the worker pool.
// Setting the file key is what makes the job claimable.
func (s *ImportService) enqueue(ctx context.Context, cmd UploadCommand, job *importjob.Job, pendingRows int) (*UploadOutcome, error) {
	key := fmt.Sprintf("imports/%s/%s%s", job.TenantID(), job.ID(), path.Ext(cmd.FileName))
	contentType := mimetype.Detect(cmd.Data).String()
	if err := s.files.Put(ctx, key, cmd.Data, contentType); err != nil {
		return s.failUpload(ctx, job, ModeAsync, errors.Wrap(err, "failed to store import file"))
	}
	if err := s.jobs.SetFileKey(ctx, job.ID(), key); err != nil {
		return s.failUpload(ctx, job, ModeAsync, errors.Wrap(err, "failed to persist import file key"))
	}

	queued, err := s.jobs.GetByID(ctx, job.ID())
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(&importjob.QueuedEvent{Job: queued})

	estimated := (pendingRows + s.opts.RowsPerSecond - 1) / s.opts.RowsPerSecond
	if estimated < 1 {
		estimated = 1
	}
	return &UploadOutcome{Mode: ModeAsync, Job: queued, EstimatedTimeSeconds: estimated}, nil
}

// failUpload settles the job as failed and hands the cause back to the
// caller together with the failed job, so transports can attach the job id
// to the error payload.
func (s *ImportService) failUpload(ctx context.Context, job *importjob.Job, mode string, cause error) (*UploadOutcome, error) {
	log := composables.TryUseLogger(ctx)
	code, params := importing.CodeStorageFailure, map[string]string(nil)
	if crit, ok := importing.AsCritical(cause); ok {
		code, params = crit.Code, crit.Params
	} else {
		log.WithError(cause).Error("import upload failed")
	}
	if err := s.jobs.MarkFailed(ctx, job.ID(), code, params); err != nil && !errors.Is(err, persistence.ErrJobTerminal) {
		log.WithError(err).Error("failed to mark import job failed")
	}
	if failed, err := s.jobs.GetByID(ctx, job.ID()); err == nil {
		job = failed
	}
	if result, rErr := s.buildResult(ctx, job); rErr == nil {
		s.publisher.Publish(&importjob.CompletedEvent{Job: job, Result: result})
	}
	getImportMetrics().jobsTotal.WithLabelValues(mode, string(importjob.StatusFailed)).Inc()
	return &UploadOutcome{Mode: mode, Job: job}, cause
}

// Status returns the job for progress polling, tenant-scoped.
func (s *ImportService) Status(ctx context.Context, jobID uuid.UUID) (*importjob.Job, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// Result rebuilds the full import result from persisted items. Only
// terminal jobs have results.
func (s *ImportService) Result(ctx context.Context, jobID uuid.UUID) (*importing.Result, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status().IsTerminal() {
		return nil, ErrJobNotFinished
	}
	return s.buildResult(ctx, job)
}

// Report renders the error/warning report for a terminal job. It returns
// the payload with its content type and a download file name.
func (s *ImportService) Report(ctx context.Context, jobID uuid.UUID, format string) ([]byte, string, string, error) {
	result, err := s.Result(ctx, jobID)
	if err != nil {
		return nil, "", "", err
	}
	if format != importing.FormatExcel {
		format = importing.FormatCSV
	}
	var payload []byte
	switch format {
	case importing.FormatExcel:
		payload, err = importing.ReportExcel(ctx, result)
	default:
		payload, err = importing.ReportCSV(result)
	}
	if err != nil {
		return nil, "", "", err
	}
	ext := "csv"
	if format == importing.FormatExcel {
		ext = "xlsx"
	}
	name := fmt.Sprintf("import_report_%s.%s", jobID, ext)
	return payload, importing.ContentTypeFor(format), name, nil
}

// Cancel requests cancellation. Already running jobs stop at the next chunk
// boundary; work committed so far stays.
func (s *ImportService) Cancel(ctx context.Context, jobID uuid.UUID) (*importjob.Job, error) {
	if err := s.jobs.RequestCancel(ctx, jobID); err != nil {
		return nil, err
	}
	return s.jobs.GetByID(ctx, jobID)
}

func (s *ImportService) buildResult(ctx context.Context, job *importjob.Job) (*importing.Result, error) {
	items, err := s.jobs.ListItems(ctx, job.ID())
	if err != nil {
		return nil, err
	}
	outcomes := make([]importing.RowOutcome, 0, len(items))
	for _, item := range items {
		outcomes = append(outcomes, item.RowOutcome())
	}
	result := importing.BuildResult(
		job.ID(),
		job.EntityType(),
		string(job.Status()),
		job.TotalRows(),
		job.ProcessingTimeMS(),
		job.FileWarnings(),
		outcomes,
	)
	if job.ErrorCode() != "" {
		issue := importing.Issue{Row: 0, Code: job.ErrorCode(), Params: job.ErrorParams()}
		result.Errors = append([]importing.Issue{issue}, result.Errors...)
	}
	return result, nil
}
