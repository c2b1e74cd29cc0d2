package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/planventa/planventa/modules/planning/domain/entities/importjob"
	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence/models"
	"github.com/planventa/planventa/pkg/composables"
)

var (
	ErrImportJobNotFound = fmt.Errorf("import job not found")
	// ErrNoClaimableJobs is the idle result of Claim, not a failure.
	ErrNoClaimableJobs = fmt.Errorf("no claimable import jobs")
	// ErrJobTerminal rejects state changes on jobs that already settled.
	ErrJobTerminal = fmt.Errorf("import job already terminal")
	// ErrLeaseLost means another worker took over the job lease.
	ErrLeaseLost = fmt.Errorf("import job lease lost")
)

const (
	importJobColumns = `id, tenant_id, entity_type, status, update_existing, total_rows, processed_rows,
		success_rows, error_rows, skipped_rows, warning_rows, file_key, file_name, error_code,
		error_params, file_warnings, created_by, cancel_requested, locked_at, locked_by, attempts,
		created_at, started_at, completed_at, processing_time_ms`

	importJobFindQuery = `SELECT ` + importJobColumns + ` FROM import_jobs`

	importJobItemFindQuery = `
		SELECT id, job_id, row_number, status, error_code, error_params, outcomes, created_entity_id, created_at
		FROM import_job_items`

	importJobItemInsertQuery = `
		INSERT INTO import_job_items (id, job_id, row_number, status, error_code, error_params, outcomes,
			created_entity_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

type ImportJobRepository struct{}

func NewImportJobRepository() importjob.Repository {
	return &ImportJobRepository{}
}

func (r *ImportJobRepository) Create(ctx context.Context, job *importjob.Job) (*importjob.Job, error) {
	query := `
		INSERT INTO import_jobs (` + importJobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	dbRow, err := ToDBImportJob(job)
	if err != nil {
		return nil, err
	}
	dbRow.TenantID = tenantID.String()
	if dbRow.CreatedAt.IsZero() {
		dbRow.CreatedAt = time.Now()
	}

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.ID,
		dbRow.TenantID,
		dbRow.EntityType,
		dbRow.Status,
		dbRow.UpdateExisting,
		dbRow.TotalRows,
		dbRow.ProcessedRows,
		dbRow.SuccessRows,
		dbRow.ErrorRows,
		dbRow.SkippedRows,
		dbRow.WarningRows,
		dbRow.FileKey,
		dbRow.FileName,
		dbRow.ErrorCode,
		dbRow.ErrorParams,
		dbRow.FileWarnings,
		dbRow.CreatedBy,
		dbRow.CancelRequested,
		dbRow.LockedAt,
		dbRow.LockedBy,
		dbRow.Attempts,
		dbRow.CreatedAt,
		dbRow.StartedAt,
		dbRow.CompletedAt,
		dbRow.ProcessingTimeMS,
	).Scan(&idStr); err != nil {
		return nil, errors.Wrap(err, "failed to insert import job")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *ImportJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*importjob.Job, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	jobs, err := r.queryJobs(
		ctx,
		importJobFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return nil, err
	}

	if len(jobs) == 0 {
		return nil, ErrImportJobNotFound
	}

	return jobs[0], nil
}

func (r *ImportJobRepository) GetForRun(ctx context.Context, id uuid.UUID) (*importjob.Job, error) {
	jobs, err := r.queryJobs(ctx, importJobFindQuery+" WHERE id = $1", id.String())
	if err != nil {
		return nil, err
	}

	if len(jobs) == 0 {
		return nil, ErrImportJobNotFound
	}

	return jobs[0], nil
}

func (r *ImportJobRepository) Claim(ctx context.Context, workerID string, leaseTTL time.Duration) (*importjob.Job, error) {
	// The inner select skips rows other workers hold locked, so concurrent
	// pollers never block on each other. A stale locked_at means the previous
	// holder died and the job is claimable again.
	query := `
		UPDATE import_jobs
		SET locked_at = now(), locked_by = $1, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM import_jobs
			WHERE file_key IS NOT NULL
				AND status IN ('pending', 'processing')
				AND (locked_at IS NULL OR locked_at < now() - make_interval(secs => $2))
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + importJobColumns

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	row := tx.QueryRow(ctx, query, workerID, leaseTTL.Seconds())
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoClaimableJobs
		}
		return nil, errors.Wrap(err, "failed to claim import job")
	}

	return job, nil
}

func (r *ImportJobRepository) Heartbeat(ctx context.Context, jobID uuid.UUID, workerID string) error {
	query := `
		UPDATE import_jobs
		SET locked_at = now()
		WHERE id = $1 AND locked_by = $2 AND status IN ('pending', 'processing')
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, query, jobID.String(), workerID)
	if err != nil {
		return errors.Wrap(err, "failed to refresh import job lease")
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (r *ImportJobRepository) ReleaseLease(ctx context.Context, jobID uuid.UUID) error {
	query := `UPDATE import_jobs SET locked_at = NULL, locked_by = NULL WHERE id = $1`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, query, jobID.String())
	return err
}

func (r *ImportJobRepository) MarkProcessing(ctx context.Context, jobID uuid.UUID) error {
	query := `
		UPDATE import_jobs
		SET status = 'processing', started_at = COALESCE(started_at, now())
		WHERE id = $1 AND status IN ('pending', 'processing')
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, query, jobID.String())
	if err != nil {
		return errors.Wrap(err, "failed to mark import job processing")
	}
	if tag.RowsAffected() == 0 {
		return ErrJobTerminal
	}
	return nil
}

func (r *ImportJobRepository) SetFileKey(ctx context.Context, jobID uuid.UUID, key string) error {
	query := `UPDATE import_jobs SET file_key = $2 WHERE id = $1`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, query, jobID.String(), key)
	if err != nil {
		return errors.Wrap(err, "failed to set import job file key")
	}
	return nil
}

func (r *ImportJobRepository) SetTotalRows(ctx context.Context, jobID uuid.UUID, total int) error {
	query := `UPDATE import_jobs SET total_rows = $2 WHERE id = $1`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, query, jobID.String(), total)
	if err != nil {
		return errors.Wrap(err, "failed to set import job total rows")
	}
	return nil
}

func (r *ImportJobRepository) SetFileWarnings(ctx context.Context, jobID uuid.UUID, warnings []importing.FieldOutcome) error {
	query := `UPDATE import_jobs SET file_warnings = $2 WHERE id = $1`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	encoded := []byte(nil)
	if len(warnings) > 0 {
		encoded, err = json.Marshal(warnings)
		if err != nil {
			return errors.Wrap(err, "failed to encode import job file warnings")
		}
	}

	_, err = tx.Exec(ctx, query, jobID.String(), encoded)
	if err != nil {
		return errors.Wrap(err, "failed to set import job file warnings")
	}
	return nil
}

func (r *ImportJobRepository) AddCounters(ctx context.Context, jobID uuid.UUID, delta importjob.CounterDelta) error {
	query := `
		UPDATE import_jobs
		SET processed_rows = processed_rows + $2,
			success_rows = success_rows + $3,
			error_rows = error_rows + $4,
			skipped_rows = skipped_rows + $5,
			warning_rows = warning_rows + $6
		WHERE id = $1
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		ctx,
		query,
		jobID.String(),
		delta.Processed,
		delta.Success,
		delta.Errors,
		delta.Skipped,
		delta.Warnings,
	)
	if err != nil {
		return errors.Wrap(err, "failed to add import job counters")
	}
	return nil
}

func (r *ImportJobRepository) MarkFailed(ctx context.Context, jobID uuid.UUID, code string, params map[string]string) error {
	query := `
		UPDATE import_jobs
		SET status = 'failed', error_code = $2, error_params = $3, completed_at = now(),
			locked_at = NULL, locked_by = NULL
		WHERE id = $1 AND status IN ('pending', 'processing')
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	encoded := []byte(nil)
	if len(params) > 0 {
		var err error
		encoded, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, query, jobID.String(), code, encoded)
	if err != nil {
		return errors.Wrap(err, "failed to mark import job failed")
	}
	if tag.RowsAffected() == 0 {
		return ErrJobTerminal
	}
	return nil
}

func (r *ImportJobRepository) Finalize(ctx context.Context, jobID uuid.UUID, status importjob.Status, processingTimeMS int64) error {
	query := `
		UPDATE import_jobs
		SET status = $2, completed_at = now(), processing_time_ms = $3,
			locked_at = NULL, locked_by = NULL
		WHERE id = $1 AND status IN ('pending', 'processing')
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, query, jobID.String(), string(status), processingTimeMS)
	if err != nil {
		return errors.Wrap(err, "failed to finalize import job")
	}
	if tag.RowsAffected() == 0 {
		return ErrJobTerminal
	}
	return nil
}

func (r *ImportJobRepository) RequestCancel(ctx context.Context, jobID uuid.UUID) error {
	query := `
		UPDATE import_jobs
		SET cancel_requested = true
		WHERE id = $1 AND tenant_id = $2 AND status IN ('pending', 'processing')
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, query, jobID.String(), tenantID.String())
	if err != nil {
		return errors.Wrap(err, "failed to request import job cancel")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	job, err := r.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status().IsTerminal() {
		return ErrJobTerminal
	}
	return ErrImportJobNotFound
}

func (r *ImportJobRepository) IsCancelRequested(ctx context.Context, jobID uuid.UUID) (bool, error) {
	query := `SELECT cancel_requested FROM import_jobs WHERE id = $1`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}

	var cancelled bool
	if err := tx.QueryRow(ctx, query, jobID.String()).Scan(&cancelled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrImportJobNotFound
		}
		return false, errors.Wrap(err, "failed to read import job cancel flag")
	}
	return cancelled, nil
}

func (r *ImportJobRepository) CreateItems(ctx context.Context, items []importjob.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for _, item := range items {
		dbRow, err := ToDBImportJobItem(item)
		if err != nil {
			return err
		}
		if dbRow.CreatedAt.IsZero() {
			dbRow.CreatedAt = now
		}
		batch.Queue(
			importJobItemInsertQuery,
			dbRow.ID,
			dbRow.JobID,
			dbRow.RowNumber,
			dbRow.Status,
			dbRow.ErrorCode,
			dbRow.ErrorParams,
			dbRow.Outcomes,
			dbRow.CreatedEntityID,
			dbRow.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return errors.Wrap(err, "failed to insert import job item")
		}
	}
	return results.Close()
}

func (r *ImportJobRepository) ListItems(ctx context.Context, jobID uuid.UUID) ([]importjob.Item, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, importJobItemFindQuery+" WHERE job_id = $1 ORDER BY row_number", jobID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var items []importjob.Item
	for rows.Next() {
		var m models.ImportJobItem
		if err := rows.Scan(
			&m.ID,
			&m.JobID,
			&m.RowNumber,
			&m.Status,
			&m.ErrorCode,
			&m.ErrorParams,
			&m.Outcomes,
			&m.CreatedEntityID,
			&m.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan import job item row")
		}
		item, err := ToDomainImportJobItem(&m)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return items, nil
}

func (r *ImportJobRepository) MaxSettledRow(ctx context.Context, jobID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(MAX(row_number), 0) FROM import_job_items WHERE job_id = $1`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var maxRow int
	if err := tx.QueryRow(ctx, query, jobID.String()).Scan(&maxRow); err != nil {
		return 0, errors.Wrap(err, "failed to read max settled row")
	}
	return maxRow, nil
}

func (r *ImportJobRepository) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*importjob.Job, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var jobs []*importjob.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan import job row")
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return jobs, nil
}

func scanJob(row pgx.Row) (*importjob.Job, error) {
	var m models.ImportJob
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.EntityType,
		&m.Status,
		&m.UpdateExisting,
		&m.TotalRows,
		&m.ProcessedRows,
		&m.SuccessRows,
		&m.ErrorRows,
		&m.SkippedRows,
		&m.WarningRows,
		&m.FileKey,
		&m.FileName,
		&m.ErrorCode,
		&m.ErrorParams,
		&m.FileWarnings,
		&m.CreatedBy,
		&m.CancelRequested,
		&m.LockedAt,
		&m.LockedBy,
		&m.Attempts,
		&m.CreatedAt,
		&m.StartedAt,
		&m.CompletedAt,
		&m.ProcessingTimeMS,
	); err != nil {
		return nil, err
	}
	return ToDomainImportJob(&m)
}
