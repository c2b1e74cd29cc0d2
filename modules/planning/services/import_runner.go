package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/planventa/planventa/modules/planning/domain/entities/importjob"
	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence"
	"github.com/planventa/planventa/pkg/composables"
)

// rowEngine settles individual rows against the entity store. One engine
// serves one job; resolver sets are rebuilt per transaction attempt so a
// rolled-back chunk never leaks ids into the next attempt.
type rowEngine struct {
	jobID      uuid.UUID
	entityType importing.EntityType
	schema     *importing.Schema
	update     bool
	store      importing.EntityStore
}

func newRowEngine(job *importjob.Job, store importing.EntityStore) *rowEngine {
	return &rowEngine{
		jobID:      job.ID(),
		entityType: job.EntityType(),
		schema:     importing.SchemaFor(job.EntityType()),
		update:     job.UpdateExisting(),
		store:      store,
	}
}

// resolvers builds a fresh resolver set for one transaction attempt, seeded
// with entries harvested from previously committed chunks.
func (e *rowEngine) resolvers(committed map[importing.EntityType]map[string]uuid.UUID, cacheSize int) (*importing.ResolverSet, error) {
	set := importing.NewResolverSet()
	for _, refType := range e.schema.ReferencedTypes() {
		resolver, err := importing.NewResolver(cacheSize, func(ctx context.Context, key string) (uuid.UUID, bool, error) {
			return e.store.Lookup(ctx, refType, key)
		})
		if err != nil {
			return nil, err
		}
		if seed := committed[refType]; len(seed) > 0 {
			resolver.Seed(seed)
		}
		set.Add(refType, resolver)
	}
	return set, nil
}

// harvest copies resolver entries into the committed map after a chunk
// commit, making them visible to the next chunk's fresh resolvers.
func (e *rowEngine) harvest(committed map[importing.EntityType]map[string]uuid.UUID, set *importing.ResolverSet) {
	for _, refType := range e.schema.ReferencedTypes() {
		resolver, ok := set.For(refType)
		if !ok {
			continue
		}
		entries := resolver.Entries()
		if len(entries) == 0 {
			continue
		}
		bucket := committed[refType]
		if bucket == nil {
			bucket = make(map[string]uuid.UUID, len(entries))
			committed[refType] = bucket
		}
		for key, id := range entries {
			bucket[key] = id
		}
	}
}

// settleRow runs one row inside its own savepoint. Success commits the
// savepoint; error and skipped rows roll it back, which also clears the
// aborted state a failed insert leaves behind.
func (e *rowEngine) settleRow(ctx context.Context, tx pgx.Tx, set *importing.ResolverSet, row importing.Row) (importjob.Item, error) {
	inner, err := tx.Begin(ctx)
	if err != nil {
		return importjob.Item{}, err
	}
	item, err := e.processRow(composables.WithTx(ctx, inner), set, row)
	if err != nil {
		_ = inner.Rollback(ctx)
		return importjob.Item{}, err
	}
	if item.Status() == importjob.ItemSuccess {
		if err := inner.Commit(ctx); err != nil {
			return importjob.Item{}, err
		}
		return item, nil
	}
	if err := inner.Rollback(ctx); err != nil {
		return importjob.Item{}, err
	}
	return item, nil
}

// processRow validates, resolves references, applies duplicate policy and
// writes one row. A returned error is infrastructural and aborts the whole
// transaction attempt; everything row-scoped settles as an item.
func (e *rowEngine) processRow(ctx context.Context, set *importing.ResolverSet, row importing.Row) (importjob.Item, error) {
	rec, outcomes := importing.Validate(row, e.schema, time.Now())
	if importing.HasError(outcomes) {
		code, params := primaryError(outcomes)
		return importjob.NewError(e.jobID, row.Number, code, params, outcomes), nil
	}

	refOutcomes, err := set.ResolveRefs(ctx, rec, e.schema)
	if err != nil {
		return importjob.Item{}, err
	}
	outcomes = append(outcomes, refOutcomes...)
	if importing.HasError(outcomes) {
		code, params := primaryError(outcomes)
		return importjob.NewError(e.jobID, row.Number, code, params, outcomes), nil
	}

	if e.schema.KeyField != "" && rec.Key != "" {
		if resolver, ok := set.For(e.entityType); ok {
			existing, found, err := resolver.Resolve(ctx, rec.Key)
			if err != nil {
				return importjob.Item{}, err
			}
			if found {
				return e.settleDuplicate(ctx, rec, existing, outcomes)
			}
		}
	}

	id, err := e.store.Create(ctx, rec)
	if err != nil {
		if isUniqueViolation(err) {
			params := map[string]string{"key": e.recordKey(rec)}
			outcomes = append(outcomes, importing.WarningOutcome(e.schema.KeyField, rec.Key, importing.CodeDuplicateSkipped, params))
			return importjob.NewSkipped(e.jobID, row.Number, importing.CodeDuplicateSkipped, params, outcomes), nil
		}
		if isTransientPG(err) {
			return importjob.Item{}, err
		}
		outcomes = append(outcomes, importing.ErrorOutcome("", "", importing.CodeStorageFailure, nil))
		return importjob.NewError(e.jobID, row.Number, importing.CodeStorageFailure, nil, outcomes), nil
	}
	if rec.Key != "" {
		if resolver, ok := set.For(e.entityType); ok {
			resolver.Put(rec.Key, id)
		}
	}
	return importjob.NewSuccess(e.jobID, row.Number, id, outcomes), nil
}

func (e *rowEngine) settleDuplicate(ctx context.Context, rec *importing.Record, existing uuid.UUID, outcomes []importing.FieldOutcome) (importjob.Item, error) {
	params := map[string]string{"key": rec.Key}
	if !e.update {
		outcomes = append(outcomes, importing.WarningOutcome(e.schema.KeyField, rec.Key, importing.CodeDuplicateSkipped, params))
		return importjob.NewSkipped(e.jobID, rec.RowNumber, importing.CodeDuplicateSkipped, params, outcomes), nil
	}

	changed, err := e.store.Update(ctx, existing, rec)
	if err != nil {
		if isTransientPG(err) {
			return importjob.Item{}, err
		}
		outcomes = append(outcomes, importing.ErrorOutcome("", "", importing.CodeStorageFailure, nil))
		return importjob.NewError(e.jobID, rec.RowNumber, importing.CodeStorageFailure, nil, outcomes), nil
	}
	if len(changed) == 0 {
		outcomes = append(outcomes, importing.WarningOutcome(e.schema.KeyField, rec.Key, importing.CodeDuplicateSkipped, params))
		return importjob.NewSkipped(e.jobID, rec.RowNumber, importing.CodeDuplicateSkipped, params, outcomes), nil
	}

	updatedParams := map[string]string{
		"key":    rec.Key,
		"fields": strings.Join(changed, ","),
	}
	outcomes = append(outcomes, importing.WarningOutcome(e.schema.KeyField, rec.Key, importing.CodeDuplicateUpdated, updatedParams))
	return importjob.NewSuccess(e.jobID, rec.RowNumber, existing, outcomes), nil
}

// recordKey names the row for duplicate messages. Link rows have no natural
// key, so their raw references stand in.
func (e *rowEngine) recordKey(rec *importing.Record) string {
	if rec.Key != "" {
		return rec.Key
	}
	parts := make([]string, 0, 2)
	for _, spec := range e.schema.Fields {
		if spec.Kind != importing.KindRef {
			continue
		}
		if raw, ok := rec.Refs[spec.Name]; ok {
			parts = append(parts, raw)
		}
	}
	return strings.Join(parts, " / ")
}

// RunJob executes one claimed job to a terminal status. It is safe to call
// for jobs that partially ran before: settled rows are skipped and the run
// continues where the previous one stopped.
func (s *ImportService) RunJob(ctx context.Context, job *importjob.Job, workerID string) error {
	ctx = composables.WithTenantID(ctx, job.TenantID())
	log := composables.TryUseLogger(ctx).WithFields(logrus.Fields{
		"job_id":      job.ID(),
		"entity_type": job.EntityType(),
		"worker_id":   workerID,
	})

	metrics := getImportMetrics()
	metrics.jobsActive.Inc()
	defer metrics.jobsActive.Dec()

	started := time.Now()

	cancelRequested, err := s.jobs.IsCancelRequested(ctx, job.ID())
	if err != nil {
		return err
	}
	if cancelRequested {
		_, _, err := s.finalizeRun(ctx, job.ID(), ModeAsync, started, true)
		return err
	}

	data, err := s.files.Get(ctx, job.FileKey())
	if err != nil {
		log.WithError(err).Error("failed to fetch import file")
		return s.failRun(ctx, job.ID(), importing.CodeStorageFailure, nil)
	}

	reader, _, err := importing.Open(data, job.EntityType())
	if err != nil {
		return s.failParse(ctx, log, job.ID(), err)
	}
	rows, overflow, err := importing.Drain(reader, s.opts.MaxRows)
	if cErr := reader.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return s.failParse(ctx, log, job.ID(), err)
	}
	if overflow {
		return s.failRun(ctx, job.ID(), importing.CodeRowLimitExceeded, map[string]string{
			"max_rows": strconv.Itoa(s.opts.MaxRows),
		})
	}

	resume, err := s.jobs.MaxSettledRow(ctx, job.ID())
	if err != nil {
		return err
	}
	if resume > 0 {
		kept := rows[:0]
		for _, row := range rows {
			if row.Number > resume {
				kept = append(kept, row)
			}
		}
		rows = kept
		log.WithField("resume_after", resume).Info("resuming import job")
	}

	if err := s.jobs.MarkProcessing(ctx, job.ID()); err != nil {
		if errors.Is(err, persistence.ErrJobTerminal) {
			return nil
		}
		return err
	}

	engine := newRowEngine(job, s.store)
	committed := map[importing.EntityType]map[string]uuid.UUID{}
	sawCancel := false

	for start := 0; start < len(rows); start += s.opts.ChunkSize {
		cancelRequested, err := s.jobs.IsCancelRequested(ctx, job.ID())
		if err != nil {
			return err
		}
		if cancelRequested {
			sawCancel = true
			if err := s.settleRemaining(ctx, job.ID(), rows[start:]); err != nil {
				return err
			}
			break
		}

		end := start + s.opts.ChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.runChunk(ctx, engine, committed, rows[start:end], workerID); err != nil {
			if errors.Is(err, persistence.ErrLeaseLost) {
				log.Warn("import job lease lost, abandoning run")
				return nil
			}
			log.WithError(err).Error("import chunk failed, settling its rows as errors")
			if err := s.settleChunkErrors(ctx, job.ID(), rows[start:end]); err != nil {
				return err
			}
		}
	}

	final, _, err := s.finalizeRun(ctx, job.ID(), ModeAsync, started, sawCancel)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"status":  final.Status(),
		"success": final.SuccessRows(),
		"errors":  final.ErrorRows(),
		"skipped": final.SkippedRows(),
	}).Info("import job finished")
	return nil
}

// runChunk commits one batch of rows in a single transaction, retrying
// transient failures with a fresh resolver set each attempt. The heartbeat
// runs inside the transaction, so a lease takeover and this commit cannot
// both win: whichever touches the job row second loses.
func (s *ImportService) runChunk(
	ctx context.Context,
	engine *rowEngine,
	committed map[importing.EntityType]map[string]uuid.UUID,
	rows []importing.Row,
	workerID string,
) error {
	backoff := retry.WithMaxRetries(uint64(s.opts.CommitRetries), retry.NewExponential(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		set, err := engine.resolvers(committed, s.opts.ResolverCacheSize)
		if err != nil {
			return err
		}

		tx, err := composables.BeginTx(ctx)
		if err != nil {
			return retryIfTransient(err)
		}
		defer func() { _ = tx.Rollback(ctx) }()
		if err := composables.ApplyTenantRLS(ctx, tx); err != nil {
			return retryIfTransient(err)
		}
		txCtx := composables.WithTx(ctx, tx)

		if workerID != "" {
			if err := s.jobs.Heartbeat(txCtx, engine.jobID, workerID); err != nil {
				return err
			}
		}

		items := make([]importjob.Item, 0, len(rows))
		for _, row := range rows {
			item, err := engine.settleRow(txCtx, tx, set, row)
			if err != nil {
				return retryIfTransient(err)
			}
			items = append(items, item)
		}

		if err := s.jobs.CreateItems(txCtx, items); err != nil {
			return retryIfTransient(err)
		}
		if err := s.jobs.AddCounters(txCtx, engine.jobID, deltaFor(items)); err != nil {
			return retryIfTransient(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return retryIfTransient(err)
		}

		engine.harvest(committed, set)
		observeRowMetrics(items)
		return nil
	})
}

// settleChunkErrors records error items for a chunk whose commit kept
// failing after all retry attempts. The run then moves on to the next
// chunk, so one bad batch degrades the job to partial instead of losing
// the rest of the file. If even this settlement fails the run aborts and
// a later claim resumes from the last settled row.
func (s *ImportService) settleChunkErrors(ctx context.Context, jobID uuid.UUID, rows []importing.Row) error {
	items := make([]importjob.Item, 0, len(rows))
	for _, row := range rows {
		outcome := importing.ErrorOutcome("", "", importing.CodeStorageFailure, nil)
		items = append(items, importjob.NewError(jobID, row.Number, importing.CodeStorageFailure, nil, []importing.FieldOutcome{outcome}))
	}
	return s.settleBatch(ctx, jobID, items)
}

// settleRemaining records skipped items for rows a cancellation left
// unprocessed, so the job still accounts for every row.
func (s *ImportService) settleRemaining(ctx context.Context, jobID uuid.UUID, rows []importing.Row) error {
	for start := 0; start < len(rows); start += s.opts.ChunkSize {
		end := start + s.opts.ChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		items := make([]importjob.Item, 0, end-start)
		for _, row := range rows[start:end] {
			outcome := importing.WarningOutcome("", "", importing.CodeJobCancelled, nil)
			items = append(items, importjob.NewSkipped(jobID, row.Number, importing.CodeJobCancelled, nil, []importing.FieldOutcome{outcome}))
		}
		if err := s.settleBatch(ctx, jobID, items); err != nil {
			return err
		}
	}
	return nil
}

// settleBatch persists synthesized items in one transaction and folds them
// into the job counters.
func (s *ImportService) settleBatch(ctx context.Context, jobID uuid.UUID, items []importjob.Item) error {
	tx, err := composables.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := composables.ApplyTenantRLS(ctx, tx); err != nil {
		return err
	}
	txCtx := composables.WithTx(ctx, tx)
	if err := s.jobs.CreateItems(txCtx, items); err != nil {
		return err
	}
	if err := s.jobs.AddCounters(txCtx, jobID, deltaFor(items)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	observeRowMetrics(items)
	return nil
}

// finalizeRun settles the job's terminal status from its persisted counters
// and publishes the completion event. A job another worker already settled
// is returned as is.
func (s *ImportService) finalizeRun(ctx context.Context, jobID uuid.UUID, mode string, started time.Time, sawCancel bool) (*importjob.Job, *importing.Result, error) {
	job, err := s.jobs.GetForRun(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	status := importjob.Finalize(job.ErrorRows(), sawCancel)
	elapsed := time.Since(started)
	if !job.StartedAt().IsZero() {
		elapsed = time.Since(job.StartedAt())
	}

	if err := s.jobs.Finalize(ctx, jobID, status, elapsed.Milliseconds()); err != nil {
		if errors.Is(err, persistence.ErrJobTerminal) {
			settled, gErr := s.jobs.GetForRun(ctx, jobID)
			if gErr != nil {
				return nil, nil, gErr
			}
			result, rErr := s.buildResult(ctx, settled)
			return settled, result, rErr
		}
		return nil, nil, err
	}

	final, err := s.jobs.GetForRun(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.buildResult(ctx, final)
	if err != nil {
		return nil, nil, err
	}
	s.publisher.Publish(&importjob.CompletedEvent{Job: final, Result: result})

	metrics := getImportMetrics()
	metrics.jobsTotal.WithLabelValues(mode, string(final.Status())).Inc()
	metrics.jobDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	return final, result, nil
}

// failRun settles a worker-side job as failed and publishes completion.
func (s *ImportService) failRun(ctx context.Context, jobID uuid.UUID, code string, params map[string]string) error {
	if err := s.jobs.MarkFailed(ctx, jobID, code, params); err != nil {
		if errors.Is(err, persistence.ErrJobTerminal) {
			return nil
		}
		return err
	}
	job, err := s.jobs.GetForRun(ctx, jobID)
	if err != nil {
		return err
	}
	result, err := s.buildResult(ctx, job)
	if err != nil {
		return err
	}
	s.publisher.Publish(&importjob.CompletedEvent{Job: job, Result: result})
	getImportMetrics().jobsTotal.WithLabelValues(ModeAsync, string(importjob.StatusFailed)).Inc()
	return nil
}

func (s *ImportService) failParse(ctx context.Context, log *logrus.Entry, jobID uuid.UUID, err error) error {
	if crit, ok := importing.AsCritical(err); ok {
		return s.failRun(ctx, jobID, crit.Code, crit.Params)
	}
	log.WithError(err).Error("failed to parse import file")
	return s.failRun(ctx, jobID, importing.CodeStorageFailure, nil)
}

func deltaFor(items []importjob.Item) importjob.CounterDelta {
	delta := importjob.CounterDelta{Processed: len(items)}
	for _, item := range items {
		switch item.Status() {
		case importjob.ItemSuccess:
			delta.Success++
		case importjob.ItemError:
			delta.Errors++
		case importjob.ItemSkipped:
			delta.Skipped++
		}
		if importing.HasWarning(item.Outcomes()) {
			delta.Warnings++
		}
	}
	return delta
}

func observeRowMetrics(items []importjob.Item) {
	metrics := getImportMetrics()
	for _, item := range items {
		metrics.rowsTotal.WithLabelValues(string(item.Status())).Inc()
	}
}

func primaryError(outcomes []importing.FieldOutcome) (string, map[string]string) {
	for _, o := range outcomes {
		if o.Severity == importing.SeverityError {
			return o.Code, o.Params
		}
	}
	return "", nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isTransientPG reports connection failures and serialization conflicts
// worth a transaction retry. Constraint violations are not transient.
func isTransientPG(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func retryIfTransient(err error) error {
	if isTransientPG(err) {
		return retry.RetryableError(err)
	}
	return err
}
