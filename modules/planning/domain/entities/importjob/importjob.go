package importjob

import (
	"time"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/importing"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusPartial    Status = "partial"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial:
		return true
	default:
		return false
	}
}

// CanTransitionTo encodes pending -> processing -> {completed|failed|partial}.
// Terminal states accept nothing; failed is also reachable straight from
// pending when a critical error aborts before the first row.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next.IsTerminal()
	default:
		return false
	}
}

// Finalize picks the terminal status for a run that was not aborted by a
// critical error: any row error or a cancellation makes it partial,
// otherwise completed. Warnings alone never block completion.
func Finalize(errorRows int, cancelled bool) Status {
	if cancelled || errorRows > 0 {
		return StatusPartial
	}
	return StatusCompleted
}

// Job tracks one import execution over one file for one entity type.
// Counters are monotonic non-decreasing; success+error+skipped never exceeds
// total, and reaches it when a run settles every row. Jobs failed by a
// critical error may settle fewer.
type Job struct {
	id               uuid.UUID
	tenantID         uuid.UUID
	entityType       importing.EntityType
	status           Status
	updateExisting   bool
	totalRows        int
	processedRows    int
	successRows      int
	errorRows        int
	skippedRows      int
	warningRows      int
	fileKey          string
	fileName         string
	errorCode        string
	errorParams      map[string]string
	fileWarnings     []importing.FieldOutcome
	createdBy        uuid.UUID
	cancelRequested  bool
	lockedAt         time.Time
	lockedBy         string
	attempts         int
	createdAt        time.Time
	startedAt        time.Time
	completedAt      time.Time
	processingTimeMS int64
}

type Option func(*Job)

func WithID(id uuid.UUID) Option {
	return func(j *Job) { j.id = id }
}

func WithStatus(status Status) Option {
	return func(j *Job) { j.status = status }
}

func WithUpdateExisting(update bool) Option {
	return func(j *Job) { j.updateExisting = update }
}

func WithTotalRows(n int) Option {
	return func(j *Job) { j.totalRows = n }
}

func WithCounters(processed, success, errors, skipped, warnings int) Option {
	return func(j *Job) {
		j.processedRows = processed
		j.successRows = success
		j.errorRows = errors
		j.skippedRows = skipped
		j.warningRows = warnings
	}
}

func WithFileKey(key string) Option {
	return func(j *Job) { j.fileKey = key }
}

func WithFileName(name string) Option {
	return func(j *Job) { j.fileName = name }
}

func WithFailure(code string, params map[string]string) Option {
	return func(j *Job) {
		j.errorCode = code
		j.errorParams = params
	}
}

// WithFileWarnings records file-level findings from parsing, such as ignored
// unknown columns. They apply to the whole file rather than any single row.
func WithFileWarnings(warnings []importing.FieldOutcome) Option {
	return func(j *Job) { j.fileWarnings = warnings }
}

func WithCreatedBy(actor uuid.UUID) Option {
	return func(j *Job) { j.createdBy = actor }
}

func WithCancelRequested(requested bool) Option {
	return func(j *Job) { j.cancelRequested = requested }
}

func WithLease(at time.Time, by string) Option {
	return func(j *Job) {
		j.lockedAt = at
		j.lockedBy = by
	}
}

func WithAttempts(n int) Option {
	return func(j *Job) { j.attempts = n }
}

func WithTimestamps(created, started, completed time.Time) Option {
	return func(j *Job) {
		j.createdAt = created
		j.startedAt = started
		j.completedAt = completed
	}
}

func WithProcessingTime(ms int64) Option {
	return func(j *Job) { j.processingTimeMS = ms }
}

func New(tenantID uuid.UUID, entityType importing.EntityType, opts ...Option) *Job {
	j := &Job{
		id:         uuid.New(),
		tenantID:   tenantID,
		entityType: entityType,
		status:     StatusPending,
		createdAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Job) ID() uuid.UUID                    { return j.id }
func (j *Job) TenantID() uuid.UUID              { return j.tenantID }
func (j *Job) EntityType() importing.EntityType { return j.entityType }
func (j *Job) Status() Status                   { return j.status }
func (j *Job) UpdateExisting() bool             { return j.updateExisting }
func (j *Job) TotalRows() int                   { return j.totalRows }
func (j *Job) ProcessedRows() int               { return j.processedRows }
func (j *Job) SuccessRows() int                 { return j.successRows }
func (j *Job) ErrorRows() int                   { return j.errorRows }
func (j *Job) SkippedRows() int                 { return j.skippedRows }
func (j *Job) WarningRows() int                 { return j.warningRows }
func (j *Job) FileKey() string                  { return j.fileKey }
func (j *Job) FileName() string                 { return j.fileName }
func (j *Job) ErrorCode() string                { return j.errorCode }
func (j *Job) ErrorParams() map[string]string   { return j.errorParams }

func (j *Job) FileWarnings() []importing.FieldOutcome { return j.fileWarnings }

func (j *Job) CreatedBy() uuid.UUID    { return j.createdBy }
func (j *Job) CancelRequested() bool   { return j.cancelRequested }
func (j *Job) LockedAt() time.Time     { return j.lockedAt }
func (j *Job) LockedBy() string        { return j.lockedBy }
func (j *Job) Attempts() int           { return j.attempts }
func (j *Job) CreatedAt() time.Time    { return j.createdAt }
func (j *Job) StartedAt() time.Time    { return j.startedAt }
func (j *Job) CompletedAt() time.Time  { return j.completedAt }
func (j *Job) ProcessingTimeMS() int64 { return j.processingTimeMS }

// Percentage reports processed progress in 0-100.
func (j *Job) Percentage() float64 {
	if j.totalRows == 0 {
		return 0
	}
	return float64(j.processedRows) / float64(j.totalRows) * 100
}
