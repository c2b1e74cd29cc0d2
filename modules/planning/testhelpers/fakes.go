// Package testhelpers provides in-memory fakes for planning tests. Repos
// and stores behave like their postgres counterparts, including the
// sentinel errors, so service and controller tests run without a database.
package testhelpers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/domain/entities/importjob"
	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence"
)

// FakeEntityStore serves Lookup from a seeded key map and records writes.
// Existing keys are "<entity type>/<normalized key>".
type FakeEntityStore struct {
	Existing  map[string]uuid.UUID
	Created   []*importing.Record
	Updated   []*importing.Record
	Changed   []string
	CreateErr error
	UpdateErr error
}

func NewFakeEntityStore() *FakeEntityStore {
	return &FakeEntityStore{Existing: map[string]uuid.UUID{}}
}

func (f *FakeEntityStore) Lookup(_ context.Context, t importing.EntityType, key string) (uuid.UUID, bool, error) {
	id, ok := f.Existing[string(t)+"/"+key]
	return id, ok, nil
}

func (f *FakeEntityStore) Create(_ context.Context, rec *importing.Record) (uuid.UUID, error) {
	if f.CreateErr != nil {
		return uuid.Nil, f.CreateErr
	}
	f.Created = append(f.Created, rec)
	return uuid.New(), nil
}

func (f *FakeEntityStore) Update(_ context.Context, id uuid.UUID, rec *importing.Record) ([]string, error) {
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	f.Updated = append(f.Updated, rec)
	return f.Changed, nil
}

// JobRecord is the mutable state behind FakeJobRepo, one row of the
// import_jobs table.
type JobRecord struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	EntityType   importing.EntityType
	Status       importjob.Status
	Update       bool
	Total        int
	Processed    int
	Success      int
	ErrorRows    int
	Skipped      int
	Warnings     int
	FileKey      string
	FileName     string
	ErrorCode    string
	ErrorParams  map[string]string
	FileWarnings []importing.FieldOutcome
	CreatedBy    uuid.UUID
	Cancel       bool
	LockedAt     time.Time
	LockedBy     string
	Attempts     int
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	ProcessingMS int64
}

// ToJob materializes a snapshot the way the repository's row scan does.
func (r *JobRecord) ToJob() *importjob.Job {
	return importjob.New(r.TenantID, r.EntityType,
		importjob.WithID(r.ID),
		importjob.WithStatus(r.Status),
		importjob.WithUpdateExisting(r.Update),
		importjob.WithTotalRows(r.Total),
		importjob.WithCounters(r.Processed, r.Success, r.ErrorRows, r.Skipped, r.Warnings),
		importjob.WithFileKey(r.FileKey),
		importjob.WithFileName(r.FileName),
		importjob.WithFailure(r.ErrorCode, r.ErrorParams),
		importjob.WithFileWarnings(r.FileWarnings),
		importjob.WithCreatedBy(r.CreatedBy),
		importjob.WithCancelRequested(r.Cancel),
		importjob.WithLease(r.LockedAt, r.LockedBy),
		importjob.WithAttempts(r.Attempts),
		importjob.WithTimestamps(r.CreatedAt, r.StartedAt, r.CompletedAt),
		importjob.WithProcessingTime(r.ProcessingMS),
	)
}

// FakeJobRepo implements importjob.Repository over a map, with the same
// terminal-status and lease guards as the postgres repository.
type FakeJobRepo struct {
	mu      sync.Mutex
	Records map[uuid.UUID]*JobRecord
	Items   map[uuid.UUID][]importjob.Item
}

func NewFakeJobRepo() *FakeJobRepo {
	return &FakeJobRepo{
		Records: map[uuid.UUID]*JobRecord{},
		Items:   map[uuid.UUID][]importjob.Item{},
	}
}

// Seed registers a job record under its ID.
func (f *FakeJobRepo) Seed(rec *JobRecord) *JobRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	f.Records[rec.ID] = rec
	return rec
}

func (f *FakeJobRepo) get(id uuid.UUID) (*JobRecord, error) {
	rec, ok := f.Records[id]
	if !ok {
		return nil, persistence.ErrImportJobNotFound
	}
	return rec, nil
}

func (f *FakeJobRepo) Create(_ context.Context, job *importjob.Job) (*importjob.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &JobRecord{
		ID:         job.ID(),
		TenantID:   job.TenantID(),
		EntityType: job.EntityType(),
		Status:     job.Status(),
		Update:     job.UpdateExisting(),
		Total:      job.TotalRows(),
		FileName:   job.FileName(),
		CreatedBy:  job.CreatedBy(),
		CreatedAt:  time.Now(),
	}
	f.Records[rec.ID] = rec
	return rec.ToJob(), nil
}

func (f *FakeJobRepo) GetByID(_ context.Context, id uuid.UUID) (*importjob.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(id)
	if err != nil {
		return nil, err
	}
	return rec.ToJob(), nil
}

func (f *FakeJobRepo) GetForRun(ctx context.Context, id uuid.UUID) (*importjob.Job, error) {
	return f.GetByID(ctx, id)
}

func (f *FakeJobRepo) Claim(_ context.Context, workerID string, leaseTTL time.Duration) (*importjob.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.Records {
		if rec.FileKey == "" || rec.Status.IsTerminal() {
			continue
		}
		if !rec.LockedAt.IsZero() && time.Since(rec.LockedAt) < leaseTTL {
			continue
		}
		rec.LockedAt = time.Now()
		rec.LockedBy = workerID
		rec.Attempts++
		return rec.ToJob(), nil
	}
	return nil, persistence.ErrNoClaimableJobs
}

func (f *FakeJobRepo) Heartbeat(_ context.Context, jobID uuid.UUID, workerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.Records[jobID]
	if !ok || rec.Status.IsTerminal() || rec.LockedBy != workerID {
		return persistence.ErrLeaseLost
	}
	rec.LockedAt = time.Now()
	return nil
}

func (f *FakeJobRepo) ReleaseLease(_ context.Context, jobID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return err
	}
	rec.LockedAt = time.Time{}
	rec.LockedBy = ""
	return nil
}

func (f *FakeJobRepo) MarkProcessing(_ context.Context, jobID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return err
	}
	if rec.Status.IsTerminal() {
		return persistence.ErrJobTerminal
	}
	rec.Status = importjob.StatusProcessing
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	return nil
}

func (f *FakeJobRepo) SetFileKey(_ context.Context, jobID uuid.UUID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return err
	}
	rec.FileKey = key
	return nil
}

func (f *FakeJobRepo) SetTotalRows(_ context.Context, jobID uuid.UUID, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return err
	}
	rec.Total = total
	return nil
}

func (f *FakeJobRepo) SetFileWarnings(_ context.Context, jobID uuid.UUID, warnings []importing.FieldOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return err
	}
	rec.FileWarnings = warnings
	return nil
}

func (f *FakeJobRepo) AddCounters(_ context.Context, jobID uuid.UUID, delta importjob.CounterDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return err
	}
	rec.Processed += delta.Processed
	rec.Success += delta.Success
	rec.ErrorRows += delta.Errors
	rec.Skipped += delta.Skipped
	rec.Warnings += delta.Warnings
	return nil
}

func (f *FakeJobRepo) MarkFailed(_ context.Context, jobID uuid.UUID, code string, params map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return err
	}
	if rec.Status.IsTerminal() {
		return persistence.ErrJobTerminal
	}
	rec.Status = importjob.StatusFailed
	rec.ErrorCode = code
	rec.ErrorParams = params
	rec.CompletedAt = time.Now()
	rec.LockedAt = time.Time{}
	rec.LockedBy = ""
	return nil
}

func (f *FakeJobRepo) Finalize(_ context.Context, jobID uuid.UUID, status importjob.Status, processingTimeMS int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return err
	}
	if rec.Status.IsTerminal() {
		return persistence.ErrJobTerminal
	}
	rec.Status = status
	rec.ProcessingMS = processingTimeMS
	rec.CompletedAt = time.Now()
	rec.LockedAt = time.Time{}
	rec.LockedBy = ""
	return nil
}

func (f *FakeJobRepo) RequestCancel(_ context.Context, jobID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return err
	}
	if rec.Status.IsTerminal() {
		return persistence.ErrJobTerminal
	}
	rec.Cancel = true
	return nil
}

func (f *FakeJobRepo) IsCancelRequested(_ context.Context, jobID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.get(jobID)
	if err != nil {
		return false, err
	}
	return rec.Cancel, nil
}

func (f *FakeJobRepo) CreateItems(_ context.Context, items []importjob.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.Items[item.JobID()] = append(f.Items[item.JobID()], item)
	}
	return nil
}

func (f *FakeJobRepo) ListItems(_ context.Context, jobID uuid.UUID) ([]importjob.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := append([]importjob.Item(nil), f.Items[jobID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].RowNumber() < items[j].RowNumber() })
	return items, nil
}

func (f *FakeJobRepo) MaxSettledRow(_ context.Context, jobID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	settled := 0
	for _, item := range f.Items[jobID] {
		if item.RowNumber() > settled {
			settled = item.RowNumber()
		}
	}
	return settled, nil
}

var (
	_ importjob.Repository  = (*FakeJobRepo)(nil)
	_ importing.EntityStore = (*FakeEntityStore)(nil)
)
