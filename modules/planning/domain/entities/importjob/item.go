package importjob

import (
	"time"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/importing"
)

type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemSuccess ItemStatus = "success"
	ItemError   ItemStatus = "error"
	ItemSkipped ItemStatus = "skipped"
)

// Item is the per-row outcome record of a job. Items are created as rows
// are parsed, settle exactly once, and are immutable afterwards.
type Item struct {
	id              uuid.UUID
	jobID           uuid.UUID
	rowNumber       int
	status          ItemStatus
	errorCode       string
	errorParams     map[string]string
	outcomes        []importing.FieldOutcome
	createdEntityID uuid.UUID
	createdAt       time.Time
}

func NewSuccess(jobID uuid.UUID, rowNumber int, entityID uuid.UUID, outcomes []importing.FieldOutcome) Item {
	return Item{
		id:              uuid.New(),
		jobID:           jobID,
		rowNumber:       rowNumber,
		status:          ItemSuccess,
		outcomes:        outcomes,
		createdEntityID: entityID,
	}
}

func NewError(jobID uuid.UUID, rowNumber int, code string, params map[string]string, outcomes []importing.FieldOutcome) Item {
	return Item{
		id:          uuid.New(),
		jobID:       jobID,
		rowNumber:   rowNumber,
		status:      ItemError,
		errorCode:   code,
		errorParams: params,
		outcomes:    outcomes,
	}
}

func NewSkipped(jobID uuid.UUID, rowNumber int, code string, params map[string]string, outcomes []importing.FieldOutcome) Item {
	return Item{
		id:          uuid.New(),
		jobID:       jobID,
		rowNumber:   rowNumber,
		status:      ItemSkipped,
		errorCode:   code,
		errorParams: params,
		outcomes:    outcomes,
	}
}

func Hydrate(
	id uuid.UUID,
	jobID uuid.UUID,
	rowNumber int,
	status ItemStatus,
	errorCode string,
	errorParams map[string]string,
	outcomes []importing.FieldOutcome,
	createdEntityID uuid.UUID,
	createdAt time.Time,
) Item {
	return Item{
		id:              id,
		jobID:           jobID,
		rowNumber:       rowNumber,
		status:          status,
		errorCode:       errorCode,
		errorParams:     errorParams,
		outcomes:        outcomes,
		createdEntityID: createdEntityID,
		createdAt:       createdAt,
	}
}

func (i Item) ID() uuid.UUID                      { return i.id }
func (i Item) JobID() uuid.UUID                   { return i.jobID }
func (i Item) RowNumber() int                     { return i.rowNumber }
func (i Item) Status() ItemStatus                 { return i.status }
func (i Item) ErrorCode() string                  { return i.errorCode }
func (i Item) ErrorParams() map[string]string     { return i.errorParams }
func (i Item) Outcomes() []importing.FieldOutcome { return i.outcomes }
func (i Item) CreatedEntityID() uuid.UUID         { return i.createdEntityID }
func (i Item) CreatedAt() time.Time               { return i.createdAt }

// RowOutcome converts the item to the reporter's neutral row view. Updated
// duplicates carry the duplicate_updated warning, which distinguishes them
// from creations when counting created entities.
func (i Item) RowOutcome() importing.RowOutcome {
	created := i.status == ItemSuccess && i.createdEntityID != uuid.Nil
	if created {
		for _, o := range i.outcomes {
			if o.Code == importing.CodeDuplicateUpdated {
				created = false
				break
			}
		}
	}
	return importing.RowOutcome{
		Row:      i.rowNumber,
		Status:   string(i.status),
		Created:  created,
		Outcomes: i.outcomes,
	}
}
