package objective

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

func Statuses() []string {
	return []string{
		string(StatusDraft),
		string(StatusActive),
		string(StatusOnHold),
		string(StatusCompleted),
		string(StatusArchived),
	}
}

// Objective is a top-level planning goal. Optional references use uuid.Nil
// and the time zero value as the unset sentinels.
type Objective struct {
	id          uuid.UUID
	tenantID    uuid.UUID
	title       string
	description string
	areaID      uuid.UUID
	ownerID     uuid.UUID
	status      Status
	progress    int
	startDate   time.Time
	targetDate  time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

type Option func(*Objective)

func WithID(id uuid.UUID) Option {
	return func(o *Objective) { o.id = id }
}

func WithDescription(description string) Option {
	return func(o *Objective) { o.description = description }
}

func WithArea(areaID uuid.UUID) Option {
	return func(o *Objective) { o.areaID = areaID }
}

func WithOwner(ownerID uuid.UUID) Option {
	return func(o *Objective) { o.ownerID = ownerID }
}

func WithStatus(status Status) Option {
	return func(o *Objective) { o.status = status }
}

func WithProgress(progress int) Option {
	return func(o *Objective) { o.progress = progress }
}

func WithDates(start, target time.Time) Option {
	return func(o *Objective) {
		o.startDate = start
		o.targetDate = target
	}
}

func New(tenantID uuid.UUID, title string, opts ...Option) Objective {
	o := Objective{
		id:       uuid.New(),
		tenantID: tenantID,
		title:    strings.TrimSpace(title),
		status:   StatusDraft,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	title string,
	description string,
	areaID uuid.UUID,
	ownerID uuid.UUID,
	status Status,
	progress int,
	startDate time.Time,
	targetDate time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) Objective {
	return Objective{
		id:          id,
		tenantID:    tenantID,
		title:       title,
		description: description,
		areaID:      areaID,
		ownerID:     ownerID,
		status:      status,
		progress:    progress,
		startDate:   startDate,
		targetDate:  targetDate,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (o Objective) ID() uuid.UUID         { return o.id }
func (o Objective) TenantID() uuid.UUID   { return o.tenantID }
func (o Objective) Title() string         { return o.title }
func (o Objective) Description() string   { return o.description }
func (o Objective) AreaID() uuid.UUID     { return o.areaID }
func (o Objective) OwnerID() uuid.UUID    { return o.ownerID }
func (o Objective) Status() Status        { return o.status }
func (o Objective) Progress() int         { return o.progress }
func (o Objective) StartDate() time.Time  { return o.startDate }
func (o Objective) TargetDate() time.Time { return o.targetDate }
func (o Objective) CreatedAt() time.Time  { return o.createdAt }
func (o Objective) UpdatedAt() time.Time  { return o.updatedAt }
func (o Objective) IsZero() bool          { return o.id == uuid.Nil && o.title == "" }
