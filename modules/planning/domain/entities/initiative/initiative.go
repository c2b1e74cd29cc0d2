package initiative

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func Priorities() []string {
	return []string{
		string(PriorityLow),
		string(PriorityMedium),
		string(PriorityHigh),
		string(PriorityCritical),
	}
}

// Initiative is a funded stream of work advancing one or more objectives.
// Budget and actual cost are null decimals; an invalid value means the
// amount was never provided.
type Initiative struct {
	id          uuid.UUID
	tenantID    uuid.UUID
	title       string
	description string
	areaID      uuid.UUID
	ownerID     uuid.UUID
	status      Status
	priority    Priority
	progress    int
	targetDate  time.Time
	budget      decimal.NullDecimal
	actualCost  decimal.NullDecimal
	createdAt   time.Time
	updatedAt   time.Time
}

type Option func(*Initiative)

func WithID(id uuid.UUID) Option {
	return func(i *Initiative) { i.id = id }
}

func WithDescription(description string) Option {
	return func(i *Initiative) { i.description = description }
}

func WithArea(areaID uuid.UUID) Option {
	return func(i *Initiative) { i.areaID = areaID }
}

func WithOwner(ownerID uuid.UUID) Option {
	return func(i *Initiative) { i.ownerID = ownerID }
}

func WithStatus(status Status) Option {
	return func(i *Initiative) { i.status = status }
}

func WithPriority(priority Priority) Option {
	return func(i *Initiative) { i.priority = priority }
}

func WithProgress(progress int) Option {
	return func(i *Initiative) { i.progress = progress }
}

func WithTargetDate(target time.Time) Option {
	return func(i *Initiative) { i.targetDate = target }
}

func WithBudget(budget decimal.Decimal) Option {
	return func(i *Initiative) { i.budget = decimal.NewNullDecimal(budget) }
}

func WithActualCost(cost decimal.Decimal) Option {
	return func(i *Initiative) { i.actualCost = decimal.NewNullDecimal(cost) }
}

func New(tenantID uuid.UUID, title string, opts ...Option) Initiative {
	i := Initiative{
		id:       uuid.New(),
		tenantID: tenantID,
		title:    strings.TrimSpace(title),
		status:   StatusDraft,
		priority: PriorityMedium,
	}
	for _, opt := range opts {
		opt(&i)
	}
	return i
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	title string,
	description string,
	areaID uuid.UUID,
	ownerID uuid.UUID,
	status Status,
	priority Priority,
	progress int,
	targetDate time.Time,
	budget decimal.NullDecimal,
	actualCost decimal.NullDecimal,
	createdAt time.Time,
	updatedAt time.Time,
) Initiative {
	return Initiative{
		id:          id,
		tenantID:    tenantID,
		title:       title,
		description: description,
		areaID:      areaID,
		ownerID:     ownerID,
		status:      status,
		priority:    priority,
		progress:    progress,
		targetDate:  targetDate,
		budget:      budget,
		actualCost:  actualCost,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (i Initiative) ID() uuid.UUID                   { return i.id }
func (i Initiative) TenantID() uuid.UUID             { return i.tenantID }
func (i Initiative) Title() string                   { return i.title }
func (i Initiative) Description() string             { return i.description }
func (i Initiative) AreaID() uuid.UUID               { return i.areaID }
func (i Initiative) OwnerID() uuid.UUID              { return i.ownerID }
func (i Initiative) Status() Status                  { return i.status }
func (i Initiative) Priority() Priority              { return i.priority }
func (i Initiative) Progress() int                   { return i.progress }
func (i Initiative) TargetDate() time.Time           { return i.targetDate }
func (i Initiative) Budget() decimal.NullDecimal     { return i.budget }
func (i Initiative) ActualCost() decimal.NullDecimal { return i.actualCost }
func (i Initiative) CreatedAt() time.Time            { return i.createdAt }
func (i Initiative) UpdatedAt() time.Time            { return i.updatedAt }
func (i Initiative) IsZero() bool                    { return i.id == uuid.Nil && i.title == "" }
