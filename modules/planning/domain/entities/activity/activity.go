package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func Statuses() []string {
	return []string{
		string(StatusPending),
		string(StatusInProgress),
		string(StatusCompleted),
		string(StatusCancelled),
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

// Activity is a unit of work under an initiative. The initiative reference
// is mandatory; assignee and dates are not.
type Activity struct {
	id           uuid.UUID
	tenantID     uuid.UUID
	initiativeID uuid.UUID
	title        string
	description  string
	assignedTo   uuid.UUID
	status       Status
	priority     Priority
	progress     int
	dueDate      time.Time
	isCompleted  bool
	createdAt    time.Time
	updatedAt    time.Time
}

type Option func(*Activity)

func WithID(id uuid.UUID) Option {
	return func(a *Activity) { a.id = id }
}

func WithDescription(description string) Option {
	return func(a *Activity) { a.description = description }
}

func WithAssignee(userID uuid.UUID) Option {
	return func(a *Activity) { a.assignedTo = userID }
}

func WithStatus(status Status) Option {
	return func(a *Activity) { a.status = status }
}

func WithPriority(priority Priority) Option {
	return func(a *Activity) { a.priority = priority }
}

func WithProgress(progress int) Option {
	return func(a *Activity) { a.progress = progress }
}

func WithDueDate(due time.Time) Option {
	return func(a *Activity) { a.dueDate = due }
}

func WithCompleted(done bool) Option {
	return func(a *Activity) { a.isCompleted = done }
}

func New(tenantID, initiativeID uuid.UUID, title string, opts ...Option) Activity {
	a := Activity{
		id:           uuid.New(),
		tenantID:     tenantID,
		initiativeID: initiativeID,
		title:        strings.TrimSpace(title),
		status:       StatusPending,
		priority:     PriorityMedium,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	initiativeID uuid.UUID,
	title string,
	description string,
	assignedTo uuid.UUID,
	status Status,
	priority Priority,
	progress int,
	dueDate time.Time,
	isCompleted bool,
	createdAt time.Time,
	updatedAt time.Time,
) Activity {
	return Activity{
		id:           id,
		tenantID:     tenantID,
		initiativeID: initiativeID,
		title:        title,
		description:  description,
		assignedTo:   assignedTo,
		status:       status,
		priority:     priority,
		progress:     progress,
		dueDate:      dueDate,
		isCompleted:  isCompleted,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (a Activity) ID() uuid.UUID           { return a.id }
func (a Activity) TenantID() uuid.UUID     { return a.tenantID }
func (a Activity) InitiativeID() uuid.UUID { return a.initiativeID }
func (a Activity) Title() string           { return a.title }
func (a Activity) Description() string     { return a.description }
func (a Activity) AssignedTo() uuid.UUID   { return a.assignedTo }
func (a Activity) Status() Status          { return a.status }
func (a Activity) Priority() Priority      { return a.priority }
func (a Activity) Progress() int           { return a.progress }
func (a Activity) DueDate() time.Time      { return a.dueDate }
func (a Activity) IsCompleted() bool       { return a.isCompleted }
func (a Activity) CreatedAt() time.Time    { return a.createdAt }
func (a Activity) UpdatedAt() time.Time    { return a.updatedAt }
func (a Activity) IsZero() bool            { return a.id == uuid.Nil && a.title == "" }
