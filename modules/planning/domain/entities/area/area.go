package area

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Area groups objectives and initiatives by business domain.
type Area struct {
	id          uuid.UUID
	tenantID    uuid.UUID
	title       string
	description string
	createdAt   time.Time
	updatedAt   time.Time
}

type Option func(*Area)

func WithID(id uuid.UUID) Option {
	return func(a *Area) { a.id = id }
}

func WithDescription(description string) Option {
	return func(a *Area) { a.description = description }
}

func New(tenantID uuid.UUID, title string, opts ...Option) Area {
	a := Area{
		id:       uuid.New(),
		tenantID: tenantID,
		title:    strings.TrimSpace(title),
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	title string,
	description string,
	createdAt time.Time,
	updatedAt time.Time,
) Area {
	return Area{
		id:          id,
		tenantID:    tenantID,
		title:       title,
		description: description,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (a Area) ID() uuid.UUID        { return a.id }
func (a Area) TenantID() uuid.UUID  { return a.tenantID }
func (a Area) Title() string        { return a.title }
func (a Area) Description() string  { return a.description }
func (a Area) CreatedAt() time.Time { return a.createdAt }
func (a Area) UpdatedAt() time.Time { return a.updatedAt }
func (a Area) IsZero() bool         { return a.id == uuid.Nil && a.title == "" }
