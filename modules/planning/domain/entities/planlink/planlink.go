// Package planlink holds the objective-initiative association. Its natural
// key is the id pair rather than a title.
package planlink

import (
	"time"

	"github.com/google/uuid"
)

type Link struct {
	id           uuid.UUID
	tenantID     uuid.UUID
	objectiveID  uuid.UUID
	initiativeID uuid.UUID
	createdAt    time.Time
}

type Option func(*Link)

func WithID(id uuid.UUID) Option {
	return func(l *Link) { l.id = id }
}

func New(tenantID, objectiveID, initiativeID uuid.UUID, opts ...Option) Link {
	l := Link{
		id:           uuid.New(),
		tenantID:     tenantID,
		objectiveID:  objectiveID,
		initiativeID: initiativeID,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	objectiveID uuid.UUID,
	initiativeID uuid.UUID,
	createdAt time.Time,
) Link {
	return Link{
		id:           id,
		tenantID:     tenantID,
		objectiveID:  objectiveID,
		initiativeID: initiativeID,
		createdAt:    createdAt,
	}
}

func (l Link) ID() uuid.UUID           { return l.id }
func (l Link) TenantID() uuid.UUID     { return l.tenantID }
func (l Link) ObjectiveID() uuid.UUID  { return l.objectiveID }
func (l Link) InitiativeID() uuid.UUID { return l.initiativeID }
func (l Link) CreatedAt() time.Time    { return l.createdAt }
func (l Link) IsZero() bool            { return l.id == uuid.Nil }
