package tenant

import "github.com/google/uuid"

type CreatedEvent struct {
	Result *Tenant
}

type UpdatedEvent struct {
	Result *Tenant
}

type DeletedEvent struct {
	ID uuid.UUID
}
