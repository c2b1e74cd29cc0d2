package planlink

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Link, error)
	GetByPair(ctx context.Context, objectiveID, initiativeID uuid.UUID) (Link, error)
	Create(ctx context.Context, l Link) (Link, error)
}
