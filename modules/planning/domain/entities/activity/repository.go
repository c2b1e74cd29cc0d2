package activity

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	Q            string
	InitiativeID uuid.UUID
	Limit        int
	Offset       int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Activity, error)
	GetByTitle(ctx context.Context, title string) (Activity, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]Activity, int64, error)
	Create(ctx context.Context, a Activity) (Activity, error)
	Update(ctx context.Context, a Activity) (Activity, error)
}
