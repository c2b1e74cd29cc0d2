package objective

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	Q      string
	Limit  int
	Offset int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Objective, error)
	GetByTitle(ctx context.Context, title string) (Objective, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]Objective, int64, error)
	Create(ctx context.Context, o Objective) (Objective, error)
	Update(ctx context.Context, o Objective) (Objective, error)
}
