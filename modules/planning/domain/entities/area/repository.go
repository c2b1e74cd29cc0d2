package area

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
	GetByID(ctx context.Context, id uuid.UUID) (Area, error)
	GetByTitle(ctx context.Context, title string) (Area, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]Area, int64, error)
	Create(ctx context.Context, a Area) (Area, error)
	Update(ctx context.Context, a Area) (Area, error)
}
