package initiative

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
	GetByID(ctx context.Context, id uuid.UUID) (Initiative, error)
	GetByTitle(ctx context.Context, title string) (Initiative, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]Initiative, int64, error)
	Create(ctx context.Context, i Initiative) (Initiative, error)
	Update(ctx context.Context, i Initiative) (Initiative, error)
}
