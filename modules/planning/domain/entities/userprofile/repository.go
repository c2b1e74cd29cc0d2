package userprofile

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
	GetByID(ctx context.Context, id uuid.UUID) (UserProfile, error)
	GetByEmail(ctx context.Context, email string) (UserProfile, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]UserProfile, int64, error)
	Create(ctx context.Context, u UserProfile) (UserProfile, error)
	Update(ctx context.Context, u UserProfile) (UserProfile, error)
}
