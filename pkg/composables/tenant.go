package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/planventa/planventa/pkg/constants"
)

var (
	ErrNoTenantIDFound = errors.New("no tenant id found in context")
	ErrNoActorIDFound  = errors.New("no actor id found in context")
)

// Tenant is the request-scoped tenant snapshot carried by middleware.
type Tenant struct {
	ID     uuid.UUID
	Name   string
	Domain string
}

func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

// UseTenantID returns the tenant id set by the identity middleware. Every
// tenant-owned read or write path must call this before touching storage.
func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := ctx.Value(constants.TenantIDKey).(uuid.UUID)
	if !ok || tenantID == uuid.Nil {
		return uuid.Nil, ErrNoTenantIDFound
	}
	return tenantID, nil
}

func WithActorID(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.ActorIDKey, actorID)
}

func UseActorID(ctx context.Context) (uuid.UUID, error) {
	actorID, ok := ctx.Value(constants.ActorIDKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		return uuid.Nil, ErrNoActorIDFound
	}
	return actorID, nil
}
