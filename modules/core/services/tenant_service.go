package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/core/domain/entities/tenant"
	"github.com/planventa/planventa/pkg/eventbus"
)

// TenantService manages the global tenant registry. The tenants table is not
// tenant-scoped, so calls work against whatever transaction or pool the
// context carries.
type TenantService struct {
	repo      tenant.Repository
	publisher eventbus.EventBus
}

func NewTenantService(repo tenant.Repository, publisher eventbus.EventBus) *TenantService {
	return &TenantService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TenantService) GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return s.repo.GetByDomain(ctx, domain)
}

func (s *TenantService) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.repo.List(ctx)
}

func (s *TenantService) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(&tenant.CreatedEvent{Result: created})
	return created, nil
}

func (s *TenantService) Update(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	updated, err := s.repo.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(&tenant.UpdatedEvent{Result: updated})
	return updated, nil
}

func (s *TenantService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publisher.Publish(&tenant.DeletedEvent{ID: id})
	return nil
}
