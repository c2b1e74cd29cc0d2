package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planventa/planventa/modules/core/domain/entities/tenant"
	"github.com/planventa/planventa/modules/core/infrastructure/persistence"
	"github.com/planventa/planventa/pkg/eventbus"
	"github.com/planventa/planventa/pkg/itf"
)

type fakeTenantRepo struct {
	tenants map[uuid.UUID]*tenant.Tenant
	err     error
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: map[uuid.UUID]*tenant.Tenant{}}
}

func (f *fakeTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tenants[id]
	if !ok {
		return nil, persistence.ErrTenantNotFound
	}
	return t, nil
}

func (f *fakeTenantRepo) GetByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.tenants {
		if t.Domain() == domain {
			return t, nil
		}
	}
	return nil, persistence.ErrTenantNotFound
}

func (f *fakeTenantRepo) List(_ context.Context) ([]*tenant.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*tenant.Tenant, 0, len(f.tenants))
	for _, t := range f.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTenantRepo) Create(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tenants[t.ID()] = t
	return t, nil
}

func (f *fakeTenantRepo) Update(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.tenants[t.ID()]; !ok {
		return nil, persistence.ErrTenantNotFound
	}
	f.tenants[t.ID()] = t
	return t, nil
}

func (f *fakeTenantRepo) Delete(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	delete(f.tenants, id)
	return nil
}

var _ tenant.Repository = (*fakeTenantRepo)(nil)

func newTestTenantService() (*TenantService, *fakeTenantRepo, eventbus.EventBus) {
	repo := newFakeTenantRepo()
	bus := eventbus.NewEventPublisher(itf.QuietLogger())
	return NewTenantService(repo, bus), repo, bus
}

func TestTenantService_CreatePublishesEvent(t *testing.T) {
	svc, repo, bus := newTestTenantService()
	var events []*tenant.CreatedEvent
	bus.Subscribe(func(e *tenant.CreatedEvent) {
		events = append(events, e)
	})

	created, err := svc.Create(context.Background(), tenant.New("Acme", tenant.WithDomain("acme.localhost")))
	require.NoError(t, err)
	assert.Contains(t, repo.tenants, created.ID())
	require.Len(t, events, 1)
	assert.Equal(t, created.ID(), events[0].Result.ID())
}

func TestTenantService_CreateErrorPublishesNothing(t *testing.T) {
	svc, repo, bus := newTestTenantService()
	repo.err = context.DeadlineExceeded
	var events []*tenant.CreatedEvent
	bus.Subscribe(func(e *tenant.CreatedEvent) {
		events = append(events, e)
	})

	_, err := svc.Create(context.Background(), tenant.New("Acme"))
	require.Error(t, err)
	assert.Empty(t, events)
}

func TestTenantService_UpdatePublishesEvent(t *testing.T) {
	svc, repo, bus := newTestTenantService()
	existing := tenant.New("Acme")
	repo.tenants[existing.ID()] = existing
	var events []*tenant.UpdatedEvent
	bus.Subscribe(func(e *tenant.UpdatedEvent) {
		events = append(events, e)
	})

	existing.SetName("Acme Corp")
	updated, err := svc.Update(context.Background(), existing)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name())
	require.Len(t, events, 1)
	assert.Equal(t, existing.ID(), events[0].Result.ID())
}

func TestTenantService_DeletePublishesEvent(t *testing.T) {
	svc, repo, bus := newTestTenantService()
	existing := tenant.New("Acme")
	repo.tenants[existing.ID()] = existing
	var events []*tenant.DeletedEvent
	bus.Subscribe(func(e *tenant.DeletedEvent) {
		events = append(events, e)
	})

	require.NoError(t, svc.Delete(context.Background(), existing.ID()))
	assert.NotContains(t, repo.tenants, existing.ID())
	require.Len(t, events, 1)
	assert.Equal(t, existing.ID(), events[0].ID)
}

func TestTenantService_GetByDomain(t *testing.T) {
	svc, repo, _ := newTestTenantService()
	existing := tenant.New("Acme", tenant.WithDomain("acme.localhost"))
	repo.tenants[existing.ID()] = existing

	found, err := svc.GetByDomain(context.Background(), "acme.localhost")
	require.NoError(t, err)
	assert.Equal(t, existing.ID(), found.ID())

	_, err = svc.GetByDomain(context.Background(), "missing.localhost")
	assert.ErrorIs(t, err, persistence.ErrTenantNotFound)
}
