package persistence

import (
	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/core/domain/entities/tenant"
	"github.com/planventa/planventa/modules/core/infrastructure/persistence/models"
	"github.com/planventa/planventa/pkg/mapping"
)

func ToDomainTenant(dbTenant *models.Tenant) *tenant.Tenant {
	id, err := uuid.Parse(dbTenant.ID)
	if err != nil {
		id = uuid.Nil
	}
	return tenant.New(
		dbTenant.Name,
		tenant.WithID(id),
		tenant.WithDomain(dbTenant.Domain.String),
		tenant.WithIsActive(dbTenant.IsActive),
		tenant.WithCreatedAt(dbTenant.CreatedAt),
		tenant.WithUpdatedAt(dbTenant.UpdatedAt),
	)
}

func ToDBTenant(t *tenant.Tenant) *models.Tenant {
	return &models.Tenant{
		ID:        t.ID().String(),
		Name:      t.Name(),
		Domain:    mapping.ValueToSQLNullString(t.Domain()),
		IsActive:  t.IsActive(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}
