package seed

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/core/domain/entities/tenant"
	"github.com/planventa/planventa/modules/core/infrastructure/persistence"
	"github.com/planventa/planventa/pkg/application"
	"github.com/planventa/planventa/pkg/configuration"
)

// CreateDefaultTenant ensures the fixed development tenant exists so local
// environments can import data without provisioning.
func CreateDefaultTenant(ctx context.Context, app application.Application) error {
	conf := configuration.Use()
	logger := conf.Logger()
	tenantRepository := persistence.NewTenantRepository()
	defaultTenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	desiredDomain := "default.localhost"

	defaultTenant := tenant.New(
		"Default",
		tenant.WithID(defaultTenantID),
		tenant.WithDomain(desiredDomain),
	)

	existing, err := tenantRepository.GetByID(ctx, defaultTenantID)
	if err == nil && existing != nil {
		if conf.GoAppEnvironment != configuration.Production {
			current := strings.ToLower(strings.TrimSpace(existing.Domain()))
			if current != desiredDomain {
				existing.SetDomain(desiredDomain)
				if _, err := tenantRepository.Update(ctx, existing); err != nil {
					logger.Errorf("Failed to update default tenant domain: %v", err)
					return err
				}
				logger.Infof("Updated default tenant domain to %s", desiredDomain)
			}
		}
		logger.Infof("Default tenant already exists")
		return nil
	}

	logger.Infof("Creating default tenant")
	if _, err := tenantRepository.Create(ctx, defaultTenant); err != nil {
		logger.Errorf("Failed to create default tenant: %v", err)
		return err
	}
	return nil
}
