package core

import (
	"embed"

	"github.com/planventa/planventa/modules/core/infrastructure/persistence"
	"github.com/planventa/planventa/modules/core/presentation/controllers"
	"github.com/planventa/planventa/modules/core/services"
	"github.com/planventa/planventa/pkg/application"
)

//go:embed infrastructure/persistence/schema/core-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&MigrationFiles)

	tenantRepo := persistence.NewTenantRepository()

	app.RegisterServices(
		services.NewTenantService(tenantRepo, app.EventPublisher()),
	)

	app.RegisterControllers(
		controllers.NewHealthController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
