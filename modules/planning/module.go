package planning

import (
	"embed"

	"github.com/planventa/planventa/modules/planning/infrastructure/persistence"
	"github.com/planventa/planventa/modules/planning/presentation/controllers"
	"github.com/planventa/planventa/modules/planning/services"
	"github.com/planventa/planventa/pkg/application"
	"github.com/planventa/planventa/pkg/configuration"
	"github.com/planventa/planventa/pkg/filestore"
)

//go:embed infrastructure/persistence/schema/planning-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&MigrationFiles)

	conf := configuration.Use()

	users := persistence.NewUserProfileRepository()
	areas := persistence.NewAreaRepository()
	objectives := persistence.NewObjectiveRepository()
	initiatives := persistence.NewInitiativeRepository()
	activities := persistence.NewActivityRepository()
	links := persistence.NewLinkRepository()
	jobs := persistence.NewImportJobRepository()

	files, err := newFileStore(conf.Storage)
	if err != nil {
		return err
	}
	templates, err := services.NewTemplateService()
	if err != nil {
		return err
	}
	store := persistence.NewImportEntityStore(users, areas, objectives, initiatives, activities, links)

	app.RegisterServices(
		services.NewImportService(conf.Import, jobs, store, files, app.EventPublisher()),
		templates,
		services.NewPlanningQueryService(users, areas, objectives, initiatives, activities),
	)

	app.RegisterControllers(
		controllers.NewImportAPIController(app),
		controllers.NewPlanningAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "planning"
}

func newFileStore(opts configuration.StorageOptions) (filestore.Store, error) {
	if opts.Endpoint == "" {
		return filestore.NewMemoryStore(), nil
	}
	return filestore.NewMinioStore(filestore.MinioConfig{
		Endpoint:  opts.Endpoint,
		Region:    opts.Region,
		AccessKey: opts.AccessKey,
		SecretKey: opts.SecretKey,
		Bucket:    opts.Bucket,
		UseSSL:    opts.UseSSL,
	})
}
