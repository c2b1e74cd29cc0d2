package application

import (
	"context"
	"embed"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planventa/planventa/pkg/eventbus"
)

// Controller mounts a routable surface on the server router. Key must be
// unique per controller and is conventionally its base path.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module is a self-contained feature set that registers its schema,
// services and controllers on the application.
type Module interface {
	Name() string
	Register(app Application) error
}

type SeedFunc func(ctx context.Context, app Application) error

type Seeder interface {
	Register(seedFuncs ...SeedFunc)
	Seed(ctx context.Context, app Application) error
}

// MigrationManager collects embedded schema files from modules and applies
// them to the database.
type MigrationManager interface {
	RegisterSchema(fs *embed.FS)
	Run() error
}

type Application interface {
	DB() *pgxpool.Pool
	EventPublisher() eventbus.EventBus
	Migrations() MigrationManager
	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
	Services() map[reflect.Type]interface{}
}
