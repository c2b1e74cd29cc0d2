package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/planventa/planventa/internal/server"
	"github.com/planventa/planventa/modules"
	"github.com/planventa/planventa/modules/core/seed"
	"github.com/planventa/planventa/modules/planning/services"
	"github.com/planventa/planventa/pkg/application"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/configuration"
	"github.com/planventa/planventa/pkg/eventbus"
	"github.com/planventa/planventa/pkg/logging"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	// Set up OpenTelemetry if enabled
	var tracingCleanup func()
	if conf.OpenTelemetry.Enabled {
		tracingCleanup = logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if err := app.Migrations().Run(); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	if conf.GoAppEnvironment != configuration.Production {
		seeder := application.NewSeeder()
		seeder.Register(seed.CreateDefaultTenant)
		seedCtx := composables.WithPool(context.Background(), pool)
		if err := seeder.Seed(seedCtx, app); err != nil {
			log.Fatalf("failed to seed default tenant: %v", err)
		}
	}

	startImportWorkers(conf, app, logger)

	options := &server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	}
	serverInstance, err := server.Default(options)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func startImportWorkers(
	conf *configuration.Configuration,
	app application.Application,
	logger *logrus.Logger,
) {
	workerLog := logger.WithField("component", "import-workers")
	if conf.Import.Workers <= 0 {
		workerLog.Info("import workers disabled")
		return
	}
	importService := app.Service(services.ImportService{}).(*services.ImportService)
	workerPool := services.NewImportWorkerPool(conf.Import, importService, logger)
	go func() {
		if err := workerPool.Run(context.Background()); err != nil {
			workerLog.WithError(err).Error("import workers stopped")
		}
	}()
}
