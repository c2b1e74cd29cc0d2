package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/planventa/planventa/modules/core/infrastructure/persistence"
	"github.com/planventa/planventa/modules/core/services"
	"github.com/planventa/planventa/pkg/application"
	"github.com/planventa/planventa/pkg/configuration"
	"github.com/planventa/planventa/pkg/constants"
	"github.com/planventa/planventa/pkg/httpapi"
	"github.com/planventa/planventa/pkg/metrics"
	"github.com/planventa/planventa/pkg/middleware"
	"github.com/planventa/planventa/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default assembles the HTTP server: the shared middleware stack, every
// registered controller and the operational endpoints. Tenancy is resolved
// from headers for all routes except health and metrics.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.DefaultLoggerOptions()),

		middleware.TracedMiddleware("database"),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.Origin),
	}

	if conf.RateLimit.Enabled && conf.RateLimit.GlobalRPS > 0 {
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
			}),
		)
	}

	openPaths := []string{"/health"}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
		openPaths = append(openPaths, conf.Prometheus.Path)
	}

	middlewares = append(middlewares,
		middleware.TracedMiddleware("requestParams"),
		middleware.RequestParams(),
		middleware.TracedMiddleware("tenant"),
		skipPaths(middleware.WithTenantHeader(tenantCheck(app)), openPaths...),
	)

	// The import pipeline manages its own transactions; everything else gets
	// a request transaction with tenant RLS applied.
	txSkip := append([]string{"/planning/import"}, openPaths...)
	middlewares = append(middlewares,
		middleware.TracedMiddleware("transaction"),
		skipPrefixes(middleware.WithTransaction(), txSkip...),
	)

	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app, notFoundHandler(), methodNotAllowedHandler()), nil
}

// tenantCheck maps tenant registry lookups onto the middleware sentinels.
func tenantCheck(app application.Application) middleware.TenantCheck {
	tenants := app.Service(services.TenantService{}).(*services.TenantService)
	return func(ctx context.Context, id uuid.UUID) error {
		t, err := tenants.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, persistence.ErrTenantNotFound) {
				return middleware.ErrTenantNotFound
			}
			return err
		}
		if !t.IsActive() {
			return middleware.ErrTenantInactive
		}
		return nil
	}
}

func skipPaths(mw mux.MiddlewareFunc, paths ...string) mux.MiddlewareFunc {
	skip := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		skip[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		guarded := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

func skipPrefixes(mw mux.MiddlewareFunc, prefixes ...string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		guarded := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range prefixes {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", map[string]string{"path": r.URL.Path})
	})
}

func methodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
}
