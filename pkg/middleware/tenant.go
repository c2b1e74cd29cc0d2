package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/httpapi"
)

const (
	TenantHeader = "X-Tenant-ID"
	ActorHeader  = "X-Actor-ID"
)

// Sentinels a TenantCheck maps service errors onto so the middleware can
// pick the right status code.
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantInactive = errors.New("tenant inactive")
)

// TenantCheck verifies that the tenant may serve requests.
type TenantCheck func(ctx context.Context, id uuid.UUID) error

// WithTenantHeader resolves the tenant and actor headers into the request
// context. Requests without a valid, active tenant are rejected before they
// reach handlers.
func WithTenantHeader(check TenantCheck) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(TenantHeader)
			if raw == "" {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_REQUIRED", "missing "+TenantHeader+" header", nil)
				return
			}
			tenantID, err := uuid.Parse(raw)
			if err != nil || tenantID == uuid.Nil {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_INVALID", "invalid "+TenantHeader+" header", map[string]string{"value": raw})
				return
			}

			if check != nil {
				switch err := check(r.Context(), tenantID); {
				case err == nil:
				case errors.Is(err, ErrTenantNotFound):
					_ = httpapi.WriteError(w, http.StatusNotFound, "TENANT_NOT_FOUND", "tenant not found", nil)
					return
				case errors.Is(err, ErrTenantInactive):
					_ = httpapi.WriteError(w, http.StatusForbidden, "TENANT_INACTIVE", "tenant is not active", nil)
					return
				default:
					_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to resolve tenant", nil)
					return
				}
			}

			ctx := composables.WithTenantID(r.Context(), tenantID)

			if rawActor := r.Header.Get(ActorHeader); rawActor != "" {
				actorID, err := uuid.Parse(rawActor)
				if err != nil {
					_ = httpapi.WriteError(w, http.StatusBadRequest, "ACTOR_INVALID", "invalid "+ActorHeader+" header", map[string]string{"value": rawActor})
					return
				}
				ctx = composables.WithActorID(ctx, actorID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
