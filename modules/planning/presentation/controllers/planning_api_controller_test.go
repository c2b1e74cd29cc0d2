package controllers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planventa/planventa/modules/planning/domain/entities/userprofile"
	"github.com/planventa/planventa/modules/planning/presentation/controllers"
	"github.com/planventa/planventa/modules/planning/presentation/viewmodels"
	"github.com/planventa/planventa/modules/planning/services"
	"github.com/planventa/planventa/pkg/application"
	"github.com/planventa/planventa/pkg/eventbus"
	"github.com/planventa/planventa/pkg/httpapi"
	"github.com/planventa/planventa/pkg/itf"
)

type fakeUserRepo struct {
	items  []userprofile.UserProfile
	total  int64
	params *userprofile.FindParams
}

func (f *fakeUserRepo) GetByID(context.Context, uuid.UUID) (userprofile.UserProfile, error) {
	return userprofile.UserProfile{}, fmt.Errorf("not implemented")
}

func (f *fakeUserRepo) GetByEmail(context.Context, string) (userprofile.UserProfile, error) {
	return userprofile.UserProfile{}, fmt.Errorf("not implemented")
}

func (f *fakeUserRepo) GetPaginated(_ context.Context, params *userprofile.FindParams) ([]userprofile.UserProfile, int64, error) {
	f.params = params
	return f.items, f.total, nil
}

func (f *fakeUserRepo) Create(_ context.Context, u userprofile.UserProfile) (userprofile.UserProfile, error) {
	return u, nil
}

func (f *fakeUserRepo) Update(_ context.Context, u userprofile.UserProfile) (userprofile.UserProfile, error) {
	return u, nil
}

var _ userprofile.Repository = (*fakeUserRepo)(nil)

func newPlanningAPI(t *testing.T, users userprofile.Repository) *mux.Router {
	t.Helper()
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(itf.QuietLogger()),
		Logger:   itf.QuietLogger(),
	})
	app.RegisterServices(services.NewPlanningQueryService(users, nil, nil, nil, nil))
	app.RegisterControllers(controllers.NewPlanningAPIController(app))

	router := mux.NewRouter()
	for _, c := range app.Controllers() {
		c.Register(router)
	}
	return router
}

func planningGet(t *testing.T, router *mux.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(itf.NewTestContext().WithTenant(uuid.New()).Build())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPlanningAPI_Users(t *testing.T) {
	tenantID := uuid.New()
	repo := &fakeUserRepo{
		items: []userprofile.UserProfile{
			userprofile.New(tenantID, "jane@example.com", "Jane Doe",
				userprofile.WithRole(userprofile.RoleAdmin),
				userprofile.WithDepartment("Sales"),
			),
			userprofile.New(tenantID, "bob@example.com", "Bob Stone"),
		},
		total: 7,
	}
	router := newPlanningAPI(t, repo)

	rec := planningGet(t, router, "/planning/users?q=jane&limit=500&offset=-3")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Data  []viewmodels.UserProfile `json:"data"`
		Total int64                    `json:"total"`
	}
	decodeBody(t, rec, &payload)
	require.Len(t, payload.Data, 2)
	assert.Equal(t, int64(7), payload.Total)
	assert.Equal(t, "jane@example.com", payload.Data[0].Email)
	assert.Equal(t, "Jane Doe", payload.Data[0].FullName)
	assert.Equal(t, "admin", payload.Data[0].Role)
	assert.Equal(t, "Sales", payload.Data[0].Department)

	// Oversized limits clamp to the page cap, negative offsets to zero.
	require.NotNil(t, repo.params)
	assert.Equal(t, "jane", repo.params.Q)
	assert.Equal(t, 100, repo.params.Limit)
	assert.Equal(t, 0, repo.params.Offset)
}

func TestPlanningAPI_Users_DefaultPaging(t *testing.T) {
	repo := &fakeUserRepo{}
	router := newPlanningAPI(t, repo)

	rec := planningGet(t, router, "/planning/users")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, repo.params)
	assert.Equal(t, 25, repo.params.Limit)
	assert.Equal(t, 0, repo.params.Offset)

	var payload struct {
		Data  []viewmodels.UserProfile `json:"data"`
		Total int64                    `json:"total"`
	}
	decodeBody(t, rec, &payload)
	assert.NotNil(t, payload.Data)
	assert.Empty(t, payload.Data)
}

func TestPlanningAPI_Activities_InvalidInitiativeID(t *testing.T) {
	router := newPlanningAPI(t, &fakeUserRepo{})

	rec := planningGet(t, router, "/planning/activities?initiative_id=nope")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope httpapi.ErrorEnvelope
	decodeBody(t, rec, &envelope)
	assert.Equal(t, "INVALID_QUERY", envelope.Code)
	assert.Equal(t, "nope", envelope.Meta["value"])
}
