package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/planventa/planventa/modules/planning/domain/entities/activity"
	"github.com/planventa/planventa/modules/planning/domain/entities/area"
	"github.com/planventa/planventa/modules/planning/domain/entities/initiative"
	"github.com/planventa/planventa/modules/planning/domain/entities/objective"
	"github.com/planventa/planventa/modules/planning/domain/entities/userprofile"
	"github.com/planventa/planventa/modules/planning/presentation/mappers"
	"github.com/planventa/planventa/modules/planning/presentation/viewmodels"
	"github.com/planventa/planventa/modules/planning/services"
	"github.com/planventa/planventa/pkg/application"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/configuration"
)

// PlanningAPIController serves the dashboard read API: tenant-scoped,
// paginated listings for every planning entity.
type PlanningAPIController struct {
	app      application.Application
	queries  *services.PlanningQueryService
	basePath string
}

func NewPlanningAPIController(app application.Application) application.Controller {
	return &PlanningAPIController{
		app:      app,
		queries:  app.Service(services.PlanningQueryService{}).(*services.PlanningQueryService),
		basePath: "/planning",
	}
}

func (c *PlanningAPIController) Key() string {
	return c.basePath
}

func (c *PlanningAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/users", c.Users).Methods(http.MethodGet)
	router.HandleFunc("/areas", c.Areas).Methods(http.MethodGet)
	router.HandleFunc("/objectives", c.Objectives).Methods(http.MethodGet)
	router.HandleFunc("/initiatives", c.Initiatives).Methods(http.MethodGet)
	router.HandleFunc("/activities", c.Activities).Methods(http.MethodGet)
}

type listQuery struct {
	Limit        int    `form:"limit"`
	Offset       int    `form:"offset"`
	Q            string `form:"q"`
	InitiativeID string `form:"initiative_id"`
}

type listResponse struct {
	Data  any   `json:"data"`
	Total int64 `json:"total"`
}

func decodeListQuery(r *http.Request) (listQuery, bool) {
	q, err := composables.UseQuery(&listQuery{}, r)
	if err != nil {
		return listQuery{}, false
	}
	conf := configuration.Use()
	if q.Limit <= 0 {
		q.Limit = conf.PageSize
	}
	if q.Limit > conf.MaxPageSize {
		q.Limit = conf.MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return *q, true
}

func (c *PlanningAPIController) Users(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeListQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters", nil)
		return
	}
	items, total, err := c.queries.FindUsers(r.Context(), &userprofile.FindParams{
		Q:      q.Q,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal error", nil)
		return
	}
	out := make([]viewmodels.UserProfile, 0, len(items))
	for _, u := range items {
		out = append(out, mappers.UserProfileToViewModel(u))
	}
	writeJSON(w, http.StatusOK, listResponse{Data: out, Total: total})
}

func (c *PlanningAPIController) Areas(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeListQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters", nil)
		return
	}
	items, total, err := c.queries.FindAreas(r.Context(), &area.FindParams{
		Q:      q.Q,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal error", nil)
		return
	}
	out := make([]viewmodels.Area, 0, len(items))
	for _, a := range items {
		out = append(out, mappers.AreaToViewModel(a))
	}
	writeJSON(w, http.StatusOK, listResponse{Data: out, Total: total})
}

func (c *PlanningAPIController) Objectives(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeListQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters", nil)
		return
	}
	items, total, err := c.queries.FindObjectives(r.Context(), &objective.FindParams{
		Q:      q.Q,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal error", nil)
		return
	}
	out := make([]viewmodels.Objective, 0, len(items))
	for _, o := range items {
		out = append(out, mappers.ObjectiveToViewModel(o))
	}
	writeJSON(w, http.StatusOK, listResponse{Data: out, Total: total})
}

func (c *PlanningAPIController) Initiatives(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeListQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters", nil)
		return
	}
	items, total, err := c.queries.FindInitiatives(r.Context(), &initiative.FindParams{
		Q:      q.Q,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal error", nil)
		return
	}
	out := make([]viewmodels.Initiative, 0, len(items))
	for _, i := range items {
		out = append(out, mappers.InitiativeToViewModel(i))
	}
	writeJSON(w, http.StatusOK, listResponse{Data: out, Total: total})
}

func (c *PlanningAPIController) Activities(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeListQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters", nil)
		return
	}
	params := &activity.FindParams{
		Q:      q.Q,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.InitiativeID != "" {
		id, err := uuid.Parse(q.InitiativeID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "invalid initiative_id", map[string]string{"value": q.InitiativeID})
			return
		}
		params.InitiativeID = id
	}
	items, total, err := c.queries.FindActivities(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal error", nil)
		return
	}
	out := make([]viewmodels.Activity, 0, len(items))
	for _, a := range items {
		out = append(out, mappers.ActivityToViewModel(a))
	}
	writeJSON(w, http.StatusOK, listResponse{Data: out, Total: total})
}
