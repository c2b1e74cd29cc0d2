package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/domain/entities/activity"
	"github.com/planventa/planventa/modules/planning/domain/entities/area"
	"github.com/planventa/planventa/modules/planning/domain/entities/initiative"
	"github.com/planventa/planventa/modules/planning/domain/entities/objective"
	"github.com/planventa/planventa/modules/planning/domain/entities/userprofile"
)

// PlanningQueryService serves the read side of the dashboard: paginated,
// searchable listings per entity type. All queries are tenant-scoped by the
// repositories.
type PlanningQueryService struct {
	users       userprofile.Repository
	areas       area.Repository
	objectives  objective.Repository
	initiatives initiative.Repository
	activities  activity.Repository
}

func NewPlanningQueryService(
	users userprofile.Repository,
	areas area.Repository,
	objectives objective.Repository,
	initiatives initiative.Repository,
	activities activity.Repository,
) *PlanningQueryService {
	return &PlanningQueryService{
		users:       users,
		areas:       areas,
		objectives:  objectives,
		initiatives: initiatives,
		activities:  activities,
	}
}

func (s *PlanningQueryService) FindUsers(ctx context.Context, params *userprofile.FindParams) ([]userprofile.UserProfile, int64, error) {
	return s.users.GetPaginated(ctx, params)
}

func (s *PlanningQueryService) FindUserByID(ctx context.Context, id uuid.UUID) (userprofile.UserProfile, error) {
	return s.users.GetByID(ctx, id)
}

func (s *PlanningQueryService) FindAreas(ctx context.Context, params *area.FindParams) ([]area.Area, int64, error) {
	return s.areas.GetPaginated(ctx, params)
}

func (s *PlanningQueryService) FindAreaByID(ctx context.Context, id uuid.UUID) (area.Area, error) {
	return s.areas.GetByID(ctx, id)
}

func (s *PlanningQueryService) FindObjectives(ctx context.Context, params *objective.FindParams) ([]objective.Objective, int64, error) {
	return s.objectives.GetPaginated(ctx, params)
}

func (s *PlanningQueryService) FindObjectiveByID(ctx context.Context, id uuid.UUID) (objective.Objective, error) {
	return s.objectives.GetByID(ctx, id)
}

func (s *PlanningQueryService) FindInitiatives(ctx context.Context, params *initiative.FindParams) ([]initiative.Initiative, int64, error) {
	return s.initiatives.GetPaginated(ctx, params)
}

func (s *PlanningQueryService) FindInitiativeByID(ctx context.Context, id uuid.UUID) (initiative.Initiative, error) {
	return s.initiatives.GetByID(ctx, id)
}

func (s *PlanningQueryService) FindActivities(ctx context.Context, params *activity.FindParams) ([]activity.Activity, int64, error) {
	return s.activities.GetPaginated(ctx, params)
}

func (s *PlanningQueryService) FindActivityByID(ctx context.Context, id uuid.UUID) (activity.Activity, error) {
	return s.activities.GetByID(ctx, id)
}
