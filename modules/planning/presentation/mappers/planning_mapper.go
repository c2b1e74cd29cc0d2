package mappers

import (
	"time"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/domain/entities/activity"
	"github.com/planventa/planventa/modules/planning/domain/entities/area"
	"github.com/planventa/planventa/modules/planning/domain/entities/initiative"
	"github.com/planventa/planventa/modules/planning/domain/entities/objective"
	"github.com/planventa/planventa/modules/planning/domain/entities/userprofile"
	"github.com/planventa/planventa/modules/planning/presentation/viewmodels"
)

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func uuidOrEmpty(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func UserProfileToViewModel(u userprofile.UserProfile) viewmodels.UserProfile {
	return viewmodels.UserProfile{
		ID:         u.ID().String(),
		Email:      u.Email(),
		FullName:   u.FullName(),
		Role:       string(u.Role()),
		Department: u.Department(),
		CreatedAt:  formatTime(u.CreatedAt()),
		UpdatedAt:  formatTime(u.UpdatedAt()),
	}
}

func AreaToViewModel(a area.Area) viewmodels.Area {
	return viewmodels.Area{
		ID:          a.ID().String(),
		Title:       a.Title(),
		Description: a.Description(),
		CreatedAt:   formatTime(a.CreatedAt()),
		UpdatedAt:   formatTime(a.UpdatedAt()),
	}
}

func ObjectiveToViewModel(o objective.Objective) viewmodels.Objective {
	return viewmodels.Objective{
		ID:          o.ID().String(),
		Title:       o.Title(),
		Description: o.Description(),
		AreaID:      uuidOrEmpty(o.AreaID()),
		OwnerID:     uuidOrEmpty(o.OwnerID()),
		Status:      string(o.Status()),
		Progress:    o.Progress(),
		StartDate:   formatDate(o.StartDate()),
		TargetDate:  formatDate(o.TargetDate()),
		CreatedAt:   formatTime(o.CreatedAt()),
		UpdatedAt:   formatTime(o.UpdatedAt()),
	}
}

func InitiativeToViewModel(i initiative.Initiative) viewmodels.Initiative {
	vm := viewmodels.Initiative{
		ID:          i.ID().String(),
		Title:       i.Title(),
		Description: i.Description(),
		AreaID:      uuidOrEmpty(i.AreaID()),
		OwnerID:     uuidOrEmpty(i.OwnerID()),
		Status:      string(i.Status()),
		Priority:    string(i.Priority()),
		Progress:    i.Progress(),
		TargetDate:  formatDate(i.TargetDate()),
		CreatedAt:   formatTime(i.CreatedAt()),
		UpdatedAt:   formatTime(i.UpdatedAt()),
	}
	if i.Budget().Valid {
		vm.Budget = i.Budget().Decimal.String()
	}
	if i.ActualCost().Valid {
		vm.ActualCost = i.ActualCost().Decimal.String()
	}
	return vm
}

func ActivityToViewModel(a activity.Activity) viewmodels.Activity {
	return viewmodels.Activity{
		ID:           a.ID().String(),
		InitiativeID: a.InitiativeID().String(),
		Title:        a.Title(),
		Description:  a.Description(),
		AssignedTo:   uuidOrEmpty(a.AssignedTo()),
		Status:       string(a.Status()),
		Priority:     string(a.Priority()),
		Progress:     a.Progress(),
		DueDate:      formatDate(a.DueDate()),
		IsCompleted:  a.IsCompleted(),
		CreatedAt:    formatTime(a.CreatedAt()),
		UpdatedAt:    formatTime(a.UpdatedAt()),
	}
}
