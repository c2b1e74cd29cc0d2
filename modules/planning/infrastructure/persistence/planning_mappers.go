package persistence

import (
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/domain/entities/activity"
	"github.com/planventa/planventa/modules/planning/domain/entities/area"
	"github.com/planventa/planventa/modules/planning/domain/entities/importjob"
	"github.com/planventa/planventa/modules/planning/domain/entities/initiative"
	"github.com/planventa/planventa/modules/planning/domain/entities/objective"
	"github.com/planventa/planventa/modules/planning/domain/entities/planlink"
	"github.com/planventa/planventa/modules/planning/domain/entities/userprofile"
	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence/models"
	"github.com/planventa/planventa/pkg/mapping"
)

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func sqlNullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func ToDomainUserProfile(m *models.UserProfile) userprofile.UserProfile {
	return userprofile.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		m.Email,
		m.FullName,
		userprofile.Role(m.Role),
		m.Department.String,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func ToDBUserProfile(u userprofile.UserProfile) *models.UserProfile {
	return &models.UserProfile{
		ID:         u.ID().String(),
		TenantID:   u.TenantID().String(),
		Email:      u.Email(),
		FullName:   u.FullName(),
		Role:       string(u.Role()),
		Department: mapping.ValueToSQLNullString(u.Department()),
		CreatedAt:  u.CreatedAt(),
		UpdatedAt:  u.UpdatedAt(),
	}
}

func ToDomainArea(m *models.Area) area.Area {
	return area.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		m.Title,
		m.Description.String,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func ToDBArea(a area.Area) *models.Area {
	return &models.Area{
		ID:          a.ID().String(),
		TenantID:    a.TenantID().String(),
		Title:       a.Title(),
		Description: mapping.ValueToSQLNullString(a.Description()),
		CreatedAt:   a.CreatedAt(),
		UpdatedAt:   a.UpdatedAt(),
	}
}

func ToDomainObjective(m *models.Objective) objective.Objective {
	return objective.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		m.Title,
		m.Description.String,
		mapping.SQLNullStringToUUID(m.AreaID),
		mapping.SQLNullStringToUUID(m.OwnerID),
		objective.Status(m.Status),
		m.Progress,
		m.StartDate.Time,
		m.TargetDate.Time,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func ToDBObjective(o objective.Objective) *models.Objective {
	return &models.Objective{
		ID:          o.ID().String(),
		TenantID:    o.TenantID().String(),
		Title:       o.Title(),
		Description: mapping.ValueToSQLNullString(o.Description()),
		AreaID:      mapping.UUIDToSQLNullString(o.AreaID()),
		OwnerID:     mapping.UUIDToSQLNullString(o.OwnerID()),
		Status:      string(o.Status()),
		Progress:    o.Progress(),
		StartDate:   mapping.ValueToSQLNullTime(o.StartDate()),
		TargetDate:  mapping.ValueToSQLNullTime(o.TargetDate()),
		CreatedAt:   o.CreatedAt(),
		UpdatedAt:   o.UpdatedAt(),
	}
}

func ToDomainInitiative(m *models.Initiative) initiative.Initiative {
	return initiative.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		m.Title,
		m.Description.String,
		mapping.SQLNullStringToUUID(m.AreaID),
		mapping.SQLNullStringToUUID(m.OwnerID),
		initiative.Status(m.Status),
		initiative.Priority(m.Priority),
		m.Progress,
		m.TargetDate.Time,
		m.Budget,
		m.ActualCost,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func ToDBInitiative(i initiative.Initiative) *models.Initiative {
	return &models.Initiative{
		ID:          i.ID().String(),
		TenantID:    i.TenantID().String(),
		Title:       i.Title(),
		Description: mapping.ValueToSQLNullString(i.Description()),
		AreaID:      mapping.UUIDToSQLNullString(i.AreaID()),
		OwnerID:     mapping.UUIDToSQLNullString(i.OwnerID()),
		Status:      string(i.Status()),
		Priority:    string(i.Priority()),
		Progress:    i.Progress(),
		TargetDate:  mapping.ValueToSQLNullTime(i.TargetDate()),
		Budget:      i.Budget(),
		ActualCost:  i.ActualCost(),
		CreatedAt:   i.CreatedAt(),
		UpdatedAt:   i.UpdatedAt(),
	}
}

func ToDomainActivity(m *models.Activity) activity.Activity {
	return activity.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		parseUUID(m.InitiativeID),
		m.Title,
		m.Description.String,
		mapping.SQLNullStringToUUID(m.AssignedTo),
		activity.Status(m.Status),
		activity.Priority(m.Priority),
		m.Progress,
		m.DueDate.Time,
		m.IsCompleted,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func ToDBActivity(a activity.Activity) *models.Activity {
	return &models.Activity{
		ID:           a.ID().String(),
		TenantID:     a.TenantID().String(),
		InitiativeID: a.InitiativeID().String(),
		Title:        a.Title(),
		Description:  mapping.ValueToSQLNullString(a.Description()),
		AssignedTo:   mapping.UUIDToSQLNullString(a.AssignedTo()),
		Status:       string(a.Status()),
		Priority:     string(a.Priority()),
		Progress:     a.Progress(),
		DueDate:      mapping.ValueToSQLNullTime(a.DueDate()),
		IsCompleted:  a.IsCompleted(),
		CreatedAt:    a.CreatedAt(),
		UpdatedAt:    a.UpdatedAt(),
	}
}

func ToDomainLink(m *models.ObjectiveInitiativeLink) planlink.Link {
	return planlink.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		parseUUID(m.ObjectiveID),
		parseUUID(m.InitiativeID),
		m.CreatedAt,
	)
}

func ToDBLink(l planlink.Link) *models.ObjectiveInitiativeLink {
	return &models.ObjectiveInitiativeLink{
		ID:           l.ID().String(),
		TenantID:     l.TenantID().String(),
		ObjectiveID:  l.ObjectiveID().String(),
		InitiativeID: l.InitiativeID().String(),
		CreatedAt:    l.CreatedAt(),
	}
}

func ToDomainImportJob(m *models.ImportJob) (*importjob.Job, error) {
	params := map[string]string(nil)
	if len(m.ErrorParams) > 0 {
		if err := json.Unmarshal(m.ErrorParams, &params); err != nil {
			return nil, err
		}
	}
	fileWarnings := []importing.FieldOutcome(nil)
	if len(m.FileWarnings) > 0 {
		if err := json.Unmarshal(m.FileWarnings, &fileWarnings); err != nil {
			return nil, err
		}
	}
	return importjob.New(
		parseUUID(m.TenantID),
		importing.EntityType(m.EntityType),
		importjob.WithID(parseUUID(m.ID)),
		importjob.WithStatus(importjob.Status(m.Status)),
		importjob.WithUpdateExisting(m.UpdateExisting),
		importjob.WithTotalRows(m.TotalRows),
		importjob.WithCounters(m.ProcessedRows, m.SuccessRows, m.ErrorRows, m.SkippedRows, m.WarningRows),
		importjob.WithFileKey(m.FileKey.String),
		importjob.WithFileName(m.FileName.String),
		importjob.WithFailure(m.ErrorCode.String, params),
		importjob.WithFileWarnings(fileWarnings),
		importjob.WithCreatedBy(mapping.SQLNullStringToUUID(m.CreatedBy)),
		importjob.WithCancelRequested(m.CancelRequested),
		importjob.WithLease(m.LockedAt.Time, m.LockedBy.String),
		importjob.WithAttempts(m.Attempts),
		importjob.WithTimestamps(m.CreatedAt, m.StartedAt.Time, m.CompletedAt.Time),
		importjob.WithProcessingTime(m.ProcessingTimeMS.Int64),
	), nil
}

func ToDBImportJob(j *importjob.Job) (*models.ImportJob, error) {
	params := []byte(nil)
	if len(j.ErrorParams()) > 0 {
		encoded, err := json.Marshal(j.ErrorParams())
		if err != nil {
			return nil, err
		}
		params = encoded
	}
	fileWarnings := []byte(nil)
	if len(j.FileWarnings()) > 0 {
		encoded, err := json.Marshal(j.FileWarnings())
		if err != nil {
			return nil, err
		}
		fileWarnings = encoded
	}
	return &models.ImportJob{
		ID:               j.ID().String(),
		TenantID:         j.TenantID().String(),
		EntityType:       string(j.EntityType()),
		Status:           string(j.Status()),
		UpdateExisting:   j.UpdateExisting(),
		TotalRows:        j.TotalRows(),
		ProcessedRows:    j.ProcessedRows(),
		SuccessRows:      j.SuccessRows(),
		ErrorRows:        j.ErrorRows(),
		SkippedRows:      j.SkippedRows(),
		WarningRows:      j.WarningRows(),
		FileKey:          mapping.ValueToSQLNullString(j.FileKey()),
		FileName:         mapping.ValueToSQLNullString(j.FileName()),
		ErrorCode:        mapping.ValueToSQLNullString(j.ErrorCode()),
		ErrorParams:      params,
		FileWarnings:     fileWarnings,
		CreatedBy:        mapping.UUIDToSQLNullString(j.CreatedBy()),
		CancelRequested:  j.CancelRequested(),
		LockedAt:         mapping.ValueToSQLNullTime(j.LockedAt()),
		LockedBy:         mapping.ValueToSQLNullString(j.LockedBy()),
		Attempts:         j.Attempts(),
		CreatedAt:        j.CreatedAt(),
		StartedAt:        mapping.ValueToSQLNullTime(j.StartedAt()),
		CompletedAt:      mapping.ValueToSQLNullTime(j.CompletedAt()),
		ProcessingTimeMS: sqlNullInt64(j.ProcessingTimeMS()),
	}, nil
}

func ToDomainImportJobItem(m *models.ImportJobItem) (importjob.Item, error) {
	params := map[string]string(nil)
	if len(m.ErrorParams) > 0 {
		if err := json.Unmarshal(m.ErrorParams, &params); err != nil {
			return importjob.Item{}, err
		}
	}
	outcomes := []importing.FieldOutcome(nil)
	if len(m.Outcomes) > 0 {
		if err := json.Unmarshal(m.Outcomes, &outcomes); err != nil {
			return importjob.Item{}, err
		}
	}
	return importjob.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.JobID),
		m.RowNumber,
		importjob.ItemStatus(m.Status),
		m.ErrorCode.String,
		params,
		outcomes,
		mapping.SQLNullStringToUUID(m.CreatedEntityID),
		m.CreatedAt,
	), nil
}

func ToDBImportJobItem(item importjob.Item) (*models.ImportJobItem, error) {
	params := []byte(nil)
	if len(item.ErrorParams()) > 0 {
		encoded, err := json.Marshal(item.ErrorParams())
		if err != nil {
			return nil, err
		}
		params = encoded
	}
	outcomes := []byte(nil)
	if len(item.Outcomes()) > 0 {
		encoded, err := json.Marshal(item.Outcomes())
		if err != nil {
			return nil, err
		}
		outcomes = encoded
	}
	return &models.ImportJobItem{
		ID:              item.ID().String(),
		JobID:           item.JobID().String(),
		RowNumber:       item.RowNumber(),
		Status:          string(item.Status()),
		ErrorCode:       mapping.ValueToSQLNullString(item.ErrorCode()),
		ErrorParams:     params,
		Outcomes:        outcomes,
		CreatedEntityID: mapping.UUIDToSQLNullString(item.CreatedEntityID()),
		CreatedAt:       item.CreatedAt(),
	}, nil
}
