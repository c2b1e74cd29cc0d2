package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/planventa/planventa/modules/planning/domain/entities/activity"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence/models"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/repo"
)

var (
	ErrActivityNotFound = fmt.Errorf("activity not found")
)

const (
	activityFindQuery = `
		SELECT id, tenant_id, initiative_id, title, description, assigned_to, status, priority,
			progress, due_date, is_completed, created_at, updated_at
		FROM activities`
)

type ActivityRepository struct{}

func NewActivityRepository() activity.Repository {
	return &ActivityRepository{}
}

func (r *ActivityRepository) GetByID(ctx context.Context, id uuid.UUID) (activity.Activity, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return activity.Activity{}, err
	}

	activities, err := r.queryActivities(
		ctx,
		activityFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return activity.Activity{}, err
	}

	if len(activities) == 0 {
		return activity.Activity{}, ErrActivityNotFound
	}

	return activities[0], nil
}

func (r *ActivityRepository) GetByTitle(ctx context.Context, title string) (activity.Activity, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return activity.Activity{}, err
	}

	activities, err := r.queryActivities(
		ctx,
		activityFindQuery+" WHERE tenant_id = $1 AND lower(title) = lower($2)",
		tenantID.String(),
		strings.TrimSpace(title),
	)
	if err != nil {
		return activity.Activity{}, err
	}

	if len(activities) == 0 {
		return activity.Activity{}, ErrActivityNotFound
	}

	return activities[0], nil
}

func (r *ActivityRepository) GetPaginated(ctx context.Context, params *activity.FindParams) ([]activity.Activity, int64, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildActivityFilters(params, tenantID)
	query := activityFindQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	activities, err := r.queryActivities(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get transaction")
	}

	var total int64
	if err := tx.QueryRow(
		ctx,
		"SELECT COUNT(*) FROM activities WHERE "+strings.Join(where, " AND "),
		args...,
	).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count activities")
	}

	return activities, total, nil
}

func (r *ActivityRepository) Create(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	query := `
		INSERT INTO activities (id, tenant_id, initiative_id, title, description, assigned_to, status,
			priority, progress, due_date, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return activity.Activity{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return activity.Activity{}, err
	}

	dbRow := ToDBActivity(a)
	dbRow.TenantID = tenantID.String()
	stampTimestamps(&dbRow.CreatedAt, &dbRow.UpdatedAt)

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.ID,
		dbRow.TenantID,
		dbRow.InitiativeID,
		dbRow.Title,
		dbRow.Description,
		dbRow.AssignedTo,
		dbRow.Status,
		dbRow.Priority,
		dbRow.Progress,
		dbRow.DueDate,
		dbRow.IsCompleted,
		dbRow.CreatedAt,
		dbRow.UpdatedAt,
	).Scan(&idStr); err != nil {
		return activity.Activity{}, errors.Wrap(err, "failed to insert activity")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return activity.Activity{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *ActivityRepository) Update(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	query := `
		UPDATE activities
		SET initiative_id = $1, title = $2, description = $3, assigned_to = $4, status = $5,
			priority = $6, progress = $7, due_date = $8, is_completed = $9, updated_at = $10
		WHERE tenant_id = $11 AND id = $12
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return activity.Activity{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return activity.Activity{}, err
	}

	dbRow := ToDBActivity(a)

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.InitiativeID,
		dbRow.Title,
		dbRow.Description,
		dbRow.AssignedTo,
		dbRow.Status,
		dbRow.Priority,
		dbRow.Progress,
		dbRow.DueDate,
		dbRow.IsCompleted,
		time.Now(),
		tenantID.String(),
		dbRow.ID,
	).Scan(&idStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return activity.Activity{}, ErrActivityNotFound
		}
		return activity.Activity{}, errors.Wrap(err, "failed to update activity")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return activity.Activity{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *ActivityRepository) queryActivities(ctx context.Context, query string, args ...interface{}) ([]activity.Activity, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var activities []activity.Activity
	for rows.Next() {
		var m models.Activity
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.InitiativeID,
			&m.Title,
			&m.Description,
			&m.AssignedTo,
			&m.Status,
			&m.Priority,
			&m.Progress,
			&m.DueDate,
			&m.IsCompleted,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan activity row")
		}
		activities = append(activities, ToDomainActivity(&m))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return activities, nil
}

func buildActivityFilters(params *activity.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID.String()}
	if params == nil {
		return where, args
	}

	if params.InitiativeID != uuid.Nil {
		where = append(where, fmt.Sprintf("initiative_id = $%d", len(args)+1))
		args = append(args, params.InitiativeID.String())
	}
	if q := strings.TrimSpace(params.Q); q != "" {
		pos := len(args) + 1
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", pos, pos))
		args = append(args, "%"+q+"%")
	}
	return where, args
}
