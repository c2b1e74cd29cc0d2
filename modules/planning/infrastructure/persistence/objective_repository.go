package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/planventa/planventa/modules/planning/domain/entities/objective"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence/models"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/repo"
)

var (
	ErrObjectiveNotFound = fmt.Errorf("objective not found")
)

const (
	objectiveFindQuery = `
		SELECT id, tenant_id, title, description, area_id, owner_id, status, progress,
			start_date, target_date, created_at, updated_at
		FROM objectives`
)

type ObjectiveRepository struct{}

func NewObjectiveRepository() objective.Repository {
	return &ObjectiveRepository{}
}

func (r *ObjectiveRepository) GetByID(ctx context.Context, id uuid.UUID) (objective.Objective, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return objective.Objective{}, err
	}

	objectives, err := r.queryObjectives(
		ctx,
		objectiveFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return objective.Objective{}, err
	}

	if len(objectives) == 0 {
		return objective.Objective{}, ErrObjectiveNotFound
	}

	return objectives[0], nil
}

func (r *ObjectiveRepository) GetByTitle(ctx context.Context, title string) (objective.Objective, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return objective.Objective{}, err
	}

	objectives, err := r.queryObjectives(
		ctx,
		objectiveFindQuery+" WHERE tenant_id = $1 AND lower(title) = lower($2)",
		tenantID.String(),
		strings.TrimSpace(title),
	)
	if err != nil {
		return objective.Objective{}, err
	}

	if len(objectives) == 0 {
		return objective.Objective{}, ErrObjectiveNotFound
	}

	return objectives[0], nil
}

func (r *ObjectiveRepository) GetPaginated(ctx context.Context, params *objective.FindParams) ([]objective.Objective, int64, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildObjectiveFilters(params, tenantID)
	query := objectiveFindQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	objectives, err := r.queryObjectives(ctx, query, args...)
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
		"SELECT COUNT(*) FROM objectives WHERE "+strings.Join(where, " AND "),
		args...,
	).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count objectives")
	}

	return objectives, total, nil
}

func (r *ObjectiveRepository) Create(ctx context.Context, o objective.Objective) (objective.Objective, error) {
	query := `
		INSERT INTO objectives (id, tenant_id, title, description, area_id, owner_id, status, progress,
			start_date, target_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return objective.Objective{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return objective.Objective{}, err
	}

	dbRow := ToDBObjective(o)
	dbRow.TenantID = tenantID.String()
	stampTimestamps(&dbRow.CreatedAt, &dbRow.UpdatedAt)

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.ID,
		dbRow.TenantID,
		dbRow.Title,
		dbRow.Description,
		dbRow.AreaID,
		dbRow.OwnerID,
		dbRow.Status,
		dbRow.Progress,
		dbRow.StartDate,
		dbRow.TargetDate,
		dbRow.CreatedAt,
		dbRow.UpdatedAt,
	).Scan(&idStr); err != nil {
		return objective.Objective{}, errors.Wrap(err, "failed to insert objective")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return objective.Objective{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *ObjectiveRepository) Update(ctx context.Context, o objective.Objective) (objective.Objective, error) {
	query := `
		UPDATE objectives
		SET title = $1, description = $2, area_id = $3, owner_id = $4, status = $5, progress = $6,
			start_date = $7, target_date = $8, updated_at = $9
		WHERE tenant_id = $10 AND id = $11
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return objective.Objective{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return objective.Objective{}, err
	}

	dbRow := ToDBObjective(o)

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.Title,
		dbRow.Description,
		dbRow.AreaID,
		dbRow.OwnerID,
		dbRow.Status,
		dbRow.Progress,
		dbRow.StartDate,
		dbRow.TargetDate,
		time.Now(),
		tenantID.String(),
		dbRow.ID,
	).Scan(&idStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return objective.Objective{}, ErrObjectiveNotFound
		}
		return objective.Objective{}, errors.Wrap(err, "failed to update objective")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return objective.Objective{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *ObjectiveRepository) queryObjectives(ctx context.Context, query string, args ...interface{}) ([]objective.Objective, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var objectives []objective.Objective
	for rows.Next() {
		var m models.Objective
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.Title,
			&m.Description,
			&m.AreaID,
			&m.OwnerID,
			&m.Status,
			&m.Progress,
			&m.StartDate,
			&m.TargetDate,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan objective row")
		}
		objectives = append(objectives, ToDomainObjective(&m))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return objectives, nil
}

func buildObjectiveFilters(params *objective.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID.String()}
	if params == nil {
		return where, args
	}

	if q := strings.TrimSpace(params.Q); q != "" {
		pos := len(args) + 1
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", pos, pos))
		args = append(args, "%"+q+"%")
	}
	return where, args
}
