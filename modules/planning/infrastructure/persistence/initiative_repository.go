package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/planventa/planventa/modules/planning/domain/entities/initiative"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence/models"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/repo"
)

var (
	ErrInitiativeNotFound = fmt.Errorf("initiative not found")
)

const (
	initiativeFindQuery = `
		SELECT id, tenant_id, title, description, area_id, owner_id, status, priority, progress,
			target_date, budget, actual_cost, created_at, updated_at
		FROM initiatives`
)

type InitiativeRepository struct{}

func NewInitiativeRepository() initiative.Repository {
	return &InitiativeRepository{}
}

func (r *InitiativeRepository) GetByID(ctx context.Context, id uuid.UUID) (initiative.Initiative, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return initiative.Initiative{}, err
	}

	initiatives, err := r.queryInitiatives(
		ctx,
		initiativeFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return initiative.Initiative{}, err
	}

	if len(initiatives) == 0 {
		return initiative.Initiative{}, ErrInitiativeNotFound
	}

	return initiatives[0], nil
}

func (r *InitiativeRepository) GetByTitle(ctx context.Context, title string) (initiative.Initiative, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return initiative.Initiative{}, err
	}

	initiatives, err := r.queryInitiatives(
		ctx,
		initiativeFindQuery+" WHERE tenant_id = $1 AND lower(title) = lower($2)",
		tenantID.String(),
		strings.TrimSpace(title),
	)
	if err != nil {
		return initiative.Initiative{}, err
	}

	if len(initiatives) == 0 {
		return initiative.Initiative{}, ErrInitiativeNotFound
	}

	return initiatives[0], nil
}

func (r *InitiativeRepository) GetPaginated(ctx context.Context, params *initiative.FindParams) ([]initiative.Initiative, int64, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildInitiativeFilters(params, tenantID)
	query := initiativeFindQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	initiatives, err := r.queryInitiatives(ctx, query, args...)
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
		"SELECT COUNT(*) FROM initiatives WHERE "+strings.Join(where, " AND "),
		args...,
	).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count initiatives")
	}

	return initiatives, total, nil
}

func (r *InitiativeRepository) Create(ctx context.Context, i initiative.Initiative) (initiative.Initiative, error) {
	query := `
		INSERT INTO initiatives (id, tenant_id, title, description, area_id, owner_id, status, priority,
			progress, target_date, budget, actual_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return initiative.Initiative{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return initiative.Initiative{}, err
	}

	dbRow := ToDBInitiative(i)
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
		dbRow.Priority,
		dbRow.Progress,
		dbRow.TargetDate,
		dbRow.Budget,
		dbRow.ActualCost,
		dbRow.CreatedAt,
		dbRow.UpdatedAt,
	).Scan(&idStr); err != nil {
		return initiative.Initiative{}, errors.Wrap(err, "failed to insert initiative")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return initiative.Initiative{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *InitiativeRepository) Update(ctx context.Context, i initiative.Initiative) (initiative.Initiative, error) {
	query := `
		UPDATE initiatives
		SET title = $1, description = $2, area_id = $3, owner_id = $4, status = $5, priority = $6,
			progress = $7, target_date = $8, budget = $9, actual_cost = $10, updated_at = $11
		WHERE tenant_id = $12 AND id = $13
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return initiative.Initiative{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return initiative.Initiative{}, err
	}

	dbRow := ToDBInitiative(i)

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.Title,
		dbRow.Description,
		dbRow.AreaID,
		dbRow.OwnerID,
		dbRow.Status,
		dbRow.Priority,
		dbRow.Progress,
		dbRow.TargetDate,
		dbRow.Budget,
		dbRow.ActualCost,
		time.Now(),
		tenantID.String(),
		dbRow.ID,
	).Scan(&idStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return initiative.Initiative{}, ErrInitiativeNotFound
		}
		return initiative.Initiative{}, errors.Wrap(err, "failed to update initiative")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return initiative.Initiative{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *InitiativeRepository) queryInitiatives(ctx context.Context, query string, args ...interface{}) ([]initiative.Initiative, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var initiatives []initiative.Initiative
	for rows.Next() {
		var m models.Initiative
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.Title,
			&m.Description,
			&m.AreaID,
			&m.OwnerID,
			&m.Status,
			&m.Priority,
			&m.Progress,
			&m.TargetDate,
			&m.Budget,
			&m.ActualCost,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan initiative row")
		}
		initiatives = append(initiatives, ToDomainInitiative(&m))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return initiatives, nil
}

func buildInitiativeFilters(params *initiative.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
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
