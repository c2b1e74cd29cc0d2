package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/planventa/planventa/modules/planning/domain/entities/area"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence/models"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/repo"
)

var (
	ErrAreaNotFound = fmt.Errorf("area not found")
)

const (
	areaFindQuery = `SELECT id, tenant_id, title, description, created_at, updated_at FROM areas`
)

type AreaRepository struct{}

func NewAreaRepository() area.Repository {
	return &AreaRepository{}
}

func (r *AreaRepository) GetByID(ctx context.Context, id uuid.UUID) (area.Area, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return area.Area{}, err
	}

	areas, err := r.queryAreas(
		ctx,
		areaFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return area.Area{}, err
	}

	if len(areas) == 0 {
		return area.Area{}, ErrAreaNotFound
	}

	return areas[0], nil
}

func (r *AreaRepository) GetByTitle(ctx context.Context, title string) (area.Area, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return area.Area{}, err
	}

	areas, err := r.queryAreas(
		ctx,
		areaFindQuery+" WHERE tenant_id = $1 AND lower(title) = lower($2)",
		tenantID.String(),
		strings.TrimSpace(title),
	)
	if err != nil {
		return area.Area{}, err
	}

	if len(areas) == 0 {
		return area.Area{}, ErrAreaNotFound
	}

	return areas[0], nil
}

func (r *AreaRepository) GetPaginated(ctx context.Context, params *area.FindParams) ([]area.Area, int64, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildAreaFilters(params, tenantID)
	query := areaFindQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY title"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	areas, err := r.queryAreas(ctx, query, args...)
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
		"SELECT COUNT(*) FROM areas WHERE "+strings.Join(where, " AND "),
		args...,
	).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count areas")
	}

	return areas, total, nil
}

func (r *AreaRepository) Create(ctx context.Context, a area.Area) (area.Area, error) {
	query := `
		INSERT INTO areas (id, tenant_id, title, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return area.Area{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return area.Area{}, err
	}

	dbRow := ToDBArea(a)
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
		dbRow.CreatedAt,
		dbRow.UpdatedAt,
	).Scan(&idStr); err != nil {
		return area.Area{}, errors.Wrap(err, "failed to insert area")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return area.Area{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *AreaRepository) Update(ctx context.Context, a area.Area) (area.Area, error) {
	query := `
		UPDATE areas
		SET title = $1, description = $2, updated_at = $3
		WHERE tenant_id = $4 AND id = $5
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return area.Area{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return area.Area{}, err
	}

	dbRow := ToDBArea(a)

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.Title,
		dbRow.Description,
		time.Now(),
		tenantID.String(),
		dbRow.ID,
	).Scan(&idStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return area.Area{}, ErrAreaNotFound
		}
		return area.Area{}, errors.Wrap(err, "failed to update area")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return area.Area{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *AreaRepository) queryAreas(ctx context.Context, query string, args ...interface{}) ([]area.Area, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var areas []area.Area
	for rows.Next() {
		var m models.Area
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.Title,
			&m.Description,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan area row")
		}
		areas = append(areas, ToDomainArea(&m))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return areas, nil
}

func buildAreaFilters(params *area.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
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
