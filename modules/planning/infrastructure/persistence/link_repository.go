package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/planventa/planventa/modules/planning/domain/entities/planlink"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence/models"
	"github.com/planventa/planventa/pkg/composables"
)

var (
	ErrLinkNotFound = fmt.Errorf("objective-initiative link not found")
)

const (
	linkFindQuery = `SELECT id, tenant_id, objective_id, initiative_id, created_at FROM objective_initiative_links`
)

type LinkRepository struct{}

func NewLinkRepository() planlink.Repository {
	return &LinkRepository{}
}

func (r *LinkRepository) GetByID(ctx context.Context, id uuid.UUID) (planlink.Link, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return planlink.Link{}, err
	}

	links, err := r.queryLinks(
		ctx,
		linkFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return planlink.Link{}, err
	}

	if len(links) == 0 {
		return planlink.Link{}, ErrLinkNotFound
	}

	return links[0], nil
}

func (r *LinkRepository) GetByPair(ctx context.Context, objectiveID, initiativeID uuid.UUID) (planlink.Link, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return planlink.Link{}, err
	}

	links, err := r.queryLinks(
		ctx,
		linkFindQuery+" WHERE tenant_id = $1 AND objective_id = $2 AND initiative_id = $3",
		tenantID.String(),
		objectiveID.String(),
		initiativeID.String(),
	)
	if err != nil {
		return planlink.Link{}, err
	}

	if len(links) == 0 {
		return planlink.Link{}, ErrLinkNotFound
	}

	return links[0], nil
}

func (r *LinkRepository) Create(ctx context.Context, l planlink.Link) (planlink.Link, error) {
	query := `
		INSERT INTO objective_initiative_links (id, tenant_id, objective_id, initiative_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return planlink.Link{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return planlink.Link{}, err
	}

	dbRow := ToDBLink(l)
	dbRow.TenantID = tenantID.String()
	if dbRow.CreatedAt.IsZero() {
		dbRow.CreatedAt = time.Now()
	}

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.ID,
		dbRow.TenantID,
		dbRow.ObjectiveID,
		dbRow.InitiativeID,
		dbRow.CreatedAt,
	).Scan(&idStr); err != nil {
		return planlink.Link{}, errors.Wrap(err, "failed to insert objective-initiative link")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return planlink.Link{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *LinkRepository) queryLinks(ctx context.Context, query string, args ...interface{}) ([]planlink.Link, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var links []planlink.Link
	for rows.Next() {
		var m models.ObjectiveInitiativeLink
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.ObjectiveID,
			&m.InitiativeID,
			&m.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan link row")
		}
		links = append(links, ToDomainLink(&m))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return links, nil
}
