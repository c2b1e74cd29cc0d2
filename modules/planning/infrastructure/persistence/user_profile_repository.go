package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/planventa/planventa/modules/planning/domain/entities/userprofile"
	"github.com/planventa/planventa/modules/planning/infrastructure/persistence/models"
	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/repo"
)

var (
	ErrUserProfileNotFound = fmt.Errorf("user profile not found")
)

const (
	userProfileFindQuery = `SELECT id, tenant_id, email, full_name, role, department, created_at, updated_at FROM user_profiles`
)

type UserProfileRepository struct{}

func NewUserProfileRepository() userprofile.Repository {
	return &UserProfileRepository{}
}

func (r *UserProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (userprofile.UserProfile, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return userprofile.UserProfile{}, err
	}

	profiles, err := r.queryUserProfiles(
		ctx,
		userProfileFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return userprofile.UserProfile{}, err
	}

	if len(profiles) == 0 {
		return userprofile.UserProfile{}, ErrUserProfileNotFound
	}

	return profiles[0], nil
}

func (r *UserProfileRepository) GetByEmail(ctx context.Context, email string) (userprofile.UserProfile, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return userprofile.UserProfile{}, err
	}

	profiles, err := r.queryUserProfiles(
		ctx,
		userProfileFindQuery+" WHERE tenant_id = $1 AND lower(email) = $2",
		tenantID.String(),
		userprofile.NormalizeEmail(email),
	)
	if err != nil {
		return userprofile.UserProfile{}, err
	}

	if len(profiles) == 0 {
		return userprofile.UserProfile{}, ErrUserProfileNotFound
	}

	return profiles[0], nil
}

func (r *UserProfileRepository) GetPaginated(ctx context.Context, params *userprofile.FindParams) ([]userprofile.UserProfile, int64, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildUserProfileFilters(params, tenantID)
	query := userProfileFindQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY full_name, email"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	profiles, err := r.queryUserProfiles(ctx, query, args...)
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
		"SELECT COUNT(*) FROM user_profiles WHERE "+strings.Join(where, " AND "),
		args...,
	).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count user profiles")
	}

	return profiles, total, nil
}

func (r *UserProfileRepository) Create(ctx context.Context, u userprofile.UserProfile) (userprofile.UserProfile, error) {
	query := `
		INSERT INTO user_profiles (id, tenant_id, email, full_name, role, department, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return userprofile.UserProfile{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return userprofile.UserProfile{}, err
	}

	dbRow := ToDBUserProfile(u)
	dbRow.TenantID = tenantID.String()
	stampTimestamps(&dbRow.CreatedAt, &dbRow.UpdatedAt)

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.ID,
		dbRow.TenantID,
		dbRow.Email,
		dbRow.FullName,
		dbRow.Role,
		dbRow.Department,
		dbRow.CreatedAt,
		dbRow.UpdatedAt,
	).Scan(&idStr); err != nil {
		return userprofile.UserProfile{}, errors.Wrap(err, "failed to insert user profile")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return userprofile.UserProfile{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *UserProfileRepository) Update(ctx context.Context, u userprofile.UserProfile) (userprofile.UserProfile, error) {
	query := `
		UPDATE user_profiles
		SET email = $1, full_name = $2, role = $3, department = $4, updated_at = $5
		WHERE tenant_id = $6 AND id = $7
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return userprofile.UserProfile{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return userprofile.UserProfile{}, err
	}

	dbRow := ToDBUserProfile(u)

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		dbRow.Email,
		dbRow.FullName,
		dbRow.Role,
		dbRow.Department,
		time.Now(),
		tenantID.String(),
		dbRow.ID,
	).Scan(&idStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userprofile.UserProfile{}, ErrUserProfileNotFound
		}
		return userprofile.UserProfile{}, errors.Wrap(err, "failed to update user profile")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return userprofile.UserProfile{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *UserProfileRepository) queryUserProfiles(ctx context.Context, query string, args ...interface{}) ([]userprofile.UserProfile, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var profiles []userprofile.UserProfile
	for rows.Next() {
		var m models.UserProfile
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.Email,
			&m.FullName,
			&m.Role,
			&m.Department,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user profile row")
		}
		profiles = append(profiles, ToDomainUserProfile(&m))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return profiles, nil
}

func buildUserProfileFilters(params *userprofile.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID.String()}
	if params == nil {
		return where, args
	}

	if q := strings.TrimSpace(params.Q); q != "" {
		pos := len(args) + 1
		where = append(where, fmt.Sprintf("(email ILIKE $%d OR full_name ILIKE $%d)", pos, pos))
		args = append(args, "%"+q+"%")
	}
	return where, args
}

// stampTimestamps fills zero created/updated times before an insert so rows
// carry the same clock the caller observes in the returned aggregate.
func stampTimestamps(createdAt, updatedAt *time.Time) {
	now := time.Now()
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = now
	}
}
