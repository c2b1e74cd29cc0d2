package persistence

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wI2L/jsondiff"

	"github.com/planventa/planventa/modules/planning/domain/entities/activity"
	"github.com/planventa/planventa/modules/planning/domain/entities/area"
	"github.com/planventa/planventa/modules/planning/domain/entities/initiative"
	"github.com/planventa/planventa/modules/planning/domain/entities/objective"
	"github.com/planventa/planventa/modules/planning/domain/entities/planlink"
	"github.com/planventa/planventa/modules/planning/domain/entities/userprofile"
	"github.com/planventa/planventa/modules/planning/importing"
	"github.com/planventa/planventa/pkg/composables"
)

// ImportEntityStore fans validated import records out to the entity
// repositories. All writes run in the caller's transaction.
type ImportEntityStore struct {
	users       userprofile.Repository
	areas       area.Repository
	objectives  objective.Repository
	initiatives initiative.Repository
	activities  activity.Repository
	links       planlink.Repository
}

func NewImportEntityStore(
	users userprofile.Repository,
	areas area.Repository,
	objectives objective.Repository,
	initiatives initiative.Repository,
	activities activity.Repository,
	links planlink.Repository,
) importing.EntityStore {
	return &ImportEntityStore{
		users:       users,
		areas:       areas,
		objectives:  objectives,
		initiatives: initiatives,
		activities:  activities,
		links:       links,
	}
}

func (s *ImportEntityStore) Lookup(ctx context.Context, t importing.EntityType, key string) (uuid.UUID, bool, error) {
	switch t {
	case importing.EntityUserProfile:
		u, err := s.users.GetByEmail(ctx, key)
		if err != nil {
			if errors.Is(err, ErrUserProfileNotFound) {
				return uuid.Nil, false, nil
			}
			return uuid.Nil, false, err
		}
		return u.ID(), true, nil
	case importing.EntityArea:
		a, err := s.areas.GetByTitle(ctx, key)
		if err != nil {
			if errors.Is(err, ErrAreaNotFound) {
				return uuid.Nil, false, nil
			}
			return uuid.Nil, false, err
		}
		return a.ID(), true, nil
	case importing.EntityObjective:
		o, err := s.objectives.GetByTitle(ctx, key)
		if err != nil {
			if errors.Is(err, ErrObjectiveNotFound) {
				return uuid.Nil, false, nil
			}
			return uuid.Nil, false, err
		}
		return o.ID(), true, nil
	case importing.EntityInitiative:
		i, err := s.initiatives.GetByTitle(ctx, key)
		if err != nil {
			if errors.Is(err, ErrInitiativeNotFound) {
				return uuid.Nil, false, nil
			}
			return uuid.Nil, false, err
		}
		return i.ID(), true, nil
	case importing.EntityActivity:
		a, err := s.activities.GetByTitle(ctx, key)
		if err != nil {
			if errors.Is(err, ErrActivityNotFound) {
				return uuid.Nil, false, nil
			}
			return uuid.Nil, false, err
		}
		return a.ID(), true, nil
	}
	return uuid.Nil, false, nil
}

func (s *ImportEntityStore) Create(ctx context.Context, rec *importing.Record) (uuid.UUID, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	switch rec.EntityType {
	case importing.EntityUserProfile:
		return s.createUserProfile(ctx, tenantID, rec)
	case importing.EntityArea:
		return s.createArea(ctx, tenantID, rec)
	case importing.EntityObjective:
		return s.createObjective(ctx, tenantID, rec)
	case importing.EntityInitiative:
		return s.createInitiative(ctx, tenantID, rec)
	case importing.EntityActivity:
		return s.createActivity(ctx, tenantID, rec)
	case importing.EntityLink:
		return s.createLink(ctx, tenantID, rec)
	}
	return uuid.Nil, errors.Errorf("unsupported entity type %q", rec.EntityType)
}

func (s *ImportEntityStore) Update(ctx context.Context, id uuid.UUID, rec *importing.Record) ([]string, error) {
	switch rec.EntityType {
	case importing.EntityUserProfile:
		return s.updateUserProfile(ctx, id, rec)
	case importing.EntityArea:
		return s.updateArea(ctx, id, rec)
	case importing.EntityObjective:
		return s.updateObjective(ctx, id, rec)
	case importing.EntityInitiative:
		return s.updateInitiative(ctx, id, rec)
	case importing.EntityActivity:
		return s.updateActivity(ctx, id, rec)
	case importing.EntityLink:
		// Links carry no payload beyond the pair itself.
		return nil, nil
	}
	return nil, errors.Errorf("unsupported entity type %q", rec.EntityType)
}

func (s *ImportEntityStore) createUserProfile(ctx context.Context, tenantID uuid.UUID, rec *importing.Record) (uuid.UUID, error) {
	email, _ := textField(rec, "email")
	fullName, _ := textField(rec, "full_name")

	var opts []userprofile.Option
	if v, ok := textField(rec, "role"); ok {
		opts = append(opts, userprofile.WithRole(userprofile.Role(v)))
	}
	if v, ok := textField(rec, "department"); ok {
		opts = append(opts, userprofile.WithDepartment(v))
	}

	created, err := s.users.Create(ctx, userprofile.New(tenantID, email, fullName, opts...))
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID(), nil
}

func (s *ImportEntityStore) createArea(ctx context.Context, tenantID uuid.UUID, rec *importing.Record) (uuid.UUID, error) {
	title, _ := textField(rec, "title")

	var opts []area.Option
	if v, ok := textField(rec, "description"); ok {
		opts = append(opts, area.WithDescription(v))
	}

	created, err := s.areas.Create(ctx, area.New(tenantID, title, opts...))
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID(), nil
}

func (s *ImportEntityStore) createObjective(ctx context.Context, tenantID uuid.UUID, rec *importing.Record) (uuid.UUID, error) {
	title, _ := textField(rec, "title")

	var opts []objective.Option
	if v, ok := textField(rec, "description"); ok {
		opts = append(opts, objective.WithDescription(v))
	}
	if id, ok := rec.ResolvedRefs["area"]; ok {
		opts = append(opts, objective.WithArea(id))
	}
	if id, ok := rec.ResolvedRefs["owner"]; ok {
		opts = append(opts, objective.WithOwner(id))
	}
	if v, ok := textField(rec, "status"); ok {
		opts = append(opts, objective.WithStatus(objective.Status(v)))
	}
	if v, ok := intField(rec, "progress"); ok {
		opts = append(opts, objective.WithProgress(v))
	}
	start, _ := timeField(rec, "start_date")
	target, _ := timeField(rec, "target_date")
	if !start.IsZero() || !target.IsZero() {
		opts = append(opts, objective.WithDates(start, target))
	}

	created, err := s.objectives.Create(ctx, objective.New(tenantID, title, opts...))
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID(), nil
}

func (s *ImportEntityStore) createInitiative(ctx context.Context, tenantID uuid.UUID, rec *importing.Record) (uuid.UUID, error) {
	title, _ := textField(rec, "title")

	var opts []initiative.Option
	if v, ok := textField(rec, "description"); ok {
		opts = append(opts, initiative.WithDescription(v))
	}
	if id, ok := rec.ResolvedRefs["area"]; ok {
		opts = append(opts, initiative.WithArea(id))
	}
	if id, ok := rec.ResolvedRefs["owner"]; ok {
		opts = append(opts, initiative.WithOwner(id))
	}
	if v, ok := textField(rec, "status"); ok {
		opts = append(opts, initiative.WithStatus(initiative.Status(v)))
	}
	if v, ok := textField(rec, "priority"); ok {
		opts = append(opts, initiative.WithPriority(initiative.Priority(v)))
	}
	if v, ok := intField(rec, "progress"); ok {
		opts = append(opts, initiative.WithProgress(v))
	}
	if v, ok := timeField(rec, "target_date"); ok {
		opts = append(opts, initiative.WithTargetDate(v))
	}
	if v, ok := decimalField(rec, "budget"); ok {
		opts = append(opts, initiative.WithBudget(v))
	}
	if v, ok := decimalField(rec, "actual_cost"); ok {
		opts = append(opts, initiative.WithActualCost(v))
	}

	created, err := s.initiatives.Create(ctx, initiative.New(tenantID, title, opts...))
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID(), nil
}

func (s *ImportEntityStore) createActivity(ctx context.Context, tenantID uuid.UUID, rec *importing.Record) (uuid.UUID, error) {
	title, _ := textField(rec, "title")
	initiativeID := rec.ResolvedRefs["initiative"]

	var opts []activity.Option
	if v, ok := textField(rec, "description"); ok {
		opts = append(opts, activity.WithDescription(v))
	}
	if id, ok := rec.ResolvedRefs["assigned_to"]; ok {
		opts = append(opts, activity.WithAssignee(id))
	}
	if v, ok := textField(rec, "status"); ok {
		opts = append(opts, activity.WithStatus(activity.Status(v)))
	}
	if v, ok := textField(rec, "priority"); ok {
		opts = append(opts, activity.WithPriority(activity.Priority(v)))
	}
	if v, ok := intField(rec, "progress"); ok {
		opts = append(opts, activity.WithProgress(v))
	}
	if v, ok := timeField(rec, "due_date"); ok {
		opts = append(opts, activity.WithDueDate(v))
	}
	if v, ok := boolField(rec, "is_completed"); ok {
		opts = append(opts, activity.WithCompleted(v))
	}

	created, err := s.activities.Create(ctx, activity.New(tenantID, initiativeID, title, opts...))
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID(), nil
}

func (s *ImportEntityStore) createLink(ctx context.Context, tenantID uuid.UUID, rec *importing.Record) (uuid.UUID, error) {
	objectiveID := rec.ResolvedRefs["objective"]
	initiativeID := rec.ResolvedRefs["initiative"]

	created, err := s.links.Create(ctx, planlink.New(tenantID, objectiveID, initiativeID))
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID(), nil
}

func (s *ImportEntityStore) updateUserProfile(ctx context.Context, id uuid.UUID, rec *importing.Record) ([]string, error) {
	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldView := map[string]any{}
	newView := map[string]any{}

	fullName := existing.FullName()
	if v, ok := textField(rec, "full_name"); ok {
		oldView["full_name"] = existing.FullName()
		newView["full_name"] = v
		fullName = v
	}
	role := existing.Role()
	if v, ok := textField(rec, "role"); ok {
		oldView["role"] = string(existing.Role())
		newView["role"] = v
		role = userprofile.Role(v)
	}
	department := existing.Department()
	if v, ok := textField(rec, "department"); ok {
		oldView["department"] = existing.Department()
		newView["department"] = v
		department = v
	}

	changed, err := changedFields(oldView, newView)
	if err != nil || len(changed) == 0 {
		return nil, err
	}

	updated := userprofile.Hydrate(
		existing.ID(),
		existing.TenantID(),
		existing.Email(),
		fullName,
		role,
		department,
		existing.CreatedAt(),
		existing.UpdatedAt(),
	)
	if _, err := s.users.Update(ctx, updated); err != nil {
		return nil, err
	}
	return changed, nil
}

func (s *ImportEntityStore) updateArea(ctx context.Context, id uuid.UUID, rec *importing.Record) ([]string, error) {
	existing, err := s.areas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldView := map[string]any{}
	newView := map[string]any{}

	description := existing.Description()
	if v, ok := textField(rec, "description"); ok {
		oldView["description"] = existing.Description()
		newView["description"] = v
		description = v
	}

	changed, err := changedFields(oldView, newView)
	if err != nil || len(changed) == 0 {
		return nil, err
	}

	updated := area.Hydrate(
		existing.ID(),
		existing.TenantID(),
		existing.Title(),
		description,
		existing.CreatedAt(),
		existing.UpdatedAt(),
	)
	if _, err := s.areas.Update(ctx, updated); err != nil {
		return nil, err
	}
	return changed, nil
}

func (s *ImportEntityStore) updateObjective(ctx context.Context, id uuid.UUID, rec *importing.Record) ([]string, error) {
	existing, err := s.objectives.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldView := map[string]any{}
	newView := map[string]any{}

	description := existing.Description()
	if v, ok := textField(rec, "description"); ok {
		oldView["description"] = existing.Description()
		newView["description"] = v
		description = v
	}
	areaID := existing.AreaID()
	if _, ok := rec.Refs["area"]; ok {
		resolved := rec.ResolvedRefs["area"]
		oldView["area"] = refView(existing.AreaID())
		newView["area"] = refView(resolved)
		areaID = resolved
	}
	ownerID := existing.OwnerID()
	if _, ok := rec.Refs["owner"]; ok {
		resolved := rec.ResolvedRefs["owner"]
		oldView["owner"] = refView(existing.OwnerID())
		newView["owner"] = refView(resolved)
		ownerID = resolved
	}
	status := existing.Status()
	if v, ok := textField(rec, "status"); ok {
		oldView["status"] = string(existing.Status())
		newView["status"] = v
		status = objective.Status(v)
	}
	progress := existing.Progress()
	if v, ok := intField(rec, "progress"); ok {
		oldView["progress"] = existing.Progress()
		newView["progress"] = v
		progress = v
	}
	startDate := existing.StartDate()
	if v, ok := timeField(rec, "start_date"); ok {
		oldView["start_date"] = dateView(existing.StartDate())
		newView["start_date"] = dateView(v)
		startDate = v
	}
	targetDate := existing.TargetDate()
	if v, ok := timeField(rec, "target_date"); ok {
		oldView["target_date"] = dateView(existing.TargetDate())
		newView["target_date"] = dateView(v)
		targetDate = v
	}

	changed, err := changedFields(oldView, newView)
	if err != nil || len(changed) == 0 {
		return nil, err
	}

	updated := objective.Hydrate(
		existing.ID(),
		existing.TenantID(),
		existing.Title(),
		description,
		areaID,
		ownerID,
		status,
		progress,
		startDate,
		targetDate,
		existing.CreatedAt(),
		existing.UpdatedAt(),
	)
	if _, err := s.objectives.Update(ctx, updated); err != nil {
		return nil, err
	}
	return changed, nil
}

func (s *ImportEntityStore) updateInitiative(ctx context.Context, id uuid.UUID, rec *importing.Record) ([]string, error) {
	existing, err := s.initiatives.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldView := map[string]any{}
	newView := map[string]any{}

	description := existing.Description()
	if v, ok := textField(rec, "description"); ok {
		oldView["description"] = existing.Description()
		newView["description"] = v
		description = v
	}
	areaID := existing.AreaID()
	if _, ok := rec.Refs["area"]; ok {
		resolved := rec.ResolvedRefs["area"]
		oldView["area"] = refView(existing.AreaID())
		newView["area"] = refView(resolved)
		areaID = resolved
	}
	ownerID := existing.OwnerID()
	if _, ok := rec.Refs["owner"]; ok {
		resolved := rec.ResolvedRefs["owner"]
		oldView["owner"] = refView(existing.OwnerID())
		newView["owner"] = refView(resolved)
		ownerID = resolved
	}
	status := existing.Status()
	if v, ok := textField(rec, "status"); ok {
		oldView["status"] = string(existing.Status())
		newView["status"] = v
		status = initiative.Status(v)
	}
	priority := existing.Priority()
	if v, ok := textField(rec, "priority"); ok {
		oldView["priority"] = string(existing.Priority())
		newView["priority"] = v
		priority = initiative.Priority(v)
	}
	progress := existing.Progress()
	if v, ok := intField(rec, "progress"); ok {
		oldView["progress"] = existing.Progress()
		newView["progress"] = v
		progress = v
	}
	targetDate := existing.TargetDate()
	if v, ok := timeField(rec, "target_date"); ok {
		oldView["target_date"] = dateView(existing.TargetDate())
		newView["target_date"] = dateView(v)
		targetDate = v
	}
	budget := existing.Budget()
	if v, ok := decimalField(rec, "budget"); ok {
		oldView["budget"] = decimalView(existing.Budget())
		newView["budget"] = v.StringFixed(2)
		budget = decimal.NewNullDecimal(v)
	}
	actualCost := existing.ActualCost()
	if v, ok := decimalField(rec, "actual_cost"); ok {
		oldView["actual_cost"] = decimalView(existing.ActualCost())
		newView["actual_cost"] = v.StringFixed(2)
		actualCost = decimal.NewNullDecimal(v)
	}

	changed, err := changedFields(oldView, newView)
	if err != nil || len(changed) == 0 {
		return nil, err
	}

	updated := initiative.Hydrate(
		existing.ID(),
		existing.TenantID(),
		existing.Title(),
		description,
		areaID,
		ownerID,
		status,
		priority,
		progress,
		targetDate,
		budget,
		actualCost,
		existing.CreatedAt(),
		existing.UpdatedAt(),
	)
	if _, err := s.initiatives.Update(ctx, updated); err != nil {
		return nil, err
	}
	return changed, nil
}

func (s *ImportEntityStore) updateActivity(ctx context.Context, id uuid.UUID, rec *importing.Record) ([]string, error) {
	existing, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldView := map[string]any{}
	newView := map[string]any{}

	initiativeID := existing.InitiativeID()
	if _, ok := rec.Refs["initiative"]; ok {
		resolved := rec.ResolvedRefs["initiative"]
		oldView["initiative"] = refView(existing.InitiativeID())
		newView["initiative"] = refView(resolved)
		initiativeID = resolved
	}
	description := existing.Description()
	if v, ok := textField(rec, "description"); ok {
		oldView["description"] = existing.Description()
		newView["description"] = v
		description = v
	}
	assignedTo := existing.AssignedTo()
	if _, ok := rec.Refs["assigned_to"]; ok {
		resolved := rec.ResolvedRefs["assigned_to"]
		oldView["assigned_to"] = refView(existing.AssignedTo())
		newView["assigned_to"] = refView(resolved)
		assignedTo = resolved
	}
	status := existing.Status()
	if v, ok := textField(rec, "status"); ok {
		oldView["status"] = string(existing.Status())
		newView["status"] = v
		status = activity.Status(v)
	}
	priority := existing.Priority()
	if v, ok := textField(rec, "priority"); ok {
		oldView["priority"] = string(existing.Priority())
		newView["priority"] = v
		priority = activity.Priority(v)
	}
	progress := existing.Progress()
	if v, ok := intField(rec, "progress"); ok {
		oldView["progress"] = existing.Progress()
		newView["progress"] = v
		progress = v
	}
	dueDate := existing.DueDate()
	if v, ok := timeField(rec, "due_date"); ok {
		oldView["due_date"] = dateView(existing.DueDate())
		newView["due_date"] = dateView(v)
		dueDate = v
	}
	isCompleted := existing.IsCompleted()
	if v, ok := boolField(rec, "is_completed"); ok {
		oldView["is_completed"] = existing.IsCompleted()
		newView["is_completed"] = v
		isCompleted = v
	}

	changed, err := changedFields(oldView, newView)
	if err != nil || len(changed) == 0 {
		return nil, err
	}

	updated := activity.Hydrate(
		existing.ID(),
		existing.TenantID(),
		initiativeID,
		existing.Title(),
		description,
		assignedTo,
		status,
		priority,
		progress,
		dueDate,
		isCompleted,
		existing.CreatedAt(),
		existing.UpdatedAt(),
	)
	if _, err := s.activities.Update(ctx, updated); err != nil {
		return nil, err
	}
	return changed, nil
}

// changedFields diffs the provided-field views and returns the canonical
// names that differ, sorted for stable warning params.
func changedFields(oldView, newView map[string]any) ([]string, error) {
	patch, err := jsondiff.Compare(oldView, newView)
	if err != nil {
		return nil, errors.Wrap(err, "failed to diff entity fields")
	}

	seen := map[string]struct{}{}
	fields := make([]string, 0, len(patch))
	for _, op := range patch {
		name := strings.TrimPrefix(op.Path, "/")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields, nil
}

func textField(rec *importing.Record, name string) (string, bool) {
	v, ok := rec.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intField(rec *importing.Record, name string) (int, bool) {
	v, ok := rec.Fields[name]
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

func boolField(rec *importing.Record, name string) (bool, bool) {
	v, ok := rec.Fields[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func timeField(rec *importing.Record, name string) (time.Time, bool) {
	v, ok := rec.Fields[name]
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

func decimalField(rec *importing.Record, name string) (decimal.Decimal, bool) {
	v, ok := rec.Fields[name]
	if !ok {
		return decimal.Decimal{}, false
	}
	d, ok := v.(decimal.Decimal)
	return d, ok
}

func dateView(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func decimalView(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

func refView(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
