package importing

import (
	"strings"

	"github.com/planventa/planventa/modules/planning/domain/entities/activity"
	"github.com/planventa/planventa/modules/planning/domain/entities/initiative"
	"github.com/planventa/planventa/modules/planning/domain/entities/objective"
	"github.com/planventa/planventa/modules/planning/domain/entities/userprofile"
)

type Kind int

const (
	KindText Kind = iota
	KindEmail
	KindDate
	KindInt
	KindDecimal
	KindBool
	KindEnum
	KindRef
)

// FieldSpec describes one importable column: how headers map to it, how the
// cell is coerced, and which constraints apply.
type FieldSpec struct {
	Name     string
	Aliases  []string
	Required bool
	Kind     Kind
	Enum     []string
	Ref      EntityType
	Min      int
	Max      int
}

// Schema is the import contract for one entity type. KeyField names the
// field carrying the tenant-scoped natural key; link imports have none
// because their key is the resolved id pair.
type Schema struct {
	Entity     EntityType
	KeyField   string
	StartField string
	EndField   string
	PastDue    []string
	Fields     []FieldSpec
}

func (s *Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// MatchColumn maps a raw header cell to a field spec.
func (s *Schema) MatchColumn(header string) (FieldSpec, bool) {
	normalized := NormalizeHeader(header)
	for _, f := range s.Fields {
		if f.Name == normalized {
			return f, true
		}
		for _, alias := range f.Aliases {
			if alias == normalized {
				return f, true
			}
		}
	}
	return FieldSpec{}, false
}

func (s *Schema) RequiredColumns() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

func (s *Schema) OptionalColumns() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// NormalizeHeader folds a header cell for matching: lowercase, trimmed,
// separator runs collapsed to a single underscore.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	var b strings.Builder
	b.Grow(len(h))
	pendingSep := false
	for _, r := range h {
		switch r {
		case ' ', '\t', '-', '_':
			pendingSep = true
		default:
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

var schemas = map[EntityType]*Schema{
	EntityUserProfile: {
		Entity:   EntityUserProfile,
		KeyField: "email",
		Fields: []FieldSpec{
			{Name: "email", Aliases: []string{"e_mail", "email_address"}, Required: true, Kind: KindEmail},
			{Name: "full_name", Aliases: []string{"fullname", "name"}, Required: true, Kind: KindText},
			{Name: "role", Kind: KindEnum, Enum: userprofile.Roles()},
			{Name: "department", Aliases: []string{"dept"}, Kind: KindText},
		},
	},
	EntityArea: {
		Entity:   EntityArea,
		KeyField: "title",
		Fields: []FieldSpec{
			{Name: "title", Aliases: []string{"name"}, Required: true, Kind: KindText},
			{Name: "description", Aliases: []string{"desc", "details"}, Kind: KindText},
		},
	},
	EntityObjective: {
		Entity:     EntityObjective,
		KeyField:   "title",
		StartField: "start_date",
		EndField:   "target_date",
		PastDue:    []string{"target_date"},
		Fields: []FieldSpec{
			{Name: "title", Aliases: []string{"name"}, Required: true, Kind: KindText},
			{Name: "description", Aliases: []string{"desc", "details"}, Kind: KindText},
			{Name: "area", Aliases: []string{"area_title"}, Kind: KindRef, Ref: EntityArea},
			{Name: "owner", Aliases: []string{"owner_email"}, Kind: KindRef, Ref: EntityUserProfile},
			{Name: "status", Kind: KindEnum, Enum: objective.Statuses()},
			{Name: "progress", Kind: KindInt, Min: 0, Max: 100},
			{Name: "start_date", Aliases: []string{"start"}, Kind: KindDate},
			{Name: "target_date", Aliases: []string{"target", "end_date"}, Kind: KindDate},
		},
	},
	EntityInitiative: {
		Entity:   EntityInitiative,
		KeyField: "title",
		PastDue:  []string{"target_date"},
		Fields: []FieldSpec{
			{Name: "title", Aliases: []string{"name"}, Required: true, Kind: KindText},
			{Name: "description", Aliases: []string{"desc", "details"}, Kind: KindText},
			{Name: "area", Aliases: []string{"area_title"}, Kind: KindRef, Ref: EntityArea},
			{Name: "owner", Aliases: []string{"owner_email"}, Kind: KindRef, Ref: EntityUserProfile},
			{Name: "status", Kind: KindEnum, Enum: initiative.Statuses()},
			{Name: "priority", Kind: KindEnum, Enum: initiative.Priorities()},
			{Name: "progress", Kind: KindInt, Min: 0, Max: 100},
			{Name: "target_date", Aliases: []string{"target", "end_date"}, Kind: KindDate},
			{Name: "budget", Kind: KindDecimal},
			{Name: "actual_cost", Aliases: []string{"cost", "spent"}, Kind: KindDecimal},
		},
	},
	EntityActivity: {
		Entity:   EntityActivity,
		KeyField: "title",
		PastDue:  []string{"due_date"},
		Fields: []FieldSpec{
			{Name: "title", Aliases: []string{"name"}, Required: true, Kind: KindText},
			{Name: "initiative", Aliases: []string{"initiative_title"}, Required: true, Kind: KindRef, Ref: EntityInitiative},
			{Name: "description", Aliases: []string{"desc", "details"}, Kind: KindText},
			{Name: "assigned_to", Aliases: []string{"assignee", "assignee_email"}, Kind: KindRef, Ref: EntityUserProfile},
			{Name: "status", Kind: KindEnum, Enum: activity.Statuses()},
			{Name: "priority", Kind: KindEnum, Enum: activity.Priorities()},
			{Name: "progress", Kind: KindInt, Min: 0, Max: 100},
			{Name: "due_date", Aliases: []string{"due"}, Kind: KindDate},
			{Name: "is_completed", Aliases: []string{"completed", "done"}, Kind: KindBool},
		},
	},
	EntityLink: {
		Entity: EntityLink,
		Fields: []FieldSpec{
			{Name: "objective", Aliases: []string{"objective_title"}, Required: true, Kind: KindRef, Ref: EntityObjective},
			{Name: "initiative", Aliases: []string{"initiative_title"}, Required: true, Kind: KindRef, Ref: EntityInitiative},
		},
	},
}

func SchemaFor(t EntityType) *Schema {
	return schemas[t]
}

// ReferencedTypes lists the entity types a schema resolves against,
// including the target type itself when it carries a natural key.
func (s *Schema) ReferencedTypes() []EntityType {
	seen := map[EntityType]bool{}
	out := make([]EntityType, 0, 4)
	if s.KeyField != "" {
		seen[s.Entity] = true
		out = append(out, s.Entity)
	}
	for _, f := range s.Fields {
		if f.Kind == KindRef && !seen[f.Ref] {
			seen[f.Ref] = true
			out = append(out, f.Ref)
		}
	}
	return out
}
