// Package importing implements the bulk import pipeline: file parsing,
// typed coercion, validation, reference resolution and result assembly.
// Storage access stays behind small interfaces so the pipeline itself is
// side-effect free.
package importing

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// EntityType names one import target. Each import call handles exactly one
// type; cross-type references rely on the documented call order
// users/areas -> objectives -> initiatives -> activities -> links.
type EntityType string

const (
	EntityUserProfile EntityType = "users"
	EntityArea        EntityType = "areas"
	EntityObjective   EntityType = "objectives"
	EntityInitiative  EntityType = "initiatives"
	EntityActivity    EntityType = "activities"
	EntityLink        EntityType = "links"
)

func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityUserProfile,
		EntityArea,
		EntityObjective,
		EntityInitiative,
		EntityActivity,
		EntityLink,
	}
}

var entityTypeAliases = map[string]EntityType{
	"users":         EntityUserProfile,
	"user":          EntityUserProfile,
	"userprofiles":  EntityUserProfile,
	"userprofile":   EntityUserProfile,
	"user_profiles": EntityUserProfile,
	"areas":         EntityArea,
	"area":          EntityArea,
	"objectives":    EntityObjective,
	"objective":     EntityObjective,
	"initiatives":   EntityInitiative,
	"initiative":    EntityInitiative,
	"activities":    EntityActivity,
	"activity":      EntityActivity,
	"links":         EntityLink,
	"link":          EntityLink,

	"objective_initiative_links": EntityLink,
}

// ParseEntityType resolves user-facing spellings (singular, plural, legacy
// label) to an EntityType.
func ParseEntityType(s string) (EntityType, bool) {
	t, ok := entityTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// SuggestEntityType returns the closest known spelling for an unrecognized
// entity type, or "" when nothing is plausibly close.
func SuggestEntityType(s string) string {
	needle := strings.ToLower(strings.TrimSpace(s))
	if needle == "" {
		return ""
	}
	words := make([]string, 0, len(entityTypeAliases))
	for alias := range entityTypeAliases {
		words = append(words, alias)
	}
	sort.Strings(words)

	ranks := fuzzy.RankFindNormalizedFold(needle, words)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return string(entityTypeAliases[ranks[0].Target])
}
