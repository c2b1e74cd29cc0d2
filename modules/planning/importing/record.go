package importing

import (
	"github.com/google/uuid"
)

// Record is a fully coerced row ready for writing. Fields holds typed values
// keyed by canonical field name; presence in the map means the cell was
// provided. Refs holds raw reference strings until the resolver replaces
// them with ids in ResolvedRefs.
type Record struct {
	EntityType   EntityType
	RowNumber    int
	Key          string
	Fields       map[string]any
	Refs         map[string]string
	ResolvedRefs map[string]uuid.UUID
}

func NewRecord(t EntityType, rowNumber int) *Record {
	return &Record{
		EntityType:   t,
		RowNumber:    rowNumber,
		Fields:       map[string]any{},
		Refs:         map[string]string{},
		ResolvedRefs: map[string]uuid.UUID{},
	}
}

func (r *Record) Text(name string) string {
	v, _ := r.Fields[name].(string)
	return v
}

func (r *Record) Has(name string) bool {
	_, ok := r.Fields[name]
	return ok
}
