package importing

import (
	"context"

	"github.com/google/uuid"
)

// EntityStore writes validated records to their target tables. It hides the
// per-entity repositories from the pipeline: the runner only knows records.
type EntityStore interface {
	// Lookup probes for an existing entity by its tenant-scoped natural key.
	Lookup(ctx context.Context, t EntityType, key string) (uuid.UUID, bool, error)

	// Create inserts a new entity built from the record.
	Create(ctx context.Context, rec *Record) (uuid.UUID, error)

	// Update overlays the record's provided fields onto the stored entity
	// and reports which canonical fields actually changed.
	Update(ctx context.Context, id uuid.UUID, rec *Record) ([]string, error)
}
