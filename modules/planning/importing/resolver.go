package importing

import (
	"context"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ProbeFunc looks a normalized natural key up in tenant storage. It backs
// the cache on misses so LRU eviction never produces a false
// foreign_key_not_found.
type ProbeFunc func(ctx context.Context, key string) (uuid.UUID, bool, error)

// Resolver maps natural keys (title, email) of one entity type to ids. It
// is scoped to a single job execution and thrown away with it; resolvers
// are never shared across jobs or tenants.
type Resolver struct {
	cache *lru.Cache[string, uuid.UUID]
	probe ProbeFunc
}

func NewResolver(capacity int, probe ProbeFunc) (*Resolver, error) {
	cache, err := lru.New[string, uuid.UUID](capacity)
	if err != nil {
		return nil, err
	}
	return &Resolver{cache: cache, probe: probe}, nil
}

// Seed preloads existing tenant data at job start.
func (r *Resolver) Seed(pairs map[string]uuid.UUID) {
	for key, id := range pairs {
		r.cache.Add(NormalizeKey(key), id)
	}
}

// Resolve returns the id for a raw reference. A definitive miss (cache and
// probe) reports found=false; the caller turns that into
// foreign_key_not_found with the raw value as parameter.
func (r *Resolver) Resolve(ctx context.Context, raw string) (uuid.UUID, bool, error) {
	key := NormalizeKey(raw)
	if key == "" {
		return uuid.Nil, false, nil
	}
	if id, ok := r.cache.Get(key); ok {
		return id, true, nil
	}
	if r.probe == nil {
		return uuid.Nil, false, nil
	}
	id, found, err := r.probe(ctx, key)
	if err != nil {
		return uuid.Nil, false, err
	}
	if !found {
		return uuid.Nil, false, nil
	}
	r.cache.Add(key, id)
	return id, true, nil
}

// Put records a newly created entity so later rows in the same file can
// reference it.
func (r *Resolver) Put(raw string, id uuid.UUID) {
	key := NormalizeKey(raw)
	if key == "" {
		return
	}
	r.cache.Add(key, id)
}

// Entries snapshots the cached key-to-id pairs. Chunked runs harvest these
// after a commit so the next chunk only sees ids that are durable.
func (r *Resolver) Entries() map[string]uuid.UUID {
	entries := make(map[string]uuid.UUID, r.cache.Len())
	for _, key := range r.cache.Keys() {
		if id, ok := r.cache.Peek(key); ok {
			entries[key] = id
		}
	}
	return entries
}

// NormalizeKey folds a human-entered reference for matching: trimmed,
// casefolded, inner whitespace collapsed.
func NormalizeKey(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// ResolverSet holds the per-entity-type resolvers of one job execution.
type ResolverSet struct {
	resolvers map[EntityType]*Resolver
}

func NewResolverSet() *ResolverSet {
	return &ResolverSet{resolvers: map[EntityType]*Resolver{}}
}

func (s *ResolverSet) Add(t EntityType, r *Resolver) {
	s.resolvers[t] = r
}

func (s *ResolverSet) For(t EntityType) (*Resolver, bool) {
	r, ok := s.resolvers[t]
	return r, ok
}

// ResolveRefs fills rec.ResolvedRefs for every raw reference, emitting
// foreign_key_not_found outcomes for definitive misses.
func (s *ResolverSet) ResolveRefs(ctx context.Context, rec *Record, schema *Schema) ([]FieldOutcome, error) {
	outcomes := []FieldOutcome(nil)
	for _, spec := range schema.Fields {
		if spec.Kind != KindRef {
			continue
		}
		raw, ok := rec.Refs[spec.Name]
		if !ok {
			continue
		}
		resolver, ok := s.For(spec.Ref)
		if !ok {
			outcomes = append(outcomes, ErrorOutcome(spec.Name, raw, CodeForeignKeyNotFound, map[string]string{
				"value": raw,
			}))
			continue
		}
		id, found, err := resolver.Resolve(ctx, raw)
		if err != nil {
			return nil, err
		}
		if !found {
			outcomes = append(outcomes, ErrorOutcome(spec.Name, raw, CodeForeignKeyNotFound, map[string]string{
				"value": raw,
			}))
			continue
		}
		rec.ResolvedRefs[spec.Name] = id
	}
	return outcomes, nil
}
