package p2p

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Entity names used in cache keys and stats.
const (
	EntityContentItem      = "content_item"
	EntityCollection       = "collection"
	EntityCollectionLayout = "collection_layout"
	EntitySection          = "section"
	EntitySectionConfig    = "section_configs"
	EntityThumb            = "thumb"
)

const cacheKeyPrefix = "p2p"

// EntityStats counts cache lookups and hits for one entity type.
type EntityStats struct {
	Gets uint64
	Hits uint64
}

// Store is the entity-level cache layer. It keys records as
// p2p:<entity>:<identity>:<query-signature>, keeps an id-to-slug lookup
// entry for content items, and records every signature stored per entity
// so removal can evict all query variants of an entity at once.
//
// Removal is always available; backends that cannot cache simply make it a
// no-op.
type Store struct {
	backend Cache

	mu    sync.Mutex
	stats map[string]*EntityStats
}

// NewStore creates an entity store over the given backend. A nil backend
// gets the no-op cache.
func NewStore(backend Cache) *Store {
	if backend == nil {
		backend = NewNoOpCache()
	}

	return &Store{
		backend: backend,
		stats:   make(map[string]*EntityStats),
	}
}

// Backend returns the underlying cache backend.
func (s *Store) Backend() Cache {
	return s.backend
}

// Get retrieves a cached record for the entity, identity, and query
// signature. The second return value reports a hit.
func (s *Store) Get(ctx context.Context, entity, identity, signature string) (Record, bool) {
	s.countGet(entity)

	entry, err := s.backend.Get(ctx, s.makeKey(entity, identity, signature))
	if err != nil {
		return nil, false
	}

	var raw map[string]interface{}

	err = json.Unmarshal(entry.Data, &raw)
	if err != nil {
		return nil, false
	}

	NormalizeResponse(raw)
	s.countHit(entity)

	return Record(raw), true
}

// Save stores a record under the entity, identity, and query signature,
// and records the signature in the entity's query index.
func (s *Store) Save(ctx context.Context, entity, identity, signature string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", entity, err)
	}

	etag, _ := rec["etag"].(string)

	err = s.backend.Set(ctx, s.makeKey(entity, identity, signature), &CacheEntry{Data: data, ETag: etag})
	if err != nil {
		return fmt.Errorf("caching %s record: %w", entity, err)
	}

	err = s.indexSignature(ctx, entity, identity, signature)
	if err != nil {
		return err
	}

	return nil
}

// Remove evicts every cached query variant of the entity.
func (s *Store) Remove(ctx context.Context, entity, identity string) error {
	for _, signature := range s.signatures(ctx, entity, identity) {
		err := s.backend.Delete(ctx, s.makeKey(entity, identity, signature))
		if err != nil {
			return fmt.Errorf("evicting %s record: %w", entity, err)
		}
	}

	err := s.backend.Delete(ctx, s.indexKey(entity, identity))
	if err != nil {
		return fmt.Errorf("evicting %s query index: %w", entity, err)
	}

	return nil
}

// GetContentItem retrieves a cached content item by slug.
func (s *Store) GetContentItem(ctx context.Context, slug, signature string) (Record, bool) {
	return s.Get(ctx, EntityContentItem, slug, signature)
}

// GetContentItemByID retrieves a cached content item by numeric id, going
// through the id-to-slug lookup entry.
func (s *Store) GetContentItemByID(ctx context.Context, id int64, signature string) (Record, bool) {
	slug, ok := s.lookupSlug(ctx, id)
	if !ok {
		s.countGet(EntityContentItem)

		return nil, false
	}

	return s.GetContentItem(ctx, slug, signature)
}

// SaveContentItem stores a content item under its slug and records the
// id-to-slug lookup entry so the item is reachable by id as well.
func (s *Store) SaveContentItem(ctx context.Context, item Record, signature string) error {
	slug := item.Slug()
	if slug == "" {
		return ErrMissingSlug
	}

	err := s.Save(ctx, EntityContentItem, slug, signature, item)
	if err != nil {
		return err
	}

	if id := item.ID(); id != 0 {
		entry := &CacheEntry{Data: []byte(slug)}

		err = s.backend.Set(ctx, s.lookupKey(id), entry)
		if err != nil {
			return fmt.Errorf("caching content item lookup: %w", err)
		}
	}

	return nil
}

// RemoveContentItem evicts every cached variant of the content item along
// with its id lookup entry.
func (s *Store) RemoveContentItem(ctx context.Context, slug string) error {
	// Find the id through any cached variant so the lookup entry goes too.
	for _, signature := range s.signatures(ctx, EntityContentItem, slug) {
		entry, err := s.backend.Get(ctx, s.makeKey(EntityContentItem, slug, signature))
		if err != nil {
			continue
		}

		var raw map[string]interface{}
		if json.Unmarshal(entry.Data, &raw) != nil {
			continue
		}

		if id := Record(raw).ID(); id != 0 {
			_ = s.backend.Delete(ctx, s.lookupKey(id))
		}

		break
	}

	return s.Remove(ctx, EntityContentItem, slug)
}

// RemoveContentItemByID evicts a content item addressed by id.
func (s *Store) RemoveContentItemByID(ctx context.Context, id int64) error {
	slug, ok := s.lookupSlug(ctx, id)
	if !ok {
		return nil
	}

	err := s.backend.Delete(ctx, s.lookupKey(id))
	if err != nil {
		return fmt.Errorf("evicting content item lookup: %w", err)
	}

	return s.Remove(ctx, EntityContentItem, slug)
}

// Stats returns a copy of the per-entity lookup counters.
func (s *Store) Stats() map[string]EntityStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]EntityStats, len(s.stats))
	for entity, stats := range s.stats {
		out[entity] = *stats
	}

	return out
}

// Clear drops the whole cache.
func (s *Store) Clear(ctx context.Context) error {
	err := s.backend.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	return nil
}

func (s *Store) makeKey(parts ...string) string {
	return strings.Join(append([]string{cacheKeyPrefix}, parts...), ":")
}

func (s *Store) lookupKey(id int64) string {
	return s.makeKey(EntityContentItem, strconv.FormatInt(id, 10), "lookup")
}

func (s *Store) indexKey(entity, identity string) string {
	return s.makeKey(entity, identity, "queries")
}

func (s *Store) lookupSlug(ctx context.Context, id int64) (string, bool) {
	entry, err := s.backend.Get(ctx, s.lookupKey(id))
	if err != nil || len(entry.Data) == 0 {
		return "", false
	}

	return string(entry.Data), true
}

// signatures lists the query signatures stored for an entity.
func (s *Store) signatures(ctx context.Context, entity, identity string) []string {
	entry, err := s.backend.Get(ctx, s.indexKey(entity, identity))
	if err != nil {
		return nil
	}

	var signatures []string

	err = json.Unmarshal(entry.Data, &signatures)
	if err != nil {
		return nil
	}

	return signatures
}

func (s *Store) indexSignature(ctx context.Context, entity, identity, signature string) error {
	signatures := s.signatures(ctx, entity, identity)

	for _, existing := range signatures {
		if existing == signature {
			return nil
		}
	}

	signatures = append(signatures, signature)

	data, err := json.Marshal(signatures)
	if err != nil {
		return fmt.Errorf("encoding %s query index: %w", entity, err)
	}

	err = s.backend.Set(ctx, s.indexKey(entity, identity), &CacheEntry{Data: data})
	if err != nil {
		return fmt.Errorf("caching %s query index: %w", entity, err)
	}

	return nil
}

func (s *Store) countGet(entity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entityStats(entity).Gets++
}

func (s *Store) countHit(entity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entityStats(entity).Hits++
}

// entityStats returns the counters for an entity. Caller holds the lock.
func (s *Store) entityStats(entity string) *EntityStats {
	stats, ok := s.stats[entity]
	if !ok {
		stats = &EntityStats{}
		s.stats[entity] = stats
	}

	return stats
}
