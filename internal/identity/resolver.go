// Package identity resolves human-readable sensor names to their stable
// identifiers, creating the mapping on first sight.
package identity

import (
	"context"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/simplelru"

	"sensorcore/pkg/domain"
	"sensorcore/pkg/logger"
)

// DefaultCacheSize bounds the in-process name cache. One entry per distinct
// sensor seen in a run; the cap only matters for corpora with very wide
// sensor populations.
const DefaultCacheSize = 16384

// MetadataStore is the slice of the metadata persistence layer the resolver
// needs.
type MetadataStore interface {
	LookupSensor(ctx context.Context, name string) (uuid.UUID, bool, error)
	RegisterSensor(ctx context.Context, info domain.SensorInfo) (uuid.UUID, error)
}

// Resolver memoizes name-to-identifier resolution over the metadata store.
// The cache is an optimization scoped to one resolver instance, not a source
// of truth: uniqueness is enforced by the store's constraint, so concurrent
// ingestion runs against the same store stay correct. The resolver itself is
// owned by a single ingestion or retrieval flow and is not goroutine-safe.
type Resolver struct {
	store MetadataStore
	cache *lru.LRU[string, uuid.UUID]
	log   *logger.Logger

	newUUID func() uuid.UUID
}

// NewResolver builds a resolver over the given metadata store. cacheSize <= 0
// selects DefaultCacheSize.
func NewResolver(store MetadataStore, cacheSize int) *Resolver {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.NewLRU[string, uuid.UUID](cacheSize, nil)
	if err != nil {
		// Only reachable with a non-positive size, which is guarded above.
		panic(err)
	}
	return &Resolver{
		store:   store,
		cache:   cache,
		log:     logger.GetLogger("identity"),
		newUUID: uuid.New,
	}
}

// Resolve returns the stable identifier for name. On first sight it
// generates a fresh identifier and registers the mapping; a concurrent
// registration of the same name racing in is tolerated by re-reading what
// the store decided. Resolution is total for any non-empty name.
func (r *Resolver) Resolve(ctx context.Context, name string) (uuid.UUID, error) {
	if name == "" {
		return uuid.Nil, domain.ErrEmptySensorName
	}
	if id, ok := r.cache.Get(name); ok {
		return id, nil
	}
	id, found, err := r.store.LookupSensor(ctx, name)
	if err != nil {
		return uuid.Nil, err
	}
	if !found {
		id, err = r.store.RegisterSensor(ctx, domain.SensorInfo{
			SensorName: name,
			SensorUUID: r.newUUID(),
		})
		if err != nil {
			return uuid.Nil, err
		}
		r.log.Debug().Str("sensor", name).Str("uuid", id.String()).Msg("registered new sensor")
	}
	r.cache.Add(name, id)
	return id, nil
}

// Lookup resolves a name without creating a mapping. found=false means the
// sensor has never reported data, which retrieval treats as an empty result.
func (r *Resolver) Lookup(ctx context.Context, name string) (uuid.UUID, bool, error) {
	if name == "" {
		return uuid.Nil, false, domain.ErrEmptySensorName
	}
	if id, ok := r.cache.Get(name); ok {
		return id, true, nil
	}
	id, found, err := r.store.LookupSensor(ctx, name)
	if err != nil || !found {
		return uuid.Nil, false, err
	}
	r.cache.Add(name, id)
	return id, true, nil
}
