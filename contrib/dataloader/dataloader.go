// Package dataloader batches and caches node lookups made by resolvers.
//
// A NodeLoader lives for one request. Link and children resolvers load the
// referenced ids through it, so a page of nodes that point at the same
// parent hits the store once.
//
//	ctx = dataloader.WithLoaders(ctx, dataloader.NewNodeLoader(store))
//	...
//	author, err := dataloader.For[*dataloader.NodeLoader](ctx).Load(ctx, id)
package dataloader

import (
	"context"
	"errors"
	"sync"

	"github.com/syssam/gqlcompose"
)

// ErrNotFound is returned when an entity is not found in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders entities to match the order of requested keys.
// Missing entities are represented as zero values with corresponding errors.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups entities by a key function, keeping input order inside
// each group.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// CachePrimer primes a loader cache with known values.
type CachePrimer[K comparable, V any] interface {
	Prime(key K, value V)
}

// PrimeMany primes multiple values into a cache.
func PrimeMany[K comparable, V any](cache CachePrimer[K, V], values []V, keyFn KeyFunc[K, V]) {
	for _, v := range values {
		cache.Prime(keyFn(v), v)
	}
}

// CacheClearer clears values from a loader cache.
type CacheClearer[K comparable] interface {
	Clear(key K)
}

// ClearMany clears multiple keys from a cache.
func ClearMany[K comparable](cache CacheClearer[K], keys []K) {
	for _, key := range keys {
		cache.Clear(key)
	}
}

// NodeID is the KeyFunc of nodes.
func NodeID(n *gqlcompose.Node) string { return n.ID }

// NodeLoader loads nodes by id and caches them for its lifetime.
type NodeLoader struct {
	store gqlcompose.NodeStore

	mu    sync.Mutex
	cache map[string]*gqlcompose.Node
}

var (
	_ CachePrimer[string, *gqlcompose.Node] = (*NodeLoader)(nil)
	_ CacheClearer[string]                  = (*NodeLoader)(nil)
)

// NewNodeLoader returns a loader reading from store.
func NewNodeLoader(store gqlcompose.NodeStore) *NodeLoader {
	return &NodeLoader{store: store, cache: make(map[string]*gqlcompose.Node)}
}

// Load returns the node with the given id, or nil if it does not exist.
func (l *NodeLoader) Load(ctx context.Context, id string) (*gqlcompose.Node, error) {
	nodes, err := l.LoadMany(ctx, []string{id})
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

// LoadMany returns the nodes with the given ids in request order. Unknown
// ids are omitted.
func (l *NodeLoader) LoadMany(ctx context.Context, ids []string) ([]*gqlcompose.Node, error) {
	var missing []string
	l.mu.Lock()
	for _, id := range ids {
		if _, ok := l.cache[id]; !ok {
			missing = append(missing, id)
		}
	}
	l.mu.Unlock()
	if len(missing) > 0 {
		loaded, err := l.fetch(ctx, missing)
		if err != nil {
			return nil, err
		}
		PrimeMany(l, loaded, NodeID)
	}

	l.mu.Lock()
	cached := make([]*gqlcompose.Node, 0, len(ids))
	for _, id := range ids {
		if n := l.cache[id]; n != nil {
			cached = append(cached, n)
		}
	}
	l.mu.Unlock()
	ordered, errs := OrderByKeys(ids, cached, NodeID)
	nodes := make([]*gqlcompose.Node, 0, len(ordered))
	for i, n := range ordered {
		if errs[i] == nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func (l *NodeLoader) fetch(ctx context.Context, ids []string) ([]*gqlcompose.Node, error) {
	if b, ok := l.store.(gqlcompose.BatchNodeStore); ok {
		return b.NodesByIDs(ctx, ids)
	}
	nodes := make([]*gqlcompose.Node, 0, len(ids))
	for _, id := range ids {
		n, err := l.store.NodeByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// Prime implements CachePrimer.
func (l *NodeLoader) Prime(id string, n *gqlcompose.Node) {
	l.mu.Lock()
	l.cache[id] = n
	l.mu.Unlock()
}

// Clear implements CacheClearer.
func (l *NodeLoader) Clear(id string) {
	l.mu.Lock()
	delete(l.cache, id)
	l.mu.Unlock()
}

// ctxKey is the context key for storing loaders.
type ctxKey struct{}

// WithLoaders injects loaders into the context.
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For extracts loaders from context.
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}

// Nodes returns the NodeLoader stored in ctx, or a new uncached-per-call
// loader over store when ctx carries none.
func Nodes(ctx context.Context, store gqlcompose.NodeStore) *NodeLoader {
	if l := For[*NodeLoader](ctx); l != nil {
		return l
	}
	return NewNodeLoader(store)
}
