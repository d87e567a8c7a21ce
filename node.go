package gqlcompose

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
)

// Internal holds the bookkeeping attributes every content node carries.
type Internal struct {
	// Type is the node type name, e.g. "MarkdownRemark".
	Type string `json:"type" yaml:"type" msgpack:"type"`
	// ContentDigest changes whenever the node content changes.
	ContentDigest string `json:"contentDigest,omitempty" yaml:"contentDigest,omitempty" msgpack:"contentDigest,omitempty"`
	// Owner is the name of the plugin that created the node.
	Owner string `json:"owner,omitempty" yaml:"owner,omitempty" msgpack:"owner,omitempty"`
	// MediaType is the mime type of the node content, if any.
	MediaType string `json:"mediaType,omitempty" yaml:"mediaType,omitempty" msgpack:"mediaType,omitempty"`
}

// Node is a content record. The schema core only reads nodes.
type Node struct {
	ID       string         `json:"id" yaml:"id"`
	Parent   string         `json:"parent,omitempty" yaml:"parent,omitempty"`
	Children []string       `json:"children,omitempty" yaml:"children,omitempty"`
	Internal Internal       `json:"internal" yaml:"internal"`
	Fields   map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Reserved node keys that are never treated as content fields.
const (
	FieldID       = "id"
	FieldParent   = "parent"
	FieldChildren = "children"
	FieldInternal = "internal"
)

// IsReservedField reports whether name is one of the node bookkeeping keys.
func IsReservedField(name string) bool {
	switch name {
	case FieldID, FieldParent, FieldChildren, FieldInternal:
		return true
	}
	return false
}

// Get returns the value stored under name. Bookkeeping keys are mapped to
// the typed attributes of the node.
func (n *Node) Get(name string) (any, bool) {
	if n == nil {
		return nil, false
	}
	switch name {
	case FieldID:
		return n.ID, true
	case FieldParent:
		if n.Parent == "" {
			return nil, true
		}
		return n.Parent, true
	case FieldChildren:
		return n.Children, true
	case FieldInternal:
		return map[string]any{
			"type":          n.Internal.Type,
			"contentDigest": n.Internal.ContentDigest,
			"owner":         n.Internal.Owner,
			"mediaType":     n.Internal.MediaType,
		}, true
	}
	v, ok := n.Fields[name]
	return v, ok
}

// Type returns the node type name.
func (n *Node) Type() string { return n.Internal.Type }

// NodeStore is the read-only content-record store the schema core consumes.
// Implementations must be safe for concurrent use.
type NodeStore interface {
	// Types returns the names of all node types present in the store.
	Types(ctx context.Context) ([]string, error)
	// NodesByType returns all nodes of the given type.
	NodesByType(ctx context.Context, typeName string) ([]*Node, error)
	// NodeByID returns the node with the given id or (nil, nil) if missing.
	NodeByID(ctx context.Context, id string) (*Node, error)
}

// BatchNodeStore is implemented by stores that can load many nodes in one
// round trip. Results are unordered; missing ids are omitted.
type BatchNodeStore interface {
	NodeStore
	NodesByIDs(ctx context.Context, ids []string) ([]*Node, error)
}

// MemStore is an in-memory NodeStore.
type MemStore struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	byType map[string][]string
}

var _ BatchNodeStore = (*MemStore)(nil)

// NewMemStore returns a store holding the given nodes.
func NewMemStore(nodes ...*Node) *MemStore {
	s := &MemStore{
		nodes:  make(map[string]*Node),
		byType: make(map[string][]string),
	}
	for _, n := range nodes {
		_ = s.Add(n)
	}
	return s
}

// Add inserts or replaces a node.
func (s *MemStore) Add(n *Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("gqlcompose: node id cannot be empty")
	}
	if n.Internal.Type == "" {
		return fmt.Errorf("gqlcompose: node %q has no internal type", n.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.nodes[n.ID]; ok {
		s.unindex(old)
	}
	s.nodes[n.ID] = n
	s.byType[n.Internal.Type] = append(s.byType[n.Internal.Type], n.ID)
	return nil
}

// Delete removes the node with the given id.
func (s *MemStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.nodes[id]; ok {
		s.unindex(old)
		delete(s.nodes, id)
	}
}

func (s *MemStore) unindex(n *Node) {
	ids := s.byType[n.Internal.Type]
	if i := slices.Index(ids, n.ID); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(s.byType, n.Internal.Type)
		return
	}
	s.byType[n.Internal.Type] = ids
}

// Types implements NodeStore.
func (s *MemStore) Types(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.byType)), nil
}

// NodesByType implements NodeStore. Nodes are returned in insertion order.
func (s *MemStore) NodesByType(_ context.Context, typeName string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byType[typeName]
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, s.nodes[id])
	}
	return nodes, nil
}

// NodeByID implements NodeStore.
func (s *MemStore) NodeByID(_ context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[id], nil
}

// NodesByIDs implements BatchNodeStore.
func (s *MemStore) NodesByIDs(_ context.Context, ids []string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// Len returns the number of stored nodes.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
