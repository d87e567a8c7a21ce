package infer

import (
	"bytes"
	"encoding/hex"
	"errors"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/gqlcompose"
)

// RefSuffix marks record keys holding node ids.
const RefSuffix = "___NODE"

// maxRefIDs bounds the ids remembered per reference path.
const maxRefIDs = 100

// Descriptor accumulates the value shapes observed at one field path.
type Descriptor struct {
	Int     int `msgpack:"int,omitempty"`
	Float   int `msgpack:"float,omitempty"`
	Date    int `msgpack:"date,omitempty"`
	String  int `msgpack:"string,omitempty"`
	Boolean int `msgpack:"boolean,omitempty"`
	// List counts list values; Item describes their elements.
	List int         `msgpack:"list,omitempty"`
	Item *Descriptor `msgpack:"item,omitempty"`
	// Object counts nested objects; Props describes their keys.
	Object int    `msgpack:"object,omitempty"`
	Props  *Shape `msgpack:"props,omitempty"`
	// Ref and RefList count single and list node references.
	Ref     int      `msgpack:"ref,omitempty"`
	RefList int      `msgpack:"refList,omitempty"`
	RefIDs  []string `msgpack:"refIds,omitempty"`
}

// Shape describes the keys of an object in first-seen order.
type Shape struct {
	Keys   []string               `msgpack:"keys"`
	Fields map[string]*Descriptor `msgpack:"fields"`
}

func newShape() *Shape {
	return &Shape{Fields: map[string]*Descriptor{}}
}

func (s *Shape) field(key string) *Descriptor {
	d, ok := s.Fields[key]
	if !ok {
		d = &Descriptor{}
		s.Fields[key] = d
		s.Keys = append(s.Keys, key)
	}
	return d
}

func (s *Shape) observe(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := values[k]
		if v == nil {
			continue
		}
		if strings.HasSuffix(k, RefSuffix) {
			s.field(k).observeRef(v)
			continue
		}
		s.field(k).observe(v)
	}
}

func (d *Descriptor) observe(v any) {
	switch classify(v) {
	case kindInt:
		d.Int++
	case kindFloat:
		d.Float++
	case kindDate:
		d.Date++
	case kindString:
		d.String++
	case kindBoolean:
		d.Boolean++
	case kindList:
		d.List++
		for _, e := range elems(v) {
			if e == nil {
				continue
			}
			if d.Item == nil {
				d.Item = &Descriptor{}
			}
			d.Item.observe(e)
		}
	case kindObject:
		d.Object++
		if d.Props == nil {
			d.Props = newShape()
		}
		d.Props.observe(entries(v))
	}
}

func (d *Descriptor) observeRef(v any) {
	switch v := v.(type) {
	case string:
		d.Ref++
		d.addRefID(v)
	default:
		if classify(v) != kindList {
			d.String++
			return
		}
		d.RefList++
		for _, e := range elems(v) {
			if id, ok := e.(string); ok {
				d.addRefID(id)
			}
		}
	}
}

func (d *Descriptor) addRefID(id string) {
	if len(d.RefIDs) < maxRefIDs && !slices.Contains(d.RefIDs, id) {
		d.RefIDs = append(d.RefIDs, id)
	}
}

// TypeMetadata is the accumulated sample of one node type.
type TypeMetadata struct {
	Type string `msgpack:"type"`
	// Total is the number of sampled nodes.
	Total int    `msgpack:"total"`
	Owner string `msgpack:"owner,omitempty"`
	Shape *Shape `msgpack:"shape"`
	// Digests maps node ids to content digests of every known node.
	Digests map[string]string `msgpack:"digests"`
}

func newTypeMetadata(name string) *TypeMetadata {
	return &TypeMetadata{Type: name, Shape: newShape(), Digests: map[string]string{}}
}

func (tm *TypeMetadata) observe(n *gqlcompose.Node) {
	tm.Total++
	if tm.Owner == "" {
		tm.Owner = n.Internal.Owner
	}
	fields := n.Fields
	for k := range fields {
		if gqlcompose.IsReservedField(k) {
			fields = make(map[string]any, len(n.Fields))
			for k, v := range n.Fields {
				if !gqlcompose.IsReservedField(k) {
					fields[k] = v
				}
			}
			break
		}
	}
	tm.Shape.observe(fields)
}

// Metadata holds the inference samples of all node types.
type Metadata struct {
	mu    sync.Mutex
	types map[string]*TypeMetadata
}

// NewMetadata returns an empty metadata store.
func NewMetadata() *Metadata {
	return &Metadata{types: map[string]*TypeMetadata{}}
}

// Type returns the metadata of the named type, or nil.
func (m *Metadata) Type(name string) *TypeMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[name]
}

// Types returns the names of the sampled types.
func (m *Metadata) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gqlcompose.SortedKeys(m.types)
}

// Reset drops the metadata of the named type.
func (m *Metadata) Reset(name string) {
	m.mu.Lock()
	delete(m.types, name)
	m.mu.Unlock()
}

func (m *Metadata) typeMetadata(name string) *TypeMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	tm, ok := m.types[name]
	if !ok {
		tm = newTypeMetadata(name)
		m.types[name] = tm
	}
	return tm
}

// Update folds the current nodes of a type into its metadata and reports
// whether the metadata changed. New nodes are sampled incrementally; a
// changed or deleted node causes the type to be sampled again from scratch.
// A sampleSize <= 0 samples every node.
func (m *Metadata) Update(typeName string, nodes []*gqlcompose.Node, sampleSize int) bool {
	tm := m.typeMetadata(typeName)
	digests := make(map[string]string, len(nodes))
	var added []*gqlcompose.Node
	rescan := false
	for _, n := range nodes {
		d := Digest(n)
		digests[n.ID] = d
		old, ok := tm.Digests[n.ID]
		switch {
		case !ok:
			added = append(added, n)
		case old != d:
			rescan = true
		}
	}
	for id := range tm.Digests {
		if _, ok := digests[id]; !ok {
			rescan = true
			break
		}
	}
	switch {
	case rescan:
		*tm = *newTypeMetadata(typeName)
		added = nodes
	case len(added) == 0:
		return false
	}
	for _, n := range added {
		if sampleSize > 0 && tm.Total >= sampleSize {
			break
		}
		tm.observe(n)
	}
	tm.Digests = digests
	return true
}

// Digest returns a digest of the content and the links of n. The content
// digest of the node stands in for its fields when set.
func Digest(n *gqlcompose.Node) string {
	var content any = n.Fields
	if n.Internal.ContentDigest != "" {
		content = n.Internal.ContentDigest
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	_ = enc.Encode([]any{content, n.Parent, n.Children})
	h := fnv.New64a()
	_, _ = h.Write(buf.Bytes())
	return hex.EncodeToString(h.Sum(nil))
}

// Save writes the metadata in msgpack format.
func (m *Metadata) Save(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return msgpack.NewEncoder(w).Encode(m.types)
}

// Load reads metadata written by Save.
func Load(r io.Reader) (*Metadata, error) {
	m := NewMetadata()
	if err := msgpack.NewDecoder(r).Decode(&m.types); err != nil {
		return nil, err
	}
	if m.types == nil {
		m.types = map[string]*TypeMetadata{}
	}
	return m, nil
}

// SaveFile writes the metadata to path, creating parent directories.
func (m *Metadata) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadFile reads metadata from path. A missing file yields empty metadata.
func LoadFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewMetadata(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
