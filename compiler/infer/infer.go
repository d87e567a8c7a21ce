// Package infer derives GraphQL types from sampled node content.
package infer

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/schema"
)

// DefaultSampleSize is the number of nodes sampled per type.
const DefaultSampleSize = 1000

// Option configures an Engine.
type Option func(*Engine)

// WithSampleSize bounds the number of nodes sampled per type. A size <= 0
// samples every node.
func WithSampleSize(n int) Option {
	return func(e *Engine) { e.sampleSize = n }
}

// WithConflictThreshold sets the disagreement count at which an ambiguous
// field is reported.
func WithConflictThreshold(n int) Option {
	return func(e *Engine) { e.threshold = n }
}

// WithMetadata reuses previously collected metadata.
func WithMetadata(m *Metadata) Option {
	return func(e *Engine) {
		if m != nil {
			e.metadata = m
		}
	}
}

// WithWorkers bounds the number of types inferred concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// Engine infers types from the content of a NodeStore.
type Engine struct {
	store      gqlcompose.NodeStore
	reporter   gqlcompose.Reporter
	metadata   *Metadata
	conflicts  *ConflictReporter
	sampleSize int
	threshold  int
	workers    int
}

// New returns an engine reading from store.
func New(store gqlcompose.NodeStore, rep gqlcompose.Reporter, opts ...Option) *Engine {
	if rep == nil {
		rep = &gqlcompose.Recorder{}
	}
	e := &Engine{
		store:      store,
		reporter:   rep,
		metadata:   NewMetadata(),
		sampleSize: DefaultSampleSize,
		threshold:  1,
		workers:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.conflicts = NewConflictReporter(rep, e.threshold)
	return e
}

// Metadata returns the collected samples.
func (e *Engine) Metadata() *Metadata { return e.metadata }

// Conflicts returns the ambiguities reported so far.
func (e *Engine) Conflicts() []*gqlcompose.InferenceAmbiguity { return e.conflicts.Conflicts() }

// Sample refreshes the metadata of typeName from the store and reports
// whether it changed.
func (e *Engine) Sample(ctx context.Context, typeName string) (bool, error) {
	nodes, err := e.store.NodesByType(ctx, typeName)
	if err != nil {
		return false, fmt.Errorf("gqlcompose: loading %s nodes: %w", typeName, err)
	}
	if len(nodes) == 0 {
		changed := e.metadata.Type(typeName) != nil
		e.metadata.Reset(typeName)
		return changed, nil
	}
	return e.metadata.Update(typeName, nodes, e.sampleSize), nil
}

// Infer samples every node type of the store and adds the inferred types
// and fields to reg. Types are processed concurrently; edits to types that
// several node types can reach are applied afterwards, one at a time.
func (e *Engine) Infer(ctx context.Context, reg *schema.Registry) error {
	types, err := e.store.Types(ctx)
	if err != nil {
		return fmt.Errorf("gqlcompose: listing node types: %w", err)
	}
	var (
		mu    sync.Mutex
		edits []sharedEdit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.workers, 1))
	for _, name := range types {
		g.Go(func() error {
			if _, err := e.Sample(gctx, name); err != nil {
				return err
			}
			ed, err := e.inferType(gctx, reg, name)
			mu.Lock()
			edits = append(edits, ed...)
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	e.applyEdits(ctx, reg, edits)
	return nil
}

// InferType adds the inferred fields of typeName to reg using the current
// metadata. Types marked @dontInfer are left alone; explicit fields always
// win over inferred ones.
func (e *Engine) InferType(ctx context.Context, reg *schema.Registry, typeName string) error {
	edits, err := e.inferType(ctx, reg, typeName)
	if err != nil {
		return err
	}
	e.applyEdits(ctx, reg, edits)
	return nil
}

// inferType infers typeName and returns the edits it could not apply
// without touching types shared with other node types.
func (e *Engine) inferType(ctx context.Context, reg *schema.Registry, typeName string) ([]sharedEdit, error) {
	tm := e.metadata.Type(typeName)
	if tm == nil || tm.Total == 0 {
		return nil, nil
	}
	t := reg.Get(typeName)
	created := t == nil || t.Extensions.IsPlaceholder()
	if created {
		t = schema.NewType(typeName, schema.KindObject)
		t.AddInterface(schema.NodeInterface)
	} else if !inferrable(t) {
		return nil, nil
	}
	b := &builder{
		Engine: e,
		ctx:    ctx,
		reg:    reg,
		root:   typeName,
		owner:  tm.Owner,
	}
	b.addFields(t, tm.Shape, typeName, typeName, true)
	t.SetExtension(schema.ExtInferredTypes, b.nested)
	if created {
		if _, err := reg.Add(t, tm.Owner, schema.FromInference); err != nil {
			return nil, err
		}
	}
	return b.edits, nil
}

// sharedEdit is a change to a type reachable from several node types: an
// explicit nested object or an inferred union.
type sharedEdit struct {
	root  string
	owner string
	path  string
	apply func(b *builder)
}

// applyEdits applies edits in a stable order. Nested types created by an
// edit are recorded on the node type that caused it.
func (e *Engine) applyEdits(ctx context.Context, reg *schema.Registry, edits []sharedEdit) {
	slices.SortStableFunc(edits, func(a, b sharedEdit) int {
		return cmp.Or(strings.Compare(a.root, b.root), strings.Compare(a.path, b.path))
	})
	for _, ed := range edits {
		b := &builder{Engine: e, ctx: ctx, reg: reg, root: ed.root, owner: ed.owner, serial: true}
		ed.apply(b)
		root := reg.Get(ed.root)
		if len(b.nested) == 0 || root == nil {
			continue
		}
		names := root.Extensions.Strings(schema.ExtInferredTypes)
		for _, n := range b.nested {
			if !slices.Contains(names, n) {
				names = append(names, n)
			}
		}
		root.SetExtension(schema.ExtInferredTypes, names)
	}
}

func inferrable(t *schema.Type) bool {
	if t.Kind != schema.KindObject {
		return false
	}
	infer, set := t.Extensions.Infer()
	return !set || infer
}

// Clear removes the inferred fields of typeName and the nested types that
// were inferred for it.
func Clear(reg *schema.Registry, typeName string) {
	t := reg.Get(typeName)
	if t == nil {
		return
	}
	for _, name := range t.Extensions.Strings(schema.ExtInferredTypes) {
		reg.Remove(name)
	}
	delete(t.Extensions, schema.ExtInferredTypes)
	clearFields(reg, t, map[string]bool{})
}

func clearFields(reg *schema.Registry, t *schema.Type, seen map[string]bool) {
	if seen[t.Name] {
		return
	}
	seen[t.Name] = true
	for _, f := range t.Fields() {
		if f.Extensions.CreatedFrom() == schema.FromInference {
			t.RemoveField(f.Name)
			continue
		}
		nested := reg.Get(f.Type.BaseName())
		if nested != nil && nested.Kind == schema.KindObject && !nested.IsNode() {
			clearFields(reg, nested, seen)
		}
	}
}

// builder infers the fields of one node type. Unless serial is set, edits
// to shared types are queued instead of applied.
type builder struct {
	*Engine
	ctx    context.Context
	reg    *schema.Registry
	root   string
	owner  string
	nested []string
	serial bool
	edits  []sharedEdit
}

func (b *builder) shared(path string, apply func(b *builder)) {
	if b.serial {
		apply(b)
		return
	}
	b.edits = append(b.edits, sharedEdit{root: b.root, owner: b.owner, path: path, apply: apply})
}

// addFields adds a field per key of shape to t. prefix names nested types.
func (b *builder) addFields(t *schema.Type, shape *Shape, prefix, path string, top bool) {
	seen := map[string]string{}
	for _, key := range shape.Keys {
		d := shape.Fields[key]
		name, ref := strings.CutSuffix(key, RefSuffix)
		fieldName := FieldName(name)
		if fieldName == "" || top && gqlcompose.IsReservedField(fieldName) {
			continue
		}
		if prev, ok := seen[fieldName]; ok {
			b.reporter.Warn(fmt.Sprintf("gqlcompose: keys %q and %q of %s both map to field %q; %q is ignored",
				prev, key, path, fieldName, key))
			continue
		}
		seen[fieldName] = key
		fieldPath := path + "." + key
		if existing := t.Field(fieldName); existing != nil && existing.Extensions.CreatedFrom() != schema.FromInference {
			b.extendExplicit(existing, d, fieldPath)
			continue
		}
		var f *schema.Field
		if ref {
			f = b.refField(fieldName, key, d, fieldPath)
		} else {
			f = b.valueField(fieldName, d, inflect.Camelize(prefix+"_"+fieldName), fieldPath)
			if f != nil && fieldName != key {
				f.SetExtension(schema.ExtProxy, map[string]any{"from": key})
			}
		}
		if f == nil {
			continue
		}
		f.SetExtension(schema.ExtCreatedFrom, schema.FromInference)
		if b.owner != "" {
			f.SetExtension(schema.ExtPlugin, b.owner)
		}
		t.SetField(f)
	}
}

// extendExplicit adds missing inferred fields to an explicitly declared
// nested object type.
func (b *builder) extendExplicit(f *schema.Field, d *Descriptor, path string) {
	for d.List > 0 && d.Item != nil && d.Object == 0 {
		d = d.Item
	}
	if d.Object == 0 || d.Props == nil {
		return
	}
	name, props := f.Type.BaseName(), d.Props
	b.shared(path, func(b *builder) {
		nested := b.reg.Get(name)
		if nested == nil || nested.IsNode() || !inferrable(nested) {
			return
		}
		b.addFields(nested, props, nested.Name, path, false)
	})
}

func (b *builder) valueField(name string, d *Descriptor, nestedName, path string) *schema.Field {
	ref := b.typeRef(d, nestedName, path)
	if ref == nil {
		return nil
	}
	f := schema.NewField(name, ref)
	if ref.BaseName() == schema.DateScalar {
		f.SetExtension(schema.ExtDateformat, map[string]any{})
	}
	return f
}

// typeRef resolves a descriptor to a type, creating nested object types.
// It returns nil when no usable value was observed.
func (b *builder) typeRef(d *Descriptor, nestedName, path string) *schema.TypeRef {
	counts := map[string]int{
		"Int":     d.Int,
		"Float":   d.Float,
		"Date":    d.Date,
		"String":  d.String,
		"Boolean": d.Boolean,
		"object":  d.Object,
	}
	if d.Item != nil {
		counts["list"] = d.List
	}
	observed := map[string]int{}
	for k, v := range counts {
		if v > 0 {
			observed[k] = v
		}
	}
	resolved := maps.Clone(observed)
	if resolved["Int"] > 0 && resolved["Float"] > 0 {
		resolved["Float"] += resolved["Int"]
		delete(resolved, "Int")
	}
	if resolved["Date"] > 0 && resolved["String"] > 0 {
		resolved["String"] += resolved["Date"]
		delete(resolved, "Date")
	}
	switch len(resolved) {
	case 0:
		return nil
	case 1:
	default:
		total, most := 0, 0
		for _, v := range observed {
			total += v
			most = max(most, v)
		}
		b.conflicts.Add(&gqlcompose.InferenceAmbiguity{
			Type:     b.root,
			Path:     strings.TrimPrefix(path, b.root+"."),
			Observed: observed,
			Resolved: schema.JSONScalar,
		}, total-most)
		return schema.Named(schema.JSONScalar)
	}
	var shape string
	for k := range resolved {
		shape = k
	}
	switch shape {
	case "list":
		item := b.typeRef(d.Item, nestedName, path+"[]")
		if item == nil {
			return nil
		}
		return schema.ListOf(item)
	case "object":
		return b.objectRef(d.Props, nestedName, path)
	default:
		return schema.Named(shape)
	}
}

// objectRef creates or extends the nested object type nestedName.
func (b *builder) objectRef(props *Shape, nestedName, path string) *schema.TypeRef {
	if props == nil || len(props.Keys) == 0 {
		return nil
	}
	if existing := b.reg.Get(nestedName); existing != nil && !existing.Extensions.IsPlaceholder() &&
		existing.Extensions.CreatedFrom() != schema.FromInference {
		if existing.Kind == schema.KindObject && inferrable(existing) {
			b.shared(path, func(b *builder) { b.addFields(existing, props, nestedName, path, false) })
		}
		return schema.Named(nestedName)
	}
	t := schema.NewType(nestedName, schema.KindObject)
	b.addFields(t, props, nestedName, path, false)
	if t.NumFields() == 0 {
		return nil
	}
	if _, err := b.reg.Add(t, b.owner, schema.FromInference); err != nil {
		b.reporter.Error(err.Error())
		return nil
	}
	if !slices.Contains(b.nested, nestedName) {
		b.nested = append(b.nested, nestedName)
	}
	return schema.Named(nestedName)
}

// refField builds a field linking to the nodes referenced by id.
func (b *builder) refField(name, key string, d *Descriptor, path string) *schema.Field {
	if d.String > 0 {
		b.conflicts.Add(&gqlcompose.InferenceAmbiguity{
			Type:     b.root,
			Path:     strings.TrimPrefix(path, b.root+"."),
			Observed: map[string]int{"reference": d.Ref + d.RefList, "other": d.String},
			Resolved: "reference",
		}, min(d.String, d.Ref+d.RefList))
	}
	if d.Ref == 0 && d.RefList == 0 {
		return nil
	}
	var types []string
	for _, id := range d.RefIDs {
		n, err := b.store.NodeByID(b.ctx, id)
		if err != nil || n == nil {
			continue
		}
		if !slices.Contains(types, n.Type()) {
			types = append(types, n.Type())
		}
	}
	if len(types) == 0 {
		return nil
	}
	slices.Sort(types)
	target := types[0]
	if len(types) > 1 {
		target = b.unionRef(types, path)
	}
	ref := schema.Named(target)
	if d.RefList > 0 {
		ref = schema.ListOf(ref)
	}
	f := schema.NewField(name, ref)
	f.SetExtension(schema.ExtLink, map[string]any{"by": "id", "from": key})
	return f
}

// unionRef returns the union of the given node types and registers it.
func (b *builder) unionRef(types []string, path string) string {
	name := strings.Join(types, "") + "Union"
	b.shared(path, func(b *builder) {
		if b.reg.Has(name) && !b.reg.Get(name).Extensions.IsPlaceholder() {
			return
		}
		u := schema.NewType(name, schema.KindUnion)
		u.AddMember(types...)
		if _, err := b.reg.Add(u, b.owner, schema.FromInference); err != nil {
			b.reporter.Error(err.Error())
		}
	})
	return name
}
