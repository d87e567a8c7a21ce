package gen

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/contrib/dataloader"
	"github.com/syssam/gqlcompose/schema"
)

// relation is one parent/child type pair.
type relation struct {
	parent, child string
	from          schema.CreatedFrom
}

// Relations synthesizes child and children accessor fields from explicit
// childOf declarations and from the children ids found in the store.
type Relations struct {
	reg   *schema.Registry
	store gqlcompose.NodeStore
	rep   gqlcompose.Reporter
}

// NewRelations returns a synthesizer over reg and store.
func NewRelations(reg *schema.Registry, store gqlcompose.NodeStore) *Relations {
	return &Relations{reg: reg, store: store, rep: reg.Reporter()}
}

// Add synthesizes the accessor fields of every parent type.
func (r *Relations) Add(ctx context.Context) error {
	explicit := r.explicit()
	inferred, err := r.inferred(ctx, explicit)
	if err != nil {
		return err
	}
	for _, rel := range append(explicit, inferred...) {
		r.addFields(rel)
	}
	return nil
}

// AddFor synthesizes the accessor fields of the parent type name only.
func (r *Relations) AddFor(ctx context.Context, name string) error {
	explicit := r.explicit()
	inferred, err := r.inferredFor(ctx, name, explicit)
	if err != nil {
		return err
	}
	for _, rel := range append(explicit, inferred...) {
		if rel.parent == name {
			r.addFields(rel)
		}
	}
	return nil
}

// Refresh synthesizes again the inferred accessor fields of the parent
// types that link to child, either through the children ids of their nodes
// or through accessors added by an earlier run. It returns the refreshed
// parent types.
func (r *Relations) Refresh(ctx context.Context, child string) ([]string, error) {
	types, err := r.store.Types(ctx)
	if err != nil {
		return nil, NewPhaseError("relations", child, err)
	}
	var parents []string
	for _, name := range types {
		if name == child {
			continue
		}
		linked, err := r.links(ctx, name, child)
		if err != nil {
			return nil, err
		}
		if !linked {
			continue
		}
		r.Clear(name)
		if err := r.AddFor(ctx, name); err != nil {
			return nil, err
		}
		parents = append(parents, name)
	}
	return parents, nil
}

// links reports whether parent has inferred accessors to child or a node
// whose children include a child node.
func (r *Relations) links(ctx context.Context, parent, child string) (bool, error) {
	t := r.reg.Get(parent)
	if t == nil {
		return false, nil
	}
	if f := t.Field(ChildFieldName(child)); f != nil && f.Extensions.Bool(extRelation) && f.Extensions.CreatedFrom() == schema.FromInference {
		return true, nil
	}
	nodes, err := r.store.NodesByType(ctx, parent)
	if err != nil {
		return false, NewPhaseError("relations", parent, err)
	}
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.Children...)
	}
	if len(ids) == 0 {
		return false, nil
	}
	children, err := dataloader.NewNodeLoader(r.store).LoadMany(ctx, ids)
	if err != nil {
		return false, NewPhaseError("relations", parent, err)
	}
	return slices.ContainsFunc(children, func(n *gqlcompose.Node) bool { return n.Type() == child }), nil
}

// Clear removes the inferred accessor fields of type name.
func (r *Relations) Clear(name string) {
	t := r.reg.Get(name)
	if t == nil {
		return
	}
	for _, f := range t.Fields() {
		if f.Extensions.Bool(extRelation) && f.Extensions.CreatedFrom() == schema.FromInference {
			t.RemoveField(f.Name)
		}
	}
}

// extRelation marks accessor fields synthesized by Relations.
const extRelation = "relation"

// explicit returns the pairs declared with childOf on child types.
func (r *Relations) explicit() []relation {
	var rels []relation
	seen := map[[2]string]bool{}
	for _, child := range r.reg.Types() {
		c := child.Extensions.ChildOf()
		if c == nil || c.Empty() {
			continue
		}
		if !isNodeType(child) {
			r.rep.Error(fmt.Sprintf("the `childOf` extension can only be used on types that implement the `Node` interface; check the definition of %q", child.Name))
			continue
		}
		parents := slices.Clone(c.Types)
		if len(c.MimeTypes) > 0 {
			for _, t := range r.reg.Types() {
				if slices.ContainsFunc(t.Extensions.MimeTypes(), func(m string) bool { return slices.Contains(c.MimeTypes, m) }) {
					parents = append(parents, t.Name)
				}
			}
		}
		for _, name := range parents {
			key := [2]string{name, child.Name}
			if seen[key] {
				continue
			}
			seen[key] = true
			parent := r.reg.Get(name)
			if parent == nil || parent.Extensions.IsPlaceholder() {
				r.rep.Warn(fmt.Sprintf("type %q declares %q as a parent type, but no such type exists", child.Name, name))
				continue
			}
			if !isNodeType(parent) {
				r.rep.Error(fmt.Sprintf("type %q declares %q as a parent type, but it does not implement the `Node` interface", child.Name, name))
				continue
			}
			rels = append(rels, relation{parent: name, child: child.Name, from: child.Extensions.CreatedFrom()})
		}
	}
	return rels
}

// inferred returns the pairs found by resolving children ids in the store.
func (r *Relations) inferred(ctx context.Context, explicit []relation) ([]relation, error) {
	types, err := r.store.Types(ctx)
	if err != nil {
		return nil, NewPhaseError("relations", "", err)
	}
	var rels []relation
	for _, name := range types {
		found, err := r.inferredFor(ctx, name, explicit)
		if err != nil {
			return nil, err
		}
		rels = append(rels, found...)
	}
	return rels, nil
}

func (r *Relations) inferredFor(ctx context.Context, name string, explicit []relation) ([]relation, error) {
	parent := r.reg.Get(name)
	if parent == nil || parent.Kind != schema.KindObject || !parent.IsNode() {
		return nil, nil
	}
	if infer, set := parent.Extensions.Infer(); set && !infer {
		return nil, nil
	}
	nodes, err := r.store.NodesByType(ctx, name)
	if err != nil {
		return nil, NewPhaseError("relations", name, err)
	}
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.Children...)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	children, err := dataloader.NewNodeLoader(r.store).LoadMany(ctx, ids)
	if err != nil {
		return nil, NewPhaseError("relations", name, err)
	}
	var rels []relation
	for _, child := range gqlcompose.SortedKeys(dataloader.GroupByKey(children, (*gqlcompose.Node).Type)) {
		if slices.ContainsFunc(explicit, func(rel relation) bool { return rel.parent == name && rel.child == child }) {
			continue
		}
		if t := r.reg.Get(child); t == nil || !isNodeType(t) {
			continue
		}
		rels = append(rels, relation{parent: name, child: child, from: schema.FromInference})
	}
	return rels, nil
}

// addFields adds the accessors of rel to the parent and, for interfaces,
// to every implementor.
func (r *Relations) addFields(rel relation) {
	parent := r.reg.Get(rel.parent)
	targets := []*schema.Type{parent}
	if parent.Kind == schema.KindInterface {
		targets = append(targets, Implementors(r.reg, parent.Name)...)
	}
	for _, t := range targets {
		for _, f := range accessorFields(rel, NodeTypes(r.reg, rel.child)) {
			if t.HasField(f.Name) {
				continue
			}
			t.SetField(f)
		}
	}
}

func accessorFields(rel relation, types []string) []*schema.Field {
	child := schema.NewField(ChildFieldName(rel.child), schema.Named(rel.child))
	child.Resolve = childResolver(types, false)
	children := schema.NewField(ChildrenFieldName(rel.child), schema.ListOf(schema.Named(rel.child)))
	children.Resolve = childResolver(types, true)
	fields := []*schema.Field{child, children}
	for _, f := range fields {
		f.SetExtension(extRelation, true)
		if rel.from != "" {
			f.SetExtension(schema.ExtCreatedFrom, rel.from)
		}
	}
	return fields
}

// childResolver returns the children of the source node whose type is one
// of types: all of them, or the first one when many is false.
func childResolver(types []string, many bool) schema.ResolveFunc {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		n, ok := p.Source.(*gqlcompose.Node)
		if !ok || len(n.Children) == 0 {
			if many {
				return []*gqlcompose.Node{}, nil
			}
			return nil, nil
		}
		nodes, err := dataloader.Nodes(ctx, p.Info.Nodes).LoadMany(ctx, n.Children)
		if err != nil {
			return nil, err
		}
		matched := []*gqlcompose.Node{}
		for _, c := range nodes {
			if slices.Contains(types, c.Type()) {
				matched = append(matched, c)
			}
		}
		if many {
			return matched, nil
		}
		if len(matched) == 0 {
			return nil, nil
		}
		return matched[0], nil
	}
}

func isNodeType(t *schema.Type) bool {
	return t.Kind.HasInterfaces() && (t.IsNode() || t.Extensions.NodeInterface())
}
