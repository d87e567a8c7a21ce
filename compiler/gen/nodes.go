package gen

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/contrib/dataloader"
	"github.com/syssam/gqlcompose/schema"
)

// CheckNodeInterfaces validates interfaces marked with @nodeInterface and
// makes them implement Node. An interface without `id: ID!` is fatal.
func CheckNodeInterfaces(reg *schema.Registry) {
	rep := reg.Reporter()
	for _, t := range reg.Types() {
		if t.Kind != schema.KindInterface || !t.Extensions.NodeInterface() {
			continue
		}
		id := t.Field(gqlcompose.FieldID)
		if id == nil || !id.Type.Equal(schema.NonNullNamed("ID")) {
			rep.Panic(gqlcompose.NewIntegrityViolation(fmt.Sprintf(
				"interfaces with the `nodeInterface` extension must have a field `id` of type `ID!`; check the definition of %q", t.Name,
			), t.Name).Error())
		}
		t.AddInterface(schema.NodeInterface)
	}
}

// AddNodeFields adds the fields of the Node interface to every type
// implementing it. Fields already defined on the type are kept.
func AddNodeFields(reg *schema.Registry) {
	for _, t := range reg.Types() {
		if !t.Kind.HasInterfaces() || !t.IsNode() || t.Extensions.IsPlaceholder() {
			continue
		}
		for _, f := range schema.NodeFields() {
			if t.HasField(f.Name) {
				continue
			}
			f.SetExtension(schema.ExtCreatedFrom, schema.FromBuiltin)
			if t.Kind == schema.KindObject {
				f.Resolve = nodeFieldResolvers[f.Name]
			}
			t.SetField(f)
		}
	}
}

var nodeFieldResolvers = map[string]schema.ResolveFunc{
	gqlcompose.FieldParent:   resolveParent,
	gqlcompose.FieldChildren: resolveChildren,
}

func resolveParent(ctx context.Context, p schema.ResolveParams) (any, error) {
	n, ok := p.Source.(*gqlcompose.Node)
	if !ok || n.Parent == "" {
		return nil, nil
	}
	parent, err := dataloader.Nodes(ctx, p.Info.Nodes).Load(ctx, n.Parent)
	if err != nil || parent == nil {
		return nil, err
	}
	return parent, nil
}

func resolveChildren(ctx context.Context, p schema.ResolveParams) (any, error) {
	n, ok := p.Source.(*gqlcompose.Node)
	if !ok || len(n.Children) == 0 {
		return []*gqlcompose.Node{}, nil
	}
	return dataloader.Nodes(ctx, p.Info.Nodes).LoadMany(ctx, n.Children)
}

// CheckQueryableInterfaces panics when an object implements a queryable
// interface without implementing Node itself.
func CheckQueryableInterfaces(reg *schema.Registry) {
	for _, iface := range reg.Types() {
		if iface.Kind != schema.KindInterface || !iface.IsNode() || iface.Name == schema.NodeInterface {
			continue
		}
		var offending []string
		for _, t := range reg.Types() {
			if t.Kind.HasInterfaces() && t.HasInterface(iface.Name) && !t.IsNode() {
				offending = append(offending, t.Name)
			}
		}
		if len(offending) == 0 {
			continue
		}
		slices.Sort(offending)
		reg.Reporter().Panic(gqlcompose.NewIntegrityViolation(fmt.Sprintf(
			"interface %q is queryable but implemented by types without the Node interface: %s",
			iface.Name, strings.Join(offending, ", "),
		), append([]string{iface.Name}, offending...)...).Error())
	}
}

// Queryable reports whether t gets root query fields.
func Queryable(t *schema.Type) bool {
	if t == nil || t.Name == schema.NodeInterface || t.Extensions.IsPlaceholder() {
		return false
	}
	switch t.Kind {
	case schema.KindObject:
		return t.IsNode()
	case schema.KindInterface:
		return t.IsNode() || t.Extensions.NodeInterface()
	}
	return false
}

// Implementors returns the object types implementing the interface name,
// sorted by name.
func Implementors(reg *schema.Registry, name string) []*schema.Type {
	var impl []*schema.Type
	for _, t := range reg.Types() {
		if t.Kind == schema.KindObject && t.HasInterface(name) {
			impl = append(impl, t)
		}
	}
	slices.SortFunc(impl, func(a, b *schema.Type) int { return strings.Compare(a.Name, b.Name) })
	return impl
}

// NodeTypes returns the names of the node types whose nodes a field of
// type name may hold: name itself for objects, the implementors for
// interfaces and the members for unions.
func NodeTypes(reg *schema.Registry, name string) []string {
	t := reg.Get(name)
	if t == nil {
		return nil
	}
	switch t.Kind {
	case schema.KindInterface:
		var names []string
		for _, impl := range Implementors(reg, name) {
			names = append(names, impl.Name)
		}
		return names
	case schema.KindUnion:
		return slices.Clone(t.Members)
	}
	return []string{name}
}
