package gen

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/schema"
)

// NodeTypePayload is passed to setFieldsOnGraphQLNodeType plugins.
type NodeTypePayload struct {
	TypeName string
	Nodes    []*gqlcompose.Node
}

// NestedFields maps dotted field paths, such as "frontmatter.published",
// to field definitions.
type NestedFields map[string]*FieldConfig

// SetFieldsOnNodeTypes asks the plugins of runner for additional fields of
// every node object type and adds them.
func SetFieldsOnNodeTypes(ctx context.Context, reg *schema.Registry, store gqlcompose.NodeStore, runner gqlcompose.Runner, workers int) error {
	var types []*schema.Type
	for _, t := range reg.Types() {
		if t.Kind == schema.KindObject && t.IsNode() && t.Extensions.CreatedFrom() != schema.FromBuiltin {
			types = append(types, t)
		}
	}
	results := make([][]any, len(types))
	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, t := range types {
		eg.Go(func() error {
			nodes, err := store.NodesByType(ctx, t.Name)
			if err != nil {
				return NewPhaseError(gqlcompose.APISetFieldsOnNodeType, t.Name, err)
			}
			res, err := runner.Run(ctx, gqlcompose.APISetFieldsOnNodeType, &NodeTypePayload{TypeName: t.Name, Nodes: nodes})
			if err != nil {
				return NewPhaseError(gqlcompose.APISetFieldsOnNodeType, t.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for i, t := range types {
		for _, r := range results[i] {
			fields, ok := r.(NestedFields)
			if !ok {
				if m, isMap := r.(map[string]*FieldConfig); isMap {
					fields, ok = NestedFields(m), true
				}
			}
			if !ok {
				if r != nil {
					reg.Reporter().Error(fmt.Sprintf("%s for type %s returned %T, expected nested field definitions", gqlcompose.APISetFieldsOnNodeType, t.Name, r))
				}
				continue
			}
			AddNestedFields(reg, t, fields)
		}
	}
	return nil
}

// AddNestedFields adds fields at dotted paths of t. Missing intermediate
// fields get new object types named after their parent and field.
func AddNestedFields(reg *schema.Registry, t *schema.Type, fields NestedFields) {
	for _, path := range gqlcompose.SortedKeys(fields) {
		fc := fields[path]
		if fc == nil {
			continue
		}
		parts := strings.Split(path, ".")
		parent := t
		for _, name := range parts[:len(parts)-1] {
			if parent = nestedType(reg, parent, name); parent == nil {
				reg.Reporter().Error(fmt.Sprintf("cannot add field %s.%s: %s is not an object field", t.Name, path, name))
				break
			}
		}
		if parent == nil {
			continue
		}
		name := parts[len(parts)-1]
		if f := parent.Field(name); f != nil {
			extendField(reg, parent, f, fc, OverrideOptions{})
			continue
		}
		addField(reg, parent, name, fc, OverrideOptions{})
	}
}

// nestedType returns the object type of parent.name, adding the field and
// its type when missing.
func nestedType(reg *schema.Registry, parent *schema.Type, name string) *schema.Type {
	if f := parent.Field(name); f != nil {
		t := reg.Get(f.Type.BaseName())
		if t == nil || t.Kind != schema.KindObject {
			return nil
		}
		return t
	}
	typeName := NestedTypeName(parent.Name, name)
	t := reg.Get(typeName)
	if t == nil {
		t = schema.NewType(typeName, schema.KindObject)
		t.SetExtension(schema.ExtCreatedFrom, schema.FromOverride)
		reg.Set(t)
	}
	f := schema.NewField(name, schema.Named(typeName))
	f.SetExtension(schema.ExtCreatedFrom, schema.FromOverride)
	parent.SetField(f)
	return t
}
