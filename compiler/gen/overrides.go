package gen

import (
	"context"
	"fmt"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/schema"
)

// FieldConfig is the override of one field.
type FieldConfig struct {
	// Type is the field type in SDL form. Empty keeps the existing type.
	Type        string
	Args        []*schema.Arg
	Description string
	// Resolve replaces the field resolver. The replaced resolver is passed
	// as ResolveInfo.OriginalResolver.
	Resolve schema.ResolveFunc
}

// ResolverMap maps type names to field names to field overrides.
type ResolverMap map[string]map[string]*FieldConfig

// Merge copies the overrides of o into m. Fields of o win.
func (m ResolverMap) Merge(o ResolverMap) {
	for typeName, fields := range o {
		if m[typeName] == nil {
			m[typeName] = map[string]*FieldConfig{}
		}
		for name, fc := range fields {
			m[typeName][name] = fc
		}
	}
}

// Pending returns the overrides not yet applied to reg. Overrides of
// unknown types are kept so that ApplyOverrides can report them.
func (m ResolverMap) Pending(reg *schema.Registry) ResolverMap {
	out := ResolverMap{}
	for typeName, fields := range m {
		t := reg.Get(typeName)
		for name, fc := range fields {
			if t != nil {
				if f := t.Field(name); f != nil && f.Extensions.Bool(extOverridden) {
					continue
				}
			}
			if out[typeName] == nil {
				out[typeName] = map[string]*FieldConfig{}
			}
			out[typeName][name] = fc
		}
	}
	return out
}

// extOverridden marks fields an override was applied to.
const extOverridden = "overridden"

// OverrideOptions configures ApplyOverrides.
type OverrideOptions struct {
	// IgnoreNonexistentTypes suppresses the warning for unknown types.
	IgnoreNonexistentTypes bool
	// Plugin is recorded as the owner of added fields.
	Plugin string
}

// ApplyOverrides applies a batch of field overrides. A field that does not
// exist is added. An existing field is extended when the override keeps its
// type, ignoring non-null wrapping, or when its type came from a third-party
// schema; otherwise the override is rejected with a warning.
func ApplyOverrides(reg *schema.Registry, overrides ResolverMap, opts OverrideOptions) {
	rep := reg.Reporter()
	for _, typeName := range gqlcompose.SortedKeys(overrides) {
		t := reg.Get(typeName)
		if t == nil || t.Extensions.IsPlaceholder() || !t.Kind.HasFields() {
			if !opts.IgnoreNonexistentTypes {
				rep.Warn((&gqlcompose.ConflictWarning{
					Type:    typeName,
					Plugin:  opts.Plugin,
					Message: "resolvers were passed for a type that doesn't exist in the schema. Define the type before adding resolvers.",
				}).Error())
			}
			continue
		}
		fields := overrides[typeName]
		for _, name := range gqlcompose.SortedKeys(fields) {
			fc := fields[name]
			if fc == nil {
				continue
			}
			if f := t.Field(name); f != nil {
				extendField(reg, t, f, fc, opts)
			} else {
				addField(reg, t, name, fc, opts)
			}
		}
	}
}

func addField(reg *schema.Registry, t *schema.Type, name string, fc *FieldConfig, opts OverrideOptions) {
	if fc.Type == "" {
		reg.Reporter().Error(fmt.Sprintf("resolver for new field %s.%s does not declare a type", t.Name, name))
		return
	}
	typ, err := schema.ParseTypeRef(fc.Type)
	if err != nil {
		reg.Reporter().Error(fmt.Sprintf("resolver for %s.%s has an invalid type: %v", t.Name, name, err))
		return
	}
	if !reg.Has(typ.BaseName()) {
		reg.Reporter().Warn((&gqlcompose.ConflictWarning{
			Type:    t.Name,
			Field:   name,
			Plugin:  opts.Plugin,
			Message: fmt.Sprintf("field type %q is not defined in the schema", typ.BaseName()),
		}).Error())
		return
	}
	f := schema.NewField(name, typ)
	f.Description = fc.Description
	f.Args = cloneArgs(fc.Args)
	f.Resolve = fc.Resolve
	f.SetExtension(schema.ExtCreatedFrom, schema.FromOverride)
	f.SetExtension(extOverridden, true)
	if opts.Plugin != "" {
		f.SetExtension(schema.ExtPlugin, opts.Plugin)
	}
	t.SetField(f)
}

func extendField(reg *schema.Registry, t *schema.Type, orig *schema.Field, fc *FieldConfig, opts OverrideOptions) {
	thirdParty := t.Extensions.CreatedFrom() == schema.FromThirdParty
	var typ *schema.TypeRef
	if fc.Type != "" {
		var err error
		if typ, err = schema.ParseTypeRef(fc.Type); err != nil {
			reg.Reporter().Error(fmt.Sprintf("resolver for %s.%s has an invalid type: %v", t.Name, orig.Name, err))
			return
		}
		if !typ.EqualIgnoringNonNull(orig.Type) && !thirdParty {
			reg.Reporter().Warn((&gqlcompose.ConflictWarning{
				Type:   t.Name,
				Field:  orig.Name,
				Plugin: opts.Plugin,
				Message: fmt.Sprintf("resolvers were passed with type %s, but the field already exists with type %s. Use type definitions to override type fields.",
					typ, orig.Type),
			}).Error())
			return
		}
	}
	f := orig.Clone()
	if typ != nil {
		f.Type = typ
	}
	if fc.Args != nil {
		f.Args = cloneArgs(fc.Args)
	}
	if fc.Description != "" {
		f.Description = fc.Description
	}
	if fc.Resolve != nil {
		f.Resolve = withOriginal(fc.Resolve, orig.Resolve)
		f.SetExtension(schema.ExtNeedsResolve, true)
	}
	if thirdParty && !orig.Extensions.Has(schema.ExtOriginalField) {
		f.SetExtension(schema.ExtOriginalField, orig.Clone())
	}
	f.SetExtension(extOverridden, true)
	t.SetField(f)
}

// withOriginal passes the replaced resolver, or the default resolver, to
// resolve.
func withOriginal(resolve, original schema.ResolveFunc) schema.ResolveFunc {
	if original == nil {
		original = DefaultResolver
	}
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		p.Info.OriginalResolver = original
		return resolve(ctx, p)
	}
}

// RestoreOriginalFields puts back the third-party fields replaced by
// overrides, so that overrides can be applied again.
func RestoreOriginalFields(reg *schema.Registry) {
	for _, t := range reg.Types() {
		if t.Extensions.CreatedFrom() != schema.FromThirdParty {
			continue
		}
		for _, f := range t.Fields() {
			if orig, ok := f.Extensions[schema.ExtOriginalField].(*schema.Field); ok {
				t.SetField(orig.Clone())
			}
		}
	}
}

func cloneArgs(args []*schema.Arg) []*schema.Arg {
	if args == nil {
		return nil
	}
	out := make([]*schema.Arg, len(args))
	for i, a := range args {
		out[i] = a.Clone()
	}
	return out
}
