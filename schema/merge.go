package schema

import (
	"fmt"
	"maps"

	"github.com/syssam/gqlcompose"
)

// OverridableBuiltInTypes are unowned built-in types that any plugin may
// extend without a conflict warning.
var OverridableBuiltInTypes = map[string]bool{
	"SiteSiteMetadata": true,
}

// mergeFunc folds src into dst. Both have the same kind.
type mergeFunc func(dst, src *Type)

var mergeByKind = map[Kind]mergeFunc{
	KindObject:      mergeComposite,
	KindInterface:   mergeComposite,
	KindInputObject: mergeComposite,
	KindUnion: func(dst, src *Type) {
		dst.AddMember(src.Members...)
	},
	KindEnum: func(dst, src *Type) {
		for _, v := range src.Values {
			replaced := false
			for i, cur := range dst.Values {
				if cur.Name == v.Name {
					dst.Values[i], replaced = v, true
					break
				}
			}
			if !replaced {
				dst.Values = append(dst.Values, v)
			}
		}
	},
	KindScalar: func(*Type, *Type) {},
}

// mergeComposite unions fields and interfaces. A field of src replaces the
// field of dst with the same name.
func mergeComposite(dst, src *Type) {
	for _, f := range src.fields {
		dst.SetField(f)
	}
	dst.AddInterface(src.Interfaces...)
}

// isSafeMerge reports whether plugin may merge into existing without a warning.
func isSafeMerge(existing *Type, plugin string) bool {
	owner := existing.Extensions.Plugin()
	switch {
	case plugin == "" || plugin == gqlcompose.DefaultSitePlugin:
		return true
	case existing.Extensions.IsPlaceholder():
		return true
	case owner == plugin:
		return true
	case owner == "" && OverridableBuiltInTypes[existing.Name]:
		return true
	}
	return false
}

// mergeWarning describes an unsafe merge.
func mergeWarning(existing *Type, plugin string) *gqlcompose.ConflictWarning {
	owner := existing.Extensions.Plugin()
	w := &gqlcompose.ConflictWarning{Type: existing.Name, Plugin: plugin, Owner: owner}
	if owner != "" {
		w.Message = fmt.Sprintf("plugin %q has customized the GraphQL type %q, which has already been defined by the plugin %q. This could potentially cause conflicts.",
			plugin, existing.Name, owner)
	} else {
		w.Message = fmt.Sprintf("plugin %q has customized the built-in GraphQL type %q. This is allowed, but could potentially cause conflicts.",
			plugin, existing.Name)
	}
	return w
}

// Merge folds incoming into existing in place. The caller is responsible for
// the ownership check; see Registry.Add.
func Merge(existing, incoming *Type) error {
	if existing.Kind != incoming.Kind {
		return gqlcompose.NewConfigurationError(existing.Name,
			fmt.Sprintf("cannot merge %s definition into %s definition", incoming.Kind, existing.Kind), nil)
	}
	mergeByKind[existing.Kind](existing, incoming)
	if incoming.Description != "" {
		existing.Description = incoming.Description
	}
	if existing.Extensions == nil {
		existing.Extensions = Extensions{}
	}
	maps.Copy(existing.Extensions, incoming.Extensions)
	return nil
}
