package schema

import "maps"

// CreatedFrom records where a type or field definition came from.
type CreatedFrom string

// Provenance values.
const (
	FromSDL         CreatedFrom = "sdl"
	FromTypeBuilder CreatedFrom = "typeBuilder"
	FromGraphQLJS   CreatedFrom = "graphql-js-object"
	FromThirdParty  CreatedFrom = "third-party"
	FromInference   CreatedFrom = "inferred"
	FromOverride    CreatedFrom = "override"
	FromBuiltin     CreatedFrom = "builtin"
)

// Type extension keys.
const (
	ExtInfer         = "infer"
	ExtMimeTypes     = "mimeTypes"
	ExtChildOf       = "childOf"
	ExtNodeInterface = "nodeInterface"
	ExtCreatedFrom   = "createdFrom"
	ExtPlugin        = "plugin"
	ExtPlaceholder   = "isPlaceholder"
	ExtDerivedTypes  = "derivedTypes"
	ExtInferredTypes = "inferredTypes"
)

// Field extension keys.
const (
	ExtSearchable    = "searchable"
	ExtSortable      = "sortable"
	ExtNeedsResolve  = "needsResolve"
	ExtOriginalField = "originalField"
	ExtProxy         = "proxy"
	ExtLink          = "link"
	ExtDateformat    = "dateformat"
)

// Searchability classifies whether a field may be used in filters or sorts.
type Searchability string

// Searchability values.
const (
	NotSearchable        Searchability = "NOT_SEARCHABLE"
	Searchable           Searchability = "SEARCHABLE"
	DeprecatedSearchable Searchability = "DEPRECATED_SEARCHABLE"
)

// ChildOf declares the parent types of a node type.
type ChildOf struct {
	Types     []string `json:"types,omitempty" yaml:"types,omitempty" msgpack:"types,omitempty"`
	MimeTypes []string `json:"mimeTypes,omitempty" yaml:"mimeTypes,omitempty" msgpack:"mimeTypes,omitempty"`
}

// Empty reports whether c declares nothing.
func (c *ChildOf) Empty() bool {
	return c == nil || len(c.Types) == 0 && len(c.MimeTypes) == 0
}

// Extensions is the open metadata map attached to types and fields.
type Extensions map[string]any

// Get returns the raw value stored under key.
func (e Extensions) Get(key string) (any, bool) {
	v, ok := e[key]
	return v, ok
}

// Has reports whether key is present.
func (e Extensions) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// String returns the string stored under key, or "".
func (e Extensions) String(key string) string {
	s, _ := e[key].(string)
	return s
}

// Bool returns the bool stored under key, or false.
func (e Extensions) Bool(key string) bool {
	b, _ := e[key].(bool)
	return b
}

// Strings returns the string list stored under key.
func (e Extensions) Strings(key string) []string {
	switch v := e[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s, ok := s.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// Args returns the argument map stored under a field-extension key.
func (e Extensions) Args(key string) map[string]any {
	switch v := e[key].(type) {
	case map[string]any:
		return v
	case bool:
		if v {
			return map[string]any{}
		}
	}
	return nil
}

// Infer returns the value of the infer flag and whether it was set.
func (e Extensions) Infer() (infer, set bool) {
	v, ok := e[ExtInfer].(bool)
	return v, ok
}

// CreatedFrom returns the provenance.
func (e Extensions) CreatedFrom() CreatedFrom {
	switch v := e[ExtCreatedFrom].(type) {
	case CreatedFrom:
		return v
	case string:
		return CreatedFrom(v)
	}
	return ""
}

// Plugin returns the owning plugin name.
func (e Extensions) Plugin() string { return e.String(ExtPlugin) }

// IsPlaceholder reports whether the type is a forward-reference stub.
func (e Extensions) IsPlaceholder() bool { return e.Bool(ExtPlaceholder) }

// NodeInterface reports whether the interface is a node interface.
func (e Extensions) NodeInterface() bool { return e.Bool(ExtNodeInterface) }

// MimeTypes returns the declared media types.
func (e Extensions) MimeTypes() []string { return e.Strings(ExtMimeTypes) }

// ChildOf returns the declared parent types, or nil.
func (e Extensions) ChildOf() *ChildOf {
	switch v := e[ExtChildOf].(type) {
	case *ChildOf:
		return v
	case ChildOf:
		return &v
	case map[string]any:
		m := Extensions(v)
		return &ChildOf{Types: m.Strings("types"), MimeTypes: m.Strings("mimeTypes")}
	}
	return nil
}

// DerivedTypes returns the names of the types generated for this type.
func (e Extensions) DerivedTypes() []string { return e.Strings(ExtDerivedTypes) }

// Searchable returns the filter classification of a field.
func (e Extensions) Searchable() Searchability {
	if s, ok := e[ExtSearchable].(Searchability); ok {
		return s
	}
	return NotSearchable
}

// Sortable returns the sort classification of a field.
func (e Extensions) Sortable() Searchability {
	if s, ok := e[ExtSortable].(Searchability); ok {
		return s
	}
	return NotSearchable
}

// NeedsResolve reports whether a field must be resolved before filtering.
func (e Extensions) NeedsResolve() bool { return e.Bool(ExtNeedsResolve) }

// Clone returns a copy of e. Slices and ChildOf values are copied.
func (e Extensions) Clone() Extensions {
	if e == nil {
		return Extensions{}
	}
	c := maps.Clone(e)
	for k, v := range c {
		switch v := v.(type) {
		case []string:
			c[k] = append([]string(nil), v...)
		case *ChildOf:
			c[k] = &ChildOf{
				Types:     append([]string(nil), v.Types...),
				MimeTypes: append([]string(nil), v.MimeTypes...),
			}
		case map[string]any:
			c[k] = maps.Clone(v)
		}
	}
	return c
}
