package gen

import (
	"context"
	"strings"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/schema"
)

// FieldSource is implemented by values that expose named fields to the
// default resolver.
type FieldSource interface {
	Field(name string) (any, bool)
}

// DefaultResolver reads the field from the source value. It is installed on
// every field without a resolver of its own.
func DefaultResolver(_ context.Context, p schema.ResolveParams) (any, error) {
	return FieldValue(p.Source, p.Info.FieldName), nil
}

// FieldValue returns the value at a dot separated path of source, or nil.
func FieldValue(source any, path string) any {
	v := source
	for _, key := range strings.Split(path, ".") {
		var ok bool
		if v, ok = fieldOf(v, key); !ok {
			return nil
		}
	}
	return v
}

func fieldOf(source any, key string) (any, bool) {
	switch s := source.(type) {
	case *gqlcompose.Node:
		return s.Get(key)
	case map[string]any:
		v, ok := s[key]
		return v, ok
	case FieldSource:
		return s.Field(key)
	}
	return nil, false
}

// Resolvers is the resolver table of a built schema, keyed by type and
// field name.
type Resolvers map[string]map[string]schema.ResolveFunc

// Get returns the resolver of typeName.fieldName, or nil.
func (r Resolvers) Get(typeName, fieldName string) schema.ResolveFunc {
	return r[typeName][fieldName]
}

func (r Resolvers) set(typeName, fieldName string, fn schema.ResolveFunc) {
	if r[typeName] == nil {
		r[typeName] = map[string]schema.ResolveFunc{}
	}
	r[typeName][fieldName] = fn
}
