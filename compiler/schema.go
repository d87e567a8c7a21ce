package compiler

import (
	"context"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler/gen"
	"github.com/syssam/gqlcompose/contrib/dataloader"
	"github.com/syssam/gqlcompose/schema"
)

// Schema is the result of a build. It is immutable; a rebuild returns a new
// Schema and leaves earlier ones untouched.
type Schema struct {
	ast        *ast.Schema
	types      *schema.Registry
	resolvers  gen.Resolvers
	nodes      gqlcompose.NodeStore
	sdl        string
	extensions []string
}

// AST returns the validated gqlparser schema.
func (s *Schema) AST() *ast.Schema { return s.ast }

// Types returns the frozen type table. It must not be modified.
func (s *Schema) Types() *schema.Registry { return s.types }

// Type returns the named type, or nil.
func (s *Schema) Type(name string) *schema.Type { return s.types.Get(name) }

// SDL returns the schema in the schema definition language.
func (s *Schema) SDL() string { return s.sdl }

// ResolvableExtensions returns the file extensions plugins can resolve.
func (s *Schema) ResolvableExtensions() []string {
	return append([]string(nil), s.extensions...)
}

// Resolver returns the traced resolver of typeName.fieldName, or nil.
func (s *Schema) Resolver(typeName, fieldName string) schema.ResolveFunc {
	return s.resolvers.Get(typeName, fieldName)
}

// Resolve resolves one field against source. Argument defaults are applied
// and a node loader is attached to ctx unless it already carries one.
func (s *Schema) Resolve(ctx context.Context, typeName, fieldName string, source any, args map[string]any) (any, error) {
	t := s.types.Get(typeName)
	if t == nil {
		return nil, fmt.Errorf("gqlcompose: unknown type %q", typeName)
	}
	f := t.Field(fieldName)
	resolve := s.resolvers.Get(typeName, fieldName)
	if f == nil || resolve == nil {
		return nil, fmt.Errorf("gqlcompose: type %q has no field %q", typeName, fieldName)
	}
	if dataloader.For[*dataloader.NodeLoader](ctx) == nil {
		ctx = dataloader.WithLoaders(ctx, dataloader.NewNodeLoader(s.nodes))
	}
	return resolve(ctx, schema.ResolveParams{
		Source: source,
		Args:   withDefaults(f, args),
		Info: schema.ResolveInfo{
			ParentType: typeName,
			FieldName:  fieldName,
			ReturnType: f.Type,
			Path:       []string{fieldName},
			Nodes:      s.nodes,
			Schema:     s.types,
		},
	})
}

func withDefaults(f *schema.Field, args map[string]any) map[string]any {
	out := make(map[string]any, len(f.Args))
	for _, a := range f.Args {
		if a.Default != nil {
			out[a.Name] = a.Default
		}
	}
	for k, v := range args {
		out[k] = v
	}
	return out
}
