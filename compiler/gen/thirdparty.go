package gen

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler/load"
	"github.com/syssam/gqlcompose/schema"
)

// ThirdPartySchema is a complete schema defined outside the registry, such
// as the schema of a remote API.
type ThirdPartySchema struct {
	// Name identifies the schema source in errors.
	Name   string
	SDL    string
	Plugin string
	// Resolvers are installed on the fields of the schema, keyed by type
	// and field name. Fields of the query type are keyed by its own name.
	Resolvers map[string]map[string]schema.ResolveFunc
}

// AddThirdPartySchemas validates every schema and adds its types to reg.
// Fields of a schema's query type are added to the root Query type, and
// references to that query type are redirected to Query.
func AddThirdPartySchemas(reg *schema.Registry, parser *load.Parser, schemas ...*ThirdPartySchema) error {
	for _, s := range schemas {
		if err := addThirdPartySchema(reg, parser, s); err != nil {
			return err
		}
	}
	return nil
}

func addThirdPartySchema(reg *schema.Registry, parser *load.Parser, s *ThirdPartySchema) error {
	loaded, err := gqlparser.LoadSchema(&ast.Source{Name: s.Name, Input: s.SDL})
	if err != nil {
		return gqlcompose.NewConfigurationError("", "invalid third-party schema "+s.Name, err)
	}
	queryName := ""
	if loaded.Query != nil {
		queryName = loaded.Query.Name
	}
	for _, name := range gqlcompose.SortedKeys(loaded.Types) {
		def := loaded.Types[name]
		if def.BuiltIn || strings.HasPrefix(name, "__") || name == schema.DateScalar || name == schema.JSONScalar {
			continue
		}
		if loaded.Mutation != nil && name == loaded.Mutation.Name || loaded.Subscription != nil && name == loaded.Subscription.Name {
			continue
		}
		t, err := parser.Convert(def)
		if err != nil {
			return err
		}
		for _, f := range t.Fields() {
			if f.Type.BaseName() == queryName {
				f.Type = f.Type.WithBase(schema.QueryType)
			}
			if fn := s.Resolvers[name][f.Name]; fn != nil {
				f.Resolve = fn
			}
			f.SetExtension(schema.ExtCreatedFrom, schema.FromThirdParty)
		}
		if name == queryName {
			addRootFields(reg, t, s.Plugin)
			continue
		}
		if _, err := reg.Add(t, s.Plugin, schema.FromThirdParty); err != nil {
			return fmt.Errorf("third-party schema %s: %w", s.Name, err)
		}
	}
	return nil
}

func addRootFields(reg *schema.Registry, t *schema.Type, plugin string) {
	query := reg.Get(schema.QueryType)
	for _, f := range t.Fields() {
		if plugin != "" {
			f.SetExtension(schema.ExtPlugin, plugin)
		}
		query.SetField(f)
	}
}
