package load

import (
	"fmt"
	"sync"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/gqlcompose/schema"
)

// typeDirective applies a type-level directive to a parsed type.
type typeDirective func(t *schema.Type, args map[string]any) error

// typeDirectives maps directive names to the extension they set.
var typeDirectives = map[string]typeDirective{
	"infer": func(t *schema.Type, _ map[string]any) error {
		t.SetExtension(schema.ExtInfer, true)
		return nil
	},
	"dontInfer": func(t *schema.Type, _ map[string]any) error {
		t.SetExtension(schema.ExtInfer, false)
		return nil
	},
	"mimeTypes": func(t *schema.Type, args map[string]any) error {
		t.SetExtension(schema.ExtMimeTypes, schema.Extensions(args).Strings("types"))
		return nil
	},
	"childOf": func(t *schema.Type, args map[string]any) error {
		ext := schema.Extensions(args)
		t.SetExtension(schema.ExtChildOf, &schema.ChildOf{
			Types:     ext.Strings("types"),
			MimeTypes: ext.Strings("mimeTypes"),
		})
		return nil
	},
	"nodeInterface": func(t *schema.Type, _ map[string]any) error {
		if t.Kind != schema.KindInterface {
			return fmt.Errorf("@nodeInterface is only allowed on interfaces, but %s is an %s", t.Name, t.Kind)
		}
		t.SetExtension(schema.ExtNodeInterface, true)
		return nil
	},
}

const typeDirectiveSDL = `
"""Infer field types from field values."""
directive @infer on OBJECT

"""Do not infer field types from field values."""
directive @dontInfer on OBJECT

"""Define the mime-types handled by this type."""
directive @mimeTypes(
  """The mime-types handled by this type."""
  types: [String!]! = []
) on OBJECT

"""Define parent-child relations between types. This is used to add child* and children* convenience fields like "childImageSharp"."""
directive @childOf(
  """A list of mime-types this type is a child of."""
  mimeTypes: [String!] = []
  """A list of types this type is a child of."""
  types: [String!] = []
) on OBJECT

"""Mark an interface as a queryable node interface."""
directive @nodeInterface on INTERFACE
`

// directiveSource is the source of printed directive definitions. It is not
// marked built-in so that the formatter emits the definitions.
var directiveSource = &ast.Source{Name: "directives.graphql"}

var typeDirectiveDefinitions = sync.OnceValue(func() ast.DirectiveDefinitionList {
	doc, err := parser.ParseSchema(&ast.Source{Name: directiveSource.Name, Input: typeDirectiveSDL})
	if err != nil {
		panic(err)
	}
	return doc.Directives
})

// DirectiveDefinitions returns the definitions of the type directives and of
// the given field extensions.
func DirectiveDefinitions(exts ...*Extension) ast.DirectiveDefinitionList {
	defs := append(ast.DirectiveDefinitionList(nil), typeDirectiveDefinitions()...)
	for _, e := range exts {
		defs = append(defs, e.directiveDefinition())
	}
	return defs
}

// typeDirectivesOf returns the directives that reproduce the type extensions of t.
func typeDirectivesOf(t *schema.Type) ast.DirectiveList {
	var ds ast.DirectiveList
	if infer, set := t.Extensions.Infer(); set {
		if infer {
			ds = append(ds, &ast.Directive{Name: "infer"})
		} else {
			ds = append(ds, &ast.Directive{Name: "dontInfer"})
		}
	}
	if mt := t.Extensions.MimeTypes(); len(mt) > 0 {
		ds = append(ds, directive("mimeTypes", map[string]any{"types": mt}))
	}
	if c := t.Extensions.ChildOf(); !c.Empty() {
		args := map[string]any{}
		if len(c.MimeTypes) > 0 {
			args["mimeTypes"] = c.MimeTypes
		}
		if len(c.Types) > 0 {
			args["types"] = c.Types
		}
		ds = append(ds, directive("childOf", args))
	}
	if t.Extensions.NodeInterface() {
		ds = append(ds, &ast.Directive{Name: "nodeInterface"})
	}
	return ds
}
