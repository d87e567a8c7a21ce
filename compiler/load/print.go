package load

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/syssam/gqlcompose/schema"
)

// PrintOptions controls SDL output.
type PrintOptions struct {
	// Directives renders type extensions and field extensions as directives.
	Directives bool
	// Extensions are the field extensions whose directive definitions are
	// printed when Directives is set.
	Extensions []*Extension
}

// Definition converts t to a gqlparser definition. Only @deprecated is
// rendered unless withDirectives is set.
func Definition(t *schema.Type, withDirectives bool) *ast.Definition {
	def := &ast.Definition{
		Kind:        t.Kind.AST(),
		Name:        t.Name,
		Description: t.Description,
		Interfaces:  append([]string(nil), t.Interfaces...),
		Types:       append([]string(nil), t.Members...),
	}
	if withDirectives {
		def.Directives = typeDirectivesOf(t)
	}
	for _, v := range t.Values {
		ev := &ast.EnumValueDefinition{Name: v.Name, Description: v.Description}
		if v.Deprecation != "" {
			ev.Directives = ast.DirectiveList{deprecated(v.Deprecation)}
		}
		def.EnumValues = append(def.EnumValues, ev)
	}
	for _, f := range t.Fields() {
		def.Fields = append(def.Fields, fieldDefinition(f, withDirectives))
	}
	return def
}

func fieldDefinition(f *schema.Field, withDirectives bool) *ast.FieldDefinition {
	fd := &ast.FieldDefinition{Name: f.Name, Description: f.Description, Type: f.Type.AST()}
	for _, a := range f.Args {
		ad := &ast.ArgumentDefinition{Name: a.Name, Description: a.Description, Type: a.Type.AST()}
		if a.Default != nil {
			ad.DefaultValue = toValue(a.Default)
		}
		fd.Arguments = append(fd.Arguments, ad)
	}
	if f.Deprecation != "" {
		fd.Directives = append(fd.Directives, deprecated(f.Deprecation))
	}
	if withDirectives {
		for _, name := range []string{schema.ExtLink, schema.ExtProxy, schema.ExtDateformat} {
			if args := f.Extensions.Args(name); args != nil {
				fd.Directives = append(fd.Directives, directive(name, args))
			}
		}
	}
	return fd
}

// Document builds a schema document holding types in the given order.
func Document(types []*schema.Type, opts PrintOptions) *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}
	if opts.Directives {
		doc.Directives = DirectiveDefinitions(opts.Extensions...)
	}
	for _, t := range types {
		doc.Definitions = append(doc.Definitions, Definition(t, opts.Directives))
	}
	return doc
}

// Print writes types as SDL.
func Print(w io.Writer, types []*schema.Type, opts PrintOptions) {
	formatter.NewFormatter(w).FormatSchemaDocument(Document(types, opts))
}

// SDL returns types as an SDL string.
func SDL(types []*schema.Type, opts PrintOptions) string {
	var b strings.Builder
	Print(&b, types, opts)
	return b.String()
}

func deprecated(reason string) *ast.Directive {
	if reason == defaultDeprecationReason {
		return &ast.Directive{Name: "deprecated"}
	}
	return directive("deprecated", map[string]any{"reason": reason})
}

func directive(name string, args map[string]any) *ast.Directive {
	d := &ast.Directive{Name: name}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.Arguments = append(d.Arguments, &ast.Argument{Name: k, Value: toValue(args[k])})
	}
	return d
}

// toValue converts a Go value to a gqlparser literal.
func toValue(v any) *ast.Value {
	switch v := v.(type) {
	case nil:
		return &ast.Value{Kind: ast.NullValue, Raw: "null"}
	case string:
		return &ast.Value{Kind: ast.StringValue, Raw: v}
	case bool:
		return &ast.Value{Kind: ast.BooleanValue, Raw: strconv.FormatBool(v)}
	case int:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.Itoa(v)}
	case int64:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.FormatInt(v, 10)}
	case float64:
		return &ast.Value{Kind: ast.FloatValue, Raw: strconv.FormatFloat(v, 'g', -1, 64)}
	case []string:
		list := &ast.Value{Kind: ast.ListValue}
		for _, e := range v {
			list.Children = append(list.Children, &ast.ChildValue{Value: toValue(e)})
		}
		return list
	case []any:
		list := &ast.Value{Kind: ast.ListValue}
		for _, e := range v {
			list.Children = append(list.Children, &ast.ChildValue{Value: toValue(e)})
		}
		return list
	case map[string]any:
		obj := &ast.Value{Kind: ast.ObjectValue}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj.Children = append(obj.Children, &ast.ChildValue{Name: k, Value: toValue(v[k])})
		}
		return obj
	default:
		return &ast.Value{Kind: ast.StringValue, Raw: fmt.Sprint(v)}
	}
}
