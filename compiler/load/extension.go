package load

import (
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/gqlcompose/schema"
)

// Extension declares a field extension usable as a field directive.
type Extension struct {
	Name        string
	Description string
	Args        []*schema.Arg
}

// Arg returns the named argument declaration, or nil.
func (e *Extension) Arg(name string) *schema.Arg {
	for _, a := range e.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Validate checks directive arguments against the declaration and returns
// the arguments with defaults applied.
func (e *Extension) Validate(args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(e.Args))
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		decl := e.Arg(k)
		if decl == nil {
			return nil, fmt.Errorf("unknown argument %q", k)
		}
		if err := checkValue(decl.Type, args[k]); err != nil {
			return nil, fmt.Errorf("argument %q: %w", k, err)
		}
		out[k] = args[k]
	}
	for _, a := range e.Args {
		if _, ok := out[a.Name]; ok {
			continue
		}
		switch {
		case a.Default != nil:
			out[a.Name] = a.Default
		case a.Type.NonNull:
			return nil, fmt.Errorf("argument %q of type %s is required", a.Name, a.Type)
		}
	}
	return out, nil
}

func checkValue(t *schema.TypeRef, v any) error {
	if v == nil {
		if t.NonNull {
			return fmt.Errorf("expected %s, got null", t)
		}
		return nil
	}
	if t.IsList() {
		list, ok := v.([]any)
		if !ok {
			return checkValue(t.Elem, v)
		}
		for _, e := range list {
			if err := checkValue(t.Elem, e); err != nil {
				return err
			}
		}
		return nil
	}
	var ok bool
	switch t.Name {
	case "String", "ID", "Date":
		_, ok = v.(string)
	case "Boolean":
		_, ok = v.(bool)
	case "Int":
		_, ok = v.(int64)
	case "Float":
		switch v.(type) {
		case int64, float64:
			ok = true
		}
	default:
		ok = true
	}
	if !ok {
		return fmt.Errorf("expected %s, got %T", t, v)
	}
	return nil
}

func (e *Extension) directiveDefinition() *ast.DirectiveDefinition {
	def := &ast.DirectiveDefinition{
		Name:        e.Name,
		Description: e.Description,
		Locations:   []ast.DirectiveLocation{ast.LocationFieldDefinition},
		Position:    &ast.Position{Src: directiveSource},
	}
	for _, a := range e.Args {
		arg := &ast.ArgumentDefinition{Name: a.Name, Description: a.Description, Type: a.Type.AST()}
		if a.Default != nil {
			arg.DefaultValue = toValue(a.Default)
		}
		def.Arguments = append(def.Arguments, arg)
	}
	return def
}

// BuiltinExtensions returns the declarations of the built-in field extensions.
func BuiltinExtensions() []*Extension {
	return []*Extension{
		{
			Name:        schema.ExtLink,
			Description: "Link to node by foreign-key relation.",
			Args: []*schema.Arg{
				{Name: "by", Type: schema.NonNullNamed("String"), Default: "id"},
				{Name: "from", Type: schema.Named("String")},
			},
		},
		{
			Name:        schema.ExtProxy,
			Description: "Proxy resolver from another field.",
			Args: []*schema.Arg{
				{Name: "from", Type: schema.NonNullNamed("String")},
			},
		},
		{
			Name:        schema.ExtDateformat,
			Description: "Add date formatting options.",
			Args: []*schema.Arg{
				{Name: "formatString", Type: schema.Named("String")},
			},
		},
	}
}
