// Package typegen generates Go types for the object and enum types of a
// built schema. Node types embed their Internal block so that the structs
// can decode the nodes of a store directly.
package typegen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"golang.org/x/tools/imports"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/schema"
)

const rootPkg = "github.com/syssam/gqlcompose"

// Config configures the generator.
type Config struct {
	// Package is the name of the generated package.
	Package string
	// Types restricts generation to the named types and the types they
	// reference. Empty generates every type.
	Types []string
}

// Generator renders the types of a frozen registry.
type Generator struct {
	cfg Config
	reg *schema.Registry
}

// New returns a generator over reg.
func New(reg *schema.Registry, cfg Config) (*Generator, error) {
	if cfg.Package == "" {
		return nil, gqlcompose.NewConfigurationError("", "typegen: package name is required", nil)
	}
	for _, name := range cfg.Types {
		if reg.Get(name) == nil {
			return nil, gqlcompose.NewConfigurationError(name, "typegen: unknown type", nil)
		}
	}
	return &Generator{cfg: cfg, reg: reg}, nil
}

// File returns the generated file.
func (g *Generator) File() *jen.File {
	f := jen.NewFile(g.cfg.Package)
	f.HeaderComment("Code generated by gqlcompose, DO NOT EDIT.")
	for _, t := range g.types() {
		switch t.Kind {
		case schema.KindEnum:
			g.enum(f, t)
		case schema.KindObject:
			g.object(f, t)
		}
	}
	return f
}

// Bytes returns the formatted source of the generated file.
func (g *Generator) Bytes(path string) ([]byte, error) {
	var buf bytes.Buffer
	if err := g.File().Render(&buf); err != nil {
		return nil, fmt.Errorf("typegen: render: %w", err)
	}
	out, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("typegen: format %s: %w", path, err)
	}
	return out, nil
}

// WriteFile writes the generated file to path.
func (g *Generator) WriteFile(path string) error {
	out, err := g.Bytes(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("typegen: create directory: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

// Names returns the GraphQL names of the generated types.
func (g *Generator) Names() []string {
	types := g.types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return names
}

// types returns the types to generate in registration order.
func (g *Generator) types() []*schema.Type {
	if len(g.cfg.Types) == 0 {
		var out []*schema.Type
		for _, t := range g.reg.Types() {
			if generated(t) {
				out = append(out, t)
			}
		}
		return out
	}
	seen := map[string]bool{}
	var walk func(name string)
	walk = func(name string) {
		t := g.reg.Get(name)
		if t == nil || seen[name] || !generated(t) {
			return
		}
		seen[name] = true
		for _, f := range t.Fields() {
			walk(f.Type.BaseName())
		}
	}
	for _, name := range g.cfg.Types {
		walk(name)
	}
	var out []*schema.Type
	for _, t := range g.reg.Types() {
		if seen[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

func generated(t *schema.Type) bool {
	if t.Extensions.CreatedFrom() == schema.FromBuiltin || t.Extensions.IsPlaceholder() || t.Name == schema.QueryType {
		return false
	}
	return t.Kind == schema.KindObject || t.Kind == schema.KindEnum
}

func (g *Generator) enum(f *jen.File, t *schema.Type) {
	name := GoName(t.Name)
	comment(f, name, t)
	f.Type().Id(name).String()
	f.Const().DefsFunc(func(group *jen.Group) {
		for _, v := range t.Values {
			group.Id(name + GoName(strings.ToLower(v.Name))).Id(name).Op("=").Lit(v.Name)
		}
	})
}

func (g *Generator) object(f *jen.File, t *schema.Type) {
	name := GoName(t.Name)
	comment(f, name, t)
	node := t.IsNode()
	f.Type().Id(name).StructFunc(func(group *jen.Group) {
		for _, fd := range t.Fields() {
			if node && gqlcompose.IsReservedField(fd.Name) {
				continue
			}
			group.Id(GoName(fd.Name)).Add(g.goType(fd.Type)).Tag(map[string]string{"json": jsonTag(fd)})
		}
		if node {
			group.Id("ID").String().Tag(map[string]string{"json": "id"})
			group.Id("Parent").String().Tag(map[string]string{"json": "parent,omitempty"})
			group.Id("Children").Index().String().Tag(map[string]string{"json": "children,omitempty"})
			group.Id("Internal").Qual(rootPkg, "Internal").Tag(map[string]string{"json": "internal"})
		}
	})
	if node {
		f.Commentf("%s is the name of the %s node type.", name+"Type", t.Name)
		f.Const().Id(name + "Type").Op("=").Lit(t.Name)
	}
}

func comment(f *jen.File, name string, t *schema.Type) {
	if t.Description == "" {
		f.Commentf("%s is generated from the %s type.", name, t.Name)
		return
	}
	f.Commentf("%s %s", name, lowerFirst(t.Description))
}

func jsonTag(fd *schema.Field) string {
	if fd.Type.NonNull {
		return fd.Name
	}
	return fd.Name + ",omitempty"
}

// goType returns the Go type of ref. Nullable scalars and objects are
// pointers.
func (g *Generator) goType(ref *schema.TypeRef) jen.Code {
	if ref.IsList() {
		return jen.Index().Add(g.goType(ref.Elem))
	}
	var (
		code    *jen.Statement
		pointer = !ref.NonNull
	)
	switch ref.Name {
	case "ID", "String", schema.DateScalar:
		code = jen.String()
	case "Int":
		code = jen.Int()
	case "Float":
		code = jen.Float64()
	case "Boolean":
		code = jen.Bool()
	case schema.JSONScalar:
		return jen.Any()
	case schema.InternalType:
		code = jen.Qual(rootPkg, "Internal")
	default:
		t := g.reg.Get(ref.Name)
		if t == nil || !generated(t) {
			return jen.Any()
		}
		code = jen.Id(GoName(t.Name))
		if t.Kind == schema.KindObject {
			pointer = true
		}
	}
	if pointer {
		return jen.Op("*").Add(code)
	}
	return code
}

var acronyms = map[string]string{"Id": "ID", "Url": "URL", "Uri": "URI", "Html": "HTML", "Json": "JSON", "Api": "API"}

// GoName returns the exported Go identifier of a GraphQL name.
func GoName(name string) string {
	s := inflect.Camelize(strings.TrimLeft(name, "_"))
	if s == "" {
		return "X" + name
	}
	for from, to := range acronyms {
		if s == from {
			return to
		}
		if strings.HasSuffix(s, from) {
			s = strings.TrimSuffix(s, from) + to
		}
	}
	if c := s[0]; c >= '0' && c <= '9' {
		s = "X" + s
	}
	return s
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
