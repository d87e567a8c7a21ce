// Package load converts type definitions between the schema definition
// language and the schema package model.
package load

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/schema"
)

// defaultDeprecationReason is used for @deprecated without a reason.
const defaultDeprecationReason = "No longer supported"

// Parser converts SDL sources into type definitions.
type Parser struct {
	reporter   gqlcompose.Reporter
	extensions map[string]*Extension
}

// NewParser returns a parser that accepts the given field extensions as
// field directives. Invalid field directives are reported to rep.
func NewParser(rep gqlcompose.Reporter, exts ...*Extension) *Parser {
	if rep == nil {
		rep = &gqlcompose.Recorder{}
	}
	p := &Parser{reporter: rep, extensions: make(map[string]*Extension, len(exts))}
	for _, e := range exts {
		p.extensions[e.Name] = e
	}
	return p
}

// Parse parses a single SDL source with the built-in field extensions.
func Parse(src *ast.Source) ([]*schema.Type, error) {
	return NewParser(nil, BuiltinExtensions()...).Parse(src)
}

// Parse converts the definitions and extensions of src. Syntax errors and
// reserved type names are returned as *gqlcompose.ConfigurationError.
func (p *Parser) Parse(src *ast.Source) ([]*schema.Type, error) {
	doc, err := parser.ParseSchema(src)
	if err != nil {
		return nil, syntaxError(src, err)
	}
	defs := make([]*ast.Definition, 0, len(doc.Definitions)+len(doc.Extensions))
	defs = append(defs, doc.Definitions...)
	defs = append(defs, doc.Extensions...)
	types := make([]*schema.Type, 0, len(defs))
	for _, def := range defs {
		t, err := p.convert(def)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// ParseAll parses every source. A source that fails to parse is reported and
// skipped; reserved type names abort with an error.
func (p *Parser) ParseAll(srcs ...*ast.Source) ([]*schema.Type, error) {
	var types []*schema.Type
	for _, src := range srcs {
		ts, err := p.Parse(src)
		var ce *gqlcompose.ConfigurationError
		switch {
		case err == nil:
			types = append(types, ts...)
		case errors.As(err, &ce) && ce.Type == "":
			p.reporter.Error(err.Error())
		default:
			return nil, err
		}
	}
	return types, nil
}

func syntaxError(src *ast.Source, err error) error {
	ce := gqlcompose.NewConfigurationError("", "invalid type definitions", err)
	var gerr *gqlerror.Error
	if errors.As(err, &gerr) {
		ce.Cause = errors.New(gerr.Message)
		if len(gerr.Locations) > 0 {
			ce.Source = fmt.Sprintf("%s:%d:%d", src.Name, gerr.Locations[0].Line, gerr.Locations[0].Column)
		}
	}
	if ce.Source == "" {
		ce.Source = src.Name
	}
	return ce
}

func position(pos *ast.Position) string {
	if pos == nil || pos.Src == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", pos.Src.Name, pos.Line, pos.Column)
}

// Convert converts one definition, such as a type of a schema loaded by
// gqlparser.
func (p *Parser) Convert(def *ast.Definition) (*schema.Type, error) {
	return p.convert(def)
}

func (p *Parser) convert(def *ast.Definition) (*schema.Type, error) {
	if err := schema.CheckTypeName(def.Name); err != nil {
		var ce *gqlcompose.ConfigurationError
		if errors.As(err, &ce) {
			ce.Source = position(def.Position)
		}
		return nil, err
	}
	kind, ok := schema.KindOf(def.Kind)
	if !ok {
		return nil, gqlcompose.NewConfigurationError(def.Name, fmt.Sprintf("unsupported definition kind %q", def.Kind), nil)
	}
	t := schema.NewType(def.Name, kind)
	t.Description = def.Description
	t.AddInterface(def.Interfaces...)
	t.AddMember(def.Types...)
	for _, v := range def.EnumValues {
		t.AddValue(&schema.EnumValue{Name: v.Name, Description: v.Description, Deprecation: deprecation(v.Directives)})
	}
	for _, d := range def.Directives {
		apply, ok := typeDirectives[d.Name]
		if !ok {
			p.reporter.Warn(fmt.Sprintf("unknown directive @%s on type %s is ignored", d.Name, def.Name))
			continue
		}
		args, err := directiveArgs(d)
		if err == nil {
			err = apply(t, args)
		}
		if err != nil {
			ce := gqlcompose.NewConfigurationError(def.Name, "invalid directive @"+d.Name, err)
			ce.Source = position(d.Position)
			return nil, ce
		}
	}
	for _, fd := range def.Fields {
		t.SetField(p.convertField(def.Name, fd))
	}
	return t, nil
}

func (p *Parser) convertField(typeName string, fd *ast.FieldDefinition) *schema.Field {
	f := schema.NewField(fd.Name, schema.FromAST(fd.Type))
	f.Description = fd.Description
	f.Deprecation = deprecation(fd.Directives)
	for _, ad := range fd.Arguments {
		f.Args = append(f.Args, convertArg(ad))
	}
	for _, d := range fd.Directives {
		if d.Name == "deprecated" {
			continue
		}
		ext, ok := p.extensions[d.Name]
		if !ok {
			p.reporter.Error(fmt.Sprintf("field extension %q on %s.%s is not available", d.Name, typeName, fd.Name))
			continue
		}
		args, err := directiveArgs(d)
		if err == nil {
			args, err = ext.Validate(args)
		}
		if err != nil {
			p.reporter.Error(fmt.Sprintf("field extension %q on %s.%s has invalid arguments: %v", d.Name, typeName, fd.Name, err))
			continue
		}
		f.SetExtension(d.Name, args)
	}
	return f
}

func convertArg(ad *ast.ArgumentDefinition) *schema.Arg {
	a := &schema.Arg{Name: ad.Name, Description: ad.Description, Type: schema.FromAST(ad.Type)}
	if ad.DefaultValue != nil {
		a.Default, _ = ad.DefaultValue.Value(nil)
	}
	return a
}

func directiveArgs(d *ast.Directive) (map[string]any, error) {
	args := make(map[string]any, len(d.Arguments))
	for _, a := range d.Arguments {
		v, err := a.Value.Value(nil)
		if err != nil {
			return nil, err
		}
		args[a.Name] = v
	}
	return args, nil
}

func deprecation(ds ast.DirectiveList) string {
	d := ds.ForName("deprecated")
	if d == nil {
		return ""
	}
	if a := d.Arguments.ForName("reason"); a != nil && a.Value != nil {
		return a.Value.Raw
	}
	return defaultDeprecationReason
}
