package schema

import (
	"context"
	"slices"

	"github.com/syssam/gqlcompose"
)

// ResolveFunc resolves the value of one field.
type ResolveFunc func(ctx context.Context, p ResolveParams) (any, error)

// ResolveParams holds the inputs of a field resolution.
type ResolveParams struct {
	// Source is the parent value, usually a *gqlcompose.Node or a map.
	Source any
	Args   map[string]any
	Info   ResolveInfo
}

// ResolveInfo describes the field being resolved.
type ResolveInfo struct {
	ParentType string
	FieldName  string
	ReturnType *TypeRef
	Path       []string
	// Nodes is the content store of the build.
	Nodes gqlcompose.NodeStore
	// Schema is the frozen type table of the schema being queried.
	Schema *Registry
	// OriginalResolver is the resolver that was replaced by an override.
	OriginalResolver ResolveFunc
}

// Arg is a field argument or an input field default.
type Arg struct {
	Name        string
	Description string
	Type        *TypeRef
	// Default holds the default value as a Go value, nil if absent.
	Default any
}

// Clone returns a copy of a.
func (a *Arg) Clone() *Arg {
	c := *a
	c.Type = a.Type.Clone()
	return &c
}

// Field is a field of an object, interface or input object type.
type Field struct {
	Name        string
	Description string
	Type        *TypeRef
	Args        []*Arg
	Resolve     ResolveFunc
	// Deprecation is the deprecation reason. Empty means not deprecated.
	Deprecation string
	Extensions  Extensions
}

// NewField returns a field with an initialized extension map.
func NewField(name string, typ *TypeRef) *Field {
	return &Field{Name: name, Type: typ, Extensions: Extensions{}}
}

// Arg returns the argument with the given name, or nil.
func (f *Field) Arg(name string) *Arg {
	for _, a := range f.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// SetExtension sets a field extension.
func (f *Field) SetExtension(key string, v any) {
	if f.Extensions == nil {
		f.Extensions = Extensions{}
	}
	f.Extensions[key] = v
}

// Clone returns a deep copy of f. Resolvers are shared.
func (f *Field) Clone() *Field {
	c := *f
	c.Type = f.Type.Clone()
	c.Args = make([]*Arg, len(f.Args))
	for i, a := range f.Args {
		c.Args[i] = a.Clone()
	}
	c.Extensions = f.Extensions.Clone()
	return &c
}

// EnumValue is one value of an enum type.
type EnumValue struct {
	Name        string
	Description string
	Deprecation string
}

// Type is a named type definition. Fields keep declaration order.
type Type struct {
	Name        string
	Kind        Kind
	Description string
	Interfaces  []string
	Members     []string
	Values      []*EnumValue
	Extensions  Extensions

	fields []*Field
	index  map[string]int
}

// NewType returns an empty type of the given kind.
func NewType(name string, kind Kind) *Type {
	return &Type{Name: name, Kind: kind, Extensions: Extensions{}, index: map[string]int{}}
}

// Object returns a new object type with the given fields.
func Object(name string, fields ...*Field) *Type {
	t := NewType(name, KindObject)
	for _, f := range fields {
		t.SetField(f)
	}
	return t
}

// Fields returns the fields in declaration order.
func (t *Type) Fields() []*Field {
	return slices.Clone(t.fields)
}

// FieldNames returns the field names in declaration order.
func (t *Type) FieldNames() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}
	return names
}

// NumFields returns the number of fields.
func (t *Type) NumFields() int { return len(t.fields) }

// Field returns the named field, or nil.
func (t *Type) Field(name string) *Field {
	if i, ok := t.index[name]; ok {
		return t.fields[i]
	}
	return nil
}

// HasField reports whether the type has the named field.
func (t *Type) HasField(name string) bool {
	_, ok := t.index[name]
	return ok
}

// SetField adds f, replacing a field with the same name in place.
func (t *Type) SetField(f *Field) {
	if t.index == nil {
		t.index = map[string]int{}
	}
	if f.Extensions == nil {
		f.Extensions = Extensions{}
	}
	if i, ok := t.index[f.Name]; ok {
		t.fields[i] = f
		return
	}
	t.index[f.Name] = len(t.fields)
	t.fields = append(t.fields, f)
}

// RemoveField removes the named field.
func (t *Type) RemoveField(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	t.fields = slices.Delete(t.fields, i, i+1)
	delete(t.index, name)
	for j := i; j < len(t.fields); j++ {
		t.index[t.fields[j].Name] = j
	}
}

// HasInterface reports whether the type declares the interface.
func (t *Type) HasInterface(name string) bool {
	return slices.Contains(t.Interfaces, name)
}

// AddInterface declares an interface, ignoring duplicates.
func (t *Type) AddInterface(names ...string) {
	for _, n := range names {
		if !t.HasInterface(n) {
			t.Interfaces = append(t.Interfaces, n)
		}
	}
}

// AddMember adds union members, ignoring duplicates.
func (t *Type) AddMember(names ...string) {
	for _, n := range names {
		if !slices.Contains(t.Members, n) {
			t.Members = append(t.Members, n)
		}
	}
}

// AddValue adds enum values, ignoring duplicates.
func (t *Type) AddValue(values ...*EnumValue) {
	for _, v := range values {
		if !slices.ContainsFunc(t.Values, func(e *EnumValue) bool { return e.Name == v.Name }) {
			t.Values = append(t.Values, v)
		}
	}
}

// SetExtension sets a type extension.
func (t *Type) SetExtension(key string, v any) {
	if t.Extensions == nil {
		t.Extensions = Extensions{}
	}
	t.Extensions[key] = v
}

// IsNode reports whether the type implements the Node interface.
func (t *Type) IsNode() bool { return t.HasInterface(NodeInterface) }

// Clone returns a deep copy of t. Resolvers are shared.
func (t *Type) Clone() *Type {
	c := &Type{
		Name:        t.Name,
		Kind:        t.Kind,
		Description: t.Description,
		Interfaces:  slices.Clone(t.Interfaces),
		Members:     slices.Clone(t.Members),
		Extensions:  t.Extensions.Clone(),
		index:       make(map[string]int, len(t.fields)),
	}
	for _, v := range t.Values {
		vc := *v
		c.Values = append(c.Values, &vc)
	}
	for _, f := range t.fields {
		c.SetField(f.Clone())
	}
	return c
}
