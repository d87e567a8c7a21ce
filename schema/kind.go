package schema

import "github.com/vektah/gqlparser/v2/ast"

// Kind is the closed set of GraphQL named-type kinds.
type Kind uint8

// Type kinds.
const (
	KindObject Kind = iota + 1
	KindInterface
	KindUnion
	KindEnum
	KindScalar
	KindInputObject
)

// kindTraits describes what a kind carries. Kind-specific behaviour is looked
// up here and in the merge table instead of switching at each call site.
type kindTraits struct {
	name       string
	ast        ast.DefinitionKind
	fields     bool
	interfaces bool
	members    bool
	values     bool
	output     bool
	input      bool
}

var kinds = map[Kind]kindTraits{
	KindObject:      {name: "object", ast: ast.Object, fields: true, interfaces: true, output: true},
	KindInterface:   {name: "interface", ast: ast.Interface, fields: true, interfaces: true, output: true},
	KindUnion:       {name: "union", ast: ast.Union, members: true, output: true},
	KindEnum:        {name: "enum", ast: ast.Enum, values: true, output: true, input: true},
	KindScalar:      {name: "scalar", ast: ast.Scalar, output: true, input: true},
	KindInputObject: {name: "input", ast: ast.InputObject, fields: true, input: true},
}

// String returns the kind name.
func (k Kind) String() string {
	if t, ok := kinds[k]; ok {
		return t.name
	}
	return "invalid"
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// HasFields reports whether types of this kind carry fields.
func (k Kind) HasFields() bool { return kinds[k].fields }

// HasInterfaces reports whether types of this kind implement interfaces.
func (k Kind) HasInterfaces() bool { return kinds[k].interfaces }

// HasMembers reports whether types of this kind have member types.
func (k Kind) HasMembers() bool { return kinds[k].members }

// HasValues reports whether types of this kind have enum values.
func (k Kind) HasValues() bool { return kinds[k].values }

// IsOutput reports whether the kind can be used as a field result type.
func (k Kind) IsOutput() bool { return kinds[k].output }

// IsInput reports whether the kind can be used as an input type.
func (k Kind) IsInput() bool { return kinds[k].input }

// AST returns the gqlparser definition kind.
func (k Kind) AST() ast.DefinitionKind { return kinds[k].ast }

// KindOf maps a gqlparser definition kind to a Kind.
func KindOf(k ast.DefinitionKind) (Kind, bool) {
	for kind, t := range kinds {
		if t.ast == k {
			return kind, true
		}
	}
	return 0, false
}
