package schema

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// TypeRef references a named type, optionally wrapped in lists and
// non-null markers.
type TypeRef struct {
	// Name is set for named types and empty for lists.
	Name string
	// Elem is the element type of a list.
	Elem    *TypeRef
	NonNull bool
}

// Named returns a nullable reference to the named type.
func Named(name string) *TypeRef { return &TypeRef{Name: name} }

// NonNullNamed returns a non-null reference to the named type.
func NonNullNamed(name string) *TypeRef { return &TypeRef{Name: name, NonNull: true} }

// ListOf returns a nullable list of elem.
func ListOf(elem *TypeRef) *TypeRef { return &TypeRef{Elem: elem} }

// NonNullOf returns a copy of t marked non-null.
func NonNullOf(t *TypeRef) *TypeRef {
	c := t.Clone()
	c.NonNull = true
	return c
}

// IsList reports whether the outermost wrapper is a list.
func (t *TypeRef) IsList() bool { return t != nil && t.Elem != nil }

// BaseName returns the named type at the core of all wrappers.
func (t *TypeRef) BaseName() string {
	for t != nil && t.Elem != nil {
		t = t.Elem
	}
	if t == nil {
		return ""
	}
	return t.Name
}

// Nullable returns a copy of t without the outermost non-null marker.
func (t *TypeRef) Nullable() *TypeRef {
	c := t.Clone()
	c.NonNull = false
	return c
}

// String renders the reference in SDL notation, e.g. "[Int!]!".
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	s := t.Name
	if t.Elem != nil {
		s = "[" + t.Elem.String() + "]"
	}
	if t.NonNull {
		s += "!"
	}
	return s
}

// Equal reports whether both references are structurally identical.
func (t *TypeRef) Equal(o *TypeRef) bool {
	return t.String() == o.String()
}

// EqualIgnoringNonNull reports whether both references name the same type
// once every non-null marker is removed.
func (t *TypeRef) EqualIgnoringNonNull(o *TypeRef) bool {
	return strings.ReplaceAll(t.String(), "!", "") == strings.ReplaceAll(o.String(), "!", "")
}

// WithBase returns a copy of t with the core named type replaced.
func (t *TypeRef) WithBase(name string) *TypeRef {
	c := t.Clone()
	cur := c
	for cur.Elem != nil {
		cur = cur.Elem
	}
	cur.Name = name
	return c
}

// Clone returns a deep copy of t.
func (t *TypeRef) Clone() *TypeRef {
	if t == nil {
		return nil
	}
	return &TypeRef{Name: t.Name, Elem: t.Elem.Clone(), NonNull: t.NonNull}
}

// AST converts t to a gqlparser type.
func (t *TypeRef) AST() *ast.Type {
	if t == nil {
		return nil
	}
	return &ast.Type{NamedType: t.Name, Elem: t.Elem.AST(), NonNull: t.NonNull}
}

// FromAST converts a gqlparser type to a TypeRef.
func FromAST(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	return &TypeRef{Name: t.NamedType, Elem: FromAST(t.Elem), NonNull: t.NonNull}
}

// ParseTypeRef parses SDL type notation such as "[String!]!".
func ParseTypeRef(s string) (*TypeRef, error) {
	t, rest, err := parseTypeRef(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("gqlcompose: unexpected %q in type %q", rest, s)
	}
	return t, nil
}

// MustParseTypeRef is like ParseTypeRef but panics on error.
func MustParseTypeRef(s string) *TypeRef {
	t, err := ParseTypeRef(s)
	if err != nil {
		panic(err)
	}
	return t
}

func parseTypeRef(s string) (*TypeRef, string, error) {
	var t *TypeRef
	switch {
	case s == "":
		return nil, "", fmt.Errorf("gqlcompose: empty type reference")
	case s[0] == '[':
		elem, rest, err := parseTypeRef(strings.TrimSpace(s[1:]))
		if err != nil {
			return nil, "", err
		}
		rest = strings.TrimSpace(rest)
		if rest == "" || rest[0] != ']' {
			return nil, "", fmt.Errorf("gqlcompose: unterminated list in type %q", s)
		}
		t, s = ListOf(elem), rest[1:]
	default:
		i := 0
		for i < len(s) && isNameChar(s[i], i == 0) {
			i++
		}
		if i == 0 {
			return nil, "", fmt.Errorf("gqlcompose: invalid type reference %q", s)
		}
		t, s = Named(s[:i]), s[i:]
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "!") {
		t.NonNull = true
		s = strings.TrimSpace(s[1:])
	}
	return t, s, nil
}

func isNameChar(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}
