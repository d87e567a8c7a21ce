package gen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// FieldPathSeparator joins nested field names in fields enum values.
const FieldPathSeparator = "___"

// Names holds the generated type and field names of a queryable type.
type Names struct {
	Node       string
	Single     string // root field returning one node
	All        string // root field returning a connection
	Connection string
	Edge       string
	Filter     string
	Sort       string
	FieldsEnum string
}

// NamesOf returns the generated names of a queryable type.
func NamesOf(node string) *Names {
	return &Names{
		Node:       node,
		Single:     camelCase(node),
		All:        camelCase("all", node),
		Connection: fmt.Sprintf("%sConnection", node),
		Edge:       fmt.Sprintf("%sEdge", node),
		Filter:     FilterInputName(node),
		Sort:       fmt.Sprintf("%sSortInput", node),
		FieldsEnum: fmt.Sprintf("%sFieldsEnum", node),
	}
}

// FilterInputName returns the filter input name of an object or interface.
func FilterInputName(typeName string) string {
	return fmt.Sprintf("%sFilterInput", typeName)
}

// FilterListInputName returns the elemMatch wrapper name of a list filter.
func FilterListInputName(typeName string) string {
	return fmt.Sprintf("%sFilterListInput", typeName)
}

// OperatorInputName returns the operator input name of a leaf type.
func OperatorInputName(typeName string) string {
	return fmt.Sprintf("%sQueryOperatorInput", typeName)
}

// ChildFieldName returns the single child accessor name, e.g. childMarkdown.
func ChildFieldName(child string) string {
	return camelCase("child", child)
}

// ChildrenFieldName returns the children accessor name, e.g. childrenMarkdown.
func ChildrenFieldName(child string) string {
	return camelCase("children", child)
}

// NestedTypeName returns the name of an object type nested under a field.
func NestedTypeName(parent, field string) string {
	return inflect.Camelize(parent + "_" + field)
}

// camelCase joins the words of parts in lower camel case. Words break on
// separators, digit runs and case changes, and an acronym ends before the
// capital that starts the next word: HTMLPage is "html page".
func camelCase(parts ...string) string {
	var b strings.Builder
	for i, w := range words(strings.Join(parts, " ")) {
		w = strings.ToLower(w)
		if i > 0 {
			r := []rune(w)
			r[0] = unicode.ToUpper(r[0])
			w = string(r)
		}
		b.WriteString(w)
	}
	return b.String()
}

func words(s string) []string {
	var (
		out  []string
		word []rune
	)
	flush := func() {
		if len(word) > 0 {
			out = append(out, string(word))
			word = word[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(word) > 0 {
			prev := word[len(word)-1]
			switch {
			case unicode.IsDigit(r) != unicode.IsDigit(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsLower(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1]):
				flush()
			}
		}
		word = append(word, r)
	}
	flush()
	return out
}
