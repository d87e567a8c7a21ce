package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/gqlcompose"
)

var nameRE = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// reservedSuffixes are appended by the query surface to generated input types.
var reservedSuffixes = []string{"FilterInput", "SortInput"}

// reservedNames may not be defined by users.
var reservedNames = map[string]bool{
	NodeInterface: true,
	"Boolean":     true,
	"Date":        true,
	"Float":       true,
	"ID":          true,
	"Int":         true,
	"JSON":        true,
	"String":      true,
}

// ValidName reports whether name is a valid GraphQL name.
func ValidName(name string) bool { return nameRE.MatchString(name) }

// CheckTypeName returns a configuration error if name may not be used for a
// user-defined type.
func CheckTypeName(name string) error {
	if reservedNames[name] {
		return gqlcompose.NewConfigurationError(name,
			fmt.Sprintf("the GraphQL type %q is reserved for internal use", name), nil)
	}
	for _, s := range reservedSuffixes {
		if strings.HasSuffix(name, s) {
			return gqlcompose.NewConfigurationError(name,
				fmt.Sprintf("GraphQL type names ending with %q are reserved for internal use", s), nil)
		}
	}
	if !ValidName(name) {
		return gqlcompose.NewConfigurationError(name,
			fmt.Sprintf("names must match /^[_a-zA-Z][_a-zA-Z0-9]*$/ but %q does not", name), nil)
	}
	return nil
}
