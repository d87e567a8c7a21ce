package schema

// Built-in type names.
const (
	NodeInterface = "Node"
	InternalType  = "Internal"
	DateScalar    = "Date"
	JSONScalar    = "JSON"
	QueryType     = "Query"
	SortOrderEnum = "SortOrderEnum"
	PageInfoType  = "PageInfo"
)

// StandardScalars are the scalars every GraphQL schema provides.
var StandardScalars = []string{"ID", "String", "Int", "Float", "Boolean"}

// IsStandardScalar reports whether name is one of the five GraphQL scalars.
func IsStandardScalar(name string) bool {
	for _, s := range StandardScalars {
		if s == name {
			return true
		}
	}
	return false
}

// IsScalarName reports whether name is a standard or built-in custom scalar.
func IsScalarName(name string) bool {
	return IsStandardScalar(name) || name == DateScalar || name == JSONScalar
}

// builtinTypes returns fresh copies of the types every registry starts with.
func builtinTypes() []*Type {
	var types []*Type
	for _, s := range StandardScalars {
		types = append(types, NewType(s, KindScalar))
	}

	date := NewType(DateScalar, KindScalar)
	date.Description = "A date string, such as 2007-12-03, compliant with the ISO 8601 standard for representation of dates and times using the Gregorian calendar."
	json := NewType(JSONScalar, KindScalar)
	json.Description = "The `JSON` scalar type represents JSON values as specified by [ECMA-404](http://www.ecma-international.org/publications/files/ECMA-ST/ECMA-404.pdf)."

	internal := Object(InternalType,
		NewField("contentDigest", NonNullNamed("String")),
		NewField("mediaType", Named("String")),
		NewField("owner", NonNullNamed("String")),
		NewField("type", NonNullNamed("String")),
	)

	node := NewType(NodeInterface, KindInterface)
	node.Description = "Node Interface"
	for _, f := range NodeFields() {
		node.SetField(f)
	}

	order := NewType(SortOrderEnum, KindEnum)
	order.AddValue(&EnumValue{Name: "ASC"}, &EnumValue{Name: "DESC"})

	pageInfo := Object(PageInfoType,
		NewField("currentPage", NonNullNamed("Int")),
		NewField("hasPreviousPage", NonNullNamed("Boolean")),
		NewField("hasNextPage", NonNullNamed("Boolean")),
		NewField("itemCount", NonNullNamed("Int")),
		NewField("pageCount", NonNullNamed("Int")),
		NewField("perPage", Named("Int")),
		NewField("totalCount", NonNullNamed("Int")),
	)

	query := NewType(QueryType, KindObject)
	types = append(types, date, json, internal, node, order, pageInfo, query)
	for _, t := range types {
		t.SetExtension(ExtCreatedFrom, FromBuiltin)
		for _, f := range t.fields {
			f.SetExtension(ExtCreatedFrom, FromBuiltin)
		}
	}
	return types
}

// NodeFields returns fresh copies of the fields of the Node interface.
func NodeFields() []*Field {
	return []*Field{
		NewField("id", NonNullNamed("ID")),
		NewField("parent", Named(NodeInterface)),
		NewField("children", NonNullOf(ListOf(NonNullNamed(NodeInterface)))),
		NewField("internal", NonNullNamed(InternalType)),
	}
}
