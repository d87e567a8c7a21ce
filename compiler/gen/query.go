package gen

import (
	"slices"

	"github.com/syssam/gqlcompose/schema"
)

// maxEnumDepth bounds the nesting of fields enum paths.
const maxEnumDepth = 3

// Operator sets per leaf type.
var (
	equalityOps = []string{OpEq, OpNe, OpIn, OpNin}
	textOps     = []string{OpEq, OpNe, OpIn, OpNin, OpRegex, OpGlob}
	rangeOps    = []string{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNin}
)

var scalarOps = map[string][]string{
	"ID":              equalityOps,
	"Boolean":         equalityOps,
	"String":          textOps,
	schema.JSONScalar: textOps,
	"Int":             rangeOps,
	"Float":           rangeOps,
	schema.DateScalar: rangeOps,
}

// Classify sets the searchable, sortable and needsResolve extensions of the
// fields of t. Values set explicitly are kept.
func Classify(reg *schema.Registry, t *schema.Type) {
	for _, f := range t.Fields() {
		needsResolve := f.Resolve != nil
		if f.Extensions.Has(schema.ExtNeedsResolve) {
			needsResolve = f.Extensions.NeedsResolve()
		}
		searchable := schema.Searchable
		switch base := reg.Get(f.Type.BaseName()); {
		case base == nil || base.Extensions.IsPlaceholder() || base.Kind == schema.KindUnion:
			searchable = schema.NotSearchable
		case needsResolve && len(f.Args) > 0:
			searchable = schema.DeprecatedSearchable
		}
		f.SetExtension(schema.ExtNeedsResolve, needsResolve)
		if !f.Extensions.Has(schema.ExtSearchable) {
			f.SetExtension(schema.ExtSearchable, searchable)
		}
		if !f.Extensions.Has(schema.ExtSortable) {
			f.SetExtension(schema.ExtSortable, searchable)
		}
	}
}

// Surface generates the root query fields of queryable types together
// with their filter, sort, fields enum and connection types.
type Surface struct {
	reg     *schema.Registry
	pending map[string]*schema.Type
	order   []string
	owners  map[string][]string
}

// NewSurface returns a generator writing to reg.
func NewSurface(reg *schema.Registry) *Surface {
	return &Surface{reg: reg}
}

// Generate adds the query surface of every queryable type.
func (s *Surface) Generate() error {
	s.classify()
	var queryable []*schema.Type
	for _, t := range s.reg.Types() {
		if Queryable(t) {
			queryable = append(queryable, t)
		}
	}
	return s.generate(queryable...)
}

// GenerateFor adds the query surface of the named type. Shared types that
// already exist are reused.
func (s *Surface) GenerateFor(name string) error {
	s.classify()
	t := s.reg.Get(name)
	if !Queryable(t) {
		return nil
	}
	return s.generate(t)
}

// Clear removes the generated types owned by name and its root fields.
func (s *Surface) Clear(name string) {
	t := s.reg.Get(name)
	if t == nil {
		return
	}
	for _, derived := range t.Extensions.DerivedTypes() {
		s.reg.Remove(derived)
	}
	delete(t.Extensions, schema.ExtDerivedTypes)
	names := NamesOf(name)
	if q := s.reg.Get(schema.QueryType); q != nil {
		q.RemoveField(names.Single)
		q.RemoveField(names.All)
	}
}

func (s *Surface) classify() {
	for _, t := range s.reg.Types() {
		if t.Kind == schema.KindObject || t.Kind == schema.KindInterface {
			Classify(s.reg, t)
		}
	}
}

func (s *Surface) generate(types ...*schema.Type) error {
	s.pending = map[string]*schema.Type{}
	s.order = nil
	s.owners = map[string][]string{}
	query := s.reg.Get(schema.QueryType)
	for _, t := range types {
		for _, f := range s.rootFields(t) {
			query.SetField(f)
		}
	}
	for _, name := range s.order {
		s.reg.Set(s.pending[name])
	}
	for owner, names := range s.owners {
		t := s.reg.Get(owner)
		if t == nil {
			continue
		}
		derived := t.Extensions.DerivedTypes()
		for _, n := range names {
			if !slices.Contains(derived, n) {
				derived = append(derived, n)
			}
		}
		t.SetExtension(schema.ExtDerivedTypes, derived)
	}
	return nil
}

// lookup returns a generated or registered type.
func (s *Surface) lookup(name string) *schema.Type {
	if t, ok := s.pending[name]; ok {
		return t
	}
	if t := s.reg.Get(name); t != nil && !t.Extensions.IsPlaceholder() {
		return t
	}
	return nil
}

// put records a generated type owned by owner. Shared types have no owner.
func (s *Surface) put(t *schema.Type, owner string) {
	t.SetExtension(schema.ExtCreatedFrom, schema.FromBuiltin)
	s.pending[t.Name] = t
	s.order = append(s.order, t.Name)
	if owner != "" {
		s.owners[owner] = append(s.owners[owner], t.Name)
	}
}

func (s *Surface) drop(name string) {
	delete(s.pending, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	for owner, names := range s.owners {
		s.owners[owner] = slices.DeleteFunc(names, func(n string) bool { return n == name })
	}
}

// rootFields returns the single and all root fields of t.
func (s *Surface) rootFields(t *schema.Type) []*schema.Field {
	names := NamesOf(t.Name)
	filter := s.filterInput(t.Name)

	single := schema.NewField(names.Single, schema.Named(t.Name))
	single.Resolve = SingleResolver(t.Name)
	all := schema.NewField(names.All, schema.NonNullNamed(s.connection(t)))
	all.Resolve = AllResolver(t.Name)
	if filter != "" {
		single.Args = append(single.Args, &schema.Arg{Name: "filter", Type: schema.Named(filter)})
		all.Args = append(all.Args, &schema.Arg{Name: "filter", Type: schema.Named(filter)})
	}
	if sort := s.sortInput(t); sort != "" {
		all.Args = append(all.Args, &schema.Arg{Name: "sort", Type: schema.Named(sort)})
	}
	all.Args = append(all.Args,
		&schema.Arg{Name: "skip", Type: schema.Named("Int")},
		&schema.Arg{Name: "limit", Type: schema.Named("Int")},
	)
	single.SetExtension(schema.ExtCreatedFrom, schema.FromBuiltin)
	all.SetExtension(schema.ExtCreatedFrom, schema.FromBuiltin)
	return []*schema.Field{single, all}
}

// filterInput returns the name of the filter input of an object or
// interface type, generating it when missing. It returns "" when the type
// has no filterable field.
func (s *Surface) filterInput(typeName string) string {
	name := FilterInputName(typeName)
	if s.lookup(name) != nil {
		return name
	}
	t := s.lookup(typeName)
	if t == nil {
		return ""
	}
	in := schema.NewType(name, schema.KindInputObject)
	s.put(in, typeName)
	for _, f := range t.Fields() {
		if f.Extensions.Searchable() == schema.NotSearchable {
			continue
		}
		if typ := s.filterFieldType(f.Type); typ != "" {
			in.SetField(schema.NewField(f.Name, schema.Named(typ)))
		}
	}
	if in.NumFields() == 0 {
		s.drop(name)
		return ""
	}
	return name
}

// filterFieldType returns the input type filtering values of ref.
func (s *Surface) filterFieldType(ref *schema.TypeRef) string {
	base := s.lookup(ref.BaseName())
	if base == nil {
		return ""
	}
	switch base.Kind {
	case schema.KindScalar:
		ops, ok := scalarOps[base.Name]
		if !ok {
			ops = equalityOps
		}
		return s.operatorInput(base.Name, ops)
	case schema.KindEnum:
		return s.operatorInput(base.Name, equalityOps)
	case schema.KindObject, schema.KindInterface:
		filter := s.filterInput(base.Name)
		if filter == "" || !ref.IsList() {
			return filter
		}
		return s.filterListInput(base.Name, filter)
	}
	return ""
}

// operatorInput returns the shared operator input of a leaf type.
func (s *Surface) operatorInput(leaf string, ops []string) string {
	name := OperatorInputName(leaf)
	if s.lookup(name) != nil {
		return name
	}
	in := schema.NewType(name, schema.KindInputObject)
	for _, op := range ops {
		var typ *schema.TypeRef
		switch op {
		case OpIn, OpNin:
			typ = schema.ListOf(schema.Named(leaf))
		case OpRegex, OpGlob:
			typ = schema.Named("String")
		default:
			typ = schema.Named(leaf)
		}
		in.SetField(schema.NewField(op, typ))
	}
	s.put(in, "")
	return name
}

func (s *Surface) filterListInput(typeName, filter string) string {
	name := FilterListInputName(typeName)
	if s.lookup(name) != nil {
		return name
	}
	in := schema.Object(name, schema.NewField(OpElemMatch, schema.Named(filter)))
	in.Kind = schema.KindInputObject
	s.put(in, typeName)
	return name
}

// sortInput returns the sort input of t together with its fields enum.
func (s *Surface) sortInput(t *schema.Type) string {
	names := NamesOf(t.Name)
	if s.lookup(names.Sort) != nil {
		return names.Sort
	}
	var paths []string
	s.fieldPaths(t, "", 0, &paths)
	if len(paths) == 0 {
		return ""
	}
	enum := schema.NewType(names.FieldsEnum, schema.KindEnum)
	for _, p := range paths {
		enum.AddValue(&schema.EnumValue{Name: p})
	}
	s.put(enum, t.Name)
	sort := schema.Object(names.Sort,
		schema.NewField("fields", schema.ListOf(schema.Named(names.FieldsEnum))),
		schema.NewField("order", schema.ListOf(schema.Named(schema.SortOrderEnum))),
	)
	sort.Kind = schema.KindInputObject
	s.put(sort, t.Name)
	return names.Sort
}

// fieldPaths collects the sortable leaf paths of t up to maxEnumDepth.
func (s *Surface) fieldPaths(t *schema.Type, prefix string, depth int, out *[]string) {
	for _, f := range t.Fields() {
		if f.Extensions.Sortable() != schema.Searchable {
			continue
		}
		base := s.lookup(f.Type.BaseName())
		if base == nil {
			continue
		}
		path := prefix + f.Name
		switch base.Kind {
		case schema.KindScalar, schema.KindEnum:
			*out = append(*out, path)
		case schema.KindObject, schema.KindInterface:
			if depth+1 < maxEnumDepth {
				s.fieldPaths(base, path+FieldPathSeparator, depth+1, out)
			}
		}
	}
}

// connection returns the connection type of t, generating it and its edge
// type when missing.
func (s *Surface) connection(t *schema.Type) string {
	names := NamesOf(t.Name)
	if s.lookup(names.Connection) != nil {
		return names.Connection
	}
	edge := schema.Object(names.Edge,
		schema.NewField("next", schema.Named(t.Name)),
		schema.NewField("node", schema.NonNullNamed(t.Name)),
		schema.NewField("previous", schema.Named(t.Name)),
	)
	s.put(edge, t.Name)

	conn := schema.Object(names.Connection,
		schema.NewField("totalCount", schema.NonNullNamed("Int")),
		schema.NewField("edges", schema.NonNullOf(schema.ListOf(schema.NonNullNamed(names.Edge)))),
		schema.NewField("nodes", schema.NonNullOf(schema.ListOf(schema.NonNullNamed(t.Name)))),
		schema.NewField("pageInfo", schema.NonNullNamed(schema.PageInfoType)),
	)
	if s.lookup(names.FieldsEnum) != nil || s.sortInput(t) != "" {
		distinct := schema.NewField("distinct", schema.NonNullOf(schema.ListOf(schema.NonNullNamed("String"))))
		distinct.Args = []*schema.Arg{{Name: "field", Type: schema.NonNullNamed(names.FieldsEnum)}}
		distinct.Resolve = DistinctResolver
		conn.SetField(distinct)
	}
	s.put(conn, t.Name)
	return names.Connection
}
