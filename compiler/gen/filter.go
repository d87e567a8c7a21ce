package gen

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler/infer"
	"github.com/syssam/gqlcompose/schema"
)

// Filter operators.
const (
	OpEq        = "eq"
	OpNe        = "ne"
	OpIn        = "in"
	OpNin       = "nin"
	OpGt        = "gt"
	OpGte       = "gte"
	OpLt        = "lt"
	OpLte       = "lte"
	OpRegex     = "regex"
	OpGlob      = "glob"
	OpElemMatch = "elemMatch"
)

// evaluator reads field values of nodes and nested objects, running the
// resolvers of fields that need one.
type evaluator struct {
	reg   *schema.Registry
	store gqlcompose.NodeStore
	// cache holds resolved values per source and field.
	mu    sync.Mutex
	cache map[evalKey]any
}

type evalKey struct {
	source any
	field  string
}

func newEvaluator(info schema.ResolveInfo) *evaluator {
	return &evaluator{reg: info.Schema, store: info.Nodes, cache: map[evalKey]any{}}
}

// typeOf returns the concrete type name of source, falling back to the
// declared type name.
func typeOf(source any, declared string) string {
	if n, ok := source.(*gqlcompose.Node); ok && n.Type() != "" {
		return n.Type()
	}
	return declared
}

// field returns the definition of typeName.name, or nil.
func (e *evaluator) field(typeName, name string) *schema.Field {
	if e.reg == nil {
		return nil
	}
	t := e.reg.Get(typeName)
	if t == nil {
		return nil
	}
	return t.Field(name)
}

// value returns the value of field name on source.
func (e *evaluator) value(ctx context.Context, source any, typeName, name string) (any, error) {
	typeName = typeOf(source, typeName)
	f := e.field(typeName, name)
	if f == nil || f.Resolve == nil || !f.Extensions.NeedsResolve() {
		return FieldValue(source, name), nil
	}
	key := evalKey{source: source, field: name}
	if _, ok := source.(*gqlcompose.Node); ok {
		e.mu.Lock()
		v, ok := e.cache[key]
		e.mu.Unlock()
		if ok {
			return v, nil
		}
	}
	v, err := f.Resolve(ctx, schema.ResolveParams{
		Source: source,
		Args:   defaultArgs(f),
		Info: schema.ResolveInfo{
			ParentType: typeName,
			FieldName:  name,
			ReturnType: f.Type,
			Path:       []string{name},
			Nodes:      e.store,
			Schema:     e.reg,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("resolve %s.%s: %w", typeName, name, err)
	}
	if _, ok := source.(*gqlcompose.Node); ok {
		e.mu.Lock()
		e.cache[key] = v
		e.mu.Unlock()
	}
	return v, nil
}

// path returns the value at a fields enum path such as "frontmatter___title".
// Lists are followed through their first element.
func (e *evaluator) path(ctx context.Context, source any, typeName, path string) (any, error) {
	v := source
	for _, name := range strings.Split(path, FieldPathSeparator) {
		if list, ok := asList(v); ok {
			if len(list) == 0 {
				return nil, nil
			}
			v = list[0]
		}
		if v == nil {
			return nil, nil
		}
		next, err := e.value(ctx, v, typeName, name)
		if err != nil {
			return nil, err
		}
		if f := e.field(typeOf(v, typeName), name); f != nil {
			typeName = f.Type.BaseName()
		}
		v = next
	}
	return v, nil
}

func defaultArgs(f *schema.Field) map[string]any {
	args := map[string]any{}
	for _, a := range f.Args {
		if a.Default != nil {
			args[a.Name] = a.Default
		}
	}
	return args
}

// match reports whether source satisfies filter.
func (e *evaluator) match(ctx context.Context, source any, typeName string, filter map[string]any) (bool, error) {
	for _, name := range gqlcompose.SortedKeys(filter) {
		cond, ok := filter[name].(map[string]any)
		if !ok {
			return false, fmt.Errorf("filter on %s.%s must be an object", typeName, name)
		}
		v, err := e.value(ctx, source, typeName, name)
		if err != nil {
			return false, err
		}
		base := ""
		if f := e.field(typeOf(source, typeName), name); f != nil {
			base = f.Type.BaseName()
		}
		ok, err = e.matchField(ctx, v, base, cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// matchField matches one field value against its condition object.
func (e *evaluator) matchField(ctx context.Context, v any, base string, cond map[string]any) (bool, error) {
	if e.leaf(base, cond) {
		for _, op := range gqlcompose.SortedKeys(cond) {
			ok, err := applyOp(op, v, cond[op])
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	if sub, ok := cond[OpElemMatch].(map[string]any); ok {
		list, _ := asList(v)
		for _, elem := range list {
			ok, err := e.match(ctx, elem, base, sub)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	if list, ok := asList(v); ok {
		for _, elem := range list {
			ok, err := e.match(ctx, elem, base, cond)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	if v == nil {
		return false, nil
	}
	return e.match(ctx, v, base, cond)
}

// leaf reports whether cond holds operators rather than nested fields.
func (e *evaluator) leaf(base string, cond map[string]any) bool {
	if e.reg != nil {
		if t := e.reg.Get(base); t != nil {
			return t.Kind == schema.KindScalar || t.Kind == schema.KindEnum
		}
	}
	for k := range cond {
		if _, ok := operators[k]; !ok {
			return false
		}
	}
	return true
}

type operator func(v, arg any) (bool, error)

var operators = map[string]operator{
	OpEq:    func(v, arg any) (bool, error) { return eq(v, arg), nil },
	OpNe:    func(v, arg any) (bool, error) { return !eq(v, arg), nil },
	OpIn:    func(v, arg any) (bool, error) { return in(v, arg), nil },
	OpNin:   func(v, arg any) (bool, error) { return !in(v, arg), nil },
	OpGt:    ordered(func(c int) bool { return c > 0 }),
	OpGte:   ordered(func(c int) bool { return c >= 0 }),
	OpLt:    ordered(func(c int) bool { return c < 0 }),
	OpLte:   ordered(func(c int) bool { return c <= 0 }),
	OpRegex: regex,
	OpGlob:  glob,
}

func applyOp(op string, v, arg any) (bool, error) {
	fn, ok := operators[op]
	if !ok {
		return false, fmt.Errorf("unknown filter operator %q", op)
	}
	return fn(v, arg)
}

// anyElem applies fn to v or, for lists, to every element until one holds.
func anyElem(v any, fn func(any) (bool, error)) (bool, error) {
	list, ok := asList(v)
	if !ok {
		return fn(v)
	}
	for _, e := range list {
		if ok, err := fn(e); err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func eq(v, arg any) bool {
	if list, ok := asList(v); ok {
		if arg == nil {
			return len(list) == 0
		}
		for _, e := range list {
			if equal(e, arg) {
				return true
			}
		}
		return false
	}
	return equal(v, arg)
}

func in(v, arg any) bool {
	set, _ := asList(arg)
	for _, want := range set {
		if eq(v, want) {
			return true
		}
	}
	return false
}

func ordered(pred func(int) bool) operator {
	return func(v, arg any) (bool, error) {
		return anyElem(v, func(e any) (bool, error) {
			c, ok := compare(e, arg)
			return ok && pred(c), nil
		})
	}
}

func regex(v, arg any) (bool, error) {
	pattern, ok := arg.(string)
	if !ok {
		return false, fmt.Errorf("regex operand must be a string, got %T", arg)
	}
	re, err := compileRegex(pattern)
	if err != nil {
		return false, err
	}
	return anyElem(v, func(e any) (bool, error) {
		s, ok := e.(string)
		return ok && re.MatchString(s), nil
	})
}

var regexCache sync.Map

// compileRegex compiles a "/pattern/flags" literal. Supported flags are
// i, m and s; a pattern without slashes is used as is.
func compileRegex(literal string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Load(literal); ok {
		return re.(*regexp.Regexp), nil
	}
	pattern := literal
	if strings.HasPrefix(literal, "/") {
		if end := strings.LastIndex(literal, "/"); end > 0 {
			pattern = literal[1:end]
			var flags string
			for _, f := range literal[end+1:] {
				switch f {
				case 'i', 'm', 's':
					flags += string(f)
				case 'g', 'u', 'y':
				default:
					return nil, fmt.Errorf("invalid regex flag %q in %s", f, literal)
				}
			}
			if flags != "" {
				pattern = "(?" + flags + ")" + pattern
			}
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %s: %w", literal, err)
	}
	regexCache.Store(literal, re)
	return re, nil
}

func glob(v, arg any) (bool, error) {
	pattern, ok := arg.(string)
	if !ok {
		return false, fmt.Errorf("glob operand must be a string, got %T", arg)
	}
	return anyElem(v, func(e any) (bool, error) {
		s, ok := e.(string)
		if !ok {
			return false, nil
		}
		return doublestar.Match(pattern, s)
	})
}

// asList returns the elements of slice values.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case nil:
		return nil, false
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []*gqlcompose.Node:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	case string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// number converts numeric values to float64.
func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func date(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		if infer.IsDate(d) {
			return infer.ParseDate(d)
		}
	}
	return time.Time{}, false
}

// equal compares scalars loosely: numbers by value, dates by instant.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	if x, ok := a.(time.Time); ok {
		y, ok := date(b)
		return ok && x.Equal(y)
	}
	if _, ok := b.(time.Time); ok {
		return equal(b, a)
	}
	if n, ok := a.(*gqlcompose.Node); ok {
		if m, ok := b.(*gqlcompose.Node); ok {
			return n.ID == m.ID
		}
		return n.ID == fmt.Sprint(b)
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two scalars. ok is false when they are not comparable.
func compare(a, b any) (c int, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		if !ok {
			return 0, false
		}
		return cmpFloat(x, y), true
	}
	if x, ok := date(a); ok {
		if y, ok := date(b); ok {
			return x.Compare(y), true
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			}
			return 1, true
		}
	}
	return 0, false
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
