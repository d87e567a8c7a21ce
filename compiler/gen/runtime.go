package gen

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/schema"
)

// Sort orders.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// Connection is the value of a connection field: the matched nodes and the
// requested page.
type Connection struct {
	TypeName string
	All      []*gqlcompose.Node
	Page     []*gqlcompose.Node
	Skip     int
	Limit    int
}

var _ FieldSource = (*Connection)(nil)

// Field implements FieldSource.
func (c *Connection) Field(name string) (any, bool) {
	switch name {
	case "totalCount":
		return len(c.All), true
	case "nodes":
		return c.Page, true
	case "edges":
		return c.edges(), true
	case "pageInfo":
		return c.PageInfo(), true
	}
	return nil, false
}

func (c *Connection) edges() []map[string]any {
	edges := make([]map[string]any, len(c.Page))
	for i, n := range c.Page {
		e := map[string]any{"node": n, "next": nil, "previous": nil}
		if i > 0 {
			e["previous"] = c.Page[i-1]
		}
		if i < len(c.Page)-1 {
			e["next"] = c.Page[i+1]
		}
		edges[i] = e
	}
	return edges
}

// PageInfo returns the pagination summary of the connection.
func (c *Connection) PageInfo() map[string]any {
	count := len(c.All)
	info := map[string]any{
		"itemCount":  len(c.Page),
		"totalCount": count,
		"perPage":    nil,
	}
	var currentPage, pageCount int
	switch {
	case c.Limit > 0:
		before := int(math.Ceil(float64(c.Skip) / float64(c.Limit)))
		after := int(math.Ceil(float64(max(count-c.Skip, 0)) / float64(c.Limit)))
		currentPage, pageCount = before+1, before+after
		info["perPage"] = c.Limit
	case c.Skip > 0:
		currentPage, pageCount = 2, 2
	default:
		currentPage, pageCount = 1, 1
	}
	info["currentPage"] = currentPage
	info["pageCount"] = pageCount
	info["hasPreviousPage"] = currentPage > 1
	info["hasNextPage"] = c.Limit > 0 && c.Skip+c.Limit < count
	return info
}

// SingleResolver returns the resolver of the root field returning the first
// node of typeName matching the filter argument.
func SingleResolver(typeName string) schema.ResolveFunc {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		e := newEvaluator(p.Info)
		nodes, err := e.query(ctx, typeName, p.Args)
		if err != nil || len(nodes) == 0 {
			return nil, err
		}
		return nodes[0], nil
	}
}

// AllResolver returns the resolver of the root field returning a filtered,
// sorted and paginated connection of typeName.
func AllResolver(typeName string) schema.ResolveFunc {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		e := newEvaluator(p.Info)
		nodes, err := e.query(ctx, typeName, p.Args)
		if err != nil {
			return nil, err
		}
		if s, ok := p.Args["sort"].(map[string]any); ok {
			if err := e.sort(ctx, nodes, typeName, s); err != nil {
				return nil, err
			}
		}
		c := &Connection{TypeName: typeName, All: nodes, Skip: intArg(p.Args, "skip"), Limit: intArg(p.Args, "limit")}
		page := []*gqlcompose.Node{}
		if c.Skip < len(nodes) {
			page = nodes[c.Skip:]
		}
		if c.Limit > 0 && c.Limit < len(page) {
			page = page[:c.Limit]
		}
		c.Page = page
		return c, nil
	}
}

// DistinctResolver resolves the distinct field of connections: the sorted
// set of values found at a fields enum path of all matched nodes.
func DistinctResolver(ctx context.Context, p schema.ResolveParams) (any, error) {
	c, ok := p.Source.(*Connection)
	if !ok {
		return []string{}, nil
	}
	path, _ := p.Args["field"].(string)
	e := newEvaluator(p.Info)
	seen := map[string]bool{}
	for _, n := range c.All {
		v, err := e.distinctPath(ctx, n, c.TypeName, path)
		if err != nil {
			return nil, err
		}
		for _, s := range v {
			seen[s] = true
		}
	}
	return gqlcompose.SortedKeys(seen), nil
}

// distinctPath returns the string forms of every value at path, following
// all elements of lists.
func (e *evaluator) distinctPath(ctx context.Context, source any, typeName, path string) ([]string, error) {
	values := []any{source}
	for _, name := range strings.Split(path, FieldPathSeparator) {
		decl := typeName
		if len(values) > 0 {
			decl = typeOf(values[0], typeName)
		}
		var next []any
		for _, v := range values {
			nv, err := e.value(ctx, v, typeName, name)
			if err != nil {
				return nil, err
			}
			if list, ok := asList(nv); ok {
				next = append(next, list...)
			} else if nv != nil {
				next = append(next, nv)
			}
		}
		if f := e.field(decl, name); f != nil {
			typeName = f.Type.BaseName()
		}
		values = next
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n, ok := v.(*gqlcompose.Node); ok {
			out = append(out, n.ID)
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out, nil
}

// query returns the nodes of typeName, or of its implementors, that match
// the filter argument.
func (e *evaluator) query(ctx context.Context, typeName string, args map[string]any) ([]*gqlcompose.Node, error) {
	types := []string{typeName}
	if e.reg != nil {
		types = NodeTypes(e.reg, typeName)
	}
	var nodes []*gqlcompose.Node
	for _, name := range types {
		found, err := e.store.NodesByType(ctx, name)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, found...)
	}
	filter, _ := args["filter"].(map[string]any)
	if len(filter) == 0 {
		return nodes, nil
	}
	matched := make([]*gqlcompose.Node, 0, len(nodes))
	for _, n := range nodes {
		ok, err := e.match(ctx, n, typeName, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

// sort orders nodes by the fields and order lists of a sort argument.
// Strings are compared with a root-locale collator. Nulls sort last in
// ascending order.
func (e *evaluator) sort(ctx context.Context, nodes []*gqlcompose.Node, typeName string, arg map[string]any) error {
	fields := stringList(arg["fields"])
	if len(fields) == 0 {
		return nil
	}
	orders := stringList(arg["order"])
	keys := make(map[*gqlcompose.Node][]any, len(nodes))
	for _, n := range nodes {
		row := make([]any, len(fields))
		for i, path := range fields {
			v, err := e.path(ctx, n, typeName, path)
			if err != nil {
				return err
			}
			row[i] = v
		}
		keys[n] = row
	}
	col := collate.New(language.Und)
	slices.SortStableFunc(nodes, func(a, b *gqlcompose.Node) int {
		for i := range fields {
			c := sortCompare(col, keys[a][i], keys[b][i])
			if i < len(orders) && orders[i] == SortDesc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return nil
}

func sortCompare(col *collate.Collator, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			if _, isDate := date(x); !isDate {
				return col.CompareString(x, y)
			}
		}
	}
	if c, ok := compare(a, b); ok {
		return c
	}
	return col.CompareString(fmt.Sprint(a), fmt.Sprint(b))
}

func stringList(v any) []string {
	list, ok := asList(v)
	if !ok {
		if s, ok := v.(string); ok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intArg(args map[string]any, name string) int {
	if f, ok := number(args[name]); ok && f > 0 {
		return int(f)
	}
	return 0
}
