package gen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler/load"
	"github.com/syssam/gqlcompose/schema"
)

// registry returns a registry holding the types of sdl.
func registry(t *testing.T, sdl string) (*schema.Registry, *gqlcompose.Recorder) {
	t.Helper()
	rec := &gqlcompose.Recorder{}
	reg := schema.NewRegistry(rec)
	types, err := load.NewParser(rec, Declarations(BuiltinFieldExtensions())...).
		Parse(&ast.Source{Name: "types.graphql", Input: sdl})
	require.NoError(t, err)
	for _, typ := range types {
		_, err := reg.Add(typ, "", schema.FromSDL)
		require.NoError(t, err)
	}
	return reg, rec
}

func node(id, typ string, fields map[string]any) *gqlcompose.Node {
	return &gqlcompose.Node{ID: id, Internal: gqlcompose.Internal{Type: typ, Owner: "source-test"}, Fields: fields}
}

// fatal runs fn and returns the error of a reporter panic.
func fatal(fn func()) (err error) {
	defer gqlcompose.Recover(&err)
	fn()
	return nil
}

func params(store gqlcompose.NodeStore, reg *schema.Registry, source any, field string, args map[string]any) schema.ResolveParams {
	return schema.ResolveParams{
		Source: source,
		Args:   args,
		Info:   schema.ResolveInfo{FieldName: field, Nodes: store, Schema: reg},
	}
}

func TestCheckNodeInterfaces(t *testing.T) {
	t.Run("MissingID", func(t *testing.T) {
		reg, rec := registry(t, `interface Page @nodeInterface { title: String }`)
		err := fatal(func() { CheckNodeInterfaces(reg) })
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"Page"`)
		assert.Len(t, rec.Panics(), 1)
	})
	t.Run("NullableID", func(t *testing.T) {
		reg, _ := registry(t, `interface Page @nodeInterface { id: ID }`)
		require.Error(t, fatal(func() { CheckNodeInterfaces(reg) }))
	})
	t.Run("Valid", func(t *testing.T) {
		reg, _ := registry(t, `interface Page @nodeInterface { id: ID! }`)
		require.NoError(t, fatal(func() { CheckNodeInterfaces(reg) }))
		assert.True(t, reg.Get("Page").IsNode())
	})
}

func TestAddNodeFields(t *testing.T) {
	reg, _ := registry(t, `
		type Post implements Node { title: String }
		type Tag { name: String }
	`)
	AddNodeFields(reg)
	post := reg.Get("Post")
	assert.Equal(t, []string{"title", "id", "parent", "children", "internal"}, post.FieldNames())
	assert.Equal(t, "ID!", post.Field("id").Type.String())
	assert.Equal(t, schema.FromBuiltin, post.Field("id").Extensions.CreatedFrom())
	assert.Nil(t, post.Field("id").Resolve)
	assert.NotNil(t, post.Field("parent").Resolve)
	assert.NotNil(t, post.Field("children").Resolve)
	assert.Equal(t, []string{"name"}, reg.Get("Tag").FieldNames())

	f := node("f1", "File", nil)
	f.Children = []string{"p1", "missing"}
	p := node("p1", "Post", nil)
	p.Parent = "f1"
	store := gqlcompose.NewMemStore(f, p)
	ctx := context.Background()

	parent, err := post.Field("parent").Resolve(ctx, params(store, reg, p, "parent", nil))
	require.NoError(t, err)
	assert.Equal(t, f, parent)
	parent, err = post.Field("parent").Resolve(ctx, params(store, reg, f, "parent", nil))
	require.NoError(t, err)
	assert.Nil(t, parent)

	children, err := post.Field("children").Resolve(ctx, params(store, reg, f, "children", nil))
	require.NoError(t, err)
	assert.Equal(t, []*gqlcompose.Node{p}, children)
}

func TestCheckQueryableInterfaces(t *testing.T) {
	t.Run("WithoutNode", func(t *testing.T) {
		reg, _ := registry(t, `
			interface Page @nodeInterface { id: ID! }
			type Blog implements Page { id: ID! }
			type Doc implements Page & Node { id: ID! }
		`)
		CheckNodeInterfaces(reg)
		err := fatal(func() { CheckQueryableInterfaces(reg) })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Blog")
		assert.NotContains(t, err.Error(), "Doc")
	})
	t.Run("Valid", func(t *testing.T) {
		reg, _ := registry(t, `
			interface Page implements Node { id: ID! }
			type Doc implements Page & Node { id: ID! }
		`)
		require.NoError(t, fatal(func() { CheckQueryableInterfaces(reg) }))
	})
}

func TestQueryable(t *testing.T) {
	reg, _ := registry(t, `
		interface Page @nodeInterface { id: ID! }
		interface Named { name: String }
		type Post implements Node { title: String }
		type Tag { name: String }
		union Item = Post | Tag
	`)
	tests := map[string]bool{
		"Post":  true,
		"Page":  true,
		"Named": false,
		"Tag":   false,
		"Item":  false,
		"Node":  false,
		"Query": false,
	}
	for name, want := range tests {
		assert.Equal(t, want, Queryable(reg.Get(name)), name)
	}
	assert.False(t, Queryable(nil))
}

func TestNodeTypes(t *testing.T) {
	reg, _ := registry(t, `
		interface Page implements Node { id: ID! }
		type Doc implements Page & Node { id: ID! }
		type Blog implements Page & Node { id: ID! }
		type Post implements Node { id: ID! }
		union Item = Post | Doc
	`)
	assert.Equal(t, []string{"Post"}, NodeTypes(reg, "Post"))
	assert.Equal(t, []string{"Blog", "Doc"}, NodeTypes(reg, "Page"))
	assert.Equal(t, []string{"Post", "Doc"}, NodeTypes(reg, "Item"))
	assert.Nil(t, NodeTypes(reg, "Missing"))
}
