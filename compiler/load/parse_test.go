package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/schema"
)

func src(name, input string) *ast.Source {
	return &ast.Source{Name: name, Input: input}
}

func TestParse(t *testing.T) {
	types, err := Parse(src("types.graphql", `
"""A blog post."""
type Post implements Node @dontInfer @childOf(types: ["File"], mimeTypes: ["text/markdown"]) {
  id: ID!
  title: String!
  tags: [String!]
  author: Author @link(by: "email")
  published: Date @dateformat
  legacy: String @deprecated(reason: "use title")
  excerpt(length: Int = 140): String
}

type Author @infer @mimeTypes(types: ["application/json"]) {
  email: String
}

interface Content @nodeInterface {
  id: ID!
}

enum Status { DRAFT PUBLISHED }

union Entry = Post | Author

extend type Author {
  name: String
}
`))
	require.NoError(t, err)
	require.Len(t, types, 6)

	post := types[0]
	assert.Equal(t, "Post", post.Name)
	assert.Equal(t, schema.KindObject, post.Kind)
	assert.Equal(t, "A blog post.", post.Description)
	assert.Equal(t, []string{"Node"}, post.Interfaces)
	infer, set := post.Extensions.Infer()
	assert.True(t, set)
	assert.False(t, infer)
	assert.Equal(t, &schema.ChildOf{Types: []string{"File"}, MimeTypes: []string{"text/markdown"}}, post.Extensions.ChildOf())
	assert.Equal(t, []string{"id", "title", "tags", "author", "published", "legacy", "excerpt"}, post.FieldNames())
	assert.Equal(t, "[String!]", post.Field("tags").Type.String())
	assert.Equal(t, map[string]any{"by": "email"}, post.Field("author").Extensions.Args(schema.ExtLink))
	assert.NotNil(t, post.Field("published").Extensions.Args(schema.ExtDateformat))
	assert.Equal(t, "use title", post.Field("legacy").Deprecation)
	excerpt := post.Field("excerpt")
	require.Len(t, excerpt.Args, 1)
	assert.Equal(t, int64(140), excerpt.Args[0].Default)

	author := types[1]
	infer, set = author.Extensions.Infer()
	assert.True(t, set)
	assert.True(t, infer)
	assert.Equal(t, []string{"application/json"}, author.Extensions.MimeTypes())

	assert.True(t, types[2].Extensions.NodeInterface())
	assert.Equal(t, schema.KindEnum, types[3].Kind)
	assert.Len(t, types[3].Values, 2)
	assert.Equal(t, []string{"Post", "Author"}, types[4].Members)
	assert.Equal(t, "Author", types[5].Name)
	assert.True(t, types[5].HasField("name"))
}

func TestParseErrors(t *testing.T) {
	t.Run("Syntax", func(t *testing.T) {
		_, err := Parse(src("broken.graphql", "type Post {\n  title: \n}"))
		require.Error(t, err)
		assert.True(t, gqlcompose.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "broken.graphql:3:")
	})

	t.Run("ReservedName", func(t *testing.T) {
		_, err := Parse(src("a.graphql", "type PostFilterInput { a: Int }"))
		require.Error(t, err)
		assert.True(t, gqlcompose.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "a.graphql:1:")
	})

	t.Run("NodeInterfaceOnObject", func(t *testing.T) {
		_, err := Parse(src("a.graphql", "type Post @nodeInterface { a: Int }"))
		assert.True(t, gqlcompose.IsConfigurationError(err))
	})
}

func TestParseAllIsolatesFailures(t *testing.T) {
	rec := &gqlcompose.Recorder{}
	p := NewParser(rec, BuiltinExtensions()...)
	types, err := p.ParseAll(
		src("good.graphql", "type Post { title: String }"),
		src("bad.graphql", "type {"),
		src("other.graphql", "type Author { name: String }"),
	)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Post", types[0].Name)
	assert.Equal(t, "Author", types[1].Name)
	require.Len(t, rec.Errors(), 1)
	assert.Contains(t, rec.Errors()[0], "bad.graphql")

	_, err = p.ParseAll(src("reserved.graphql", "type Node { id: ID! }"))
	assert.True(t, gqlcompose.IsConfigurationError(err))
}

func TestFieldExtensionValidation(t *testing.T) {
	rec := &gqlcompose.Recorder{}
	p := NewParser(rec, BuiltinExtensions()...)
	types, err := p.Parse(src("a.graphql", `
type Post {
  a: String @unknown
  b: String @proxy
  c: String @link(by: 1)
  d: String @link(nope: "x")
  e: String @proxy(from: "raw")
}`))
	require.NoError(t, err)
	require.Len(t, types, 1)
	errs := rec.Errors()
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], `"unknown" on Post.a is not available`)
	assert.Contains(t, errs[1], `argument "from" of type String! is required`)
	assert.Contains(t, errs[2], `argument "by"`)
	assert.Contains(t, errs[3], `unknown argument "nope"`)

	post := types[0]
	assert.False(t, post.Field("a").Extensions.Has("unknown"))
	assert.False(t, post.Field("b").Extensions.Has(schema.ExtProxy))
	assert.Equal(t, map[string]any{"from": "raw"}, post.Field("e").Extensions.Args(schema.ExtProxy))
}

func TestExtensionValidateDefaults(t *testing.T) {
	link := BuiltinExtensions()[0]
	args, err := link.Validate(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"by": "id"}, args)
}
