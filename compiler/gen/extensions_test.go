package gen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler/load"
	"github.com/syssam/gqlcompose/schema"
)

func TestBuiltinFieldExtensions(t *testing.T) {
	exts := BuiltinFieldExtensions()
	require.Len(t, exts, 3)
	assert.Equal(t, []string{"proxy", "link", "dateformat"}, []string{exts[0].Name, exts[1].Name, exts[2].Name})
	assert.True(t, exts[2].Raw)
	assert.Len(t, Declarations(exts), 3)
}

func TestProxyExtension(t *testing.T) {
	reg, rec := registry(t, `type Post implements Node { title: String @proxy(from: "heading") }`)
	require.NoError(t, ProcessFieldExtensions(context.Background(), reg, BuiltinFieldExtensions(), 2))
	assert.Empty(t, rec.Errors())

	f := reg.Get("Post").Field("title")
	require.NotNil(t, f.Resolve)
	assert.True(t, f.Extensions.NeedsResolve())
	p := node("p1", "Post", map[string]any{"heading": "Hello"})
	v, err := f.Resolve(context.Background(), params(nil, reg, p, "title", nil))
	require.NoError(t, err)
	assert.Equal(t, "Hello", v)
}

func TestLinkExtension(t *testing.T) {
	reg, _ := registry(t, `
		type Post implements Node {
			author: Author @link
			editor: Author @link(by: "email", from: "editorEmail")
			reviewers: [Author] @link
		}
		type Author implements Node { name: String, email: String }
	`)
	require.NoError(t, ProcessFieldExtensions(context.Background(), reg, BuiltinFieldExtensions(), 0))
	a1 := node("a1", "Author", map[string]any{"name": "Ann", "email": "ann@example.com"})
	a2 := node("a2", "Author", map[string]any{"name": "Bob", "email": "bob@example.com"})
	p := node("p1", "Post", map[string]any{
		"author":      "a1",
		"editorEmail": "bob@example.com",
		"reviewers":   []any{"a2", "missing", "a1"},
	})
	store := gqlcompose.NewMemStore(a1, a2, p)
	post := reg.Get("Post")
	ctx := context.Background()

	tests := []struct {
		field string
		want  any
	}{
		{field: "author", want: a1},
		{field: "editor", want: a2},
		{field: "reviewers", want: []*gqlcompose.Node{a2, a1}},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			v, err := post.Field(tt.field).Resolve(ctx, params(store, reg, p, tt.field, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}

	v, err := post.Field("author").Resolve(ctx, params(store, reg, node("p2", "Post", nil), "author", nil))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDateformatExtension(t *testing.T) {
	reg, _ := registry(t, `type Post implements Node { date: Date @dateformat(formatString: "YYYY") }`)
	require.NoError(t, ProcessFieldExtensions(context.Background(), reg, BuiltinFieldExtensions(), 0))
	f := reg.Get("Post").Field("date")
	require.NotNil(t, f.Arg("formatString"))
	assert.False(t, f.Extensions.NeedsResolve())

	p := node("p1", "Post", map[string]any{"date": "2024-03-05"})
	ctx := context.Background()
	v, err := f.Resolve(ctx, params(nil, reg, p, "date", nil))
	require.NoError(t, err)
	assert.Equal(t, "2024", v)
	v, err = f.Resolve(ctx, params(nil, reg, p, "date", map[string]any{"formatString": "MMMM D, YYYY"}))
	require.NoError(t, err)
	assert.Equal(t, "March 5, 2024", v)

	p = node("p2", "Post", map[string]any{"date": "soon"})
	v, err = f.Resolve(ctx, params(nil, reg, p, "date", nil))
	require.NoError(t, err)
	assert.Equal(t, "soon", v)
}

func TestDateLayout(t *testing.T) {
	tests := map[string]string{
		"YYYY-MM-DD":       "2006-01-02",
		"MMM D, YY":        "Jan 2, 06",
		"dddd HH:mm:ss":    "Monday 15:04:05",
		"h:mm A":           "3:04 PM",
		"YYYY-MM-DDTHH:mm": "2006-01-02T15:04",
	}
	for format, want := range tests {
		assert.Equal(t, want, DateLayout(format), format)
	}
}

func TestApplyFieldExtensionsOnce(t *testing.T) {
	reg, _ := registry(t, `type Post implements Node { title: String @proxy(from: "heading") }`)
	exts := BuiltinFieldExtensions()
	post := reg.Get("Post")
	ApplyFieldExtensions(reg, post, exts)
	first := post.Field("title").Resolve
	ApplyFieldExtensions(reg, post, exts)
	v, err := post.Field("title").Resolve(context.Background(), params(nil, reg, node("p", "Post", map[string]any{"heading": "x"}), "title", nil))
	require.NoError(t, err)
	assert.Equal(t, "x", v)
	assert.NotNil(t, first)
}

func TestCustomFieldExtension(t *testing.T) {
	upper := &FieldExtension{
		Extension: &load.Extension{Name: "shout"},
		Wrap: func(_ *ExtensionContext, _ map[string]any, prev schema.ResolveFunc) schema.ResolveFunc {
			return func(ctx context.Context, p schema.ResolveParams) (any, error) {
				v, err := prev(ctx, p)
				if s, ok := v.(string); ok {
					return s + "!", err
				}
				return v, err
			}
		},
	}
	exts := append(BuiltinFieldExtensions(), upper)
	reg, rec := registry(t, `type Post implements Node { title: String }`)
	post := reg.Get("Post")
	post.Field("title").SetExtension("shout", map[string]any{})
	post.Field("title").SetExtension(schema.ExtProxy, map[string]any{"bad": true})
	ApplyFieldExtensions(reg, post, exts)
	assert.Len(t, rec.Errors(), 1)

	v, err := post.Field("title").Resolve(context.Background(), params(nil, reg, node("p", "Post", map[string]any{"title": "hi"}), "title", nil))
	require.NoError(t, err)
	assert.Equal(t, "hi!", v)
}
