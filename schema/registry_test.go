package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlcompose"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"String", "ID", NodeInterface, InternalType, DateScalar, JSONScalar, QueryType, SortOrderEnum, PageInfoType} {
		assert.True(t, r.Has(name), name)
	}
	node := r.Get(NodeInterface)
	assert.Equal(t, []string{"id", "parent", "children", "internal"}, node.FieldNames())
	assert.Equal(t, "[Node!]!", node.Field("children").Type.String())
	assert.Empty(t, r.Placeholders())
}

func TestRegistryAdd(t *testing.T) {
	r := NewRegistry(nil)
	name, err := r.Add(Object("Post", NewField("title", Named("String"))), "source-fs", FromSDL)
	require.NoError(t, err)
	assert.Equal(t, "Post", name)

	post := r.Get("Post")
	assert.Equal(t, "source-fs", post.Extensions.Plugin())
	assert.Equal(t, FromSDL, post.Extensions.CreatedFrom())
	assert.Equal(t, FromSDL, post.Field("title").Extensions.CreatedFrom())

	_, err = r.Add(Object("Node"), "source-fs", FromSDL)
	assert.True(t, gqlcompose.IsConfigurationError(err))
	_, err = r.Add(&Type{Name: "NoKind"}, "source-fs", FromSDL)
	assert.Error(t, err)
	_, err = r.Add(nil, "", FromSDL)
	assert.Error(t, err)
}

func TestRegistryMergeSamePlugin(t *testing.T) {
	rec := &gqlcompose.Recorder{}
	r := NewRegistry(rec)
	first := Object("Post", NewField("title", Named("String")), NewField("views", Named("Int")))
	second := Object("Post", NewField("views", NonNullNamed("Float")), NewField("date", Named("Date")))
	second.AddInterface(NodeInterface)

	_, err := r.Add(first, "p", FromSDL)
	require.NoError(t, err)
	_, err = r.Add(second, "p", FromSDL)
	require.NoError(t, err)

	post := r.Get("Post")
	assert.Equal(t, []string{"title", "views", "date"}, post.FieldNames())
	assert.Equal(t, "Float!", post.Field("views").Type.String(), "later definition wins")
	assert.True(t, post.IsNode())
	assert.Empty(t, rec.Warnings())
}

func TestRegistryMergePolicy(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		typ     string
		plugin  string
		warning string
	}{
		{name: "Owner", owner: "a", typ: "Post", plugin: "a"},
		{name: "SitePlugin", owner: "a", typ: "Post", plugin: gqlcompose.DefaultSitePlugin},
		{name: "OverridableBuiltin", typ: "SiteSiteMetadata", plugin: "b"},
		{name: "OtherPlugin", owner: "a", typ: "Post", plugin: "b", warning: `which has already been defined by the plugin "a"`},
		{name: "UnownedBuiltin", typ: "Thing", plugin: "b", warning: "built-in GraphQL type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &gqlcompose.Recorder{}
			r := NewRegistry(rec)
			_, err := r.Add(Object(tt.typ, NewField("a", Named("String"))), tt.owner, FromSDL)
			require.NoError(t, err)
			_, err = r.Add(Object(tt.typ, NewField("b", Named("String"))), tt.plugin, FromSDL)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, r.Get(tt.typ).FieldNames())
			if tt.warning == "" {
				assert.Empty(t, rec.Warnings())
				return
			}
			require.Len(t, rec.Warnings(), 1)
			assert.Contains(t, rec.Warnings()[0], tt.warning)
		})
	}
}

func TestRegistryKindMismatch(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Add(Object("Post", NewField("a", Named("String"))), "p", FromSDL)
	require.NoError(t, err)
	enum := NewType("Post", KindEnum)
	_, err = r.Add(enum, "p", FromSDL)
	assert.True(t, gqlcompose.IsConfigurationError(err))
}

func TestRegistryPlaceholders(t *testing.T) {
	r := NewRegistry(nil)
	post := Object("Post", NewField("author", Named("Author")))
	post.AddInterface("Content")
	_, err := r.Add(post, "a", FromSDL)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Author", "Content"}, r.Placeholders())
	err = r.Freeze()
	require.Error(t, err)
	assert.True(t, gqlcompose.IsIntegrityViolation(err))
	var iv *gqlcompose.IntegrityViolation
	require.True(t, errors.As(err, &iv))
	assert.ElementsMatch(t, []string{"Author", "Content"}, iv.Types)

	content := NewType("Content", KindInterface)
	content.SetField(NewField("id", NonNullNamed("ID")))
	_, err = r.Add(content, "b", FromSDL)
	require.NoError(t, err)
	_, err = r.Add(Object("Author", NewField("name", Named("String"))), "b", FromSDL)
	require.NoError(t, err)

	assert.Empty(t, r.Placeholders())
	assert.NoError(t, r.Freeze())
	assert.Equal(t, KindInterface, r.Get("Content").Kind)
	assert.Equal(t, "b", r.Get("Author").Extensions.Plugin())
}

func TestRegistryIteration(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Add(Object("B", NewField("x", Named("Int"))), "", FromSDL)
	require.NoError(t, err)
	_, err = r.Add(Object("A", NewField("x", Named("Int"))), "", FromSDL)
	require.NoError(t, err)

	names := r.Names()
	assert.Equal(t, []string{"B", "A"}, names[len(names)-2:])

	var visited []string
	require.NoError(t, r.ForEach(func(typ *Type) error {
		visited = append(visited, typ.Name)
		if typ.Name == "B" {
			r.Set(Object("C", NewField("x", Named("Int"))))
		}
		return nil
	}))
	assert.NotContains(t, visited, "C")
	assert.True(t, r.Has("C"))

	stop := errors.New("stop")
	assert.ErrorIs(t, r.ForEach(func(*Type) error { return stop }), stop)

	c := r.Clone()
	r.Remove("A")
	assert.False(t, r.Has("A"))
	assert.True(t, c.Has("A"))
	assert.Equal(t, r.Len()+1, c.Len())
}
