package gen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlcompose"
)

func TestRelationsInferred(t *testing.T) {
	reg, rec := registry(t, `
		type File implements Node { name: String }
		type Markdown implements Node { html: String }
		type Json implements Node { data: String }
	`)
	f := node("f1", "File", map[string]any{"name": "a.md"})
	f.Children = []string{"m1", "m2", "j1"}
	m1 := node("m1", "Markdown", nil)
	m2 := node("m2", "Markdown", nil)
	j1 := node("j1", "Json", nil)
	store := gqlcompose.NewMemStore(f, m1, m2, j1)
	ctx := context.Background()

	require.NoError(t, NewRelations(reg, store).Add(ctx))
	assert.Empty(t, rec.Errors())
	file := reg.Get("File")
	for _, name := range []string{"childMarkdown", "childrenMarkdown", "childJson", "childrenJson"} {
		require.NotNil(t, file.Field(name), name)
		assert.Equal(t, "inferred", string(file.Field(name).Extensions.CreatedFrom()))
	}
	assert.Equal(t, "Markdown", file.Field("childMarkdown").Type.String())
	assert.Equal(t, "[Markdown]", file.Field("childrenMarkdown").Type.String())
	assert.Nil(t, reg.Get("Markdown").Field("childFile"))

	child, err := file.Field("childMarkdown").Resolve(ctx, params(store, reg, f, "childMarkdown", nil))
	require.NoError(t, err)
	assert.Equal(t, m1, child)
	children, err := file.Field("childrenMarkdown").Resolve(ctx, params(store, reg, f, "childrenMarkdown", nil))
	require.NoError(t, err)
	assert.Equal(t, []*gqlcompose.Node{m1, m2}, children)
	children, err = file.Field("childrenJson").Resolve(ctx, params(store, reg, m1, "childrenJson", nil))
	require.NoError(t, err)
	assert.Empty(t, children)

	NewRelations(reg, store).Clear("File")
	assert.Equal(t, []string{"name"}, file.FieldNames())
}

func TestRelationsExplicit(t *testing.T) {
	reg, rec := registry(t, `
		type File implements Node @mimeTypes(types: ["text/markdown"]) { name: String }
		type Note implements Node @childOf(types: ["File"]) { text: String }
		type Remark implements Node @childOf(mimeTypes: ["text/markdown"]) { html: String }
	`)
	store := gqlcompose.NewMemStore(node("f1", "File", nil))
	require.NoError(t, NewRelations(reg, store).Add(context.Background()))
	assert.Empty(t, rec.Errors())

	file := reg.Get("File")
	for _, name := range []string{"childNote", "childrenNote", "childRemark", "childrenRemark"} {
		require.NotNil(t, file.Field(name), name)
		assert.Equal(t, "sdl", string(file.Field(name).Extensions.CreatedFrom()))
	}
	NewRelations(reg, store).Clear("File")
	assert.NotNil(t, file.Field("childNote"))
}

func TestRelationsExplicitSuppressesInferred(t *testing.T) {
	reg, _ := registry(t, `
		type File implements Node { name: String }
		type Note implements Node @childOf(types: ["File"]) { text: String }
	`)
	f := node("f1", "File", nil)
	f.Children = []string{"n1"}
	store := gqlcompose.NewMemStore(f, node("n1", "Note", nil))
	require.NoError(t, NewRelations(reg, store).Add(context.Background()))
	assert.Equal(t, "sdl", string(reg.Get("File").Field("childNote").Extensions.CreatedFrom()))
}

func TestRelationsInvalid(t *testing.T) {
	reg, rec := registry(t, `
		type Meta @childOf(types: ["File"]) { x: String }
		type Tag { name: String }
		type Note implements Node @childOf(types: ["Tag", "Missing"]) { text: String }
		type File implements Node { name: String }
	`)
	require.NoError(t, NewRelations(reg, gqlcompose.NewMemStore()).Add(context.Background()))
	assert.Len(t, rec.Errors(), 2)
	assert.Len(t, rec.Warnings(), 1)
	assert.Nil(t, reg.Get("File").Field("childMeta"))
	assert.Nil(t, reg.Get("Tag").Field("childNote"))
}

func TestRelationsDontInfer(t *testing.T) {
	reg, _ := registry(t, `
		type File implements Node @dontInfer { name: String }
		type Markdown implements Node { html: String }
	`)
	f := node("f1", "File", nil)
	f.Children = []string{"m1"}
	store := gqlcompose.NewMemStore(f, node("m1", "Markdown", nil))
	rel := NewRelations(reg, store)
	require.NoError(t, rel.Add(context.Background()))
	assert.Nil(t, reg.Get("File").Field("childMarkdown"))
	require.NoError(t, rel.AddFor(context.Background(), "File"))
	assert.Nil(t, reg.Get("File").Field("childMarkdown"))
}

func TestRelationsInterfaceParent(t *testing.T) {
	reg, _ := registry(t, `
		interface Page implements Node { id: ID! }
		type Doc implements Page & Node { id: ID! }
		type Note implements Node @childOf(types: ["Page"]) { text: String }
	`)
	require.NoError(t, NewRelations(reg, gqlcompose.NewMemStore()).Add(context.Background()))
	assert.NotNil(t, reg.Get("Page").Field("childNote"))
	assert.NotNil(t, reg.Get("Doc").Field("childrenNote"))
}

type failingStore struct{ gqlcompose.NodeStore }

func (failingStore) Types(context.Context) ([]string, error) {
	return nil, errors.New("store offline")
}

func TestRelationsStoreError(t *testing.T) {
	reg, _ := registry(t, `type File implements Node { name: String }`)
	err := NewRelations(reg, failingStore{gqlcompose.NewMemStore()}).Add(context.Background())
	require.Error(t, err)
	assert.True(t, IsPhaseError(err))
	assert.Contains(t, err.Error(), "store offline")
}

func TestRelationsRefresh(t *testing.T) {
	reg, _ := registry(t, `
		type File implements Node { name: String }
		type Markdown implements Node { html: String }
		type Author implements Node { name: String }
	`)
	f := node("f1", "File", map[string]any{"name": "a.md"})
	store := gqlcompose.NewMemStore(f, node("a1", "Author", nil))
	ctx := context.Background()
	rels := NewRelations(reg, store)
	require.NoError(t, rels.Add(ctx))
	assert.Nil(t, reg.Get("File").Field("childMarkdown"))

	linked := node("f1", "File", map[string]any{"name": "a.md"})
	linked.Children = []string{"m1"}
	require.NoError(t, store.Add(node("m1", "Markdown", nil)))
	require.NoError(t, store.Add(linked))
	parents, err := rels.Refresh(ctx, "Markdown")
	require.NoError(t, err)
	assert.Equal(t, []string{"File"}, parents)
	require.NotNil(t, reg.Get("File").Field("childMarkdown"))
	require.NotNil(t, reg.Get("File").Field("childrenMarkdown"))

	// Unlinking drops the accessors on the next refresh.
	require.NoError(t, store.Add(node("f1", "File", map[string]any{"name": "a.md"})))
	parents, err = rels.Refresh(ctx, "Markdown")
	require.NoError(t, err)
	assert.Equal(t, []string{"File"}, parents)
	assert.Nil(t, reg.Get("File").Field("childMarkdown"))
	assert.Equal(t, []string{"name"}, reg.Get("File").FieldNames())
}
