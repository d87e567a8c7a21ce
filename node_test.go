package gqlcompose_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlcompose"
)

func TestNodeGet(t *testing.T) {
	n := &gqlcompose.Node{
		ID:       "1",
		Children: []string{"2"},
		Internal: gqlcompose.Internal{Type: "Post", ContentDigest: "abc", Owner: "source-fs"},
		Fields:   map[string]any{"title": "Hello"},
	}
	v, ok := n.Get("id")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	v, ok = n.Get("parent")
	require.True(t, ok)
	assert.Nil(t, v)

	v, ok = n.Get("children")
	require.True(t, ok)
	assert.Equal(t, []string{"2"}, v)

	v, ok = n.Get("internal")
	require.True(t, ok)
	assert.Equal(t, "Post", v.(map[string]any)["type"])

	v, ok = n.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Hello", v)

	_, ok = n.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, "Post", n.Type())
}

func TestIsReservedField(t *testing.T) {
	for _, name := range []string{"id", "parent", "children", "internal"} {
		assert.True(t, gqlcompose.IsReservedField(name), name)
	}
	assert.False(t, gqlcompose.IsReservedField("title"))
}

func TestMemStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	post := func(id, title string) *gqlcompose.Node {
		return &gqlcompose.Node{
			ID:       id,
			Internal: gqlcompose.Internal{Type: "Post"},
			Fields:   map[string]any{"title": title},
		}
	}
	s := gqlcompose.NewMemStore(post("1", "A"), post("2", "B"))
	require.NoError(t, s.Add(&gqlcompose.Node{ID: "a", Internal: gqlcompose.Internal{Type: "Author"}}))
	assert.Equal(t, 3, s.Len())

	types, err := s.Types(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Author", "Post"}, types)

	nodes, err := s.NodesByType(ctx, "Post")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "1", nodes[0].ID)
	assert.Equal(t, "2", nodes[1].ID)

	n, err := s.NodeByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "B", n.Fields["title"])

	n, err = s.NodeByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, n)

	batch, err := s.NodesByIDs(ctx, []string{"2", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "2", batch[0].ID)
	assert.Equal(t, "a", batch[1].ID)

	t.Run("ReplaceChangesType", func(t *testing.T) {
		s := gqlcompose.NewMemStore(post("1", "A"))
		require.NoError(t, s.Add(&gqlcompose.Node{ID: "1", Internal: gqlcompose.Internal{Type: "Page"}}))
		posts, err := s.NodesByType(ctx, "Post")
		require.NoError(t, err)
		assert.Empty(t, posts)
		pages, err := s.NodesByType(ctx, "Page")
		require.NoError(t, err)
		assert.Len(t, pages, 1)
	})

	t.Run("Delete", func(t *testing.T) {
		s := gqlcompose.NewMemStore(post("1", "A"), post("2", "B"))
		s.Delete("1")
		posts, err := s.NodesByType(ctx, "Post")
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "2", posts[0].ID)
	})

	t.Run("Invalid", func(t *testing.T) {
		s := gqlcompose.NewMemStore()
		assert.Error(t, s.Add(&gqlcompose.Node{Internal: gqlcompose.Internal{Type: "Post"}}))
		assert.Error(t, s.Add(&gqlcompose.Node{ID: "1"}))
	})
}
