package gen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlcompose/schema"
)

func TestApplyOverrides(t *testing.T) {
	reg, rec := registry(t, `type Post implements Node { title: String!, views: Int }`)
	upper := func(ctx context.Context, p schema.ResolveParams) (any, error) {
		v, err := p.Info.OriginalResolver(ctx, p)
		if s, ok := v.(string); ok {
			return strings.ToUpper(s), err
		}
		return v, err
	}
	ApplyOverrides(reg, ResolverMap{
		"Post": {
			"title":   {Type: "String", Resolve: upper},
			"views":   {Type: "String"},
			"summary": {Type: "String", Description: "Short text.", Args: []*schema.Arg{{Name: "length", Type: schema.Named("Int")}}},
			"broken":  {},
		},
		"Missing": {"x": {Type: "String"}},
	}, OverrideOptions{Plugin: "plugin-a"})

	post := reg.Get("Post")
	title := post.Field("title")
	assert.Equal(t, "String", title.Type.String())
	assert.True(t, title.Extensions.NeedsResolve())
	v, err := title.Resolve(context.Background(), params(nil, reg, node("p", "Post", map[string]any{"title": "hi"}), "title", nil))
	require.NoError(t, err)
	assert.Equal(t, "HI", v)

	assert.Equal(t, "Int", post.Field("views").Type.String())

	summary := post.Field("summary")
	require.NotNil(t, summary)
	assert.Equal(t, schema.FromOverride, summary.Extensions.CreatedFrom())
	assert.Equal(t, "plugin-a", summary.Extensions.Plugin())
	assert.Equal(t, "Short text.", summary.Description)
	require.NotNil(t, summary.Arg("length"))

	assert.Nil(t, post.Field("broken"))
	assert.Len(t, rec.Errors(), 1)

	warnings := rec.Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "Missing")
	assert.Contains(t, warnings[1], "Post.views")
	assert.Contains(t, warnings[1], "Int")
}

func TestApplyOverridesIgnoreNonexistent(t *testing.T) {
	reg, rec := registry(t, `type Post implements Node { title: String }`)
	ApplyOverrides(reg, ResolverMap{"Missing": {"x": {Type: "String"}}}, OverrideOptions{IgnoreNonexistentTypes: true})
	assert.Empty(t, rec.Warnings())
}

func TestApplyOverridesUnknownFieldType(t *testing.T) {
	reg, rec := registry(t, `type Post implements Node { title: String }`)
	ApplyOverrides(reg, ResolverMap{"Post": {"author": {Type: "Author"}, "bad": {Type: "[String"}}}, OverrideOptions{})
	assert.Nil(t, reg.Get("Post").Field("author"))
	assert.Nil(t, reg.Get("Post").Field("bad"))
	assert.Len(t, rec.Warnings(), 1)
	assert.Len(t, rec.Errors(), 1)
}

func TestApplyOverridesThirdParty(t *testing.T) {
	reg, rec := registry(t, `type Post implements Node { title: String }`)
	require.NoError(t, AddThirdPartySchemas(reg, testParser(), &ThirdPartySchema{
		Name: "remote.graphql",
		SDL:  `type Query { repo: Repo } type Repo { stars: Int }`,
	}))
	ApplyOverrides(reg, ResolverMap{"Repo": {"stars": {Type: "String"}}}, OverrideOptions{})
	assert.Empty(t, rec.Warnings())

	stars := reg.Get("Repo").Field("stars")
	assert.Equal(t, "String", stars.Type.String())
	orig, ok := stars.Extensions[schema.ExtOriginalField].(*schema.Field)
	require.True(t, ok)
	assert.Equal(t, "Int", orig.Type.String())

	RestoreOriginalFields(reg)
	assert.Equal(t, "Int", reg.Get("Repo").Field("stars").Type.String())
}

func TestResolverMapMerge(t *testing.T) {
	m := ResolverMap{"Post": {"a": {Type: "String"}}}
	m.Merge(ResolverMap{"Post": {"a": {Type: "Int"}, "b": {Type: "Int"}}, "Tag": {"c": {}}})
	assert.Equal(t, "Int", m["Post"]["a"].Type)
	assert.Len(t, m["Post"], 2)
	assert.Len(t, m["Tag"], 1)
}

func TestResolverMapPending(t *testing.T) {
	reg, _ := registry(t, `type Post implements Node { title: String }`)
	m := ResolverMap{
		"Post":    {"title": {Type: "String"}, "summary": {Type: "String"}},
		"Missing": {"x": {Type: "String"}},
	}
	assert.Len(t, m.Pending(reg)["Post"], 2)

	ApplyOverrides(reg, m, OverrideOptions{IgnoreNonexistentTypes: true})
	pending := m.Pending(reg)
	assert.Empty(t, pending["Post"])
	assert.Len(t, pending["Missing"], 1)

	reg.Get("Post").SetField(schema.NewField("title", schema.Named("String")))
	assert.Len(t, m.Pending(reg)["Post"], 1)
}
