package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/schema"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	writeFile(t, path, `
typeDefs: schema/**/*.graphql
nodes:
  - content/*.yml
  - content/*.json
store:
  driver: postgres
  dsn: postgres://localhost/site
  table: site_nodes
  slowQuery: 250ms
inference:
  sampleSize: 0
  conflictThreshold: 3
printTypeDefs: out/types.graphql
metadataPath: .cache/metadata
workers: 4
thirdParty:
  - name: github
    plugin: source-github
    path: github.graphql
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, StringList{"schema/**/*.graphql"}, cfg.TypeDefs)
	assert.Equal(t, StringList{"content/*.yml", "content/*.json"}, cfg.Nodes)
	assert.Equal(t, StoreConfig{Driver: "postgres", DSN: "postgres://localhost/site", Table: "site_nodes", SlowQuery: 250 * time.Millisecond}, cfg.Store)
	require.NotNil(t, cfg.Inference.SampleSize)
	assert.Zero(t, *cfg.Inference.SampleSize)
	assert.Equal(t, 3, cfg.Inference.ConflictThreshold)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []ThirdPartyConfig{{Name: "github", Plugin: "source-github", Path: "github.graphql"}}, cfg.ThirdParty)
	assert.Equal(t, dir, cfg.Dir())
}

func TestLoadConfigMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, DefaultConfigFile))
	require.NoError(t, err)
	assert.Empty(t, cfg.TypeDefs)
	assert.Equal(t, dir, cfg.Dir())
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "Syntax", content: "typeDefs: [unclosed"},
		{name: "BadList", content: "typeDefs:\n  a: b"},
		{name: "MissingDSN", content: "store:\n  driver: mysql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultConfigFile)
			writeFile(t, path, tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.True(t, gqlcompose.IsConfigurationError(err))
		})
	}
}

func TestDecodeNodes(t *testing.T) {
	nodes, err := DecodeNodes(strings.NewReader(`
- id: p1
  internal: {type: Post, owner: source-yaml}
  fields: {title: A, views: 3, meta: {draft: true}}
- id: p2
  internal: {type: Post}
  fields: {title: B}
---
id: a1
internal: {type: Author}
fields: {name: Ann}
`))
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "p1", nodes[0].ID)
	assert.Equal(t, "source-yaml", nodes[0].Internal.Owner)
	assert.Equal(t, 3, nodes[0].Fields["views"])
	assert.Equal(t, map[string]any{"draft": true}, nodes[0].Fields["meta"])
	assert.Equal(t, "Author", nodes[2].Type())

	nodes, err = DecodeNodes(strings.NewReader(`{"id": "x", "internal": {"type": "Tag"}, "fields": {"name": "go"}}`))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "go", nodes[0].Fields["name"])

	_, err = DecodeNodes(strings.NewReader("- [1, 2"))
	assert.Error(t, err)
}

func project(t *testing.T) *ProjectConfig {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schema", "post.graphql"), `type Post implements Node { title: String! }`)
	writeFile(t, filepath.Join(dir, "schema", "nested", "author.graphql"), `type Author implements Node { name: String }`)
	writeFile(t, filepath.Join(dir, "content", "posts.yml"), `
- id: p1
  internal: {type: Post}
  fields: {title: A, views: 3}
- id: p2
  internal: {type: Post}
  fields: {title: B, views: 7}
`)
	writeFile(t, filepath.Join(dir, "github.graphql"), `
type Query { repository(name: String!): Repository }
type Repository { name: String }
`)
	path := filepath.Join(dir, DefaultConfigFile)
	writeFile(t, path, `
typeDefs: [schema/**/*.graphql, schema/post.graphql]
nodes: content/*.yml
printTypeDefs: out/types.graphql
thirdParty:
  - name: github
    plugin: source-github
    path: github.graphql
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	return cfg
}

func TestProjectTypeDefs(t *testing.T) {
	cfg := project(t)
	files, err := cfg.TypeDefFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(cfg.Dir(), "schema", "nested", "author.graphql"), files[0])

	defs, err := cfg.LoadTypeDefs()
	require.NoError(t, err)
	assert.Equal(t, gqlcompose.DefaultSitePlugin, defs.Plugin)
	require.Len(t, defs.Sources, 2)
	assert.Contains(t, defs.Sources[1].Input, "type Post")
}

func TestProjectBuild(t *testing.T) {
	cfg := project(t)
	ctx := context.Background()
	store, closeStore, err := cfg.OpenStore(ctx)
	require.NoError(t, err)
	defer closeStore()
	assert.Equal(t, 2, store.(*gqlcompose.MemStore).Len())

	opts, err := cfg.Options(store)
	require.NoError(t, err)
	defs, err := cfg.LoadTypeDefs()
	require.NoError(t, err)
	b, err := New(append(opts, WithReporter(&gqlcompose.Recorder{}))...)
	require.NoError(t, err)
	s, err := b.Build(ctx, defs)
	require.NoError(t, err)

	post := s.Type("Post")
	require.NotNil(t, post)
	assert.Equal(t, "String!", post.Field("title").Type.String())
	assert.Equal(t, "Int", post.Field("views").Type.String())
	assert.NotNil(t, s.Type("Author"))
	assert.NotNil(t, s.Type("Repository"))
	assert.NotNil(t, s.AST().Query.Fields.ForName("repository"))
	assert.Equal(t, schema.FromSDL, post.Extensions.CreatedFrom())

	_, err = os.Stat(filepath.Join(cfg.Dir(), "out", "types.graphql"))
	assert.NoError(t, err)
}

func TestProjectMissingThirdParty(t *testing.T) {
	cfg := &ProjectConfig{dir: t.TempDir(), ThirdParty: []ThirdPartyConfig{{Name: "gone", Path: "gone.graphql"}}}
	_, err := cfg.Options(gqlcompose.NewMemStore())
	assert.Error(t, err)
}
