package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar"
	"github.com/vektah/gqlparser/v2/ast"
	"gopkg.in/yaml.v3"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler/gen"
	sqlstore "github.com/syssam/gqlcompose/dialect/sql"
)

// DefaultConfigFile is the project configuration file name.
const DefaultConfigFile = "gqlcompose.yml"

// ProjectConfig is the content of a gqlcompose.yml file. Relative paths are
// resolved against the directory of the file.
type ProjectConfig struct {
	// TypeDefs are glob patterns of SDL files.
	TypeDefs StringList `yaml:"typeDefs,omitempty"`
	// Nodes are glob patterns of YAML or JSON node fixtures.
	Nodes StringList `yaml:"nodes,omitempty"`
	// Store configures an SQL node store. Without a driver nodes are kept
	// in memory.
	Store StoreConfig `yaml:"store,omitempty"`
	// Inference configures type inference.
	Inference InferenceConfig `yaml:"inference,omitempty"`
	// ThirdParty lists external schemas to merge.
	ThirdParty []ThirdPartyConfig `yaml:"thirdParty,omitempty"`
	// PrintTypeDefs writes explicit and inferred types to this file.
	PrintTypeDefs string `yaml:"printTypeDefs,omitempty"`
	// MetadataPath persists inference metadata.
	MetadataPath string `yaml:"metadataPath,omitempty"`
	// Workers bounds concurrent per-type tasks.
	Workers int `yaml:"workers,omitempty"`

	dir string
}

// StoreConfig configures the SQL node store.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
	Table  string `yaml:"table,omitempty"`
	// SlowQuery is the duration above which a statement is logged as slow.
	SlowQuery time.Duration `yaml:"slowQuery,omitempty"`
}

// InferenceConfig configures type inference.
type InferenceConfig struct {
	SampleSize        *int `yaml:"sampleSize,omitempty"`
	ConflictThreshold int  `yaml:"conflictThreshold,omitempty"`
}

// ThirdPartyConfig is an external schema read from a file.
type ThirdPartyConfig struct {
	Name   string `yaml:"name"`
	Plugin string `yaml:"plugin,omitempty"`
	Path   string `yaml:"path"`
}

// StringList is a YAML type that can be either a string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("expected string or list, got %v", node.Kind)
	}
}

// LoadConfig loads a gqlcompose.yml file. A missing file yields the
// default configuration rooted at the directory of path.
func LoadConfig(path string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{dir: filepath.Dir(path)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, gqlcompose.NewConfigurationError("", "parse "+path, err)
	}
	if cfg.Store.Driver != "" && cfg.Store.DSN == "" {
		return nil, gqlcompose.NewConfigurationError("", "store.dsn is required with store.driver", nil)
	}
	return cfg, nil
}

// Dir returns the directory relative paths are resolved against.
func (c *ProjectConfig) Dir() string { return c.dir }

func (c *ProjectConfig) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// glob expands patterns in order, dropping duplicates.
func (c *ProjectConfig) glob(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := doublestar.Glob(c.path(p))
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if !slices.Contains(files, m) {
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func (c *ProjectConfig) match(patterns []string, file string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.PathMatch(c.path(p), file); ok {
			return true
		}
	}
	return false
}

// IsTypeDefFile reports whether file is matched by TypeDefs.
func (c *ProjectConfig) IsTypeDefFile(file string) bool { return c.match(c.TypeDefs, file) }

// IsNodeFile reports whether file is matched by Nodes.
func (c *ProjectConfig) IsNodeFile(file string) bool { return c.match(c.Nodes, file) }

// WatchDirs returns the existing directories holding the project files:
// the directory of the config file and every directory below the static
// prefix of a TypeDefs or Nodes pattern.
func (c *ProjectConfig) WatchDirs() ([]string, error) {
	dirs := []string{c.dir}
	for _, p := range append(slices.Clone(c.TypeDefs), c.Nodes...) {
		root := c.path(staticPrefix(p))
		matches, err := doublestar.Glob(filepath.Join(root, "**"))
		if err != nil {
			return nil, err
		}
		for _, m := range append([]string{root}, matches...) {
			if fi, err := os.Stat(m); err == nil && fi.IsDir() && !slices.Contains(dirs, m) {
				dirs = append(dirs, m)
			}
		}
	}
	return dirs, nil
}

// staticPrefix returns the directory part of pattern before its first
// wildcard.
func staticPrefix(pattern string) string {
	dir := filepath.Dir(pattern)
	for dir != "." && dir != string(filepath.Separator) && strings.ContainsAny(dir, "*?[{") {
		dir = filepath.Dir(dir)
	}
	return dir
}

// TypeDefFiles returns the SDL files matched by TypeDefs.
func (c *ProjectConfig) TypeDefFiles() ([]string, error) { return c.glob(c.TypeDefs) }

// LoadTypeDefs reads the SDL files of the project on behalf of the site
// plugin.
func (c *ProjectConfig) LoadTypeDefs() (*TypeDefs, error) {
	files, err := c.TypeDefFiles()
	if err != nil {
		return nil, err
	}
	defs := &TypeDefs{Plugin: gqlcompose.DefaultSitePlugin}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		defs.Sources = append(defs.Sources, &ast.Source{Name: f, Input: string(data)})
	}
	return defs, nil
}

// LoadNodes reads the node fixtures of the project.
func (c *ProjectConfig) LoadNodes() ([]*gqlcompose.Node, error) {
	files, err := c.glob(c.Nodes)
	if err != nil {
		return nil, err
	}
	var nodes []*gqlcompose.Node
	for _, f := range files {
		ns, err := LoadNodeFile(f)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, ns...)
	}
	return nodes, nil
}

// LoadNodeFile reads nodes from a YAML or JSON file holding one node or a
// list of nodes.
func LoadNodeFile(path string) ([]*gqlcompose.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeNodes(f)
}

// DecodeNodes reads YAML or JSON documents of nodes from r.
func DecodeNodes(r io.Reader) ([]*gqlcompose.Node, error) {
	var nodes []*gqlcompose.Node
	dec := yaml.NewDecoder(r)
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nodes, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode nodes: %w", err)
		}
		content := &doc
		if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
			content = doc.Content[0]
		}
		if content.Kind == yaml.SequenceNode {
			var list []*gqlcompose.Node
			if err := content.Decode(&list); err != nil {
				return nil, fmt.Errorf("decode nodes: %w", err)
			}
			nodes = append(nodes, list...)
			continue
		}
		var n gqlcompose.Node
		if err := content.Decode(&n); err != nil {
			return nil, fmt.Errorf("decode nodes: %w", err)
		}
		nodes = append(nodes, &n)
	}
}

// LoadThirdParty reads the third-party schemas of the project.
func (c *ProjectConfig) LoadThirdParty() ([]*gen.ThirdPartySchema, error) {
	schemas := make([]*gen.ThirdPartySchema, 0, len(c.ThirdParty))
	for _, tp := range c.ThirdParty {
		data, err := os.ReadFile(c.path(tp.Path))
		if err != nil {
			return nil, fmt.Errorf("third-party schema %s: %w", tp.Name, err)
		}
		schemas = append(schemas, &gen.ThirdPartySchema{Name: tp.Name, Plugin: tp.Plugin, SDL: string(data)})
	}
	return schemas, nil
}

// OpenStore returns the node store of the project filled with its node
// fixtures. The returned function releases the store.
func (c *ProjectConfig) OpenStore(ctx context.Context) (gqlcompose.NodeStore, func() error, error) {
	nodes, err := c.LoadNodes()
	if err != nil {
		return nil, nil, err
	}
	if c.Store.Driver == "" {
		store := gqlcompose.NewMemStore()
		for _, n := range nodes {
			if err := store.Add(n); err != nil {
				return nil, nil, err
			}
		}
		return store, func() error { return nil }, nil
	}
	drv, err := sqlstore.Open(c.Store.Driver, c.Store.DSN)
	if err != nil {
		return nil, nil, gqlcompose.NewConfigurationError("", "open node store", err)
	}
	var opts []sqlstore.StoreOption
	if c.Store.Table != "" {
		opts = append(opts, sqlstore.WithTable(c.Store.Table))
	}
	stats := sqlstore.NewStatsDriver(drv, sqlstore.WithSlowThreshold(c.Store.SlowQuery), sqlstore.WithSlowQueryLog(nil))
	store, err := sqlstore.NewStore(stats, opts...)
	if err != nil {
		return nil, nil, errors.Join(gqlcompose.NewConfigurationError("", "open node store", err), drv.Close())
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, nil, errors.Join(err, store.Close())
	}
	if err := store.Put(ctx, nodes...); err != nil {
		return nil, nil, errors.Join(err, store.Close())
	}
	return store, store.Close, nil
}

// Options returns the builder options of the project. store is the store
// returned by OpenStore.
func (c *ProjectConfig) Options(store gqlcompose.NodeStore) ([]Option, error) {
	opts := []Option{WithStore(store)}
	if c.Workers > 0 {
		opts = append(opts, WithWorkers(c.Workers))
	}
	if c.Inference.SampleSize != nil {
		opts = append(opts, WithSampleSize(*c.Inference.SampleSize))
	}
	if c.Inference.ConflictThreshold > 0 {
		opts = append(opts, WithConflictThreshold(c.Inference.ConflictThreshold))
	}
	if c.PrintTypeDefs != "" {
		opts = append(opts, WithPrintTypeDefs(c.path(c.PrintTypeDefs)))
	}
	if c.MetadataPath != "" {
		opts = append(opts, WithMetadataPath(c.path(c.MetadataPath)))
	}
	if len(c.ThirdParty) > 0 {
		schemas, err := c.LoadThirdParty()
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithThirdPartySchemas(schemas...))
	}
	return opts, nil
}
