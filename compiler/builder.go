// Package compiler builds a queryable GraphQL schema from explicit type
// definitions, node content and third-party schemas.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler/gen"
	"github.com/syssam/gqlcompose/compiler/infer"
	"github.com/syssam/gqlcompose/compiler/load"
	"github.com/syssam/gqlcompose/schema"
)

// TypeDefs is one batch of explicit type definitions.
type TypeDefs struct {
	// Plugin owns the definitions.
	Plugin string
	// Sources are SDL documents.
	Sources []*ast.Source
	// Types are definitions built in Go.
	Types []*schema.Type
	// Definitions are prebuilt gqlparser definitions.
	Definitions []*ast.Definition
}

// SDL returns type definitions holding a single SDL document.
func SDL(plugin, name, input string) *TypeDefs {
	return &TypeDefs{Plugin: plugin, Sources: []*ast.Source{{Name: name, Input: input}}}
}

// Builder runs full builds and incremental rebuilds. A Builder keeps the
// registry of its last build so that Rebuild can update it in place.
type Builder struct {
	cfg    *Config
	parser *load.Parser
	engine *infer.Engine
	flight singleflight.Group

	mu        sync.Mutex
	reg       *schema.Registry
	overrides []*PluginResolvers
	exts      []string
	current   *Schema
	dirty     map[string]bool
}

// New returns a Builder configured by opts.
func New(opts ...Option) (*Builder, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	meta := cfg.Metadata
	if meta == nil && cfg.MetadataPath != "" {
		if meta, err = infer.LoadFile(cfg.MetadataPath); err != nil {
			return nil, gqlcompose.NewConfigurationError("", "loading inference metadata", err)
		}
	}
	return &Builder{
		cfg:    cfg,
		parser: load.NewParser(cfg.Reporter, gen.Declarations(cfg.Extensions)...),
		engine: infer.New(cfg.Store, cfg.Reporter,
			infer.WithSampleSize(cfg.SampleSize),
			infer.WithConflictThreshold(cfg.ConflictThreshold),
			infer.WithWorkers(cfg.Workers),
			infer.WithMetadata(meta),
		),
	}, nil
}

// Config returns the configuration of b.
func (b *Builder) Config() *Config { return b.cfg }

// Metadata returns the inference metadata collected so far.
func (b *Builder) Metadata() *infer.Metadata { return b.engine.Metadata() }

// Conflicts returns the inference ambiguities of the last build.
func (b *Builder) Conflicts() []*gqlcompose.InferenceAmbiguity { return b.engine.Conflicts() }

// Current returns the schema of the last successful build, or nil.
func (b *Builder) Current() *Schema {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Build runs every phase from scratch and returns the new schema. Fatal
// diagnostics reported through Reporter.Panic are returned as errors.
func (b *Builder) Build(ctx context.Context, defs ...*TypeDefs) (s *Schema, err error) {
	defer gqlcompose.Recover(&err)
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	reg := schema.NewRegistry(b.cfg.Reporter)
	surface := gen.NewSurface(reg)
	relations := gen.NewRelations(reg, b.cfg.Store)
	var overrides []*PluginResolvers
	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{gqlcompose.APIResolvableExtensions, b.resolvableExtensions},
		{"typeDefinitions", func(ctx context.Context) error { return b.addTypeDefs(ctx, reg, defs) }},
		{"thirdPartySchemas", func(context.Context) error {
			return gen.AddThirdPartySchemas(reg, b.parser, b.cfg.ThirdParty...)
		}},
		{"inference", func(ctx context.Context) error {
			if err := b.engine.Infer(ctx, reg); err != nil {
				return err
			}
			return b.printTypeDefs(reg)
		}},
		{gqlcompose.APISetFieldsOnNodeType, func(ctx context.Context) error {
			return gen.SetFieldsOnNodeTypes(ctx, reg, b.cfg.Store, b.cfg.Runner, b.cfg.Workers)
		}},
		{"nodeInterfaces", func(context.Context) error {
			gen.CheckNodeInterfaces(reg)
			gen.AddNodeFields(reg)
			gen.CheckQueryableInterfaces(reg)
			return nil
		}},
		{"fieldExtensions", func(ctx context.Context) error {
			return gen.ProcessFieldExtensions(ctx, reg, b.cfg.Extensions, b.cfg.Workers)
		}},
		{"relations", relations.Add},
		{"querySurface", func(context.Context) error {
			if err := surface.Generate(); err != nil {
				return err
			}
			if reg.Get(schema.QueryType).NumFields() == 0 {
				return gqlcompose.NewConfigurationError(schema.QueryType, "the schema has no queryable types", nil)
			}
			return nil
		}},
		{gqlcompose.APICreateResolvers, func(ctx context.Context) error {
			var err error
			overrides, err = b.collectResolvers(ctx, reg)
			if err != nil {
				return err
			}
			applyOverrides(reg, overrides, b.cfg.IgnoreNonexistentTypes)
			return nil
		}},
	}
	for _, p := range phases {
		if err := b.phase(ctx, p.name, p.run); err != nil {
			return nil, err
		}
	}
	s, err = b.finalize(reg)
	if err != nil {
		return nil, err
	}
	b.reg, b.overrides, b.current, b.dirty = reg, overrides, s, nil
	if err := b.saveMetadata(); err != nil {
		return nil, err
	}
	b.cfg.Logger.LogAttrs(ctx, slog.LevelDebug, "schema built",
		slog.Int("types", len(s.types.Names())),
		slog.Duration("duration", time.Since(start)),
	)
	return s, nil
}

// Rebuild refreshes the inferred fields and the query surface of one node
// type from the store and returns a new schema. Explicit types are left
// alone. Concurrent rebuilds of the same type share one run.
func (b *Builder) Rebuild(ctx context.Context, typeName string) (*Schema, error) {
	v, err, _ := b.flight.Do(typeName, func() (any, error) {
		return b.rebuild(ctx, typeName)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Schema), nil
}

func (b *Builder) rebuild(ctx context.Context, name string) (s *Schema, err error) {
	defer gqlcompose.Recover(&err)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reg == nil {
		return nil, errors.New("gqlcompose: rebuild before the first build")
	}
	start := time.Now()
	changed, err := b.engine.Sample(ctx, name)
	if err != nil {
		return nil, gen.NewPhaseError("rebuild", name, err)
	}
	if !changed && !b.dirty[name] {
		return b.current, nil
	}
	// Sample has recorded the nodes already; retry until a run succeeds.
	if b.dirty == nil {
		b.dirty = make(map[string]bool)
	}
	b.dirty[name] = true
	reg, s, err := b.rebuildRegistry(ctx, name)
	if err != nil {
		return nil, err
	}
	b.reg, b.current = reg, s
	delete(b.dirty, name)
	if err := b.saveMetadata(); err != nil {
		return nil, err
	}
	b.cfg.Logger.LogAttrs(ctx, slog.LevelDebug, "schema rebuilt",
		slog.String("type", name),
		slog.Duration("duration", time.Since(start)),
	)
	return s, nil
}

// rebuildRegistry refreshes type name and the parent types linking to it on
// a copy of the current registry. The copy is returned with the finalized
// schema only when every step succeeds.
func (b *Builder) rebuildRegistry(ctx context.Context, name string) (*schema.Registry, *Schema, error) {
	reg := b.reg.Clone()
	surface := gen.NewSurface(reg)
	relations := gen.NewRelations(reg, b.cfg.Store)
	surface.Clear(name)
	relations.Clear(name)
	infer.Clear(reg, name)
	if t := reg.Get(name); t != nil && t.Extensions.CreatedFrom() == schema.FromInference && b.engine.Metadata().Type(name) == nil {
		reg.Remove(name)
	}
	if err := b.engine.InferType(ctx, reg, name); err != nil {
		return nil, nil, gen.NewPhaseError("rebuild", name, err)
	}
	gen.AddNodeFields(reg)
	gen.CheckQueryableInterfaces(reg)
	if err := gen.ProcessFieldExtensions(ctx, reg, b.cfg.Extensions, b.cfg.Workers); err != nil {
		return nil, nil, gen.NewPhaseError("rebuild", name, err)
	}
	if err := relations.AddFor(ctx, name); err != nil {
		return nil, nil, gen.NewPhaseError("rebuild", name, err)
	}
	parents, err := relations.Refresh(ctx, name)
	if err != nil {
		return nil, nil, gen.NewPhaseError("rebuild", name, err)
	}
	for _, parent := range parents {
		surface.Clear(parent)
		if err := surface.GenerateFor(parent); err != nil {
			return nil, nil, gen.NewPhaseError("rebuild", parent, err)
		}
	}
	if err := surface.GenerateFor(name); err != nil {
		return nil, nil, gen.NewPhaseError("rebuild", name, err)
	}
	gen.RestoreOriginalFields(reg)
	applyOverrides(reg, b.overrides, true)
	s, err := b.finalize(reg)
	if err != nil {
		return nil, nil, err
	}
	return reg, s, nil
}

// phase runs one build phase and logs its duration.
func (b *Builder) phase(ctx context.Context, name string, run func(context.Context) error) error {
	start := time.Now()
	err := run(ctx)
	attrs := []slog.Attr{slog.String("phase", name), slog.Duration("duration", time.Since(start))}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	b.cfg.Logger.LogAttrs(ctx, slog.LevelDebug, "build phase", attrs...)
	if err != nil && !gen.IsPhaseError(err) && !gqlcompose.IsConfigurationError(err) && !gqlcompose.IsIntegrityViolation(err) {
		return gen.NewPhaseError(name, "", err)
	}
	return err
}

func (b *Builder) resolvableExtensions(ctx context.Context) error {
	results, err := b.cfg.Runner.Run(ctx, gqlcompose.APIResolvableExtensions, nil)
	if err != nil {
		return err
	}
	exts := []string{".js", ".jsx"}
	for _, r := range results {
		switch v := r.(type) {
		case string:
			exts = append(exts, v)
		case []string:
			exts = append(exts, v...)
		case nil:
		default:
			b.cfg.Reporter.Error(fmt.Sprintf("%s returned %T, expected file extensions", gqlcompose.APIResolvableExtensions, r))
		}
	}
	slices.Sort(exts)
	b.exts = slices.Compact(exts)
	return nil
}

// addTypeDefs registers the explicit types of defs followed by those of the
// createSchemaCustomization plugins.
func (b *Builder) addTypeDefs(ctx context.Context, reg *schema.Registry, defs []*TypeDefs) error {
	results, err := b.cfg.Runner.Run(ctx, gqlcompose.APICreateSchemaCustomize, reg)
	if err != nil {
		return err
	}
	all := slices.Clone(defs)
	for _, r := range results {
		switch v := r.(type) {
		case *TypeDefs:
			all = append(all, v)
		case TypeDefs:
			all = append(all, &v)
		case string:
			all = append(all, SDL("", gqlcompose.APICreateSchemaCustomize, v))
		case *schema.Type:
			all = append(all, &TypeDefs{Types: []*schema.Type{v}})
		case *ast.Definition:
			all = append(all, &TypeDefs{Definitions: []*ast.Definition{v}})
		case nil:
		default:
			b.cfg.Reporter.Error(fmt.Sprintf("%s returned %T, expected type definitions", gqlcompose.APICreateSchemaCustomize, r))
		}
	}
	for _, d := range all {
		if d == nil {
			continue
		}
		parsed, err := b.parser.ParseAll(d.Sources...)
		if err != nil {
			return err
		}
		if err := addTypes(reg, d.Plugin, schema.FromSDL, parsed); err != nil {
			return err
		}
		if err := addTypes(reg, d.Plugin, schema.FromTypeBuilder, d.Types); err != nil {
			return err
		}
		for _, def := range d.Definitions {
			t, err := b.parser.Convert(def)
			if err != nil {
				return err
			}
			if _, err := reg.Add(t, d.Plugin, schema.FromGraphQLJS); err != nil {
				return err
			}
		}
	}
	return nil
}

func addTypes(reg *schema.Registry, plugin string, from schema.CreatedFrom, types []*schema.Type) error {
	for _, t := range types {
		if _, err := reg.Add(t, plugin, from); err != nil {
			return err
		}
	}
	return nil
}

// collectResolvers returns the configured overrides followed by those of
// the createResolvers plugins.
func (b *Builder) collectResolvers(ctx context.Context, reg *schema.Registry) ([]*PluginResolvers, error) {
	results, err := b.cfg.Runner.Run(ctx, gqlcompose.APICreateResolvers, reg)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(b.cfg.Resolvers)
	for _, r := range results {
		switch v := r.(type) {
		case *PluginResolvers:
			out = append(out, v)
		case gen.ResolverMap:
			out = append(out, &PluginResolvers{Resolvers: v})
		case map[string]map[string]*gen.FieldConfig:
			out = append(out, &PluginResolvers{Resolvers: v})
		case nil:
		default:
			b.cfg.Reporter.Error(fmt.Sprintf("%s returned %T, expected resolvers", gqlcompose.APICreateResolvers, r))
		}
	}
	return out, nil
}

// applyOverrides applies the overrides not yet present in reg.
func applyOverrides(reg *schema.Registry, overrides []*PluginResolvers, ignoreNonexistent bool) {
	for _, o := range overrides {
		if o == nil {
			continue
		}
		gen.ApplyOverrides(reg, o.Resolvers.Pending(reg), gen.OverrideOptions{
			IgnoreNonexistentTypes: ignoreNonexistent,
			Plugin:                 o.Plugin,
		})
	}
}

// finalize freezes reg, validates it with gqlparser and returns a schema
// over a copy of it.
func (b *Builder) finalize(reg *schema.Registry) (*Schema, error) {
	if err := reg.Freeze(); err != nil {
		return nil, err
	}
	frozen := reg.Clone()
	var types []*schema.Type
	for _, t := range frozen.Types() {
		if !schema.IsStandardScalar(t.Name) {
			types = append(types, t)
		}
	}
	sdl := load.SDL(types, load.PrintOptions{})
	doc, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, gqlcompose.NewIntegrityViolation(fmt.Sprintf("generated schema is invalid: %v", err))
	}
	return &Schema{
		ast:        doc,
		types:      frozen,
		resolvers:  gen.Wrap(frozen, b.cfg.Tracer),
		nodes:      b.cfg.Store,
		sdl:        sdl,
		extensions: b.exts,
	}, nil
}

// printTypeDefs writes the explicit and inferred types with their
// directives.
func (b *Builder) printTypeDefs(reg *schema.Registry) error {
	if b.cfg.PrintTypeDefs == "" {
		return nil
	}
	var types []*schema.Type
	for _, t := range reg.Types() {
		switch t.Extensions.CreatedFrom() {
		case schema.FromBuiltin, schema.FromThirdParty:
			continue
		}
		if !t.Extensions.IsPlaceholder() {
			types = append(types, t)
		}
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.PrintTypeDefs), 0o755); err != nil {
		return err
	}
	sdl := load.SDL(types, load.PrintOptions{Directives: true, Extensions: gen.Declarations(b.cfg.Extensions)})
	return os.WriteFile(b.cfg.PrintTypeDefs, []byte(sdl), 0o644)
}

func (b *Builder) saveMetadata() error {
	if b.cfg.MetadataPath == "" {
		return nil
	}
	if err := b.engine.Metadata().SaveFile(b.cfg.MetadataPath); err != nil {
		return fmt.Errorf("gqlcompose: saving inference metadata: %w", err)
	}
	return nil
}
