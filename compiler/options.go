package compiler

import (
	"errors"
	"log/slog"
	"runtime"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler/gen"
	"github.com/syssam/gqlcompose/compiler/infer"
)

// Config holds the settings of a Builder.
type Config struct {
	// Store is the content store nodes are read from.
	Store gqlcompose.NodeStore
	// Runner dispatches plugin APIs.
	Runner gqlcompose.Runner
	// Reporter receives diagnostics.
	Reporter gqlcompose.Reporter
	// Logger receives debug output of the build phases.
	Logger *slog.Logger
	// Tracer records field resolution spans.
	Tracer gen.Tracer
	// Workers bounds the per-type tasks running concurrently in a phase.
	Workers int
	// SampleSize bounds the nodes sampled per type during inference.
	SampleSize int
	// ConflictThreshold is the disagreement count at which an inference
	// conflict is reported.
	ConflictThreshold int
	// Extensions are the field extensions, applied in order.
	Extensions []*gen.FieldExtension
	// Metadata is the inference metadata of a previous build.
	Metadata *infer.Metadata
	// MetadataPath persists inference metadata across processes.
	MetadataPath string
	// PrintTypeDefs writes the explicit and inferred types to this path
	// after inference.
	PrintTypeDefs string
	// ThirdParty are merged into the schema after the explicit types.
	ThirdParty []*gen.ThirdPartySchema
	// Resolvers are applied together with the createResolvers results.
	Resolvers []*PluginResolvers
	// IgnoreNonexistentTypes suppresses warnings for overrides of
	// unknown types.
	IgnoreNonexistentTypes bool
}

// PluginResolvers is a batch of overrides contributed by one plugin.
type PluginResolvers struct {
	Plugin    string
	Resolvers gen.ResolverMap
}

// Option configures a Builder.
type Option func(*Config) error

// WithStore sets the content store.
func WithStore(store gqlcompose.NodeStore) Option {
	return func(c *Config) error {
		if store == nil {
			return gqlcompose.NewConfigurationError("", "node store cannot be nil", nil)
		}
		c.Store = store
		return nil
	}
}

// WithRunner sets the plugin runner.
func WithRunner(r gqlcompose.Runner) Option {
	return func(c *Config) error {
		if r == nil {
			return gqlcompose.NewConfigurationError("", "runner cannot be nil", nil)
		}
		c.Runner = r
		return nil
	}
}

// WithReporter sets the diagnostics sink.
func WithReporter(rep gqlcompose.Reporter) Option {
	return func(c *Config) error {
		c.Reporter = rep
		return nil
	}
}

// WithLogger sets the logger. Unless a reporter is set, diagnostics are
// written to the same logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Config) error {
		c.Logger = log
		return nil
	}
}

// WithTracer sets the field tracer.
func WithTracer(t gen.Tracer) Option {
	return func(c *Config) error {
		c.Tracer = t
		return nil
	}
}

// WithWorkers sets the number of concurrent per-type tasks.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return gqlcompose.NewConfigurationError("", "workers must be positive", nil)
		}
		c.Workers = n
		return nil
	}
}

// WithSampleSize bounds the nodes sampled per type. Zero samples every node.
func WithSampleSize(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return gqlcompose.NewConfigurationError("", "sample size cannot be negative", nil)
		}
		c.SampleSize = n
		return nil
	}
}

// WithConflictThreshold sets the disagreement count at which inference
// conflicts are reported.
func WithConflictThreshold(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return gqlcompose.NewConfigurationError("", "conflict threshold must be positive", nil)
		}
		c.ConflictThreshold = n
		return nil
	}
}

// WithFieldExtensions registers custom field extensions after the
// built-in ones.
func WithFieldExtensions(exts ...*gen.FieldExtension) Option {
	return func(c *Config) error {
		for _, e := range exts {
			if e == nil || e.Extension == nil || e.Wrap == nil {
				return gqlcompose.NewConfigurationError("", "field extension needs a declaration and a resolver", nil)
			}
		}
		c.Extensions = append(c.Extensions, exts...)
		return nil
	}
}

// WithMetadata reuses the inference metadata of a previous build.
func WithMetadata(m *infer.Metadata) Option {
	return func(c *Config) error {
		c.Metadata = m
		return nil
	}
}

// WithMetadataPath loads inference metadata from path before the build and
// saves it afterwards.
func WithMetadataPath(path string) Option {
	return func(c *Config) error {
		c.MetadataPath = path
		return nil
	}
}

// WithPrintTypeDefs writes the explicit and inferred type definitions to
// path.
func WithPrintTypeDefs(path string) Option {
	return func(c *Config) error {
		c.PrintTypeDefs = path
		return nil
	}
}

// WithThirdPartySchemas merges external schemas into the build.
func WithThirdPartySchemas(schemas ...*gen.ThirdPartySchema) Option {
	return func(c *Config) error {
		for _, s := range schemas {
			if s == nil || s.SDL == "" {
				return gqlcompose.NewConfigurationError("", "third-party schema without type definitions", nil)
			}
		}
		c.ThirdParty = append(c.ThirdParty, schemas...)
		return nil
	}
}

// WithResolvers adds field overrides on behalf of plugin.
func WithResolvers(plugin string, m gen.ResolverMap) Option {
	return func(c *Config) error {
		c.Resolvers = append(c.Resolvers, &PluginResolvers{Plugin: plugin, Resolvers: m})
		return nil
	}
}

// WithIgnoreNonexistentTypes suppresses warnings for overrides of unknown
// types.
func WithIgnoreNonexistentTypes() Option {
	return func(c *Config) error {
		c.IgnoreNonexistentTypes = true
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig returns a Config with defaults and the given options applied.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Workers:           runtime.GOMAXPROCS(0),
		SampleSize:        infer.DefaultSampleSize,
		ConflictThreshold: 1,
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	c.defaults()
	return c, nil
}

func (c *Config) defaults() {
	if c.Store == nil {
		c.Store = gqlcompose.NewMemStore()
	}
	if c.Runner == nil {
		c.Runner = gqlcompose.NopRunner
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Reporter == nil {
		c.Reporter = gqlcompose.NewLogReporter(c.Logger)
	}
	if c.Tracer == nil {
		c.Tracer = gen.NopTracer{}
	}
	c.Extensions = append(gen.BuiltinFieldExtensions(), c.Extensions...)
}
