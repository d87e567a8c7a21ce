package gen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler/infer"
	"github.com/syssam/gqlcompose/compiler/load"
	"github.com/syssam/gqlcompose/contrib/dataloader"
	"github.com/syssam/gqlcompose/schema"
)

// ExtensionContext describes the field a field extension is applied to.
type ExtensionContext struct {
	Registry *schema.Registry
	Type     *schema.Type
	Field    *schema.Field
}

// FieldExtension is a field extension together with its resolver.
type FieldExtension struct {
	*load.Extension
	// Raw reports that filters and sorts may read the stored value instead
	// of running the resolver.
	Raw bool
	// FieldArgs are added to every field using the extension.
	FieldArgs []*schema.Arg
	// Wrap returns the new resolver of the field. prev is never nil.
	Wrap func(ec *ExtensionContext, args map[string]any, prev schema.ResolveFunc) schema.ResolveFunc
}

// extApplied marks fields whose extensions were already applied.
const extApplied = "extensionsApplied"

// BuiltinFieldExtensions returns link, proxy and dateformat in the order
// they are applied.
func BuiltinFieldExtensions() []*FieldExtension {
	decls := map[string]*load.Extension{}
	for _, e := range load.BuiltinExtensions() {
		decls[e.Name] = e
	}
	return []*FieldExtension{
		{Extension: decls[schema.ExtProxy], Wrap: proxyResolver},
		{Extension: decls[schema.ExtLink], Wrap: linkResolver},
		{
			Extension: decls[schema.ExtDateformat],
			Raw:       true,
			FieldArgs: []*schema.Arg{{Name: "formatString", Type: schema.Named("String")}},
			Wrap:      dateformatResolver,
		},
	}
}

// Declarations returns the parser declarations of exts.
func Declarations(exts []*FieldExtension) []*load.Extension {
	decls := make([]*load.Extension, len(exts))
	for i, e := range exts {
		decls[i] = e.Extension
	}
	return decls
}

// ProcessFieldExtensions installs the resolvers of the field extensions
// used on object and interface fields. Types are processed concurrently.
func ProcessFieldExtensions(ctx context.Context, reg *schema.Registry, exts []*FieldExtension, workers int) error {
	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for _, t := range reg.Types() {
		if !t.Kind.HasFields() || t.Kind == schema.KindInputObject || t.Extensions.CreatedFrom() == schema.FromBuiltin {
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ApplyFieldExtensions(reg, t, exts)
			return nil
		})
	}
	return eg.Wait()
}

// ApplyFieldExtensions installs the extension resolvers of t's fields.
// Fields are processed once; invalid arguments are reported and skipped.
func ApplyFieldExtensions(reg *schema.Registry, t *schema.Type, exts []*FieldExtension) {
	for _, f := range t.Fields() {
		if f.Extensions.Bool(extApplied) {
			continue
		}
		resolve := f.Resolve
		for _, ext := range exts {
			args := f.Extensions.Args(ext.Name)
			if args == nil {
				continue
			}
			args, err := ext.Validate(args)
			if err != nil {
				reg.Reporter().Error(fmt.Sprintf("field extension %q on %s.%s has invalid arguments: %v", ext.Name, t.Name, f.Name, err))
				continue
			}
			if !ext.Raw {
				f.SetExtension(schema.ExtNeedsResolve, true)
			} else if !f.Extensions.Has(schema.ExtNeedsResolve) {
				f.SetExtension(schema.ExtNeedsResolve, f.Resolve != nil)
			}
			for _, a := range ext.FieldArgs {
				if f.Arg(a.Name) == nil {
					f.Args = append(f.Args, a.Clone())
				}
			}
			if resolve == nil {
				resolve = DefaultResolver
			}
			resolve = ext.Wrap(&ExtensionContext{Registry: reg, Type: t, Field: f}, args, resolve)
		}
		f.Resolve = resolve
		f.SetExtension(extApplied, true)
	}
}

func proxyResolver(_ *ExtensionContext, args map[string]any, prev schema.ResolveFunc) schema.ResolveFunc {
	from, _ := args["from"].(string)
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		p.Info.FieldName = from
		return prev(ctx, p)
	}
}

func linkResolver(ec *ExtensionContext, args map[string]any, prev schema.ResolveFunc) schema.ResolveFunc {
	by, _ := args["by"].(string)
	if by == "" {
		by = gqlcompose.FieldID
	}
	from, _ := args["from"].(string)
	reg, base := ec.Registry, ec.Field.Type.BaseName()
	targets := sync.OnceValue(func() []string { return NodeTypes(reg, base) })
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		if from != "" {
			p.Info.FieldName = from
		}
		v, err := prev(ctx, p)
		if err != nil || v == nil {
			return nil, err
		}
		if by == gqlcompose.FieldID {
			return linkByID(ctx, p.Info.Nodes, v)
		}
		return linkBy(ctx, p.Info.Nodes, targets(), by, v)
	}
}

func linkByID(ctx context.Context, store gqlcompose.NodeStore, v any) (any, error) {
	loader := dataloader.Nodes(ctx, store)
	if list, ok := asList(v); ok {
		ids := make([]string, 0, len(list))
		for _, e := range list {
			if e != nil {
				ids = append(ids, fmt.Sprint(e))
			}
		}
		return loader.LoadMany(ctx, ids)
	}
	n, err := loader.Load(ctx, fmt.Sprint(v))
	if err != nil || n == nil {
		return nil, err
	}
	return n, nil
}

func linkBy(ctx context.Context, store gqlcompose.NodeStore, types []string, by string, v any) (any, error) {
	var candidates []*gqlcompose.Node
	for _, name := range types {
		nodes, err := store.NodesByType(ctx, name)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, nodes...)
	}
	find := func(key any) *gqlcompose.Node {
		for _, n := range candidates {
			if matchValue(FieldValue(n, by), key) {
				return n
			}
		}
		return nil
	}
	if list, ok := asList(v); ok {
		nodes := make([]*gqlcompose.Node, 0, len(list))
		for _, key := range list {
			if n := find(key); n != nil {
				nodes = append(nodes, n)
			}
		}
		return nodes, nil
	}
	if n := find(v); n != nil {
		return n, nil
	}
	return nil, nil
}

// matchValue reports whether target equals key or, for lists, holds it.
func matchValue(target, key any) bool {
	if list, ok := asList(target); ok {
		for _, e := range list {
			if equal(e, key) {
				return true
			}
		}
		return false
	}
	return equal(target, key)
}

func dateformatResolver(_ *ExtensionContext, args map[string]any, prev schema.ResolveFunc) schema.ResolveFunc {
	def, _ := args["formatString"].(string)
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		v, err := prev(ctx, p)
		if err != nil || v == nil {
			return v, err
		}
		format := def
		if s, ok := p.Args["formatString"].(string); ok && s != "" {
			format = s
		}
		if format == "" {
			return v, nil
		}
		return formatDates(v, DateLayout(format)), nil
	}
}

func formatDates(v any, layout string) any {
	if list, ok := asList(v); ok {
		out := make([]any, len(list))
		for i, e := range list {
			out[i] = formatDates(e, layout)
		}
		return out
	}
	switch d := v.(type) {
	case time.Time:
		return d.Format(layout)
	case string:
		if t, ok := infer.ParseDate(d); ok {
			return t.Format(layout)
		}
	}
	return v
}

// momentTokens maps moment.js style tokens to Go layout elements. Longer
// tokens come first.
var momentTokens = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MMMM", "January",
	"MMM", "Jan",
	"MM", "01",
	"M", "1",
	"dddd", "Monday",
	"ddd", "Mon",
	"DD", "02",
	"D", "2",
	"HH", "15",
	"hh", "03",
	"h", "3",
	"mm", "04",
	"ss", "05",
	"SSS", "000",
	"A", "PM",
	"a", "pm",
	"Z", "-07:00",
)

// DateLayout converts a moment.js style format string such as
// "MMMM D, YYYY" to a Go time layout.
func DateLayout(format string) string {
	return momentTokens.Replace(format)
}
