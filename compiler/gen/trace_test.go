package gen

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/99designs/gqlgen/graphql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/gqlcompose/schema"
)

type recordingTracer struct {
	started []string
	ended   []error
}

func (r *recordingTracer) StartField(ctx context.Context, typeName, fieldName string) (context.Context, Span) {
	r.started = append(r.started, typeName+"."+fieldName)
	return ctx, recordingSpan{r}
}

type recordingSpan struct{ r *recordingTracer }

func (s recordingSpan) End(err error) { s.r.ended = append(s.r.ended, err) }

func TestTrace(t *testing.T) {
	tr := &recordingTracer{}
	boom := errors.New("boom")
	resolve := Trace(tr, "Post", "title", func(context.Context, schema.ResolveParams) (any, error) {
		return "x", boom
	})
	v, err := resolve(context.Background(), schema.ResolveParams{})
	assert.Equal(t, "x", v)
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"Post.title"}, tr.started)
	assert.Equal(t, []error{boom}, tr.ended)
}

func TestMetricsTracer(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tr, err := NewMetricsTracer(reg, log)
	require.NoError(t, err)

	var inner string
	ok := Trace(tr, "Post", "title", func(ctx context.Context, _ schema.ResolveParams) (any, error) {
		inner = SpanID(ctx)
		return "x", nil
	})
	fail := Trace(tr, "Post", "author", func(context.Context, schema.ResolveParams) (any, error) {
		return nil, errors.New("boom")
	})
	ctx := context.Background()
	_, err = ok(ctx, schema.ResolveParams{})
	require.NoError(t, err)
	_, err = fail(ctx, schema.ResolveParams{})
	require.Error(t, err)

	assert.NotEmpty(t, inner)
	assert.Empty(t, SpanID(ctx))
	assert.Equal(t, 2, testutil.CollectAndCount(tr.duration))
	assert.Equal(t, float64(1), testutil.ToFloat64(tr.errors.WithLabelValues("Post", "author")))
	assert.Equal(t, float64(0), testutil.ToFloat64(tr.errors.WithLabelValues("Post", "title")))
	assert.Contains(t, buf.String(), "field=Post.title")
	assert.Contains(t, buf.String(), "span="+inner)

	_, err = NewMetricsTracer(reg, nil)
	assert.Error(t, err, "collectors are registered once")
}

func TestMetricsTracerNested(t *testing.T) {
	tr, err := NewMetricsTracer(nil, nil)
	require.NoError(t, err)
	ctx, outer := tr.StartField(context.Background(), "Query", "allPost")
	_, inner := tr.StartField(ctx, "Post", "title")
	assert.Equal(t, outer.(*metricsSpan).id, inner.(*metricsSpan).parent)
	inner.End(nil)
	outer.End(nil)
}

func TestFieldMiddleware(t *testing.T) {
	tr := &recordingTracer{}
	mw := FieldMiddleware(tr)
	next := func(context.Context) (any, error) { return "v", nil }

	v, err := mw(context.Background(), next)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Empty(t, tr.started)

	field := graphql.CollectedField{Field: &ast.Field{Name: "title"}}
	ctx := graphql.WithFieldContext(context.Background(), &graphql.FieldContext{Object: "Post", Field: field})
	_, err = mw(ctx, next)
	require.NoError(t, err)
	assert.Empty(t, tr.started)

	ctx = graphql.WithFieldContext(context.Background(), &graphql.FieldContext{Object: "Post", Field: field, IsResolver: true})
	_, err = mw(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, []string{"Post.title"}, tr.started)
}

func TestWrap(t *testing.T) {
	reg, _ := registry(t, `type Post implements Node { title: String, slug: String }`)
	custom := func(context.Context, schema.ResolveParams) (any, error) { return "custom", nil }
	reg.Get("Post").Field("slug").Resolve = custom
	tr := &recordingTracer{}
	table := Wrap(reg, tr)

	title := table.Get("Post", "title")
	require.NotNil(t, title)
	v, err := title(context.Background(), schema.ResolveParams{
		Source: node("p1", "Post", map[string]any{"title": "A"}),
		Info:   schema.ResolveInfo{FieldName: "title"},
	})
	require.NoError(t, err)
	assert.Equal(t, "A", v)
	assert.Empty(t, tr.started)

	v, err = table.Get("Post", "slug")(context.Background(), schema.ResolveParams{})
	require.NoError(t, err)
	assert.Equal(t, "custom", v)
	assert.Equal(t, []string{"Post.slug"}, tr.started)

	assert.NotNil(t, table.Get("Internal", "owner"))
	assert.Nil(t, table.Get("PostFilterInput", "title"))
	assert.Nil(t, table.Get("Post", "missing"))
}
