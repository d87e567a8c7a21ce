package gen

import (
	"context"
	"log/slog"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/syssam/gqlcompose/schema"
)

// Tracer records field resolution spans.
type Tracer interface {
	// StartField starts the span of one field resolution.
	StartField(ctx context.Context, typeName, fieldName string) (context.Context, Span)
}

// Span is one field resolution.
type Span interface {
	End(err error)
}

// NopTracer records nothing.
type NopTracer struct{}

// StartField implements Tracer.
func (NopTracer) StartField(ctx context.Context, _, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

type nopSpan struct{}

func (nopSpan) End(error) {}

type spanKey struct{}

// SpanID returns the id of the innermost span started by a MetricsTracer.
func SpanID(ctx context.Context) string {
	id, _ := ctx.Value(spanKey{}).(string)
	return id
}

// MetricsTracer observes resolution durations and errors per field.
type MetricsTracer struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	log      *slog.Logger
}

// NewMetricsTracer returns a tracer registering its collectors with reg.
// A nil reg leaves the collectors unregistered; a nil log discards span logs.
func NewMetricsTracer(reg prometheus.Registerer, log *slog.Logger) (*MetricsTracer, error) {
	t := &MetricsTracer{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gqlcompose",
			Subsystem: "resolver",
			Name:      "field_duration_seconds",
			Help:      "Field resolution duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"type", "field"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gqlcompose",
			Subsystem: "resolver",
			Name:      "field_errors_total",
			Help:      "Total number of failed field resolutions",
		}, []string{"type", "field"}),
		log: log,
	}
	if t.log == nil {
		t.log = slog.New(slog.DiscardHandler)
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{t.duration, t.errors} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// StartField implements Tracer.
func (t *MetricsTracer) StartField(ctx context.Context, typeName, fieldName string) (context.Context, Span) {
	s := &metricsSpan{
		tracer: t,
		id:     uuid.NewString(),
		parent: SpanID(ctx),
		typ:    typeName,
		field:  fieldName,
		start:  time.Now(),
	}
	return context.WithValue(ctx, spanKey{}, s.id), s
}

type metricsSpan struct {
	tracer     *MetricsTracer
	id, parent string
	typ, field string
	start      time.Time
}

func (s *metricsSpan) End(err error) {
	elapsed := time.Since(s.start)
	s.tracer.duration.WithLabelValues(s.typ, s.field).Observe(elapsed.Seconds())
	if err != nil {
		s.tracer.errors.WithLabelValues(s.typ, s.field).Inc()
	}
	s.tracer.log.Debug("field resolved",
		"span", s.id,
		"parent", s.parent,
		"field", s.typ+"."+s.field,
		"duration", elapsed,
		"error", err,
	)
}

// Trace wraps resolve with a span of tracer. Values and errors pass through
// unchanged.
func Trace(tracer Tracer, typeName, fieldName string, resolve schema.ResolveFunc) schema.ResolveFunc {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		ctx, span := tracer.StartField(ctx, typeName, fieldName)
		v, err := resolve(ctx, p)
		span.End(err)
		return v, err
	}
}

// FieldMiddleware adapts tracer to a gqlgen server. Only fields backed by
// a resolver are traced.
func FieldMiddleware(tracer Tracer) graphql.FieldMiddleware {
	return func(ctx context.Context, next graphql.Resolver) (any, error) {
		fc := graphql.GetFieldContext(ctx)
		if fc == nil || !fc.IsResolver {
			return next(ctx)
		}
		ctx, span := tracer.StartField(ctx, fc.Object, fc.Field.Name)
		v, err := next(ctx)
		span.End(err)
		return v, err
	}
}

// Wrap returns the resolver table of a frozen registry. Fields without a
// custom resolver get the untraced default resolver; every other resolver
// is traced.
func Wrap(reg *schema.Registry, tracer Tracer) Resolvers {
	if tracer == nil {
		tracer = NopTracer{}
	}
	table := Resolvers{}
	for _, t := range reg.Types() {
		if !t.Kind.IsOutput() || !t.Kind.HasFields() {
			continue
		}
		for _, f := range t.Fields() {
			if f.Resolve == nil {
				table.set(t.Name, f.Name, DefaultResolver)
				continue
			}
			table.set(t.Name, f.Name, Trace(tracer, t.Name, f.Name, f.Resolve))
		}
	}
	return table
}
