package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/locsync/pkg/location"
)

// Default tracer name for locsync.
const defaultTracerName = "locsync"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "locsync").
	TracerName string

	// Tracer overrides the tracer from the global provider.
	Tracer trace.Tracer

	// IncludeURL records the navigation URL as an attribute.
	// URLs may carry user data in the query - enabled by default.
	IncludeURL bool

	// Filter determines which navigations to trace.
	// If nil, all navigations are traced.
	Filter func(n location.Navigation) bool

	// AttributeExtractor adds custom attributes to every span.
	AttributeExtractor func(sessionID string, n location.Navigation) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly.
func WithTracer(tracer trace.Tracer) OTelOption {
	return func(c *OTelConfig) {
		c.Tracer = tracer
	}
}

// WithIncludeURL enables/disables the URL attribute.
func WithIncludeURL(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeURL = include
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(n location.Navigation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(sessionID string, n location.Navigation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
		IncludeURL: true,
	}
}

// Tracing creates per-session observers that record spans.
type Tracing struct {
	config OTelConfig
	tracer trace.Tracer
}

// OpenTelemetry creates a Tracing from options.
func OpenTelemetry(opts ...OTelOption) *Tracing {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(config.TracerName)
	}
	return &Tracing{config: config, tracer: tracer}
}

// Observer returns an observer that tags spans with sessionID.
func (t *Tracing) Observer(sessionID string) location.Observer {
	return &sessionTracer{t: t, sessionID: sessionID}
}

type sessionTracer struct {
	t         *Tracing
	sessionID string
}

// ObserveNavigation records a zero-length span for the side effect.
func (s *sessionTracer) ObserveNavigation(n location.Navigation) {
	cfg := s.t.config
	if cfg.Filter != nil && !cfg.Filter(n) {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("locsync.session_id", s.sessionID),
		attribute.String("locsync.kind", n.Kind.String()),
		attribute.String("locsync.field", n.Field.String()),
		attribute.Bool("locsync.flushed", n.Flushed),
	}
	if cfg.IncludeURL {
		attrs = append(attrs, attribute.String("locsync.url", n.URL))
	}
	if cfg.AttributeExtractor != nil {
		attrs = append(attrs, cfg.AttributeExtractor(s.sessionID, n)...)
	}

	_, span := s.t.tracer.Start(context.Background(), "locsync."+n.Kind.String(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	span.SetStatus(codes.Ok, "")
	span.End()
}

// ObserveGateOpened records a span covering the idle wait.
func (s *sessionTracer) ObserveGateOpened(waited time.Duration) {
	end := time.Now()
	_, span := s.t.tracer.Start(context.Background(), "locsync.idle_wait",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-waited)),
		trace.WithAttributes(
			attribute.String("locsync.session_id", s.sessionID),
			attribute.Int64("locsync.waited_ms", waited.Milliseconds()),
		),
	)
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(end))
}
