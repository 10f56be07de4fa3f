package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/locsync/pkg/location"
)

type recordingTracer struct {
	embedded.Tracer

	mu    sync.Mutex
	spans []*recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, attrs: cfg.Attributes(), start: cfg.Timestamp(), kind: cfg.SpanKind()}
	r.mu.Lock()
	r.spans = append(r.spans, s)
	r.mu.Unlock()
	return ctx, s
}

type recordedSpan struct {
	noop.Span

	name   string
	kind   trace.SpanKind
	attrs  []attribute.KeyValue
	status codes.Code
	start  time.Time
	end    time.Time
	ended  bool
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordedSpan) End(opts ...trace.SpanEndOption) {
	cfg := trace.NewSpanEndConfig(opts...)
	s.end = cfg.Timestamp()
	s.ended = true
}

func (s *recordedSpan) attr(key string) (attribute.Value, bool) {
	for _, kv := range s.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOpenTelemetry_SpanPerNavigation(t *testing.T) {
	tr := &recordingTracer{}
	obs := OpenTelemetry(WithTracer(tr)).Observer("sess-1")

	obs.ObserveNavigation(location.Navigation{Kind: location.NavReload, Field: location.FieldReload, URL: "/a?b"})

	if len(tr.spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(tr.spans))
	}
	span := tr.spans[0]
	if span.name != "locsync.reload" {
		t.Errorf("span name = %q, want locsync.reload", span.name)
	}
	if !span.ended || span.status != codes.Ok {
		t.Errorf("span ended=%v status=%v, want ended with Ok", span.ended, span.status)
	}
	if v, _ := span.attr("locsync.session_id"); v.AsString() != "sess-1" {
		t.Errorf("session_id = %q, want sess-1", v.AsString())
	}
	if v, _ := span.attr("locsync.field"); v.AsString() != "reload" {
		t.Errorf("field = %q, want reload", v.AsString())
	}
	if v, _ := span.attr("locsync.url"); v.AsString() != "/a?b" {
		t.Errorf("url = %q, want /a?b", v.AsString())
	}
}

func TestOpenTelemetry_OmitsURLWhenDisabled(t *testing.T) {
	tr := &recordingTracer{}
	obs := OpenTelemetry(WithTracer(tr), WithIncludeURL(false)).Observer("s")

	obs.ObserveNavigation(location.Navigation{Kind: location.NavPush, Field: location.FieldSearch, URL: "/?token=secret"})

	if _, ok := tr.spans[0].attr("locsync.url"); ok {
		t.Error("url attribute recorded with WithIncludeURL(false)")
	}
}

func TestOpenTelemetry_FilterAndExtractor(t *testing.T) {
	tr := &recordingTracer{}
	obs := OpenTelemetry(
		WithTracer(tr),
		WithNavigationFilter(func(n location.Navigation) bool {
			return n.Kind != location.NavDeferred
		}),
		WithAttributeExtractor(func(id string, n location.Navigation) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	).Observer("s")

	obs.ObserveNavigation(location.Navigation{Kind: location.NavDeferred, Field: location.FieldPathname})
	obs.ObserveNavigation(location.Navigation{Kind: location.NavPush, Field: location.FieldPathname})

	if len(tr.spans) != 1 {
		t.Fatalf("spans = %d, want 1 (deferred filtered)", len(tr.spans))
	}
	if v, _ := tr.spans[0].attr("test.attr"); v.AsString() != "ok" {
		t.Errorf("test.attr = %q, want ok", v.AsString())
	}
}

func TestOpenTelemetry_IdleWaitSpanCoversWait(t *testing.T) {
	tr := &recordingTracer{}
	obs := OpenTelemetry(WithTracer(tr)).Observer("s")

	obs.ObserveGateOpened(2 * time.Second)

	span := tr.spans[0]
	if span.name != "locsync.idle_wait" {
		t.Errorf("span name = %q", span.name)
	}
	if got := span.end.Sub(span.start); got != 2*time.Second {
		t.Errorf("span duration = %v, want 2s", got)
	}
	if v, _ := span.attr("locsync.waited_ms"); v.AsInt64() != 2000 {
		t.Errorf("waited_ms = %d, want 2000", v.AsInt64())
	}
}
