// Package middleware provides observability for locsync sessions.
//
// # Prometheus Metrics
//
// Prometheus collects counters and histograms from every session's location
// sync and from the server's session lifecycle:
//   - locsync_navigations_total: browser side effects by kind
//   - locsync_deferred_navigations_total: soft updates held for idle
//   - locsync_idle_wait_seconds: time from first soft update to idle
//   - locsync_active_sessions: current number of sessions
//   - locsync_session_duration_seconds: session lifetime
//   - locsync_protocol_errors_total: malformed frames and events by kind
//
//	metrics := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	cfg.Observers = append(cfg.Observers, metrics.Observer)
//	cfg.Hooks = append(cfg.Hooks, metrics)
//
// # OpenTelemetry
//
// OpenTelemetry records one span per browser side effect, tagged with the
// session ID, the field that changed and the resulting URL. Idle gate
// openings are recorded as spans covering the wait.
//
//	tracing := middleware.OpenTelemetry(middleware.WithTracerName("my-app"))
//	cfg.Observers = append(cfg.Observers, tracing.Observer)
//
// The tracer comes from the global provider unless WithTracer is given.
// Configure the provider in main() before starting the server.
package middleware
