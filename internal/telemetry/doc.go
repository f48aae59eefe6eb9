// Package telemetry provides OpenTelemetry providers for the newsletter
// service and the pipeline layers that export tracing data.
//
// Telemetry is disabled by default. When disabled, Tracer and Meter return
// the global no-op implementations and nothing leaves the process.
//
// Two layers plug into a tracing.Pipeline:
//   - OTelLayer mirrors every span into an OpenTelemetry span and every
//     event into a span event
//   - MetricsLayer counts events by level and records span durations into
//     Prometheus collectors, served at /metrics
//
// Failures while creating exporters do not crash the service: the
// Telemetry instance is marked degraded and Health reports why.
package telemetry
