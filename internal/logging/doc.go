// Package logging provides the filtering and formatting stages of the
// tracing pipeline.
//
// # Overview
//
// The package contributes layers to a tracing.Pipeline:
//   - EnvFilter: level directives from NEWSLETTER_LOG, falling back to a
//     configured default ("info" or "info,storage=debug")
//   - FormatLayer: serializes span START/END records and events through zap,
//     bunyan-style JSON by default
//
// The formatting core wraps zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry log bridge)
//   - Defense-in-depth secret redaction by key and value pattern
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
//	filter, err := logging.NewEnvFilter("info")
//	format, err := logging.NewFormatLayer(cfg, otelProvider)
//	p, err := tracing.NewPipeline(filter, tracing.NewStorageLayer(), format)
//
// A bunyan record for an event inside a span:
//
//	{
//	  "v": 0,
//	  "name": "newsletter",
//	  "msg": "[ADDING A NEW SUBSCRIBER - EVENT] New subscriber details have been saved",
//	  "level": 30,
//	  "hostname": "web-1",
//	  "pid": 4242,
//	  "time": "2025-11-24T10:15:30.123Z",
//	  "target": "newsletter.http",
//	  "span_id": 7,
//	  "request_id": "5b0d...",
//	  "subscriber_email": "ursula@example.com"
//	}
//
// Third-party code that logs through zap (fx, for one) can be routed into
// the same pipeline with NewZapLogger.
package logging
