// Package tracing traces archive runs with OpenTelemetry.
//
// A run is one trace. Its root span carries the run ID, mode, collection and
// cutoff; each batch adds child spans for extract, package, upload and
// purge, and a replayed ledger entry gets its own span. Spans are exported
// over OTLP gRPC:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: otel-collector:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.25
//
// The W3C trace context is also sent to Solr (as traceparent headers on
// HTTP requests and curl invocations) so slow queries can be matched to
// the batch that issued them.
package tracing
