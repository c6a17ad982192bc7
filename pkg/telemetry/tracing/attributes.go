package tracing

import (
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/archivist/pkg/lifecycle"
)

// SpanPrefix is prepended to step names.
const SpanPrefix = "archivist."

// Span names.
const (
	SpanRun     = "run"
	SpanReplay  = "replay"
	SpanExtract = "extract"
	SpanPackage = "package"
	SpanUpload  = "upload"
	SpanPurge   = "purge"
)

// Attribute keys.
const (
	AttrRunID       = "archivist.run_id"
	AttrMode        = "archivist.mode"
	AttrCollection  = "archivist.collection"
	AttrCutoff      = "archivist.cutoff"
	AttrSequence    = "archivist.batch.sequence"
	AttrRecords     = "archivist.batch.records"
	AttrRangeStart  = "archivist.batch.start"
	AttrRangeEnd    = "archivist.batch.end"
	AttrArtifact    = "archivist.artifact"
	AttrDestination = "archivist.destination"
	AttrCompression = "archivist.compression"
)

// RunAttributes describe a whole run.
func RunAttributes(runID string, mode lifecycle.Mode, collection, cutoff string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.String(AttrMode, string(mode)),
		attribute.String(AttrCollection, collection),
		attribute.String(AttrCutoff, cutoff),
	}
}

// BatchAttributes describe one extracted batch.
func BatchAttributes(seq, records int, r lifecycle.Range) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrSequence, seq),
		attribute.Int(AttrRecords, records),
		attribute.String(AttrRangeStart, r.Start.String()),
		attribute.String(AttrRangeEnd, r.End.String()),
	}
}
