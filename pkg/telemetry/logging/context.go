package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for run ids.
	RunIDKey contextKey = "run_id"

	// CollectionKey is the context key for the source collection.
	CollectionKey contextKey = "collection"
)

// WithRunID adds a run id to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run id from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithCollection adds the source collection to the context.
func WithCollection(ctx context.Context, collection string) context.Context {
	return context.WithValue(ctx, CollectionKey, collection)
}

// GetCollection retrieves the source collection from the context.
func GetCollection(ctx context.Context) string {
	if collection, ok := ctx.Value(CollectionKey).(string); ok {
		return collection
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any
	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, string(RunIDKey), runID)
	}
	if collection := GetCollection(ctx); collection != "" {
		fields = append(fields, string(CollectionKey), collection)
	}
	return fields
}
