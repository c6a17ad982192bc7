// Package purge deletes archived documents from the source collection.
package purge

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/solr"
)

// Deleter runs delete-by-query requests. *solr.Client satisfies it.
type Deleter interface {
	DeleteByQuery(ctx context.Context, collection, query string) error
	UpdateURL(collection, path string) string
}

// Scope identifies the documents a purge may touch.
type Scope struct {
	Collection       string
	FilterField      string
	IDField          string
	AdditionalFilter string
}

// Purger issues delete-by-query requests.
type Purger struct {
	deleter Deleter
	logger  *slog.Logger
}

// New creates a Purger.
func New(deleter Deleter, logger *slog.Logger) *Purger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{
		deleter: deleter,
		logger:  logger.With("component", "purge"),
	}
}

// RangeQuery returns the query matching every document at or before end in
// (boundary, id) order, restricted by the additional filter.
func RangeQuery(spec ledger.DeleteSpec) string {
	f, id := spec.FilterField, spec.IDField
	v := solr.Quote(spec.PrevLotEndValue)
	q := fmt.Sprintf("%s:[* TO %s} OR (%s:%s AND %s:[* TO %s])",
		f, v, f, v, id, solr.Quote(spec.PrevLotEndID))
	return restrict(spec.AdditionalFilter, q)
}

// CutoffQuery returns the query matching every document up to cutoff.
func CutoffQuery(scope Scope, cutoff string) string {
	return restrict(scope.AdditionalFilter, fmt.Sprintf("%s:[* TO %s]", scope.FilterField, solr.Quote(cutoff)))
}

func restrict(filter, q string) string {
	if filter == "" {
		return q
	}
	return fmt.Sprintf("(%s) AND (%s)", filter, q)
}

// Spec returns the ledger record for purging a batch that ended at end.
func (p *Purger) Spec(scope Scope, end lifecycle.Cursor) ledger.DeleteSpec {
	spec := ledger.DeleteSpec{
		Collection:       scope.Collection,
		FilterField:      scope.FilterField,
		IDField:          scope.IDField,
		PrevLotEndValue:  end.Value,
		PrevLotEndID:     end.ID,
		AdditionalFilter: scope.AdditionalFilter,
	}
	spec.Command = p.command(scope.Collection, RangeQuery(spec))
	return spec
}

func (p *Purger) command(collection, query string) string {
	return fmt.Sprintf("POST %s <delete><query>%s</query></delete>", p.deleter.UpdateURL(collection, ""), query)
}

// PurgeRange deletes the documents of a finished batch.
func (p *Purger) PurgeRange(ctx context.Context, spec ledger.DeleteSpec) error {
	return p.purge(ctx, spec.Collection, RangeQuery(spec))
}

// PurgeBefore deletes every document up to cutoff.
func (p *Purger) PurgeBefore(ctx context.Context, scope Scope, cutoff string) error {
	return p.purge(ctx, scope.Collection, CutoffQuery(scope, cutoff))
}

func (p *Purger) purge(ctx context.Context, collection, query string) error {
	p.logger.Info("deleting documents", "collection", collection, "query", query)

	if err := p.deleter.DeleteByQuery(ctx, collection, query); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return lifecycle.NewPurgeError(collection, query, err)
	}

	p.logger.Info("documents deleted", "collection", collection)
	return nil
}
