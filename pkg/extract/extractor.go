package extract

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/record"
	"mercator-hq/archivist/pkg/solr"
)

// Searcher runs select queries. *solr.Client satisfies it.
type Searcher interface {
	Select(ctx context.Context, collection string, q solr.Query) (*solr.SelectResult, error)
	SelectURL(collection string, q solr.Query) string
}

// RecordWriter receives extracted records.
type RecordWriter interface {
	Write(rec record.Record) error
}

// Config configures an Extractor.
type Config struct {
	Collection  string
	FilterField string
	IDField     string

	// Cutoff is the inclusive upper bound of FilterField.
	Cutoff string

	// AdditionalFilter, when set, is used as the main query so it restricts
	// the documents independently of the range filters.
	AdditionalFilter string

	// PageSize is the number of rows requested per query.
	PageSize int

	// BatchSize is the maximum number of records in one batch.
	BatchSize int

	// ExcludeFields are dropped from every record before it is written.
	ExcludeFields []string

	// MaxQueriesPerSecond throttles page requests. Zero disables throttling.
	MaxQueriesPerSecond float64
}

// Batch describes the records written by one Next call.
type Batch struct {
	Range lifecycle.Range
	Count int

	// Exhausted is set when the index returned an empty page, i.e. no
	// records remain past Range.End.
	Exhausted bool
}

// Extractor pages through the index.
type Extractor struct {
	cfg      Config
	searcher Searcher
	limiter  *rate.Limiter
	progress func(written int)
	logger   *slog.Logger
}

// New creates an Extractor.
func New(cfg Config, searcher Searcher, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		cfg:      cfg,
		searcher: searcher,
		logger:   logger.With("component", "extract"),
	}
	if cfg.MaxQueriesPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.MaxQueriesPerSecond), 1)
	}
	return e
}

// OnProgress registers fn to be called with the running record count of the
// current batch after every page.
func (e *Extractor) OnProgress(fn func(written int)) {
	e.progress = fn
}

// RangeFilter returns the filter restricting documents to the cutoff.
func (e *Extractor) RangeFilter() string {
	return fmt.Sprintf("%s:[* TO %s]", e.cfg.FilterField, solr.Quote(e.cfg.Cutoff))
}

// CursorFilter returns the filter selecting documents strictly after c.
func (e *Extractor) CursorFilter(c lifecycle.Cursor) string {
	f, id := e.cfg.FilterField, e.cfg.IDField
	v := solr.Quote(c.Value)
	return fmt.Sprintf("(%s:%s AND %s:{%s TO *]) OR %s:{%s TO %s]",
		f, v, id, solr.Quote(c.ID), f, v, solr.Quote(e.cfg.Cutoff))
}

// Query returns the page query following cursor c.
func (e *Extractor) Query(c lifecycle.Cursor, rows int) solr.Query {
	q := solr.Query{
		Q:             e.cfg.AdditionalFilter,
		FilterQueries: []string{e.RangeFilter()},
		Sort:          fmt.Sprintf("%s asc,%s asc", e.cfg.FilterField, e.cfg.IDField),
		Rows:          rows,
	}
	if !c.IsZero() {
		q.FilterQueries = append(q.FilterQueries, e.CursorFilter(c))
	}
	return q
}

// Next writes the batch following start to w. A batch with Count 0 means
// nothing was left to extract.
func (e *Extractor) Next(ctx context.Context, start lifecycle.Cursor, w RecordWriter) (Batch, error) {
	batch := Batch{Range: lifecycle.Range{Start: start, End: start}}
	cursor := start

	for batch.Count < e.cfg.BatchSize {
		rows := e.cfg.PageSize
		if remaining := e.cfg.BatchSize - batch.Count; remaining < rows {
			rows = remaining
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return batch, err
			}
		}

		q := e.Query(cursor, rows)
		res, err := e.searcher.Select(ctx, e.cfg.Collection, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return batch, ctxErr
			}
			return batch, lifecycle.NewQueryError(e.searcher.SelectURL(e.cfg.Collection, q), err)
		}

		e.logger.Debug("fetched page",
			"cursor", cursor.String(),
			"rows", rows,
			"docs", len(res.Docs),
			"num_found", res.NumFound,
		)

		if len(res.Docs) == 0 {
			batch.Exhausted = true
			break
		}

		for _, doc := range res.Docs {
			next, err := e.cursorOf(doc)
			if err != nil {
				return batch, lifecycle.NewQueryError(e.searcher.SelectURL(e.cfg.Collection, q), err)
			}
			if err := w.Write(doc.Without(e.cfg.ExcludeFields...)); err != nil {
				return batch, fmt.Errorf("failed to write record %s: %w", next, err)
			}
			cursor = next
			batch.Count++
			if batch.Count >= e.cfg.BatchSize {
				break
			}
		}
		batch.Range.End = cursor

		if e.progress != nil {
			e.progress(batch.Count)
		}
	}

	return batch, nil
}

func (e *Extractor) cursorOf(doc record.Record) (lifecycle.Cursor, error) {
	v, ok := doc.Get(e.cfg.FilterField)
	if !ok {
		return lifecycle.Cursor{}, fmt.Errorf("document has no %q field", e.cfg.FilterField)
	}
	id, ok := doc.Get(e.cfg.IDField)
	if !ok {
		return lifecycle.Cursor{}, fmt.Errorf("document has no %q field", e.cfg.IDField)
	}
	return lifecycle.Cursor{Value: v.String(), ID: id.String()}, nil
}
