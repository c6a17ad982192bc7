package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/destination"
	"mercator-hq/archivist/pkg/extract"
	"mercator-hq/archivist/pkg/journal"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/packager"
	"mercator-hq/archivist/pkg/purge"
	"mercator-hq/archivist/pkg/telemetry/logging"
	"mercator-hq/archivist/pkg/telemetry/metrics"
	"mercator-hq/archivist/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// WorkingFileName is the batch file inside the working directory.
const WorkingFileName = "batch.json"

// Options are the resolved settings of one run.
type Options struct {
	Mode    lifecycle.Mode
	SolrURL string

	// Extract carries the collection, fields, cutoff and page sizes.
	Extract extract.Config

	// RunName is inserted into artifact names.
	RunName string

	Compression packager.Compression
	Format      extract.Format

	// WorkDir is the per-collection working directory holding the ledger
	// and batch files.
	WorkDir string

	// IgnoreUnfinishedUploading drops a pending entry that owes an upload.
	IgnoreUnfinishedUploading bool

	// MetricsTextfile receives the metrics when the run ends.
	MetricsTextfile string
}

// Scope returns the purge scope of the run.
func (o Options) Scope() purge.Scope {
	return purge.Scope{
		Collection:       o.Extract.Collection,
		FilterField:      o.Extract.FilterField,
		IDField:          o.Extract.IDField,
		AdditionalFilter: o.Extract.AdditionalFilter,
	}
}

// Deps are the services a run uses.
type Deps struct {
	Searcher extract.Searcher
	Deleter  purge.Deleter

	// Destination stores artifacts; nil in delete mode.
	Destination destination.Destination

	// Rebuild recreates the destination recorded in a ledger entry.
	Rebuild func(spec ledger.UploadSpec) (destination.Destination, error)

	// Journal, Metrics and Tracer are optional.
	Journal *journal.Journal
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	// Progress is called with the batch sequence and its running record count.
	Progress func(seq, written int)

	Logger *slog.Logger
}

// Summary describes a finished run.
type Summary struct {
	RunID     string         `json:"run_id"`
	Mode      lifecycle.Mode `json:"mode"`
	Cutoff    string         `json:"cutoff"`
	Records   int            `json:"records"`
	Batches   int            `json:"batches"`
	Artifacts []string       `json:"artifacts,omitempty"`

	// Replayed is set when a pending ledger entry was completed.
	Replayed bool `json:"replayed"`

	// Last is the end cursor of the last committed batch.
	Last    lifecycle.Cursor `json:"last"`
	Elapsed time.Duration    `json:"elapsed"`
}

// Runner executes one run.
type Runner struct {
	opts      Options
	deps      Deps
	extractor *extract.Extractor
	purger    *purge.Purger
	ledger    *ledger.Ledger
	logger    *slog.Logger
}

// New creates a Runner.
func New(opts Options, deps Deps) (*Runner, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Mode.Uploads() && deps.Destination == nil {
		return nil, lifecycle.NewConfigurationError("destination", fmt.Sprintf("%s mode requires a destination", opts.Mode))
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector(&config.MetricsConfig{}, nil)
	}

	logger := deps.Logger.With("component", "pipeline")
	r := &Runner{
		opts:   opts,
		deps:   deps,
		purger: purge.New(deps.Deleter, deps.Logger),
		ledger: ledger.New(opts.WorkDir, deps.Logger),
		logger: logger,
	}
	if opts.Mode.Uploads() {
		r.extractor = extract.New(opts.Extract, deps.Searcher, deps.Logger)
	}
	return r, nil
}

// Ledger returns the ledger of the run's working directory.
func (r *Runner) Ledger() *ledger.Ledger {
	return r.ledger
}

// Run executes the run. The summary is filled in as far as the run got,
// also when an error is returned.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{
		RunID:  journal.NewRunID(),
		Mode:   r.opts.Mode,
		Cutoff: r.opts.Extract.Cutoff,
	}
	ctx = logging.WithCollection(logging.WithRunID(ctx, summary.RunID), r.opts.Extract.Collection)
	ctx, endSpan := r.deps.Tracer.Step(ctx, tracing.SpanRun,
		tracing.RunAttributes(summary.RunID, r.opts.Mode, r.opts.Extract.Collection, r.opts.Extract.Cutoff)...)

	r.logger.InfoContext(ctx, "run started",
		"mode", r.opts.Mode,
		"cutoff", r.opts.Extract.Cutoff,
		"work_dir", r.opts.WorkDir,
	)

	var err error
	switch r.opts.Mode {
	case lifecycle.ModeDelete:
		err = r.runDelete(ctx)
	case lifecycle.ModeArchive, lifecycle.ModeSave:
		err = r.runBatches(ctx, &summary)
	default:
		err = lifecycle.NewConfigurationError("mode", fmt.Sprintf("unknown mode %q", r.opts.Mode))
	}
	summary.Elapsed = time.Since(start)
	endSpan(err)

	if err != nil {
		r.deps.Metrics.RecordFailure(lifecycle.Classify(err))
		r.logger.ErrorContext(ctx, "run failed",
			"kind", lifecycle.Classify(err),
			"records", summary.Records,
			"batches", summary.Batches,
			"error", err,
		)
	} else {
		r.deps.Metrics.MarkSuccess(time.Now())
		r.logger.InfoContext(ctx, "run finished",
			"records", summary.Records,
			"batches", summary.Batches,
			"elapsed", summary.Elapsed.Round(time.Millisecond).String(),
		)
	}

	if werr := r.deps.Metrics.WriteTextfile(r.opts.MetricsTextfile); werr != nil {
		r.logger.Warn("failed to write metrics textfile", "path", r.opts.MetricsTextfile, "error", werr)
	}
	return summary, err
}

func (r *Runner) runDelete(ctx context.Context) error {
	if pending, err := r.ledger.Load(); err == nil && pending != nil {
		r.logger.WarnContext(ctx, "pending ledger entry left untouched by delete mode", "path", r.ledger.Path())
	}

	begin := time.Now()
	pctx, endSpan := r.deps.Tracer.Step(ctx, tracing.SpanPurge)
	err := r.purger.PurgeBefore(pctx, r.opts.Scope(), r.opts.Extract.Cutoff)
	endSpan(err)
	if err != nil {
		return err
	}
	r.deps.Metrics.ObserveStep(metrics.StepPurge, time.Since(begin))
	r.deps.Metrics.RecordBatch(metrics.StagePurged)
	return nil
}

func (r *Runner) runBatches(ctx context.Context, summary *Summary) error {
	replayed, err := r.Replay(ctx)
	if err != nil {
		return err
	}
	summary.Replayed = replayed

	cursor := lifecycle.Cursor{}
	for seq := 1; ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := r.commitBatch(ctx, seq, &cursor, summary)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// commitBatch extracts and commits the batch following cursor. It reports
// done when nothing is left to extract.
func (r *Runner) commitBatch(ctx context.Context, seq int, cursor *lifecycle.Cursor, summary *Summary) (bool, error) {
	working := filepath.Join(r.opts.WorkDir, WorkingFileName)

	begin := time.Now()
	w, err := extract.Create(working, r.opts.Format)
	if err != nil {
		return false, err
	}
	if r.deps.Progress != nil {
		r.extractor.OnProgress(func(written int) { r.deps.Progress(seq, written) })
	}
	ectx, endSpan := r.deps.Tracer.Step(ctx, tracing.SpanExtract, attribute.Int(tracing.AttrSequence, seq))
	batch, err := r.extractor.Next(ectx, *cursor, w)
	if closeErr := w.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close working file: %w", closeErr)
	}
	if err == nil {
		tracing.SpanFromContext(ectx).SetAttributes(tracing.BatchAttributes(seq, batch.Count, batch.Range)...)
	}
	endSpan(err)
	if err != nil {
		return false, err
	}

	if batch.Count == 0 {
		if err := os.Remove(working); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, err
		}
		return true, nil
	}
	r.deps.Metrics.ObserveStep(metrics.StepExtract, time.Since(begin))
	r.deps.Metrics.RecordBatch(metrics.StageExtracted)

	r.logger.InfoContext(ctx, "batch extracted",
		"sequence", seq,
		"records", batch.Count,
		"start", batch.Range.Start.String(),
		"end", batch.Range.End.String(),
	)

	if err := ctx.Err(); err != nil {
		return false, err
	}
	begin = time.Now()
	name := packager.ArtifactName(r.opts.Extract.Collection, r.opts.RunName, batch.Range.End)
	_, endSpan = r.deps.Tracer.Step(ctx, tracing.SpanPackage,
		attribute.String(tracing.AttrArtifact, name),
		attribute.String(tracing.AttrCompression, string(r.opts.Compression)),
	)
	artifact, err := packager.Package(working, name, r.opts.Compression)
	endSpan(err)
	if err != nil {
		return false, err
	}
	r.deps.Metrics.ObserveStep(metrics.StepPackage, time.Since(begin))

	if err := ctx.Err(); err != nil {
		return false, err
	}
	upload := r.deps.Destination.Spec(artifact)
	entry := ledger.Entry{Upload: &upload}
	var del *ledger.DeleteSpec
	if r.opts.Mode.Purges() {
		spec := r.purger.Spec(r.opts.Scope(), batch.Range.End)
		del = &spec
		entry.Delete = del
	}
	if err := r.ledger.Record(entry); err != nil {
		return false, err
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}
	begin = time.Now()
	uctx, endSpan := r.deps.Tracer.Step(ctx, tracing.SpanUpload,
		attribute.String(tracing.AttrArtifact, filepath.Base(artifact)),
		attribute.String(tracing.AttrDestination, r.deps.Destination.Kind()),
	)
	err = r.deps.Destination.Upload(uctx, artifact)
	endSpan(err)
	if err != nil {
		return false, err
	}
	r.deps.Metrics.ObserveStep(metrics.StepUpload, time.Since(begin))
	r.deps.Metrics.RecordBatch(metrics.StageUploaded)

	if del != nil {
		if err := r.ledger.Record(ledger.Entry{Delete: del}); err != nil {
			return false, err
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		begin = time.Now()
		pctx, endSpan := r.deps.Tracer.Step(ctx, tracing.SpanPurge, attribute.String(tracing.AttrRangeEnd, batch.Range.End.String()))
		err := r.purger.PurgeRange(pctx, *del)
		endSpan(err)
		if err != nil {
			return false, err
		}
		r.deps.Metrics.ObserveStep(metrics.StepPurge, time.Since(begin))
		r.deps.Metrics.RecordBatch(metrics.StagePurged)
	}

	if err := r.ledger.Clear(); err != nil {
		return false, err
	}

	summary.Records += batch.Count
	summary.Batches++
	summary.Artifacts = append(summary.Artifacts, filepath.Base(artifact))
	summary.Last = batch.Range.End
	r.deps.Metrics.AddRecords(batch.Count)
	r.journal(ctx, summary.RunID, seq, batch, artifact, del != nil)

	*cursor = batch.Range.End
	return batch.Exhausted, nil
}

func (r *Runner) journal(ctx context.Context, runID string, seq int, batch extract.Batch, artifact string, purged bool) {
	if r.deps.Journal == nil {
		return
	}
	err := r.deps.Journal.Record(ctx, &journal.Entry{
		RunID:       runID,
		Mode:        r.opts.Mode,
		SolrURL:     r.opts.SolrURL,
		Collection:  r.opts.Extract.Collection,
		Sequence:    seq,
		Range:       batch.Range,
		Records:     batch.Count,
		Artifact:    filepath.Base(artifact),
		Destination: r.deps.Destination.Kind(),
		Purged:      purged,
	})
	if err != nil {
		// The batch is committed; losing its history line is not fatal.
		r.logger.WarnContext(ctx, "failed to journal batch", "sequence", seq, "error", err)
	}
}

// Replay completes the work owed by a pending ledger entry. It reports
// whether there was one.
func (r *Runner) Replay(ctx context.Context) (replayed bool, err error) {
	entry, err := r.ledger.Load()
	if err != nil || entry == nil {
		return false, err
	}

	ctx, endSpan := r.deps.Tracer.Step(ctx, tracing.SpanReplay,
		attribute.Bool("archivist.replay.upload", entry.Upload != nil),
		attribute.Bool("archivist.replay.delete", entry.Delete != nil),
	)
	defer func() { endSpan(err) }()

	if entry.Upload != nil && r.opts.IgnoreUnfinishedUploading {
		r.logger.WarnContext(ctx, "discarding pending ledger entry",
			"artifact", entry.Upload.UploadFilePath,
			"upload", entry.Upload.Command,
		)
		return true, r.ledger.Clear()
	}

	if entry.Upload != nil {
		r.logger.InfoContext(ctx, "replaying pending upload", "command", entry.Upload.Command)
		if r.deps.Rebuild == nil {
			return false, lifecycle.NewConfigurationError("ledger", "cannot rebuild the destination of a pending upload")
		}
		dest, err := r.deps.Rebuild(*entry.Upload)
		if err != nil {
			return false, err
		}
		if err := dest.Upload(ctx, entry.Upload.UploadFilePath); err != nil {
			return false, err
		}
		if entry.Delete != nil {
			if err := r.ledger.Record(ledger.Entry{Delete: entry.Delete}); err != nil {
				return false, err
			}
		}
	}

	if entry.Delete != nil {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		r.logger.InfoContext(ctx, "replaying pending delete", "command", entry.Delete.Command)
		if err := r.purger.PurgeRange(ctx, *entry.Delete); err != nil {
			return false, err
		}
	}

	if err := r.ledger.Clear(); err != nil {
		return false, err
	}
	r.logger.InfoContext(ctx, "pending ledger entry completed")
	return true, nil
}
