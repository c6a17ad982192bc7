package pipeline

import (
	"log/slog"
	"time"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/cutoff"
	"mercator-hq/archivist/pkg/destination"
	"mercator-hq/archivist/pkg/extract"
	"mercator-hq/archivist/pkg/gateway"
	"mercator-hq/archivist/pkg/journal"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/packager"
	"mercator-hq/archivist/pkg/solr"
	"mercator-hq/archivist/pkg/telemetry/metrics"
	"mercator-hq/archivist/pkg/telemetry/tracing"
)

// Env carries process level services shared by runs.
type Env struct {
	// Runner executes external programs. Default: gateway.NewExecRunner.
	Runner gateway.Runner

	Metrics  *metrics.Collector
	Tracer   *tracing.Tracer
	Progress func(seq, written int)
	Logger   *slog.Logger

	// Now is the clock used for rolling cutoffs. Default: time.Now.
	Now func() time.Time
}

// Built is a runner together with the resources it owns.
type Built struct {
	*Runner
	Options Options
	Solr    *solr.Client
	Journal *journal.Journal
}

// Close releases the journal.
func (b *Built) Close() error {
	if b.Journal != nil {
		return b.Journal.Close()
	}
	return nil
}

// NewSolrClient returns a client for the source index, going through curl
// with kerberos when a keytab is configured.
func NewSolrClient(cfg config.IndexConfig, runner gateway.Runner, logger *slog.Logger) *solr.Client {
	var transport solr.Transport
	if cfg.Kerberos.Enabled() {
		auth := &gateway.Kinit{Runner: runner, Keytab: cfg.Kerberos.Keytab, Principal: cfg.Kerberos.Principal}
		transport = solr.NewCurlTransport(runner, auth, logger)
	} else {
		transport = solr.NewHTTPTransport(solr.HTTPConfig{
			Timeout:            cfg.Timeout,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}, logger)
	}
	return solr.NewClient(cfg.URL, transport, logger)
}

// Build resolves a validated configuration into a runner.
func Build(cfg *config.Config, env Env) (*Built, error) {
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	if env.Runner == nil {
		env.Runner = gateway.NewExecRunner(env.Logger)
	}
	if env.Now == nil {
		env.Now = time.Now
	}

	mode, err := lifecycle.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	compression, err := packager.ParseCompression(cfg.Output.Compression)
	if err != nil {
		return nil, err
	}

	spec := cutoff.Spec{End: cfg.Range.End, DateFormat: cfg.Range.DateFormat}
	if cfg.Range.Days != nil {
		spec.Days, spec.DaysSet = *cfg.Range.Days, true
	}
	end, err := cutoff.ResolveAndLog(spec, env.Now(), env.Logger)
	if err != nil {
		return nil, err
	}

	workDir, err := ledger.WorkDir(cfg.WorkDir, cfg.Index.URL, cfg.Index.Collection)
	if err != nil {
		return nil, lifecycle.NewConfigurationError("work_dir", err.Error())
	}

	client := NewSolrClient(cfg.Index, env.Runner, env.Logger)
	destDeps := destination.Deps{Runner: env.Runner, Solr: client, Logger: env.Logger}

	format := extract.FormatLines
	if cfg.Output.JSONFile {
		format = extract.FormatArray
	}

	opts := Options{
		Mode:    mode,
		SolrURL: cfg.Index.URL,
		Extract: extract.Config{
			Collection:          cfg.Index.Collection,
			FilterField:         cfg.Index.FilterField,
			IDField:             cfg.Index.IDField,
			Cutoff:              end,
			AdditionalFilter:    cfg.Index.AdditionalFilter,
			PageSize:            cfg.Extract.ReadBlockSize,
			BatchSize:           cfg.Extract.WriteBlockSize,
			ExcludeFields:       cfg.Index.ExcludeFields,
			MaxQueriesPerSecond: cfg.Extract.MaxQueriesPerSecond,
		},
		RunName:                   cfg.Output.Name,
		Compression:               compression,
		Format:                    format,
		WorkDir:                   workDir,
		IgnoreUnfinishedUploading: cfg.IgnoreUnfinishedUploading,
		MetricsTextfile:           cfg.Telemetry.Metrics.TextfilePath,
	}

	deps := Deps{
		Searcher: client,
		Deleter:  client,
		Rebuild: func(spec ledger.UploadSpec) (destination.Destination, error) {
			return destination.FromSpec(spec, destDeps)
		},
		Metrics:  env.Metrics,
		Tracer:   env.Tracer,
		Progress: env.Progress,
		Logger:   env.Logger,
	}
	if mode.Uploads() {
		if deps.Destination, err = destination.New(cfg.Destination, destDeps); err != nil {
			return nil, err
		}
	}

	built := &Built{Options: opts, Solr: client}
	if cfg.Journal.Enabled {
		if built.Journal, err = journal.Open(journal.Config{Path: cfg.Journal.Path, Driver: cfg.Journal.Driver}, env.Logger); err != nil {
			return nil, err
		}
		deps.Journal = built.Journal
	}

	if built.Runner, err = New(opts, deps); err != nil {
		built.Close()
		return nil, err
	}
	return built, nil
}
