package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/telemetry/logging"
	"mercator-hq/archivist/pkg/telemetry/tracing"
)

// runOptions are the command-line overrides shared by every command that
// touches a collection. Unset flags leave the configuration file alone.
type runOptions struct {
	solrURL          string
	collection       string
	filterField      string
	idField          string
	end              string
	days             int
	dateFormat       string
	additionalFilter string
	name             string
	readBlockSize    int
	writeBlockSize   int
	compression      string
	jsonFile         bool
	excludeFields    string
	ignoreUnfinished bool
	workDir          string

	solrKeytab    string
	solrPrincipal string

	hdfsKeytab    string
	hdfsPrincipal string
	hdfsUser      string
	hdfsPath      string

	keyFilePath string
	bucket      string
	keyPrefix   string

	localPath            string
	solrOutputCollection string
}

func bindRunFlags(cmd *cobra.Command, o *runOptions) {
	f := cmd.Flags()

	f.StringVarP(&o.solrURL, "solr-url", "s", "", "the url of the solr server including the port and protocol")
	f.StringVarP(&o.collection, "collection", "c", "", "the name of the solr collection")
	f.StringVarP(&o.filterField, "filter-field", "f", "", "the name of the field to filter on")
	f.StringVarP(&o.idField, "id-field", "i", "", "the name of the id field (default id)")
	f.StringVarP(&o.end, "end", "e", "", "end of the range, used verbatim")
	f.IntVarP(&o.days, "days", "d", 0, "number of days to keep")
	f.StringVarP(&o.dateFormat, "date-format", "o", "", "strftime format used with --days")
	f.StringVarP(&o.additionalFilter, "additional-filter", "q", "", "additional solr filter")
	f.StringVarP(&o.name, "name", "j", "", "name included in artifact names")
	f.IntVarP(&o.readBlockSize, "read-block-size", "r", 0, "number of records to read in one query")
	f.IntVarP(&o.writeBlockSize, "write-block-size", "w", 0, "number of records per batch and artifact")
	f.StringVarP(&o.compression, "compression", "z", "", "none, gz, tar.gz, tar.bz2, zip or zst")
	f.BoolVar(&o.jsonFile, "json-file", false, "write batches as a JSON array instead of one object per line")
	f.StringVar(&o.excludeFields, "exclude-fields", "", "comma separated fields to leave out of archived documents")
	f.BoolVarP(&o.ignoreUnfinished, "ignore-unfinished-uploading", "g", false, "drop a pending upload instead of replaying it")
	f.StringVar(&o.workDir, "work-dir", "", "root of the working directories (default /tmp/archivist)")

	f.StringVarP(&o.solrKeytab, "solr-keytab", "k", "", "kerberos keytab for solr")
	f.StringVarP(&o.solrPrincipal, "solr-principal", "n", "", "kerberos principal for solr")

	f.StringVarP(&o.hdfsKeytab, "hdfs-keytab", "a", "", "kerberos keytab for hdfs")
	f.StringVarP(&o.hdfsPrincipal, "hdfs-principal", "l", "", "kerberos principal for hdfs")
	f.StringVarP(&o.hdfsUser, "hdfs-user", "u", "", "the user to run the hadoop commands as")
	f.StringVarP(&o.hdfsPath, "hdfs-path", "p", "", "the hdfs directory to upload to")

	f.StringVarP(&o.keyFilePath, "key-file-path", "t", "", "file holding the s3 access and secret key")
	f.StringVarP(&o.bucket, "bucket", "b", "", "the s3 bucket")
	f.StringVarP(&o.keyPrefix, "key-prefix", "y", "", "prefix of the s3 keys")

	f.StringVarP(&o.localPath, "local-path", "x", "", "local directory to move artifacts into")
	f.StringVar(&o.solrOutputCollection, "solr-output-collection", "", "collection to post archived documents into")
}

// apply copies every flag the user set onto cfg.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	str := func(flag, val string, dst *string) {
		if changed(flag) {
			*dst = val
		}
	}

	str("solr-url", o.solrURL, &cfg.Index.URL)
	str("collection", o.collection, &cfg.Index.Collection)
	str("filter-field", o.filterField, &cfg.Index.FilterField)
	str("id-field", o.idField, &cfg.Index.IDField)
	str("additional-filter", o.additionalFilter, &cfg.Index.AdditionalFilter)
	str("solr-keytab", o.solrKeytab, &cfg.Index.Kerberos.Keytab)
	str("solr-principal", o.solrPrincipal, &cfg.Index.Kerberos.Principal)
	if changed("exclude-fields") {
		cfg.Index.ExcludeFields = config.SplitList(o.excludeFields)
	}

	// Either flag replaces the configured range; both together are left
	// for validation to reject.
	days := o.days
	switch {
	case changed("end") && changed("days"):
		cfg.Range.End, cfg.Range.Days = o.end, &days
	case changed("end"):
		cfg.Range.End, cfg.Range.Days = o.end, nil
	case changed("days"):
		cfg.Range.End, cfg.Range.Days = "", &days
	}
	str("date-format", o.dateFormat, &cfg.Range.DateFormat)

	if changed("read-block-size") {
		cfg.Extract.ReadBlockSize = o.readBlockSize
	}
	if changed("write-block-size") {
		cfg.Extract.WriteBlockSize = o.writeBlockSize
	}

	str("compression", o.compression, &cfg.Output.Compression)
	str("name", o.name, &cfg.Output.Name)
	if changed("json-file") {
		cfg.Output.JSONFile = o.jsonFile
	}

	if changed("ignore-unfinished-uploading") {
		cfg.IgnoreUnfinishedUploading = o.ignoreUnfinished
	}
	str("work-dir", o.workDir, &cfg.WorkDir)

	str("solr-output-collection", o.solrOutputCollection, &cfg.Destination.Solr.Collection)
	str("hdfs-user", o.hdfsUser, &cfg.Destination.HDFS.User)
	str("hdfs-path", o.hdfsPath, &cfg.Destination.HDFS.Path)
	str("hdfs-keytab", o.hdfsKeytab, &cfg.Destination.HDFS.Keytab)
	str("hdfs-principal", o.hdfsPrincipal, &cfg.Destination.HDFS.Principal)
	str("key-file-path", o.keyFilePath, &cfg.Destination.S3.KeyFilePath)
	str("bucket", o.bucket, &cfg.Destination.S3.Bucket)
	str("key-prefix", o.keyPrefix, &cfg.Destination.S3.KeyPrefix)
	str("local-path", o.localPath, &cfg.Destination.Local.Path)
}

// readConfig layers the config file, environment and flags, then applies
// defaults. A non-empty mode overrides the configured one.
func readConfig(cmd *cobra.Command, o *runOptions, mode lifecycle.Mode) (*config.Config, error) {
	cfg, err := config.Read(cfgFile)
	if err != nil {
		return nil, configurationError(err)
	}
	if o != nil {
		o.apply(cmd, cfg)
	}
	if mode != "" {
		cfg.Mode = string(mode)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	config.ApplyDefaults(cfg)
	return cfg, nil
}

// loadConfig is readConfig followed by validation.
func loadConfig(cmd *cobra.Command, o *runOptions, mode lifecycle.Mode) (*config.Config, error) {
	cfg, err := readConfig(cmd, o, mode)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, configurationError(err)
	}
	return cfg, nil
}

func configurationError(err error) error {
	var verr config.ValidationError
	if errors.As(err, &verr) && len(verr.Errors) == 1 {
		return lifecycle.NewConfigurationError(verr.Errors[0].Field, verr.Errors[0].Message)
	}
	return &lifecycle.ConfigurationError{Message: "invalid configuration", Cause: err}
}

// newLogger builds the process logger from cfg and installs it as the
// slog default.
func newLogger(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:          cfg.Telemetry.Logging.Level,
		Format:         cfg.Telemetry.Logging.Format,
		AddSource:      cfg.Telemetry.Logging.AddSource,
		RedactPatterns: cfg.Telemetry.Logging.RedactPatterns,
		Writer:         w,
	})
	if err != nil {
		return nil, lifecycle.NewConfigurationError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())
	return logger, nil
}

// newTracer builds the span exporter from cfg. The returned function flushes
// it and must be called before exit.
func newTracer(cfg *config.Config, log *slog.Logger) (*tracing.Tracer, func(), error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithVersion(Version))
	if err != nil {
		return nil, nil, lifecycle.NewConfigurationError("telemetry.tracing", err.Error())
	}
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}
	return tracer, shutdown, nil
}
