package config

import "time"

// Config is the root configuration of an archivist run.
type Config struct {
	// Mode is one of archive, save or delete.
	Mode string `yaml:"mode"`

	// WorkDir is the root under which each collection gets its own working
	// directory holding the intent ledger and batch files.
	// Default: /tmp/archivist
	WorkDir string `yaml:"work_dir"`

	// IgnoreUnfinishedUploading drops a pending ledger entry that still owes
	// an upload instead of replaying it.
	IgnoreUnfinishedUploading bool `yaml:"ignore_unfinished_uploading"`

	// Index describes the source collection.
	Index IndexConfig `yaml:"index"`

	// Range selects the cutoff.
	Range RangeConfig `yaml:"range"`

	// Extract controls paging.
	Extract ExtractConfig `yaml:"extract"`

	// Output controls the artifact format and name.
	Output OutputConfig `yaml:"output"`

	// Destination selects where artifacts are stored. Exactly one group is
	// set for archive and save modes.
	Destination DestinationConfig `yaml:"destination"`

	// Journal records committed batches.
	Journal JournalConfig `yaml:"journal"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Schedule configures repeated runs for the schedule command.
	Schedule ScheduleConfig `yaml:"schedule"`
}

// IndexConfig describes the Solr collection documents are archived from.
type IndexConfig struct {
	// URL is the Solr base URL, e.g. http://host:8886/solr.
	URL string `yaml:"url"`

	Collection string `yaml:"collection"`

	// FilterField is the boundary field, usually a timestamp.
	FilterField string `yaml:"filter_field"`

	// IDField breaks ties between equal boundary values.
	// Default: id
	IDField string `yaml:"id_field"`

	// AdditionalFilter is an extra query restricting which documents are
	// archived and purged.
	AdditionalFilter string `yaml:"additional_filter"`

	// ExcludeFields are dropped from archived documents. When the
	// destination is a Solr collection this defaults to [_version_].
	ExcludeFields []string `yaml:"exclude_fields"`

	// Kerberos enables SPNEGO access through curl.
	Kerberos KerberosConfig `yaml:"kerberos"`

	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// InsecureSkipVerify disables TLS certificate checks.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// KerberosConfig holds a keytab and principal for kinit.
type KerberosConfig struct {
	Keytab    string `yaml:"keytab"`
	Principal string `yaml:"principal"`
}

// Enabled reports whether kerberos is configured.
func (k KerberosConfig) Enabled() bool {
	return k.Keytab != "" && k.Principal != ""
}

// RangeConfig selects the cutoff. Exactly one of End or Days is set.
type RangeConfig struct {
	// End is used verbatim as the inclusive upper bound.
	End string `yaml:"end"`

	// Days is a retention period counted back from now.
	Days *int `yaml:"days"`

	// DateFormat is the strftime pattern used with Days.
	// Default: %Y-%m-%dT%H:%M:%S.%fZ
	DateFormat string `yaml:"date_format"`
}

// ExtractConfig controls paging through the index.
type ExtractConfig struct {
	// ReadBlockSize is the number of rows per query.
	// Default: 1000
	ReadBlockSize int `yaml:"read_block_size"`

	// WriteBlockSize is the number of records per batch and artifact.
	// Default: 100000
	WriteBlockSize int `yaml:"write_block_size"`

	// MaxQueriesPerSecond throttles page queries. Zero means unlimited.
	MaxQueriesPerSecond float64 `yaml:"max_queries_per_second"`
}

// OutputConfig controls artifacts.
type OutputConfig struct {
	// Compression is one of none, gz, tar.gz, tar.bz2, zip, zst.
	// Default: gz
	Compression string `yaml:"compression"`

	// Name is inserted into artifact names to keep runs with different
	// filters apart.
	Name string `yaml:"name"`

	// JSONFile writes the batch as a JSON array instead of one object per line.
	JSONFile bool `yaml:"json_file"`
}

// DestinationConfig holds the destination groups.
type DestinationConfig struct {
	Solr  SolrDestinationConfig `yaml:"solr"`
	HDFS  HDFSConfig            `yaml:"hdfs"`
	S3    S3Config              `yaml:"s3"`
	Local LocalConfig           `yaml:"local"`
}

// Destination kinds.
const (
	KindSolr  = "solr"
	KindHDFS  = "hdfs"
	KindS3    = "s3"
	KindLocal = "local"
)

// Configured returns the kinds of every group with at least one field set.
func (d DestinationConfig) Configured() []string {
	var kinds []string
	if d.Solr.Collection != "" {
		kinds = append(kinds, KindSolr)
	}
	if d.HDFS != (HDFSConfig{}) {
		kinds = append(kinds, KindHDFS)
	}
	if d.S3.KeyFilePath != "" || d.S3.Bucket != "" || d.S3.KeyPrefix != "" {
		kinds = append(kinds, KindS3)
	}
	if d.Local.Path != "" {
		kinds = append(kinds, KindLocal)
	}
	return kinds
}

// Kind returns the single configured kind, or "" when none or several are.
func (d DestinationConfig) Kind() string {
	kinds := d.Configured()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// SolrDestinationConfig posts archived documents into another collection.
type SolrDestinationConfig struct {
	Collection string `yaml:"collection"`
}

// HDFSConfig uploads with the hadoop CLI.
type HDFSConfig struct {
	// User runs the hadoop commands through sudo.
	User string `yaml:"user"`

	// Path is the target directory.
	Path string `yaml:"path"`

	Keytab    string `yaml:"keytab"`
	Principal string `yaml:"principal"`
}

// S3Config uploads to an S3 bucket.
type S3Config struct {
	// KeyFilePath points at a file containing "<access key>,<secret key>".
	KeyFilePath string `yaml:"key_file_path"`

	Bucket    string `yaml:"bucket"`
	KeyPrefix string `yaml:"key_prefix"`

	// Default: us-east-1
	Region string `yaml:"region"`

	// Endpoint selects an S3 compatible store, addressed path-style.
	Endpoint string `yaml:"endpoint"`
}

// LocalConfig moves artifacts into a local directory.
type LocalConfig struct {
	Path string `yaml:"path"`
}

// JournalConfig configures the batch journal.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the database file.
	// Default: <work_dir>/journal.db
	Path string `yaml:"path"`

	// Driver is sqlite (pure Go) or sqlite3 (cgo).
	// Default: sqlite
	Driver string `yaml:"driver"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is json, text or console.
	// Default: text
	Format string `yaml:"format"`

	AddSource bool `yaml:"add_source"`

	// RedactPatterns are extra regular expressions masked in log output.
	RedactPatterns []string `yaml:"redact_patterns"`
}

// MetricsConfig configures prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Default: archivist
	Namespace string `yaml:"namespace"`

	// TextfilePath, if set, receives the metrics after every run in the
	// node exporter textfile format.
	TextfilePath string `yaml:"textfile_path"`

	// ListenAddress serves /metrics while the schedule command runs.
	ListenAddress string `yaml:"listen_address"`
}

// TracingConfig configures OpenTelemetry tracing of pipeline steps.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Default: archivist
	ServiceName string `yaml:"service_name"`

	// Sampler is always, never or ratio.
	// Default: always
	Sampler string `yaml:"sampler"`

	// SampleRatio is used with the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Timeout bounds a single export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// ScheduleConfig configures the schedule command.
type ScheduleConfig struct {
	// Cron is a standard five field cron expression.
	Cron string `yaml:"cron"`

	// WatchConfig reloads the configuration file when it changes.
	WatchConfig bool `yaml:"watch_config"`
}
