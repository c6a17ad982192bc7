package config

import (
	"path/filepath"
	"time"
)

// Default values for configuration fields.
const (
	DefaultMode        = "archive"
	DefaultWorkDir     = "/tmp/archivist"
	DefaultIDField     = "id"
	DefaultDateFormat  = "%Y-%m-%dT%H:%M:%S.%fZ"
	DefaultCompression = "gz"

	DefaultReadBlockSize  = 1000
	DefaultWriteBlockSize = 100000

	DefaultS3Region = "us-east-1"

	DefaultJournalDriver = "sqlite"
	DefaultJournalFile   = "journal.db"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultMetricsNamespace = "archivist"

	DefaultTracingServiceName = "archivist"
	DefaultTracingSampler     = "always"
	DefaultTracingTimeout     = 10 * time.Second
)

// DefaultSolrExcludeFields are dropped when archiving into another
// collection, which assigns its own versions.
var DefaultSolrExcludeFields = []string{"_version_"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields. It is idempotent so it can run again
// after command-line overrides.
func ApplyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = DefaultMode
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = DefaultWorkDir
	}

	if cfg.Index.IDField == "" {
		cfg.Index.IDField = DefaultIDField
	}
	if cfg.Index.ExcludeFields == nil && cfg.Destination.Solr.Collection != "" {
		cfg.Index.ExcludeFields = append([]string(nil), DefaultSolrExcludeFields...)
	}

	if cfg.Range.DateFormat == "" {
		cfg.Range.DateFormat = DefaultDateFormat
	}

	if cfg.Extract.ReadBlockSize == 0 {
		cfg.Extract.ReadBlockSize = DefaultReadBlockSize
	}
	if cfg.Extract.WriteBlockSize == 0 {
		cfg.Extract.WriteBlockSize = DefaultWriteBlockSize
	}

	if cfg.Output.Compression == "" {
		cfg.Output.Compression = DefaultCompression
		if cfg.Destination.Solr.Collection != "" {
			cfg.Output.Compression = "none"
		}
	}

	if cfg.Destination.S3.Region == "" && cfg.Destination.S3.Bucket != "" {
		cfg.Destination.S3.Region = DefaultS3Region
	}

	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = DefaultJournalDriver
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = filepath.Join(cfg.WorkDir, DefaultJournalFile)
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}

	tr := &cfg.Telemetry.Tracing
	if tr.ServiceName == "" {
		tr.ServiceName = DefaultTracingServiceName
	}
	if tr.Sampler == "" {
		tr.Sampler = DefaultTracingSampler
	}
	if tr.Sampler == "ratio" && tr.SampleRatio == 0 {
		tr.SampleRatio = 1.0
	}
	if tr.Timeout == 0 {
		tr.Timeout = DefaultTracingTimeout
	}
}
