package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARCHIVIST_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention ARCHIVIST_SECTION_FIELD (e.g., ARCHIVIST_INDEX_URL).
// Environment variables always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Read loads the file at path, if any, and applies environment overrides.
// Defaults and validation are left to the caller, which may still layer
// command-line flags on top. An empty path yields an empty configuration.
func Read(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Malformed numeric or boolean values are reported rather
// than ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	str := func(name string, dst *string) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok && val != "" {
			*dst = val
		}
	}
	boolean := func(name string, dst *bool) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok && val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: "must be a boolean"})
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok && val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: "must be an integer"})
				return
			}
			*dst = i
		}
	}

	str("MODE", &cfg.Mode)
	str("WORK_DIR", &cfg.WorkDir)
	boolean("IGNORE_UNFINISHED_UPLOADING", &cfg.IgnoreUnfinishedUploading)

	str("INDEX_URL", &cfg.Index.URL)
	str("INDEX_COLLECTION", &cfg.Index.Collection)
	str("INDEX_FILTER_FIELD", &cfg.Index.FilterField)
	str("INDEX_ID_FIELD", &cfg.Index.IDField)
	str("INDEX_ADDITIONAL_FILTER", &cfg.Index.AdditionalFilter)
	if val := os.Getenv(EnvPrefix + "INDEX_EXCLUDE_FIELDS"); val != "" {
		cfg.Index.ExcludeFields = SplitList(val)
	}
	str("INDEX_KERBEROS_KEYTAB", &cfg.Index.Kerberos.Keytab)
	str("INDEX_KERBEROS_PRINCIPAL", &cfg.Index.Kerberos.Principal)
	if val := os.Getenv(EnvPrefix + "INDEX_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			errs = append(errs, FieldError{Field: EnvPrefix + "INDEX_TIMEOUT", Message: "must be a duration"})
		} else {
			cfg.Index.Timeout = d
		}
	}
	boolean("INDEX_INSECURE_SKIP_VERIFY", &cfg.Index.InsecureSkipVerify)

	str("RANGE_END", &cfg.Range.End)
	if val := os.Getenv(EnvPrefix + "RANGE_DAYS"); val != "" {
		days, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, FieldError{Field: EnvPrefix + "RANGE_DAYS", Message: "must be an integer"})
		} else {
			cfg.Range.Days = &days
		}
	}
	str("RANGE_DATE_FORMAT", &cfg.Range.DateFormat)

	integer("EXTRACT_READ_BLOCK_SIZE", &cfg.Extract.ReadBlockSize)
	integer("EXTRACT_WRITE_BLOCK_SIZE", &cfg.Extract.WriteBlockSize)
	if val := os.Getenv(EnvPrefix + "EXTRACT_MAX_QUERIES_PER_SECOND"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			errs = append(errs, FieldError{Field: EnvPrefix + "EXTRACT_MAX_QUERIES_PER_SECOND", Message: "must be a number"})
		} else {
			cfg.Extract.MaxQueriesPerSecond = f
		}
	}

	str("OUTPUT_COMPRESSION", &cfg.Output.Compression)
	str("OUTPUT_NAME", &cfg.Output.Name)
	boolean("OUTPUT_JSON_FILE", &cfg.Output.JSONFile)

	str("DESTINATION_SOLR_COLLECTION", &cfg.Destination.Solr.Collection)
	str("DESTINATION_HDFS_USER", &cfg.Destination.HDFS.User)
	str("DESTINATION_HDFS_PATH", &cfg.Destination.HDFS.Path)
	str("DESTINATION_HDFS_KEYTAB", &cfg.Destination.HDFS.Keytab)
	str("DESTINATION_HDFS_PRINCIPAL", &cfg.Destination.HDFS.Principal)
	str("DESTINATION_S3_KEY_FILE_PATH", &cfg.Destination.S3.KeyFilePath)
	str("DESTINATION_S3_BUCKET", &cfg.Destination.S3.Bucket)
	str("DESTINATION_S3_KEY_PREFIX", &cfg.Destination.S3.KeyPrefix)
	str("DESTINATION_S3_REGION", &cfg.Destination.S3.Region)
	str("DESTINATION_S3_ENDPOINT", &cfg.Destination.S3.Endpoint)
	str("DESTINATION_LOCAL_PATH", &cfg.Destination.Local.Path)

	boolean("JOURNAL_ENABLED", &cfg.Journal.Enabled)
	str("JOURNAL_PATH", &cfg.Journal.Path)
	str("JOURNAL_DRIVER", &cfg.Journal.Driver)

	str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	str("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	str("TELEMETRY_METRICS_TEXTFILE_PATH", &cfg.Telemetry.Metrics.TextfilePath)
	str("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	boolean("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)

	str("SCHEDULE_CRON", &cfg.Schedule.Cron)
	boolean("SCHEDULE_WATCH_CONFIG", &cfg.Schedule.WatchConfig)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
