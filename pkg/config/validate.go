package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/packager"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "index.url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	mode, err := lifecycle.ParseMode(cfg.Mode)
	if err != nil {
		errs = append(errs, FieldError{
			Field:   "mode",
			Message: fmt.Sprintf("must be one of %s", joinModes()),
		})
	}

	if cfg.WorkDir == "" {
		errs = append(errs, FieldError{Field: "work_dir", Message: "working directory is required"})
	}

	errs = append(errs, validateIndex(&cfg.Index)...)
	errs = append(errs, validateRange(&cfg.Range)...)
	errs = append(errs, validateExtract(&cfg.Extract)...)
	errs = append(errs, validateOutput(&cfg.Output)...)
	if mode != "" {
		errs = append(errs, validateDestination(mode, cfg)...)
	}
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSchedule(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func joinModes() string {
	names := make([]string, len(lifecycle.Modes))
	for i, m := range lifecycle.Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// validateIndex validates the source collection settings.
func validateIndex(cfg *IndexConfig) []FieldError {
	var errs []FieldError

	if cfg.URL == "" {
		errs = append(errs, FieldError{Field: "index.url", Message: "solr url is required"})
	} else if u, err := url.Parse(cfg.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{Field: "index.url", Message: fmt.Sprintf("invalid url %q", cfg.URL)})
	}
	if cfg.Collection == "" {
		errs = append(errs, FieldError{Field: "index.collection", Message: "collection is required"})
	}
	if cfg.FilterField == "" {
		errs = append(errs, FieldError{Field: "index.filter_field", Message: "filter field is required"})
	}
	if cfg.IDField == "" {
		errs = append(errs, FieldError{Field: "index.id_field", Message: "id field is required"})
	}
	if (cfg.Kerberos.Keytab == "") != (cfg.Kerberos.Principal == "") {
		errs = append(errs, FieldError{
			Field:   "index.kerberos",
			Message: "keytab and principal must be specified together",
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "index.timeout", Message: "timeout must not be negative"})
	}

	return errs
}

// validateRange requires exactly one way of obtaining the cutoff.
func validateRange(cfg *RangeConfig) []FieldError {
	var errs []FieldError

	switch {
	case cfg.End != "" && cfg.Days != nil:
		errs = append(errs, FieldError{Field: "range", Message: "only one of end or days may be specified"})
	case cfg.End == "" && cfg.Days == nil:
		errs = append(errs, FieldError{Field: "range", Message: "one of end or days is required"})
	case cfg.Days != nil && *cfg.Days < 0:
		errs = append(errs, FieldError{Field: "range.days", Message: "days must not be negative"})
	}

	return errs
}

func validateExtract(cfg *ExtractConfig) []FieldError {
	var errs []FieldError

	if cfg.ReadBlockSize <= 0 {
		errs = append(errs, FieldError{Field: "extract.read_block_size", Message: "must be positive"})
	}
	if cfg.WriteBlockSize <= 0 {
		errs = append(errs, FieldError{Field: "extract.write_block_size", Message: "must be positive"})
	}
	if cfg.MaxQueriesPerSecond < 0 {
		errs = append(errs, FieldError{Field: "extract.max_queries_per_second", Message: "must not be negative"})
	}

	return errs
}

func validateOutput(cfg *OutputConfig) []FieldError {
	var errs []FieldError

	if _, err := packager.ParseCompression(cfg.Compression); err != nil {
		names := make([]string, len(packager.Compressions))
		for i, c := range packager.Compressions {
			names[i] = string(c)
		}
		errs = append(errs, FieldError{
			Field:   "output.compression",
			Message: fmt.Sprintf("must be one of %s", strings.Join(names, ", ")),
		})
	}

	return errs
}

// validateDestination checks the destination groups against the mode.
func validateDestination(mode lifecycle.Mode, cfg *Config) []FieldError {
	var errs []FieldError
	d := &cfg.Destination
	kinds := d.Configured()

	if mode == lifecycle.ModeDelete {
		if cfg.Output.Name != "" {
			errs = append(errs, FieldError{Field: "output.name", Message: "not allowed in delete mode"})
		}
		if len(kinds) > 0 {
			errs = append(errs, FieldError{
				Field:   "destination",
				Message: fmt.Sprintf("not allowed in delete mode (found %s)", strings.Join(kinds, ", ")),
			})
		}
		if d.HDFS.Keytab != "" || d.HDFS.Principal != "" {
			errs = append(errs, FieldError{Field: "destination.hdfs", Message: "kerberos not allowed in delete mode"})
		}
		return errs
	}

	if len(kinds) != 1 {
		errs = append(errs, FieldError{
			Field: "destination",
			Message: "exactly one of solr (collection), hdfs (user, path), " +
				"s3 (key_file_path, bucket, key_prefix) or local (path) must be specified",
		})
	}

	if d.HDFS.User != "" || d.HDFS.Path != "" {
		if d.HDFS.User == "" || d.HDFS.Path == "" {
			errs = append(errs, FieldError{Field: "destination.hdfs", Message: "user and path must be specified together"})
		}
	}
	if (d.HDFS.Keytab == "") != (d.HDFS.Principal == "") {
		errs = append(errs, FieldError{Field: "destination.hdfs", Message: "keytab and principal must be specified together"})
	}
	if d.HDFS.Keytab != "" && (d.HDFS.User == "" || d.HDFS.Path == "") {
		errs = append(errs, FieldError{Field: "destination.hdfs", Message: "kerberos requires an hdfs destination"})
	}

	s3Set := 0
	for _, v := range []string{d.S3.KeyFilePath, d.S3.Bucket, d.S3.KeyPrefix} {
		if v != "" {
			s3Set++
		}
	}
	if s3Set > 0 && s3Set < 3 {
		errs = append(errs, FieldError{Field: "destination.s3", Message: "key_file_path, bucket and key_prefix must be specified together"})
	}
	if d.S3.Endpoint != "" {
		if u, err := url.Parse(d.S3.Endpoint); err != nil || u.Scheme == "" {
			errs = append(errs, FieldError{Field: "destination.s3.endpoint", Message: fmt.Sprintf("invalid url %q", d.S3.Endpoint)})
		}
	}

	if d.Solr.Collection != "" && cfg.Output.Compression != string(packager.None) {
		errs = append(errs, FieldError{Field: "output.compression", Message: "must be none when archiving into a solr collection"})
	}

	return errs
}

func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	if cfg.Driver != "sqlite" && cfg.Driver != "sqlite3" {
		errs = append(errs, FieldError{Field: "journal.driver", Message: "must be sqlite or sqlite3"})
	}
	if cfg.Enabled && cfg.Path == "" {
		errs = append(errs, FieldError{Field: "journal.path", Message: "path is required when the journal is enabled"})
	}

	return errs
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text", "console"}
	validSamplers   = []string{"always", "never", "ratio"}
)

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if !contains(validLogLevels, strings.ToLower(cfg.Logging.Level)) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of %s", strings.Join(validLogLevels, ", ")),
		})
	}
	if !contains(validLogFormats, strings.ToLower(cfg.Logging.Format)) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be one of %s", strings.Join(validLogFormats, ", ")),
		})
	}
	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d]", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if tr := cfg.Tracing; tr.Enabled {
		if tr.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
		if !contains(validSamplers, tr.Sampler) {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("must be one of %s", strings.Join(validSamplers, ", ")),
			})
		}
		if tr.SampleRatio < 0 || tr.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
		}
	}

	return errs
}

func validateSchedule(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.Schedule.Cron == "" {
		return nil
	}
	if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
		errs = append(errs, FieldError{
			Field:   "schedule.cron",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}
	if cfg.Range.End != "" {
		errs = append(errs, FieldError{
			Field:   "schedule.cron",
			Message: "scheduled runs need a rolling cutoff; use range.days instead of range.end",
		})
	}

	return errs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
