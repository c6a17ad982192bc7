package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	days := 7
	cfg := &Config{
		Mode: "archive",
		Index: IndexConfig{
			URL:         "http://solr:8886/solr",
			Collection:  "hadoop_logs",
			FilterField: "logtime",
		},
		Range: RangeConfig{Days: &days},
		Destination: DestinationConfig{
			HDFS: HDFSConfig{User: "hdfs", Path: "/archive"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		return nil
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	return verr.Errors
}

func hasField(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "copy" }, "mode"},
		{"missing url", func(c *Config) { c.Index.URL = "" }, "index.url"},
		{"bad url", func(c *Config) { c.Index.URL = "solr:8886" }, "index.url"},
		{"missing collection", func(c *Config) { c.Index.Collection = "" }, "index.collection"},
		{"missing filter field", func(c *Config) { c.Index.FilterField = "" }, "index.filter_field"},
		{"keytab without principal", func(c *Config) { c.Index.Kerberos.Keytab = "/k" }, "index.kerberos"},
		{"end and days", func(c *Config) { c.Range.End = "2024" }, "range"},
		{"neither end nor days", func(c *Config) { c.Range.Days = nil }, "range"},
		{"negative days", func(c *Config) { d := -1; c.Range.Days = &d }, "range.days"},
		{"zero read block", func(c *Config) { c.Extract.ReadBlockSize = -1 }, "extract.read_block_size"},
		{"unknown compression", func(c *Config) { c.Output.Compression = "rar" }, "output.compression"},
		{"no destination", func(c *Config) { c.Destination = DestinationConfig{} }, "destination"},
		{"two destinations", func(c *Config) { c.Destination.Local.Path = "/x" }, "destination"},
		{"hdfs user only", func(c *Config) { c.Destination.HDFS.Path = "" }, "destination.hdfs"},
		{"hdfs keytab only", func(c *Config) { c.Destination.HDFS.Keytab = "/k" }, "destination.hdfs"},
		{"partial s3", func(c *Config) {
			c.Destination = DestinationConfig{S3: S3Config{Bucket: "b", KeyPrefix: "p"}}
		}, "destination.s3"},
		{"solr destination compressed", func(c *Config) {
			c.Destination = DestinationConfig{Solr: SolrDestinationConfig{Collection: "archive"}}
			c.Output.Compression = "gz"
		}, "output.compression"},
		{"journal driver", func(c *Config) { c.Journal.Driver = "postgres" }, "journal.driver"},
		{"log level", func(c *Config) { c.Telemetry.Logging.Level = "verbose" }, "telemetry.logging.level"},
		{"redact pattern", func(c *Config) { c.Telemetry.Logging.RedactPatterns = []string{"("} }, "telemetry.logging.redact_patterns[0]"},
		{"tracing without endpoint", func(c *Config) { c.Telemetry.Tracing.Enabled = true }, "telemetry.tracing.endpoint"},
		{"tracing sampler", func(c *Config) {
			c.Telemetry.Tracing = TracingConfig{Enabled: true, Endpoint: "otel:4317", Sampler: "sometimes"}
		}, "telemetry.tracing.sampler"},
		{"tracing ratio", func(c *Config) {
			c.Telemetry.Tracing = TracingConfig{Enabled: true, Endpoint: "otel:4317", Sampler: "ratio", SampleRatio: 2}
		}, "telemetry.tracing.sample_ratio"},
		{"bad cron", func(c *Config) { c.Schedule.Cron = "every day" }, "schedule.cron"},
		{"cron with fixed end", func(c *Config) {
			c.Schedule.Cron = "0 3 * * *"
			c.Range.Days = nil
			c.Range.End = "2024"
		}, "schedule.cron"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := fieldErrors(t, Validate(cfg))
			if !hasField(errs, tt.field) {
				t.Errorf("expected error on %q, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidate_DeleteMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "delete"
	cfg.Destination = DestinationConfig{}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid delete config, got %v", err)
	}

	cfg.Output.Name = "nightly"
	cfg.Destination.Local.Path = "/archive"
	errs := fieldErrors(t, Validate(cfg))
	if !hasField(errs, "output.name") || !hasField(errs, "destination") {
		t.Errorf("expected name and destination errors, got %v", errs)
	}
}

func TestValidate_S3Complete(t *testing.T) {
	cfg := validConfig()
	cfg.Destination = DestinationConfig{S3: S3Config{KeyFilePath: "/k", Bucket: "b", KeyPrefix: "logs/"}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "index.url", Message: "solr url is required"},
		{Field: "range", Message: "one of end or days is required"},
	}}
	msg := err.Error()
	if !strings.Contains(msg, "2 errors") || !strings.Contains(msg, "index.url: solr url is required") {
		t.Errorf("unexpected message: %s", msg)
	}
}
