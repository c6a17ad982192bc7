package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/lifecycle"
)

func newFlagCmd(t *testing.T, args ...string) (*cobra.Command, *runOptions) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	o := &runOptions{}
	bindRunFlags(cmd, o)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() failed: %v", err)
	}
	return cmd, o
}

func TestRunOptions_Apply(t *testing.T) {
	cmd, o := newFlagCmd(t,
		"-s", "http://solr:8886/solr",
		"-c", "hadoop_logs",
		"-f", "logtime",
		"-d", "0",
		"-r", "500",
		"-z", "zst",
		"--exclude-fields", "_version_, tmp",
		"-u", "hdfs", "-p", "/archive",
		"-g",
	)

	cfg := &config.Config{
		Range:  config.RangeConfig{End: "2024-01-01"},
		Output: config.OutputConfig{Name: "from-file"},
	}
	o.apply(cmd, cfg)

	if cfg.Index.URL != "http://solr:8886/solr" || cfg.Index.Collection != "hadoop_logs" || cfg.Index.FilterField != "logtime" {
		t.Errorf("index = %+v", cfg.Index)
	}
	if cfg.Range.Days == nil || *cfg.Range.Days != 0 || cfg.Range.End != "" {
		t.Errorf("--days 0 should replace the configured end, got %+v", cfg.Range)
	}
	if cfg.Extract.ReadBlockSize != 500 || cfg.Extract.WriteBlockSize != 0 {
		t.Errorf("extract = %+v", cfg.Extract)
	}
	if cfg.Output.Compression != "zst" || cfg.Output.Name != "from-file" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if len(cfg.Index.ExcludeFields) != 2 || cfg.Index.ExcludeFields[1] != "tmp" {
		t.Errorf("exclude fields = %v", cfg.Index.ExcludeFields)
	}
	if cfg.Destination.Kind() != config.KindHDFS {
		t.Errorf("destination kind = %q", cfg.Destination.Kind())
	}
	if !cfg.IgnoreUnfinishedUploading {
		t.Error("-g should set IgnoreUnfinishedUploading")
	}
}

func TestRunOptions_EndAndDays(t *testing.T) {
	cmd, o := newFlagCmd(t, "-e", "2024-01-01T00:00:00.000Z", "-d", "7")
	cfg := &config.Config{}
	o.apply(cmd, cfg)

	if cfg.Range.End == "" || cfg.Range.Days == nil {
		t.Fatalf("both flags should be kept for validation, got %+v", cfg.Range)
	}
	errs := config.Validate(cfg)
	var verr config.ValidationError
	if !errors.As(errs, &verr) {
		t.Fatalf("Validate() = %v, want ValidationError", errs)
	}
	found := false
	for _, fe := range verr.Errors {
		if fe.Field == "range" {
			found = true
		}
	}
	if !found {
		t.Errorf("no range error in %v", verr.Errors)
	}
}

func TestRunOptions_UnsetFlagsKeepFile(t *testing.T) {
	cmd, o := newFlagCmd(t)
	cfg := &config.Config{Index: config.IndexConfig{URL: "http://file", IDField: "key"}}
	o.apply(cmd, cfg)
	if cfg.Index.URL != "http://file" || cfg.Index.IDField != "key" {
		t.Errorf("unset flags changed the config: %+v", cfg.Index)
	}
}

func TestConfigurationError(t *testing.T) {
	single := config.ValidationError{Errors: []config.FieldError{{Field: "index.url", Message: "solr url is required"}}}
	err := configurationError(single)
	var cfgErr *lifecycle.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "index.url" {
		t.Errorf("configurationError(single) = %#v", err)
	}

	multi := config.ValidationError{Errors: []config.FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}}
	err = configurationError(multi)
	if !errors.As(err, &cfgErr) {
		t.Fatalf("configurationError(multi) = %v", err)
	}
	var verr config.ValidationError
	if !errors.As(err, &verr) || len(verr.Errors) != 2 {
		t.Errorf("multiple field errors should stay reachable: %v", err)
	}
}

func TestLoadConfig_FileEnvFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archivist.yaml")
	yaml := `
index:
  url: http://file:8886/solr
  collection: from_file
  filter_field: logtime
range:
  days: 30
destination:
  local:
    path: /archive
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARCHIVIST_INDEX_COLLECTION", "from_env")
	t.Setenv("ARCHIVIST_EXTRACT_READ_BLOCK_SIZE", "250")

	cmd, o := newFlagCmd(t, "-c", "from_flag")
	cfgFile = path
	defer func() { cfgFile = "" }()

	cfg, err := loadConfig(cmd, o, lifecycle.ModeSave)
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	if cfg.Index.Collection != "from_flag" {
		t.Errorf("collection = %q, flags should win", cfg.Index.Collection)
	}
	if cfg.Extract.ReadBlockSize != 250 {
		t.Errorf("read block size = %d, env should override the default", cfg.Extract.ReadBlockSize)
	}
	if cfg.Mode != "save" || cfg.Output.Compression != config.DefaultCompression {
		t.Errorf("mode = %q compression = %q", cfg.Mode, cfg.Output.Compression)
	}
}

func TestValidateCommand(t *testing.T) {
	out, _, err := execute(t, "", "validate",
		"-s", "http://solr:8886/solr", "-c", "logs", "-f", "logtime",
		"-e", cutoffEnd, "-x", t.TempDir(), "--print")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	for _, want := range []string{
		"Configuration valid",
		`logtime:[* TO "` + cutoffEnd + `"]`,
		"destination: local (gz)",
		"collection:  http://solr:8886/solr/logs",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateCommand_Invalid(t *testing.T) {
	_, _, err := execute(t, "", "validate", "-c", "logs")
	var cfgErr *lifecycle.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("validate error = %v, want a configuration error", err)
	}
}
