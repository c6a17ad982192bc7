package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/cutoff"
	"mercator-hq/archivist/pkg/lifecycle"
)

var validateFlags struct {
	runOptions
	mode  string
	print bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without contacting solr",
	Long: `Validate the configuration file, environment and flags together.

Every problem is reported at once. On success the resolved cutoff and
destination are printed; --print also dumps the effective configuration.

Examples:
  archivist validate --config logs.yaml
  archivist validate --config logs.yaml --mode delete
  archivist validate -s http://solr:8886/solr -c logs -f logtime -d 7 -x /archive --print`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	bindRunFlags(validateCmd, &validateFlags.runOptions)
	validateCmd.Flags().StringVarP(&validateFlags.mode, "mode", "m", "", "archive, save or delete (default archive)")
	validateCmd.Flags().BoolVar(&validateFlags.print, "print", false, "print the effective configuration as yaml")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, &validateFlags.runOptions, lifecycle.Mode(validateFlags.mode))
	if err != nil {
		return err
	}

	spec := cutoff.Spec{End: cfg.Range.End, DateFormat: cfg.Range.DateFormat}
	if cfg.Range.Days != nil {
		spec.Days, spec.DaysSet = *cfg.Range.Days, true
	}
	end, err := cutoff.Resolve(spec, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")
	fmt.Fprintf(out, "  mode:        %s\n", cfg.Mode)
	fmt.Fprintf(out, "  collection:  %s/%s\n", strings.TrimRight(cfg.Index.URL, "/"), cfg.Index.Collection)
	fmt.Fprintf(out, "  cutoff:      %s:[* TO %q]\n", cfg.Index.FilterField, end)
	if cfg.Index.AdditionalFilter != "" {
		fmt.Fprintf(out, "  filter:      %s\n", cfg.Index.AdditionalFilter)
	}
	if kind := cfg.Destination.Kind(); kind != "" {
		fmt.Fprintf(out, "  destination: %s (%s)\n", kind, cfg.Output.Compression)
	}
	if cfg.Schedule.Cron != "" {
		fmt.Fprintf(out, "  schedule:    %s\n", cfg.Schedule.Cron)
	}
	if tr := cfg.Telemetry.Tracing; tr.Enabled {
		fmt.Fprintf(out, "  tracing:     %s (%s)\n", tr.Endpoint, tr.Sampler)
	}

	if validateFlags.print {
		return printConfig(cmd, cfg)
	}
	return nil
}

func printConfig(cmd *cobra.Command, cfg *config.Config) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	fmt.Fprintln(cmd.OutOrStdout(), "---")
	return enc.Encode(cfg)
}
