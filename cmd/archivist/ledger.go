package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/cli"
	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
)

var ledgerFlags struct {
	runOptions
	format string
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the intent ledger",
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the work a previous run left pending",
	Long: `Show the pending upload and purge recorded for a collection.

The working directory is derived from the solr url and the collection, so
both must be given through --config or flags.

Examples:
  archivist ledger show -s http://solr:8886/solr -c hadoop_logs
  archivist ledger show --config logs.yaml --format json`,
	RunE: runLedgerShow,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)

	bindRunFlags(ledgerShowCmd, &ledgerFlags.runOptions)
	ledgerShowCmd.Flags().StringVar(&ledgerFlags.format, "format", "text", "output format: text, json")
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(ledgerFlags.format)
	if err != nil {
		return lifecycle.NewConfigurationError("format", err.Error())
	}
	cfg, err := readConfig(cmd, &ledgerFlags.runOptions, "")
	if err != nil {
		return err
	}
	if err := requireIndex(cfg); err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	dir, err := ledger.WorkDir(cfg.WorkDir, cfg.Index.URL, cfg.Index.Collection)
	if err != nil {
		return lifecycle.NewConfigurationError("work_dir", err.Error())
	}
	l := ledger.New(dir, logger.Slog())
	entry, err := l.Load()
	if err != nil {
		return err
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cli.LedgerStatus{
		WorkDir: dir,
		Path:    l.Path(),
		Entry:   entry,
	})
}

// requireIndex checks the fields that locate a working directory.
func requireIndex(cfg *config.Config) error {
	if cfg.Index.URL == "" {
		return lifecycle.NewConfigurationError("index.url", "solr url is required")
	}
	if cfg.Index.Collection == "" {
		return lifecycle.NewConfigurationError("index.collection", "collection is required")
	}
	return nil
}
