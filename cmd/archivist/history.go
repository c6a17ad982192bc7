package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/cli"
	"mercator-hq/archivist/pkg/journal"
	"mercator-hq/archivist/pkg/lifecycle"
)

var historyFlags struct {
	runOptions
	runID  string
	all    bool
	limit  int
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List committed batches from the journal",
	Long: `List the most recent batches recorded in the batch journal, newest first.

The journal lives at journal.path (default <work_dir>/journal.db) and is
written only when journal.enabled is set.

Examples:
  archivist history --config logs.yaml
  archivist history --all --limit 200 --format json
  archivist history --run-id 0f8fad5b-d9cb-469f-a165-70867728950e`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	bindRunFlags(historyCmd, &historyFlags.runOptions)
	historyCmd.Flags().StringVar(&historyFlags.runID, "run-id", "", "only batches of this run")
	historyCmd.Flags().BoolVar(&historyFlags.all, "all", false, "include every collection, not just --collection")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 50, "maximum number of batches")
	historyCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json")
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return lifecycle.NewConfigurationError("format", err.Error())
	}
	cfg, err := readConfig(cmd, &historyFlags.runOptions, "")
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	j, err := journal.Open(journal.Config{Path: cfg.Journal.Path, Driver: cfg.Journal.Driver}, logger.Slog())
	if err != nil {
		return err
	}
	defer j.Close()

	filter := journal.Filter{RunID: historyFlags.runID, Limit: historyFlags.limit}
	if !historyFlags.all {
		filter.Collection = cfg.Index.Collection
	}
	entries, err := j.Recent(cmd.Context(), filter)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), entries)
}
