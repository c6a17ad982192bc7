package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/cli"
	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/pipeline"
	"mercator-hq/archivist/pkg/telemetry/metrics"
)

var runFlags struct {
	runOptions
	yes      bool
	progress bool
	format   string
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Upload batches to the destination and purge them from the collection",
	Long: `Archive every document up to the cutoff.

Each batch is written to the working directory, packaged, uploaded and then
purged from the source collection. A pending ledger entry left by an
interrupted run is finished first.

Examples:
  # Archive logs older than 30 days into a local directory
  archivist archive -s http://solr:8886/solr -c hadoop_logs -f logtime -d 30 -x /data/archive

  # Archive into HDFS as the hdfs user, with kerberos on both sides
  archivist archive --config logs.yaml -u hdfs -p /archive/logs \
      -a /etc/security/keytabs/hdfs.keytab -l hdfs@EXAMPLE.COM`,
	RunE: runMode(lifecycle.ModeArchive),
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Upload batches to the destination without purging",
	Long: `Save a copy of every document up to the cutoff.

Batches are uploaded exactly as in archive mode but nothing is deleted from
the source collection.

Examples:
  archivist save -s http://solr:8886/solr -c audit_logs -f evtTime \
      -e 2024-01-01T00:00:00.000Z -t s3.key -b backups -y audit/`,
	RunE: runMode(lifecycle.ModeSave),
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Purge every document up to the cutoff without saving it",
	Long: `Delete every document up to the cutoff with a single delete-by-query.

No ledger, working file or destination is involved.

Examples:
  archivist delete -s http://solr:8886/solr -c audit_logs -f evtTime -d 90`,
	RunE: runMode(lifecycle.ModeDelete),
}

func init() {
	for _, cmd := range []*cobra.Command{archiveCmd, saveCmd, deleteCmd} {
		rootCmd.AddCommand(cmd)

		bindRunFlags(cmd, &runFlags.runOptions)
		cmd.Flags().BoolVar(&runFlags.yes, "yes", false, "do not ask for confirmation")
		cmd.Flags().BoolVar(&runFlags.progress, "progress", false, "show a progress line on stderr")
		cmd.Flags().StringVar(&runFlags.format, "format", "text", "summary format: text, json")
	}
}

func runMode(mode lifecycle.Mode) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(runFlags.format)
		if err != nil {
			return lifecycle.NewConfigurationError("format", err.Error())
		}

		cfg, err := loadConfig(cmd, &runFlags.runOptions, mode)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		if mode.Uploads() && cfg.Index.AdditionalFilter != "" && cfg.Output.Name == "" && !runFlags.yes {
			fmt.Fprintln(cmd.OutOrStdout(), "It is recommended to set --name when an additional filter is set.")
			ok, err := cli.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Are you sure that you want to proceed without a name?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
		}

		tracer, shutdown, err := newTracer(cfg, logger.Slog())
		if err != nil {
			return err
		}
		defer shutdown()

		env := pipeline.Env{
			Metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
			Tracer:  tracer,
			Logger:  logger.Slog(),
		}
		var progress *cli.Progress
		if runFlags.progress {
			progress = cli.NewProgress(cmd.ErrOrStderr())
			env.Progress = progress.Update
		}

		built, err := pipeline.Build(cfg, env)
		if err != nil {
			return err
		}
		defer built.Close()

		summary, err := built.Run(cmd.Context())
		if progress != nil {
			progress.Finish()
		}
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summary)
	}
}
