package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/cli"
	"mercator-hq/archivist/pkg/lifecycle"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "archivist",
	Short: "Archivist - crash-safe Solr archiving",
	Long: `Archivist moves documents older than a cutoff out of a Solr collection.

Documents are extracted in batches ordered by a boundary field and the id
field, packaged, uploaded to HDFS, S3, a local directory or another
collection, and purged from the source only after the upload succeeded.
An interrupted run is resumed from the intent ledger on the next start.

Exit codes: 0 ok, 1 unknown, 2 configuration, 3 authentication, 4 query,
5 upload, 6 purge, 130 interrupted.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	ctx := cli.SetupSignalHandler(nil)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return lifecycle.NewConfigurationError("flags", err.Error())
	})
}
