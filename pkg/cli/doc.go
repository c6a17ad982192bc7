/*
Package cli holds the helpers shared by the archivist subcommands: exit code
mapping, signal handling, progress reporting, the interactive confirmation
prompt and output formatting for the history and ledger commands.

Exit codes:

	0    success
	1    unknown failure
	2    configuration error
	3    authentication failure (kinit, credentials)
	4    query failure against the source index
	5    upload failure
	6    purge failure
	130  interrupted by SIGINT or SIGTERM

Signal handling:

	ctx := cli.SetupSignalHandler(logger)
	// pass ctx to every blocking call; ledger state is left on disk
*/
package cli
