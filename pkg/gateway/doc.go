// Package gateway executes the external programs an archive run depends on
// (curl, hadoop, kinit, sudo) and classifies their outcome.
//
// Commands are always structured argument lists, never shell strings, so
// values containing quotes, spaces or query syntax reach the program intact:
//
//	cmd := gateway.Command{Program: "hadoop", Args: []string{"fs", "-test", "-e", path}}
//	res, err := runner.Run(ctx, gateway.SudoAs("hdfs", cmd))
//
// A non-zero exit status is reported as *ExitError, which carries the argv,
// the exit code and the captured stderr for diagnostics. Authenticator wraps
// the kinit step that precedes each group of calls against a kerberized
// service.
package gateway
