// Package health serves liveness, readiness and version endpoints for the
// long running schedule command.
//
//	/healthz  the process is up
//	/ready    every registered check passes (503 otherwise)
//	/version  build information
//
// The schedule command registers a scheduler check, failing while the last
// run failed, and a ledger check, failing while a pending entry waits to be
// replayed.
package health
