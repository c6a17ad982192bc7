// Package lifecycle defines the domain types shared by every stage of an
// archive run: the extraction cursor, the range a batch covers, the run mode,
// and the error taxonomy the CLI maps onto exit codes.
//
// # Cursors and Ranges
//
// A Cursor is the (boundary value, id value) pair of the last record a run has
// consumed. The zero Cursor means "from the beginning". Cursors advance
// monotonically; ties on the boundary value are broken by the id value.
//
// A Range is the half-open slice of source data a batch represents:
// everything after Start up to and including End. Consecutive batches of one
// run share their boundary cursor, so their ranges never overlap.
//
// # Errors
//
// Each failing stage returns a typed error:
//
//   - ConfigurationError  - invalid or contradictory options, fatal
//   - AuthenticationError - kinit failed, fatal
//   - QueryError          - index query failed or returned a non-zero status
//   - UploadError         - a destination rejected an artifact
//   - PurgeError          - the delete-by-query failed
//
// Query, upload and purge failures are fatal for the current invocation but
// recoverable by running again: the intent ledger replays whatever is owed.
package lifecycle
