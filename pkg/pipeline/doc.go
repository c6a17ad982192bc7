// Package pipeline runs the archive, save and delete modes.
//
// An archive run first replays whatever the intent ledger says is still
// owed from an interrupted run, then loops over batches:
//
//	extract → package → ledger{upload, delete} → upload
//	        → ledger{delete} → purge → clear → journal
//
// until the index has nothing left at or before the cutoff. Save runs skip
// the purge and its ledger record. Delete runs issue a single delete query
// for the whole range.
//
// The context is checked between every step. When it is cancelled the run
// stops where it is and leaves the working directory exactly as the next
// run needs it to resume.
package pipeline
