// Package journal keeps a history of committed batches in SQLite.
//
// The intent ledger only ever holds the batch that is in flight; once a
// batch is purged its ledger entry is gone. The journal records every batch
// that completed so operators can see what was archived, when, and where
// the artifact went:
//
//	j, err := journal.Open(journal.Config{Path: "archivist.db"}, logger)
//	if err != nil {
//	    return err
//	}
//	defer j.Close()
//
//	entries, err := j.Recent(ctx, journal.Filter{Collection: "logs", Limit: 20})
//
// Two drivers are supported: "sqlite" (modernc.org/sqlite, pure Go) and
// "sqlite3" (github.com/mattn/go-sqlite3, requires cgo).
package journal
