package journal

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the journal schema.
const Schema = `
CREATE TABLE IF NOT EXISTS batches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    mode TEXT NOT NULL,
    solr_url TEXT NOT NULL,
    collection TEXT NOT NULL,
    sequence INTEGER NOT NULL,

    -- Cursor range, exclusive start and inclusive end
    start_value TEXT NOT NULL,
    start_id TEXT NOT NULL,
    end_value TEXT NOT NULL,
    end_id TEXT NOT NULL,

    records INTEGER NOT NULL,
    artifact TEXT,
    destination TEXT,
    purged BOOLEAN NOT NULL,
    committed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batches_collection ON batches(collection, committed_at);
CREATE INDEX IF NOT EXISTS idx_batches_run_id ON batches(run_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
