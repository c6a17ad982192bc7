package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/archivist/pkg/lifecycle"
)

// Supported driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// Config contains configuration for the journal database.
type Config struct {
	// Path is the database file path.
	Path string

	// Driver is the database/sql driver name.
	// Default: "sqlite"
	Driver string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Entry is one committed batch.
type Entry struct {
	ID          int64           `json:"id"`
	RunID       string          `json:"run_id"`
	Mode        lifecycle.Mode  `json:"mode"`
	SolrURL     string          `json:"solr_url"`
	Collection  string          `json:"collection"`
	Sequence    int             `json:"sequence"`
	Range       lifecycle.Range `json:"range"`
	Records     int             `json:"records"`
	Artifact    string          `json:"artifact,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Purged      bool            `json:"purged"`
	CommittedAt time.Time       `json:"committed_at"`
}

// Filter narrows Recent.
type Filter struct {
	Collection string
	RunID      string

	// Limit caps the number of entries. Zero means 50.
	Limit int
}

// StorageError reports a failed database operation.
type StorageError struct {
	Driver    string
	Operation string
	Cause     error
}

// Error returns the error message.
func (e *StorageError) Error() string {
	return fmt.Sprintf("journal %s: %s failed: %v", e.Driver, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Journal is the batch history store.
type Journal struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates the journal database.
func Open(cfg Config, logger *slog.Logger) (*Journal, error) {
	if cfg.Path == "" {
		return nil, lifecycle.NewConfigurationError("journal.path", "path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverModernc && cfg.Driver != DriverMattn {
		return nil, lifecycle.NewConfigurationError("journal.driver", fmt.Sprintf("unsupported driver %q", cfg.Driver))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journal")

	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Driver: cfg.Driver, Operation: "create_dir", Cause: err}
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, &StorageError{Driver: cfg.Driver, Operation: "open", Cause: err}
	}
	// One connection keeps the pragmas in effect for every statement.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, driver: cfg.Driver, logger: logger}
	if err := j.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("journal opened", "path", cfg.Path, "driver", cfg.Driver)
	return j, nil
}

func (j *Journal) initialize(busyTimeout time.Duration) error {
	if _, err := j.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return &StorageError{Driver: j.driver, Operation: "enable_wal", Cause: err}
	}
	if _, err := j.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return &StorageError{Driver: j.driver, Operation: "set_busy_timeout", Cause: err}
	}
	if _, err := j.db.Exec(Schema); err != nil {
		return &StorageError{Driver: j.driver, Operation: "create_schema", Cause: err}
	}
	if _, err := j.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return &StorageError{Driver: j.driver, Operation: "insert_schema_version", Cause: err}
	}

	var version int
	err := j.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return &StorageError{Driver: j.driver, Operation: "get_schema_version", Cause: err}
	}
	if version != SchemaVersion {
		return &StorageError{Driver: j.driver, Operation: "schema_version_mismatch",
			Cause: fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version)}
	}
	return nil
}

// Record appends a committed batch. CommittedAt defaults to now.
func (j *Journal) Record(ctx context.Context, e *Entry) error {
	if e.CommittedAt.IsZero() {
		e.CommittedAt = time.Now().UTC()
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO batches (
			run_id, mode, solr_url, collection, sequence,
			start_value, start_id, end_value, end_id,
			records, artifact, destination, purged, committed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, string(e.Mode), e.SolrURL, e.Collection, e.Sequence,
		e.Range.Start.Value, e.Range.Start.ID, e.Range.End.Value, e.Range.End.ID,
		e.Records, nullable(e.Artifact), nullable(e.Destination), e.Purged,
		e.CommittedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &StorageError{Driver: j.driver, Operation: "insert", Cause: err}
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}

	j.logger.Debug("batch journaled", "run_id", e.RunID, "sequence", e.Sequence, "end", e.Range.End.String())
	return nil
}

// Recent returns the newest entries first.
func (j *Journal) Recent(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Collection != "" {
		where = append(where, "collection = ?")
		args = append(args, f.Collection)
	}
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, run_id, mode, solr_url, collection, sequence,
		start_value, start_id, end_value, end_id,
		records, artifact, destination, purged, committed_at
		FROM batches`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Driver: j.driver, Operation: "query", Cause: err}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                     Entry
			mode, committed       string
			artifact, destination sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &mode, &e.SolrURL, &e.Collection, &e.Sequence,
			&e.Range.Start.Value, &e.Range.Start.ID, &e.Range.End.Value, &e.Range.End.ID,
			&e.Records, &artifact, &destination, &e.Purged, &committed); err != nil {
			return nil, &StorageError{Driver: j.driver, Operation: "scan", Cause: err}
		}
		e.Mode = lifecycle.Mode(mode)
		e.Artifact = artifact.String
		e.Destination = destination.String
		if t, err := time.Parse(time.RFC3339Nano, committed); err == nil {
			e.CommittedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Driver: j.driver, Operation: "query", Cause: err}
	}
	return entries, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
