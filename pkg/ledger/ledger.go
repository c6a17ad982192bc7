// Package ledger persists the intent of the batch in flight so that an
// interrupted run can finish the owed upload and purge before extracting
// anything new.
//
// The ledger is a single JSON file, command.json, in a working directory
// derived from the index URL and collection. Every write goes to
// command.json.tmp, is synced, and is renamed over the previous file, so a
// reader only ever observes a complete old or a complete new entry.
//
// Lifecycle of one batch in archive mode:
//
//	{upload, delete}  written before the upload starts
//	{delete}          written once the upload succeeded
//	(removed)         once the purge succeeded
//
// In save mode only {upload} is written and the file is removed after the
// upload.
package ledger

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mercator-hq/archivist/pkg/lifecycle"
)

// FileName is the ledger file inside the working directory.
const FileName = "command.json"

// UploadSpec is everything needed to redo an upload.
type UploadSpec struct {
	// Type is the destination kind: solr, hdfs, s3 or local.
	Type string `json:"type"`

	// Command is a human-readable rendering of the owed call.
	Command string `json:"command"`

	UploadFilePath string `json:"upload_file_path"`

	SolrOutputCollection string `json:"solr_output_collection,omitempty"`

	HDFSPath      string `json:"hdfs_path,omitempty"`
	HDFSUser      string `json:"hdfs_user,omitempty"`
	HDFSKeytab    string `json:"hdfs_keytab,omitempty"`
	HDFSPrincipal string `json:"hdfs_principal,omitempty"`

	KeyFilePath string `json:"key_file_path,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	KeyPrefix   string `json:"key_prefix,omitempty"`
	Region      string `json:"region,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`

	LocalPath string `json:"local_path,omitempty"`
}

// DeleteSpec is everything needed to redo a purge: all documents up to and
// including the batch end cursor.
type DeleteSpec struct {
	Command          string `json:"command"`
	Collection       string `json:"collection"`
	FilterField      string `json:"filter_field"`
	IDField          string `json:"id_field"`
	PrevLotEndValue  string `json:"prev_lot_end_value"`
	PrevLotEndID     string `json:"prev_lot_end_id"`
	AdditionalFilter string `json:"additional_filter,omitempty"`
}

// End returns the batch end cursor.
func (d DeleteSpec) End() lifecycle.Cursor {
	return lifecycle.Cursor{Value: d.PrevLotEndValue, ID: d.PrevLotEndID}
}

// Entry is the pending work of one batch.
type Entry struct {
	Upload *UploadSpec `json:"upload,omitempty"`
	Delete *DeleteSpec `json:"delete,omitempty"`
}

// IsEmpty reports whether the entry owes nothing.
func (e Entry) IsEmpty() bool {
	return e.Upload == nil && e.Delete == nil
}

// WorkDir returns, creating it if needed, the working directory for a
// collection: root/md5hex(url + collection).
func WorkDir(root, url, collection string) (string, error) {
	sum := md5.Sum([]byte(url + collection))
	dir := filepath.Join(root, hex.EncodeToString(sum[:]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create working directory: %w", err)
	}
	return dir, nil
}

// Ledger is the intent file of one working directory.
type Ledger struct {
	path   string
	logger *slog.Logger
}

// New returns the ledger stored in dir.
func New(dir string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		path:   filepath.Join(dir, FileName),
		logger: logger.With("component", "ledger"),
	}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Record atomically replaces the ledger content with e.
func (l *Ledger) Record(e Entry) error {
	if e.IsEmpty() {
		return l.Clear()
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}

	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", l.path, err)
	}
	syncDir(filepath.Dir(l.path))

	l.logger.Debug("ledger recorded",
		"upload", e.Upload != nil,
		"delete", e.Delete != nil,
	)
	return nil
}

// Clear removes the ledger. Clearing an absent ledger is not an error.
func (l *Ledger) Clear() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", l.path, err)
	}
	syncDir(filepath.Dir(l.path))
	l.logger.Debug("ledger cleared")
	return nil
}

// Load returns the pending entry, or nil when there is none. A leftover
// temp file from an interrupted write is ignored; the previous entry is
// still authoritative.
func (l *Ledger) Load() (*Entry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.path, err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		cerr := lifecycle.NewConfigurationError("ledger",
			fmt.Sprintf("%s is corrupt; inspect it and remove it to continue", l.path))
		cerr.Cause = err
		return nil, cerr
	}
	if e.IsEmpty() {
		return nil, nil
	}
	return &e, nil
}

// syncDir makes a rename or removal durable. Errors are ignored: not every
// filesystem supports syncing directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
