package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/archivist/pkg/lifecycle"
)

func sampleEntry() Entry {
	return Entry{
		Upload: &UploadSpec{
			Type:           "hdfs",
			Command:        "sudo -u hdfs hadoop fs -put /w/a.json.gz /archive",
			UploadFilePath: "/w/a.json.gz",
			HDFSPath:       "/archive",
			HDFSUser:       "hdfs",
		},
		Delete: &DeleteSpec{
			Command:         "POST http://solr/logs/update",
			Collection:      "logs",
			FilterField:     "logtime",
			IDField:         "id",
			PrevLotEndValue: "2024-01-01T00:00:00.000Z",
			PrevLotEndID:    "c",
		},
	}
}

func TestLedger_RecordLoadClear(t *testing.T) {
	l := New(t.TempDir(), nil)

	got, err := l.Load()
	if err != nil || got != nil {
		t.Fatalf("Load() on empty dir = %v, %v; want nil, nil", got, err)
	}

	if err := l.Record(sampleEntry()); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	got, err = l.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got == nil || got.Upload == nil || got.Delete == nil {
		t.Fatalf("Load() = %+v, want upload and delete", got)
	}
	if got.Upload.HDFSPath != "/archive" || got.Delete.End().ID != "c" {
		t.Errorf("Load() = %+v", got)
	}

	// Upload done: only the delete remains.
	if err := l.Record(Entry{Delete: got.Delete}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	got, _ = l.Load()
	if got.Upload != nil || got.Delete == nil {
		t.Errorf("after upload, Load() = %+v, want delete only", got)
	}

	if err := l.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if got, _ := l.Load(); got != nil {
		t.Errorf("after Clear(), Load() = %+v", got)
	}
	if err := l.Clear(); err != nil {
		t.Errorf("Clear() on absent ledger failed: %v", err)
	}
}

func TestLedger_NoTempFileLeft(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, nil)
	if err := l.Record(sampleEntry()); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName+".tmp")); !os.IsNotExist(err) {
		t.Error("temp file should have been renamed")
	}
}

// TestLedger_InterruptedWrite simulates a crash after the temp file was
// written but before the rename.
func TestLedger_InterruptedWrite(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, nil)
	if err := l.Record(sampleEntry()); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName+".tmp"), []byte(`{"delete":`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Upload == nil {
		t.Error("previous complete entry should still be authoritative")
	}
}

func TestLedger_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(dir, nil).Load()
	var cfgErr *lifecycle.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() error = %v, want *ConfigurationError", err)
	}
}

func TestLedger_JSONKeys(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, nil)
	if err := l.Record(sampleEntry()); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	data, _ := os.ReadFile(l.Path())

	for _, key := range []string{`"upload"`, `"type"`, `"upload_file_path"`, `"hdfs_path"`, `"hdfs_user"`,
		`"delete"`, `"filter_field"`, `"id_field"`, `"prev_lot_end_value"`, `"prev_lot_end_id"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("ledger file missing key %s:\n%s", key, data)
		}
	}
	if strings.Contains(string(data), `"bucket"`) {
		t.Error("unused backend fields should be omitted")
	}
}

func TestWorkDir(t *testing.T) {
	root := t.TempDir()
	a, err := WorkDir(root, "http://solr:8983/solr", "logs")
	if err != nil {
		t.Fatalf("WorkDir() failed: %v", err)
	}
	b, _ := WorkDir(root, "http://solr:8983/solr", "logs")
	c, _ := WorkDir(root, "http://solr:8983/solr", "audit")

	if a != b {
		t.Errorf("WorkDir() not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different collections should get different directories")
	}
	// md5("http://solr:8983/solrlogs") in hex is 32 characters.
	if len(filepath.Base(a)) != 32 {
		t.Errorf("dir name = %s", filepath.Base(a))
	}
	if info, err := os.Stat(a); err != nil || !info.IsDir() {
		t.Errorf("WorkDir() did not create %s", a)
	}
}
