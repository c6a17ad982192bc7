package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/archivist/pkg/journal"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/pipeline"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter_History(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []journal.Entry{
		{
			RunID:      "0f8fad5b-d9cb-469f-a165-70867728950e",
			Sequence:   2,
			Mode:       lifecycle.ModeArchive,
			Collection: "logs",
			Records:    12345,
			Range: lifecycle.Range{
				End: lifecycle.Cursor{Value: "2024-01-01T00:00:00Z", ID: "e"},
			},
			Artifact:    "/var/lib/archivist/abc/logs_2024-01-01T00_00_00Z_e.tar.gz",
			Purged:      true,
			CommittedAt: now.Add(-2 * time.Hour),
		},
	}

	buf := &bytes.Buffer{}
	f := &TextFormatter{Now: func() time.Time { return now }}
	if err := f.FormatTo(buf, entries); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"RUN", "COMMITTED",
		"0f8fad5b ",
		"12,345",
		"2024-01-01T00:00:00Z,e",
		"logs_2024-01-01T00_00_00Z_e.tar.gz",
		"2 hours ago",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "/var/lib") {
		t.Errorf("artifact directory should be trimmed:\n%s", out)
	}
}

func TestTextFormatter_EmptyHistory(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, []journal.Entry{}); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	if buf.String() != "no batches recorded\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTextFormatter_Ledger(t *testing.T) {
	tests := []struct {
		name   string
		status LedgerStatus
		want   []string
	}{
		{
			name:   "nothing pending",
			status: LedgerStatus{WorkDir: "/w/abc"},
			want:   []string{"working directory: /w/abc", "no pending work"},
		},
		{
			name: "upload and purge pending",
			status: LedgerStatus{
				WorkDir: "/w/abc",
				Path:    "/w/abc/command.json",
				Entry: &ledger.Entry{
					Upload: &ledger.UploadSpec{Type: "local", Command: "cp a /archive", UploadFilePath: "/w/abc/a.tar.gz"},
					Delete: &ledger.DeleteSpec{Command: "delete", Collection: "logs", PrevLotEndValue: "v", PrevLotEndID: "i"},
				},
			},
			want: []string{
				"ledger: /w/abc/command.json",
				"pending upload (local): /w/abc/a.tar.gz",
				"  cp a /archive",
				"pending purge of logs up to v,i",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := (&TextFormatter{}).FormatTo(buf, tt.status); err != nil {
				t.Fatalf("FormatTo() failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestTextFormatter_Summary(t *testing.T) {
	s := pipeline.Summary{
		RunID:     "run-1",
		Mode:      lifecycle.ModeSave,
		Cutoff:    "2024-01-01T00:00:00.000Z",
		Records:   5000,
		Batches:   2,
		Artifacts: []string{"a.tar.gz", "b.tar.gz"},
		Elapsed:   42 * time.Second,
	}
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, s); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "save run run-1: 5,000 records in 2 batches") {
		t.Errorf("missing headline:\n%s", out)
	}
	if !strings.HasSuffix(out, "--- 42 seconds ---\n") {
		t.Errorf("missing elapsed footer:\n%s", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	status := LedgerStatus{
		WorkDir: "/w",
		Path:    "/w/command.json",
		Entry:   &ledger.Entry{Upload: &ledger.UploadSpec{Type: "s3", UploadFilePath: "/w/a.zip"}},
	}

	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatJSON).FormatTo(buf, status); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	entry, ok := decoded["entry"].(map[string]interface{})
	if !ok {
		t.Fatalf("entry missing: %v", decoded)
	}
	upload, ok := entry["upload"].(map[string]interface{})
	if !ok || upload["type"] != "s3" {
		t.Errorf("entry.upload = %v", entry["upload"])
	}
	if _, ok := entry["delete"]; ok {
		t.Error("absent delete should be omitted")
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatText).(*TextFormatter); !ok {
		t.Error("NewFormatter(text) should return *TextFormatter")
	}
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) should return *JSONFormatter")
	}
}
