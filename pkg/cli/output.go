package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"mercator-hq/archivist/pkg/journal"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/pipeline"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat converts a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// LedgerStatus is the pending work of one working directory.
type LedgerStatus struct {
	WorkDir string        `json:"work_dir"`
	Path    string        `json:"path"`
	Entry   *ledger.Entry `json:"entry"`
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter renders history tables, ledger status and run summaries
// for a terminal.
type TextFormatter struct {
	// Now anchors relative times. Default: time.Now.
	Now func() time.Time
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case []journal.Entry:
		return f.history(w, v)
	case LedgerStatus:
		return f.ledger(w, v)
	case pipeline.Summary:
		return f.summary(w, v)
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

func (f *TextFormatter) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *TextFormatter) history(w io.Writer, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no batches recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSEQ\tMODE\tCOLLECTION\tRECORDS\tEND\tPURGED\tARTIFACT\tCOMMITTED")
	now := f.now()
	for _, e := range entries {
		artifact := "-"
		if e.Artifact != "" {
			artifact = filepath.Base(e.Artifact)
		}
		runID := e.RunID
		if len(runID) > 8 {
			runID = runID[:8]
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			runID,
			e.Sequence,
			e.Mode,
			e.Collection,
			humanize.Comma(int64(e.Records)),
			e.Range.End,
			e.Purged,
			artifact,
			humanize.RelTime(e.CommittedAt, now, "ago", "from now"),
		)
	}
	return tw.Flush()
}

func (f *TextFormatter) ledger(w io.Writer, s LedgerStatus) error {
	fmt.Fprintf(w, "working directory: %s\n", s.WorkDir)
	if s.Entry == nil || s.Entry.IsEmpty() {
		_, err := fmt.Fprintln(w, "no pending work")
		return err
	}
	fmt.Fprintf(w, "ledger: %s\n", s.Path)
	if u := s.Entry.Upload; u != nil {
		fmt.Fprintf(w, "pending upload (%s): %s\n", u.Type, u.UploadFilePath)
		fmt.Fprintf(w, "  %s\n", u.Command)
	}
	if d := s.Entry.Delete; d != nil {
		fmt.Fprintf(w, "pending purge of %s up to %s\n", d.Collection, d.End())
		fmt.Fprintf(w, "  %s\n", d.Command)
	}
	return nil
}

func (f *TextFormatter) summary(w io.Writer, s pipeline.Summary) error {
	fmt.Fprintf(w, "%s run %s: %s records in %d batches up to %s\n",
		s.Mode, s.RunID, humanize.Comma(int64(s.Records)), s.Batches, s.Cutoff)
	if s.Replayed {
		fmt.Fprintln(w, "completed pending work from a previous run")
	}
	for _, a := range s.Artifacts {
		fmt.Fprintf(w, "  %s\n", a)
	}
	_, err := fmt.Fprintf(w, "--- %.0f seconds ---\n", s.Elapsed.Seconds())
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	default:
		return &TextFormatter{}
	}
}
