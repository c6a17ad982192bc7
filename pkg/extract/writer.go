package extract

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"mercator-hq/archivist/pkg/record"
)

// Format selects the working file layout.
type Format int

const (
	// FormatLines writes one JSON object per line.
	FormatLines Format = iota

	// FormatArray writes a single JSON array.
	FormatArray
)

// FileWriter serializes records into a working file.
type FileWriter struct {
	path   string
	format Format
	file   *os.File
	buf    *bufio.Writer
	count  int
}

// Create truncates or creates the working file at path.
func Create(path string, format Format) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create working file: %w", err)
	}
	w := &FileWriter{
		path:   path,
		format: format,
		file:   f,
		buf:    bufio.NewWriterSize(f, 64*1024),
	}
	if format == FormatArray {
		if _, err := w.buf.WriteString("["); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Path returns the working file path.
func (w *FileWriter) Path() string { return w.path }

// Count returns the number of records written.
func (w *FileWriter) Count() int { return w.count }

// Write implements RecordWriter.
func (w *FileWriter) Write(rec record.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	switch w.format {
	case FormatArray:
		if w.count > 0 {
			if _, err := w.buf.WriteString(",\n"); err != nil {
				return err
			}
		}
		if _, err := w.buf.Write(data); err != nil {
			return err
		}
	default:
		if _, err := w.buf.Write(data); err != nil {
			return err
		}
		if err := w.buf.WriteByte('\n'); err != nil {
			return err
		}
	}

	w.count++
	return nil
}

// Close terminates the file, flushes and syncs it.
func (w *FileWriter) Close() error {
	if w.format == FormatArray {
		if _, err := w.buf.WriteString("]\n"); err != nil {
			w.file.Close()
			return err
		}
	}
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush working file: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to sync working file: %w", err)
	}
	return w.file.Close()
}
