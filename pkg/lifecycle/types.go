package lifecycle

import "fmt"

// Mode selects what a run does with the records it extracts.
type Mode string

const (
	// ModeArchive uploads every batch and then purges it from the index.
	ModeArchive Mode = "archive"
	// ModeSave uploads every batch and leaves the index untouched.
	ModeSave Mode = "save"
	// ModeDelete purges everything up to the cutoff without saving it.
	ModeDelete Mode = "delete"
)

// Modes lists the valid run modes in display order.
var Modes = []Mode{ModeArchive, ModeDelete, ModeSave}

// ParseMode converts s into a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", NewConfigurationError("mode", fmt.Sprintf("mode must be one of archive | delete | save, got %q", s))
}

// Uploads reports whether the mode writes artifacts to a destination.
func (m Mode) Uploads() bool {
	return m == ModeArchive || m == ModeSave
}

// Purges reports whether the mode deletes records from the index.
func (m Mode) Purges() bool {
	return m == ModeArchive || m == ModeDelete
}

// Cursor marks the last record consumed by extraction.
type Cursor struct {
	// Value is the boundary field value of the record.
	Value string `json:"value"`

	// ID is the id field value of the record.
	ID string `json:"id"`
}

// IsZero reports whether the cursor is the "from the beginning" cursor.
func (c Cursor) IsZero() bool {
	return c.Value == "" && c.ID == ""
}

// Compare orders cursors by value, then by id. Values are compared as
// strings, which matches how the index sorts string-encoded dates.
func (c Cursor) Compare(o Cursor) int {
	switch {
	case c.Value < o.Value:
		return -1
	case c.Value > o.Value:
		return 1
	case c.ID < o.ID:
		return -1
	case c.ID > o.ID:
		return 1
	}
	return 0
}

// String renders the cursor for logs.
func (c Cursor) String() string {
	if c.IsZero() {
		return "<start>"
	}
	return c.Value + "," + c.ID
}

// Range is the slice of source data covered by one batch: records strictly
// after Start, up to and including End.
type Range struct {
	Start Cursor `json:"start"`
	End   Cursor `json:"end"`
}

// Overlaps reports whether two ranges share any cursor position.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Compare(o.End) < 0 && o.Start.Compare(r.End) < 0
}

// Contains reports whether c falls inside the range.
func (r Range) Contains(c Cursor) bool {
	if !r.Start.IsZero() && c.Compare(r.Start) <= 0 {
		return false
	}
	return c.Compare(r.End) <= 0
}
