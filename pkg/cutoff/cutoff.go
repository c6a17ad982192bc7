// Package cutoff resolves the inclusive upper bound of the boundary field
// for a run, either taken verbatim or computed from a retention period.
package cutoff

import (
	"log/slog"
	"time"

	"github.com/ncruces/go-strftime"

	"mercator-hq/archivist/pkg/lifecycle"
)

// DefaultDateFormat renders timestamps the way Solr stores dates.
const DefaultDateFormat = "%Y-%m-%dT%H:%M:%S.%fZ"

// Spec selects how the cutoff is obtained. Exactly one of End or Days
// must be given.
type Spec struct {
	// End is used verbatim.
	End string

	// Days is the retention period. DaysSet distinguishes an explicit 0
	// ("everything up to now") from an absent value.
	Days    int
	DaysSet bool

	// DateFormat is a strftime pattern; DefaultDateFormat when empty.
	DateFormat string
}

// Resolve returns the cutoff for spec. now is rendered in UTC.
func Resolve(spec Spec, now time.Time) (string, error) {
	switch {
	case spec.End != "" && spec.DaysSet:
		return "", lifecycle.NewConfigurationError("range", "only one of end or days may be given")
	case spec.End == "" && !spec.DaysSet:
		return "", lifecycle.NewConfigurationError("range", "one of end or days is required")
	case spec.End != "":
		return spec.End, nil
	}

	if spec.Days < 0 {
		return "", lifecycle.NewConfigurationError("range.days", "must not be negative")
	}

	format := spec.DateFormat
	if format == "" {
		format = DefaultDateFormat
	}

	at := now.UTC().Add(-time.Duration(spec.Days) * 24 * time.Hour)
	return strftime.Format(format, at), nil
}

// ResolveAndLog resolves the cutoff and logs it.
func ResolveAndLog(spec Spec, now time.Time, logger *slog.Logger) (string, error) {
	end, err := Resolve(spec, now)
	if err != nil {
		return "", err
	}
	if logger != nil {
		if spec.DaysSet {
			logger.Info("computed cutoff from retention period", "days", spec.Days, "cutoff", end)
		} else {
			logger.Info("using explicit cutoff", "cutoff", end)
		}
	}
	return end, nil
}
