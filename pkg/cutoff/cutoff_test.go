package cutoff

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/archivist/pkg/lifecycle"
)

func TestResolve(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 30, 45, 123456789, time.UTC)

	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{
			name: "explicit end",
			spec: Spec{End: "2024-01-01T00:00:00.000Z"},
			want: "2024-01-01T00:00:00.000Z",
		},
		{
			name: "days with default format",
			spec: Spec{Days: 10, DaysSet: true},
			want: "2024-02-29T12:30:45.123456Z",
		},
		{
			name: "zero days means now",
			spec: Spec{Days: 0, DaysSet: true},
			want: "2024-03-10T12:30:45.123456Z",
		},
		{
			name: "custom format",
			spec: Spec{Days: 1, DaysSet: true, DateFormat: "%Y%m%d"},
			want: "20240309",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.spec, now)
			if err != nil {
				t.Fatalf("Resolve() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_RendersUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, loc)

	got, err := Resolve(Spec{Days: 0, DaysSet: true, DateFormat: "%Y-%m-%d %H"}, now)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got != "2024-03-09 22" {
		t.Errorf("Resolve() = %q, want 2024-03-09 22", got)
	}
}

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"neither", Spec{}},
		{"both", Spec{End: "x", Days: 1, DaysSet: true}},
		{"negative days", Spec{Days: -1, DaysSet: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.spec, time.Now())
			var cfgErr *lifecycle.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("Resolve() error = %v, want *ConfigurationError", err)
			}
		})
	}
}
